package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reactagent/internal/audit"
	"reactagent/internal/config"
	"reactagent/internal/tools"
)

// newTestConfig points the compatible provider at a server answering every completion with content.
func newTestConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := config.NewDefaultConfig()
	cfg.LLM.Provider = config.ProviderCompatible
	cfg.LLM.APIURL = srv.URL
	cfg.LLM.APIKey = ""
	cfg.Tools.Workspace = t.TempDir()
	cfg.Audit.Enabled = true
	cfg.Audit.Path = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func auditedRuns(t *testing.T, path string) []audit.RunSummary {
	t.Helper()
	store, err := audit.Open(path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	return runs
}

func TestExecuteRunFailedPlanJSON(t *testing.T) {
	cfg := newTestConfig(t, "not json at all")

	var out bytes.Buffer
	err := executeRun(context.Background(), &out, cfg, tools.DenyAll, zap.NewNop(), "list the files", true)
	assert.ErrorIs(t, err, errRunFailed)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded), out.String())
	assert.Equal(t, "failed", decoded["outcome"])
	failure, ok := decoded["failure"].(map[string]any)
	require.True(t, ok, "failure is reported")
	assert.Equal(t, "planning", failure["phase"])
	assert.Equal(t, "malformed_response", failure["reason"])

	runs := auditedRuns(t, cfg.Audit.Path)
	require.Len(t, runs, 1)
	assert.Equal(t, decoded["run_id"], runs[0].RunID)
	assert.Equal(t, "failed", string(runs[0].Outcome))
}

func TestExecuteRunFailedPlanText(t *testing.T) {
	cfg := newTestConfig(t, "not json at all")
	cfg.Audit.Enabled = false

	var out bytes.Buffer
	err := executeRun(context.Background(), &out, cfg, tools.DenyAll, zap.NewNop(), "list the files", false)
	assert.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out.String(), "Run failed: ")
}
