package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reactagent/internal/config"
)

// syncBuffer adapts a bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (*syncBuffer) Sync() error { return nil }

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf syncBuffer
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "reactagent"}, &buf)
	GetLogger().Named("controller").Info("Starting run")
	Sync()

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, colorBlue)
	assert.Contains(t, out, "reactagent.controller.")
	assert.Contains(t, out, "Starting run")
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var first, second syncBuffer
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, &first)
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, &second)
	GetLogger().Info("hello")

	assert.Contains(t, first.String(), "hello")
	assert.Empty(t, second.String())
}

func TestLevelFiltersAndInvalidLevelFallsBack(t *testing.T) {
	var buf syncBuffer
	logger := New(config.LoggerConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = New(config.LoggerConfig{Level: "loud", Format: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactagent.log")
	logger := New(config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1}, nil)
	logger.Info("Step succeeded", zap.String("tool", "filesystem"))
	require.NoError(t, logger.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var line map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "Step succeeded", line["msg"])
	assert.Equal(t, "filesystem", line["tool"])
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
	Sync()
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	logger := New(config.LoggerConfig{Level: "info"}, nil)
	assert.NotNil(t, logger)
	logger.Info("nowhere")
}
