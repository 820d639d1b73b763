package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactagent/internal/config"
)

func TestKnownActions(t *testing.T) {
	assert.Equal(t, []string{"list_directory", "read_file", "write_file", "delete_path"}, KnownActions("filesystem"))
	assert.Equal(t, []string{"search"}, KnownActions("brave-search"))
	assert.Equal(t, []string{"move_mouse", "click", "type", "screenshot"}, KnownActions("computer-use"))
	assert.Equal(t, []string{"execute"}, KnownActions("custom"))

	actions := KnownActions("excel")
	actions[0] = "changed"
	assert.Equal(t, "open_workbook", KnownActions("excel")[0])
}

func TestSimulatedProvider(t *testing.T) {
	p := NewSimulatedProvider(config.ToolServer{Name: "playwright"})

	names := make([]string, 0, len(p.Actions()))
	for _, a := range p.Actions() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"open_page", "click", "type", "screenshot"}, names)
	assert.Equal(t, "Tool server playwright (simulated).", p.Description())

	out, err := p.Execute(context.Background(), "open_page", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Contains(t, out, "Server: playwright")
	assert.Contains(t, out, "Action: open_page")
	assert.Contains(t, out, `Parameters: {"url":"https://example.com"}`)

	_, err = p.Execute(context.Background(), "execute", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSimulatedProviderConfiguredActions(t *testing.T) {
	p := NewSimulatedProvider(config.ToolServer{Name: "custom", Description: "My server", Actions: []string{"ping"}})

	assert.Equal(t, "My server", p.Description())
	require.Len(t, p.Actions(), 1)
	assert.Equal(t, "ping", p.Actions()[0].Name)
}
