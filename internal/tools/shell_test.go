package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellRunsInWorkspace(t *testing.T) {
	requireShell(t)
	shell := NewShellProvider(newWorkspace(t))

	out, err := shell.Execute(context.Background(), "run_shell_command", map[string]any{"command": "ls"})
	require.NoError(t, err)
	assert.Contains(t, out, "README.md")

	out, err = shell.Execute(context.Background(), "run_shell_command", map[string]any{"command": "ls", "directory": "internal"})
	require.NoError(t, err)
	assert.Contains(t, out, "a.go")
	assert.NotContains(t, out, "README.md")
}

func TestShellErrors(t *testing.T) {
	requireShell(t)
	shell := NewShellProvider(newWorkspace(t))
	ctx := context.Background()

	_, err := shell.Execute(ctx, "run_shell_command", map[string]any{"command": "  "})
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = shell.Execute(ctx, "run_shell_command", map[string]any{"command": "ls", "directory": "../.."})
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = shell.Execute(ctx, "format_disk", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = shell.Execute(ctx, "run_shell_command", map[string]any{"command": "echo boom; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command exited with code 3")
	assert.Contains(t, err.Error(), "boom")
}

func TestShellTimeout(t *testing.T) {
	requireShell(t)
	shell := NewShellProvider(newWorkspace(t))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := shell.Execute(ctx, "run_shell_command", map[string]any{"command": "sleep 5"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShellRequiresConfirmation(t *testing.T) {
	actions := NewShellProvider(newWorkspace(t)).Actions()
	require.Len(t, actions, 1)
	assert.True(t, actions[0].RequiresConfirmation)
}
