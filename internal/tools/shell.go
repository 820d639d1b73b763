package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ShellToolName is the name plans use for the built-in shell tool.
const ShellToolName = "shell"

// ShellProvider runs commands through the system shell inside the workspace.
type ShellProvider struct {
	fs *FilesystemProvider
}

var _ Provider = (*ShellProvider)(nil)

// NewShellProvider shares the workspace root of fs for resolving working directories.
func NewShellProvider(fs *FilesystemProvider) *ShellProvider {
	return &ShellProvider{fs: fs}
}

func (s *ShellProvider) Name() string { return ShellToolName }

func (s *ShellProvider) Description() string {
	return "Runs a shell command and returns its combined stdout and stderr. Commands can modify the system."
}

func (s *ShellProvider) Actions() []Action {
	return []Action{{
		Name:        "run_shell_command",
		Description: "Executes a command with sh -c (cmd /C on Windows).",
		Parameters: schema([]string{"command"}, map[string]string{
			"command":   "The command line to execute.",
			"directory": "Working directory relative to the workspace. Defaults to the workspace root.",
		}),
		RequiresConfirmation: true,
	}}
}

type shellArgs struct {
	Command   string `json:"command"`
	Directory string `json:"directory"`
}

func (s *ShellProvider) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	if action != "run_shell_command" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	var in shellArgs
	if err := decodeArgs(action, args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Command) == "" {
		return nil, invalidArgs("command must not be empty")
	}
	dir, err := s.fs.resolve(in.Directory)
	if err != nil {
		return nil, err
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", in.Command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", in.Command)
	}
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("command interrupted: %w", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("command exited with code %d:\n%s", exitErr.ExitCode(), output)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return string(output), nil
}
