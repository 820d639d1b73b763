package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"reactagent/internal/config"
)

// maxOutputBytes truncates process output kept in the history.
const maxOutputBytes = 64 << 10

// CommandProvider runs an external program once per step. The program receives its
// configured args followed by a JSON payload {"action": ..., "arguments": {...}} and
// answers on stdout.
type CommandProvider struct {
	server config.ToolServer
}

var _ Provider = (*CommandProvider)(nil)

func NewCommandProvider(server config.ToolServer) *CommandProvider {
	return &CommandProvider{server: server}
}

func (c *CommandProvider) Name() string { return c.server.Name }

func (c *CommandProvider) Description() string {
	if c.server.Description != "" {
		return c.server.Description
	}
	return fmt.Sprintf("Runs %s with a JSON payload describing the action.", c.server.Command)
}

func (c *CommandProvider) Actions() []Action {
	names := c.server.Actions
	if len(names) == 0 {
		names = KnownActions(c.server.Name)
	}
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		actions = append(actions, Action{Name: name, Parameters: map[string]any{"type": "object"}})
	}
	return actions
}

type commandPayload struct {
	Action    string         `json:"action"`
	Arguments map[string]any `json:"arguments"`
}

func (c *CommandProvider) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	if _, ok := findAction(c, action); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	payload, err := json.Marshal(commandPayload{Action: action, Arguments: args})
	if err != nil {
		return nil, invalidArgs("arguments are not JSON encodable: %v", err)
	}

	if c.server.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.server.Timeout)
		defer cancel()
	}

	argv := append(append([]string(nil), c.server.Args...), string(payload))
	cmd := exec.CommandContext(ctx, c.server.Command, argv...)
	cmd.Env = mergeEnv(os.Environ(), c.server.Env)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s interrupted: %w", c.server.Name, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with code %d: %s", c.server.Name, exitErr.ExitCode(),
				truncate(strings.TrimSpace(stderr.String())))
		}
		// The program could not be started at all.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeOutput(stdout.Bytes()), nil
}

// decodeOutput returns parsed JSON when stdout holds a JSON document, otherwise the text.
func decodeOutput(out []byte) any {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return v
		}
	}
	return truncate(string(trimmed))
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	cut := maxOutputBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n...(truncated)"
}

// mergeEnv overlays extra on base. Keys in extra win.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := extra[key]; !ok {
			out = append(out, kv)
		}
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
