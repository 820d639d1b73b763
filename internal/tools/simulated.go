package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"reactagent/internal/config"
)

var knownActions = map[string][]string{
	"filesystem":   {"list_directory", "read_file", "write_file", "delete_path"},
	"brave-search": {"search"},
	"playwright":   {"open_page", "click", "type", "screenshot"},
	"excel":        {"open_workbook", "list_sheets", "read_range", "write_range"},
	"computer-use": {"move_mouse", "click", "type", "screenshot"},
}

// KnownActions returns the actions of well-known tool servers, or ["execute"].
func KnownActions(server string) []string {
	if actions, ok := knownActions[server]; ok {
		return append([]string(nil), actions...)
	}
	return []string{"execute"}
}

// SimulatedProvider stands in for a tool server that is registered but not connected. It
// accepts every listed action and echoes the invocation back.
type SimulatedProvider struct {
	server config.ToolServer
}

var _ Provider = (*SimulatedProvider)(nil)

func NewSimulatedProvider(server config.ToolServer) *SimulatedProvider {
	return &SimulatedProvider{server: server}
}

func (s *SimulatedProvider) Name() string { return s.server.Name }

func (s *SimulatedProvider) Description() string {
	if s.server.Description != "" {
		return s.server.Description
	}
	return fmt.Sprintf("Tool server %s (simulated).", s.server.Name)
}

func (s *SimulatedProvider) Actions() []Action {
	names := s.server.Actions
	if len(names) == 0 {
		names = KnownActions(s.server.Name)
	}
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		actions = append(actions, Action{Name: name, Parameters: map[string]any{"type": "object"}})
	}
	return actions
}

func (s *SimulatedProvider) Execute(_ context.Context, action string, args map[string]any) (any, error) {
	if _, ok := findAction(s, action); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	params, err := json.Marshal(args)
	if err != nil {
		return nil, invalidArgs("arguments are not JSON encodable: %v", err)
	}
	return fmt.Sprintf("Simulated execution; no live server is connected.\nServer: %s\nAction: %s\nParameters: %s",
		s.server.Name, action, params), nil
}
