package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Provider is a named tool exposing a fixed set of actions.
type Provider interface {
	// Name is the tool name plans refer to.
	Name() string
	// Description tells the planner what the tool is for.
	Description() string
	// Actions lists what the tool can do.
	Actions() []Action
	// Execute runs one action. Arguments are the decoded JSON object from the plan.
	Execute(ctx context.Context, action string, args map[string]any) (any, error)
}

// Action describes one operation of a Provider.
type Action struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Parameters is the JSON schema of the arguments.
	Parameters           any  `json:"parameters,omitempty"`
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`
}

// ToolInfo is the catalog entry of a registered provider.
type ToolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []Action `json:"actions"`
}

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrUnknownAction    = errors.New("unknown action")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrDenied           = errors.New("action denied")
	// ErrUnavailable marks transient failures that may succeed when retried.
	ErrUnavailable   = errors.New("tool unavailable")
	ErrDuplicateTool = errors.New("tool already registered")
)

func invalidArgs(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

// decodeArgs copies plan arguments into out. Planners often send numbers and booleans as
// strings, so decoding is weakly typed.
func decodeArgs(action string, args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return invalidArgs("%s: %v", action, err)
	}
	return nil
}

func findAction(p Provider, name string) (Action, bool) {
	for _, a := range p.Actions() {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// schema builds a JSON schema object from property descriptions.
func schema(required []string, props map[string]string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{"type": "string", "description": desc}
	}
	out := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
