package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/go-homedir"
)

const (
	TransportSimulated = "simulated"
	TransportExec      = "exec"
)

// DefaultSystemPrompt is used when the default prompt file does not exist.
const DefaultSystemPrompt = `You are an autonomous agent that reaches the user's goal by calling tools.
Each tool is identified by its name and exposes a fixed set of actions.
Only use the tools and actions listed in the catalog, with arguments that match their descriptions.
Prefer small, verifiable steps and use earlier results and failures to decide what to do next.`

// ConfigurationError reports a missing or malformed configuration file.
type ConfigurationError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ToolServer is one entry of the tool server registry file.
type ToolServer struct {
	Name        string            `mapstructure:"-" json:"name"`
	Command     string            `mapstructure:"command" json:"command"`
	Args        []string          `mapstructure:"args" json:"args,omitempty"`
	Env         map[string]string `mapstructure:"env" json:"env,omitempty"`
	Transport   string            `mapstructure:"transport" json:"transport"`
	Description string            `mapstructure:"description" json:"description,omitempty"`
	Actions     []string          `mapstructure:"actions" json:"actions,omitempty"`
	Timeout     time.Duration     `mapstructure:"timeout" json:"timeout,omitempty"`
}

// LoadSystemPrompt reads and trims the prompt at path.
func LoadSystemPrompt(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", &ConfigurationError{Path: path, Msg: "invalid path", Err: err}
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ConfigurationError{Path: path, Msg: "system prompt file not found", Err: err}
		}
		return "", &ConfigurationError{Path: path, Msg: "error reading system prompt", Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadToolServers reads a registry of the form {"mcpServers": {name: {command, args, env, ...}}}.
func LoadToolServers(path string) (map[string]ToolServer, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Msg: "invalid path", Err: err}
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigurationError{Path: path, Msg: "tool server configuration not found", Err: err}
		}
		return nil, &ConfigurationError{Path: path, Msg: "error reading tool server configuration", Err: err}
	}
	servers, err := ParseToolServers(data)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	return servers, nil
}

// ParseToolServers validates and decodes registry JSON. Server names keep their case.
func ParseToolServers(data []byte) (map[string]ToolServer, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{Msg: "invalid JSON", Err: err}
	}
	raw, ok := doc["mcpServers"].(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Msg: "invalid tool server configuration: 'mcpServers' missing or not an object"}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	registry := make(map[string]ToolServer, len(raw))
	for _, name := range names {
		server, err := decodeToolServer(name, raw[name])
		if err != nil {
			return nil, err
		}
		registry[name] = server
	}
	return registry, nil
}

func decodeToolServer(name string, value any) (ToolServer, error) {
	definition, ok := value.(map[string]any)
	if !ok {
		return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("invalid server definition for '%s'", name)}
	}
	if _, ok := definition["command"].(string); !ok {
		return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("server '%s' is missing a command", name)}
	}
	if args, present := definition["args"]; present {
		if _, ok := args.([]any); !ok {
			return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("server '%s' has invalid args", name)}
		}
	}
	if env, present := definition["env"]; present {
		if _, ok := env.(map[string]any); !ok {
			return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("server '%s' has invalid env", name)}
		}
	}

	var server ToolServer
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &server,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return ToolServer{}, err
	}
	if err := decoder.Decode(definition); err != nil {
		return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("server '%s' is invalid", name), Err: err}
	}

	server.Name = name
	if server.Args == nil {
		server.Args = []string{}
	}
	if server.Env == nil {
		server.Env = map[string]string{}
	}
	switch server.Transport {
	case "":
		server.Transport = TransportSimulated
	case TransportSimulated, TransportExec:
	default:
		return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("server '%s' has unknown transport %q", name, server.Transport)}
	}
	if server.Transport == TransportExec && strings.TrimSpace(server.Command) == "" {
		return ToolServer{}, &ConfigurationError{Msg: fmt.Sprintf("server '%s' uses the exec transport without a command", name)}
	}
	return server, nil
}
