package tools

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"reactagent/internal/config"
)

// NewFromConfig builds the registry used by the agent: the built-in filesystem and shell
// tools when enabled, plus one provider per configured tool server. A configured server
// replaces a built-in tool of the same name.
func NewFromConfig(cfg config.ToolsConfig, servers map[string]config.ToolServer, approver Approver, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AutoApprove {
		approver = AllowAll
	}
	registry := NewRegistry(WithApprover(approver), WithTimeout(cfg.Timeout), WithLogger(logger))

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		server := servers[name]
		server.Name = name

		var p Provider
		switch server.Transport {
		case config.TransportExec:
			p = NewCommandProvider(server)
		default:
			p = NewSimulatedProvider(server)
		}
		if err := registry.Register(WithRetry(p, cfg.Retry, logger)); err != nil {
			return nil, err
		}
		logger.Debug("Registered tool server", zap.String("name", name), zap.String("transport", server.Transport))
	}

	if !cfg.Builtin {
		return registry, nil
	}
	fs, err := NewFilesystemProvider(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("error creating filesystem tool: %w", err)
	}
	for _, p := range []Provider{fs, NewShellProvider(fs)} {
		if _, taken := registry.Lookup(p.Name()); taken {
			logger.Warn("Built-in tool replaced by configured server", zap.String("name", p.Name()))
			continue
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
