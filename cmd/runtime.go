package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reactagent/internal/agent"
	"reactagent/internal/config"
	"reactagent/internal/llm"
	"reactagent/internal/oracle"
	"reactagent/internal/tools"
)

// agentRuntime holds everything a run needs apart from the goal.
type agentRuntime struct {
	cfg       *config.Config
	client    llm.Client
	registry  *tools.Registry
	planner   *oracle.Planner
	evaluator *oracle.Evaluator
	logger    *zap.Logger
}

func newAgentRuntime(ctx context.Context, cfg *config.Config, approver tools.Approver, logger *zap.Logger) (*agentRuntime, error) {
	prompt, err := loadSystemPrompt(cfg.SystemPrompt, logger)
	if err != nil {
		return nil, err
	}
	servers, err := loadToolServers(cfg.MCPConfig, logger)
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewFromConfig(cfg.Tools, servers, approver, logger)
	if err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	common := []oracle.Option{
		oracle.WithSystemPrompt(prompt),
		oracle.WithMaxTokens(cfg.LLM.MaxTokens),
		oracle.WithLogger(logger),
	}
	planner := oracle.NewPlanner(client, registry, append(common, oracle.WithTemperature(cfg.LLM.PlanTemperature))...)
	evaluator := oracle.NewEvaluator(client, append(common, oracle.WithTemperature(cfg.LLM.EvalTemperature))...)

	logger.Info("Agent ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", client.Model()),
		zap.Strings("tools", registry.Names()),
		zap.Int("max_iterations", cfg.Loop.MaxIterations))

	return &agentRuntime{
		cfg:       cfg,
		client:    client,
		registry:  registry,
		planner:   planner,
		evaluator: evaluator,
		logger:    logger,
	}, nil
}

func (rt *agentRuntime) controller(sink agent.EventSink) (*agent.Controller, error) {
	opts := []agent.Option{
		agent.WithMaxIterations(rt.cfg.Loop.MaxIterations),
		agent.WithLogger(rt.logger),
		agent.WithRunIDGenerator(uuid.NewString),
	}
	if sink != nil {
		opts = append(opts, agent.WithEventSink(sink))
	}
	return agent.NewController(rt.planner, rt.evaluator, rt.registry, opts...)
}

// loadSystemPrompt falls back to the built-in prompt only when the default file is absent.
func loadSystemPrompt(path string, logger *zap.Logger) (string, error) {
	prompt, err := config.LoadSystemPrompt(path)
	if err == nil {
		return prompt, nil
	}
	if path == config.DefaultSystemPromptPath && errors.Is(err, os.ErrNotExist) {
		logger.Warn("System prompt file not found, using the built-in prompt", zap.String("path", path))
		return config.DefaultSystemPrompt, nil
	}
	return "", err
}

// loadToolServers treats a missing default registry as empty.
func loadToolServers(path string, logger *zap.Logger) (map[string]config.ToolServer, error) {
	servers, err := config.LoadToolServers(path)
	if err == nil {
		return servers, nil
	}
	if path == config.DefaultToolServersPath && errors.Is(err, os.ErrNotExist) {
		logger.Debug("No tool server registry found", zap.String("path", path))
		return map[string]config.ToolServer{}, nil
	}
	return nil, fmt.Errorf("error loading tool servers: %w", err)
}
