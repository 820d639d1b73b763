package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reactagent/internal/config"
)

// New builds the backend selected by cfg.Provider, rate limited and logged.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.Timeout)
	case config.ProviderAnthropic:
		client, err = NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.Timeout)
	case config.ProviderGemini:
		client, err = NewGeminiClient(ctx, cfg.APIKey, cfg.Model, "", cfg.Timeout)
	case config.ProviderCompatible:
		client = NewCompatibleClient(cfg.APIURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Using LLM backend",
		zap.String("provider", cfg.Provider),
		zap.String("model", client.Model()),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
	)
	client = NewRateLimited(client, cfg.RequestsPerMinute)
	return &loggingClient{Client: client, logger: logger.Named("llm")}, nil
}

// loggingClient records the latency and outcome of every completion at debug level.
type loggingClient struct {
	Client
	logger *zap.Logger
}

func (c *loggingClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := c.Client.Complete(ctx, req)
	fields := []zap.Field{
		zap.String("model", c.Model()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_chars", len(req.Prompt)),
		zap.Int("response_chars", len(out)),
	}
	if err != nil {
		c.logger.Debug("Completion failed", append(fields, zap.Error(err))...)
		return "", err
	}
	c.logger.Debug("Completion finished", fields...)
	return out, nil
}
