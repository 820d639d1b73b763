package tools

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"reactagent/internal/config"
)

type retryingProvider struct {
	Provider
	cfg    config.RetryConfig
	logger *zap.Logger
}

// WithRetry retries actions of p that fail with ErrUnavailable, backing off exponentially.
// Every other error is returned after the first attempt. MaxAttempts below 2 disables
// retrying and p is returned unchanged.
func WithRetry(p Provider, cfg config.RetryConfig, logger *zap.Logger) Provider {
	if cfg.MaxAttempts < 2 {
		return p
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingProvider{Provider: p, cfg: cfg, logger: logger}
}

func (r *retryingProvider) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	policy := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		policy.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		policy.MaxInterval = r.cfg.MaxInterval
	}
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	operation := func() (any, error) {
		attempt++
		out, err := r.Provider.Execute(ctx, action, args)
		if err != nil && !errors.Is(err, ErrUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return out, err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Info("Retrying tool action",
			zap.String("tool", r.Name()),
			zap.String("action", action),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return backoff.RetryNotifyWithData(operation, b, notify)
}
