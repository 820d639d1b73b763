package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClient spaces requests to the wrapped client.
type RateLimitedClient struct {
	Client
	limiter *rate.Limiter
}

// NewRateLimited limits client to requestsPerMinute calls. Zero or less returns client unchanged.
func NewRateLimited(client Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		return client
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimitedClient{
		Client:  client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (c *RateLimitedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return c.Client.Complete(ctx, req)
}
