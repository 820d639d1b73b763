package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reactagent/internal/config"
)

type countingClient struct {
	calls int
	err   error
}

func (c *countingClient) Complete(context.Context, Request) (string, error) {
	c.calls++
	return "ok", c.err
}

func (c *countingClient) Model() string { return "counting" }

func TestNewRateLimitedPassthrough(t *testing.T) {
	inner := &countingClient{}
	assert.Same(t, inner, NewRateLimited(inner, 0))
}

func TestRateLimitedClientWaits(t *testing.T) {
	inner := &countingClient{}
	client := NewRateLimited(inner, 600) // one request every 100ms

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Complete(context.Background(), Request{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "counting", client.Model())
}

func TestRateLimitedClientHonoursContext(t *testing.T) {
	inner := &countingClient{}
	client := NewRateLimited(inner, 1)
	_, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.Complete(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestLoggingClientPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	client := &loggingClient{Client: &countingClient{err: boom}, logger: zaptest.NewLogger(t)}
	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestNewSelectsProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	}))
	defer srv.Close()

	cfg := config.NewDefaultConfig().LLM
	cfg.Provider = config.ProviderCompatible
	cfg.APIURL = srv.URL
	cfg.Model = "local"

	client, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "local", client.Model())
	out, err := client.Complete(context.Background(), Request{Prompt: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	cfg.Provider = config.ProviderOpenAI
	cfg.APIKey = "sk-test"
	client, err = New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", client.Model())

	cfg.Provider = config.ProviderAnthropic
	cfg.APIKey = ""
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "requires an API key")

	cfg.Provider = "cohere"
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown llm provider")
}
