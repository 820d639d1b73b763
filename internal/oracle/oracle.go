// Package oracle implements the loop's Planner and Evaluator on top of a language model.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"reactagent/internal/agent"
	"reactagent/internal/llm"
	"reactagent/internal/tools"
)

const (
	DefaultPlanTemperature = 0.2
	DefaultEvalTemperature = 0.0
)

// Catalog describes the tools a plan may use.
type Catalog interface {
	Describe() []tools.ToolInfo
}

type settings struct {
	systemPrompt string
	temperature  float64
	maxTokens    int
	logger       *zap.Logger
}

// Option configures a Planner or Evaluator.
type Option func(*settings)

func WithSystemPrompt(prompt string) Option {
	return func(s *settings) { s.systemPrompt = prompt }
}

func WithTemperature(t float64) Option {
	return func(s *settings) { s.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(s *settings) { s.maxTokens = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newSettings(temperature float64, opts []Option) settings {
	s := settings{temperature: temperature, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// complete calls the model and converts transport problems into oracle failures.
func complete(ctx context.Context, client llm.Client, s settings, prompt string) (string, error) {
	out, err := client.Complete(ctx, llm.Request{
		System:      s.systemPrompt,
		Prompt:      prompt,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		JSON:        true,
	})
	if err == nil {
		return out, nil
	}
	switch {
	case errors.Is(err, llm.ErrRefused):
		return "", agent.Refused(err.Error())
	case errors.Is(err, llm.ErrEmptyResponse):
		return "", agent.Malformed(err)
	default:
		return "", agent.Unavailable(fmt.Errorf("%s: %w", client.Model(), err))
	}
}
