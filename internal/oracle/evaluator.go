package oracle

import (
	"context"

	"go.uber.org/zap"

	"reactagent/internal/agent"
	"reactagent/internal/llm"
)

// Evaluator asks a language model whether the goal is satisfied.
type Evaluator struct {
	client llm.Client
	settings
}

var _ agent.Evaluator = (*Evaluator)(nil)

// NewEvaluator creates an Evaluator. Temperature defaults to DefaultEvalTemperature.
func NewEvaluator(client llm.Client, opts ...Option) *Evaluator {
	e := &Evaluator{
		client:   client,
		settings: newSettings(DefaultEvalTemperature, opts),
	}
	e.logger = e.logger.Named("evaluator")
	return e
}

func (e *Evaluator) Evaluate(ctx context.Context, goal agent.Goal, history []agent.Entry) (agent.Verdict, error) {
	text, err := complete(ctx, e.client, e.settings, evalPrompt(goal, history))
	if err != nil {
		return agent.Verdict{}, err
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		e.logger.Warn("Could not parse evaluator response", zap.String("response", text), zap.Error(err))
		return agent.Verdict{}, err
	}
	return verdict, nil
}
