package oracle

import (
	"context"

	"go.uber.org/zap"

	"reactagent/internal/agent"
	"reactagent/internal/llm"
)

// Planner asks a language model for the next plan.
type Planner struct {
	client  llm.Client
	catalog Catalog
	settings
}

var _ agent.Planner = (*Planner)(nil)

// NewPlanner creates a Planner. Temperature defaults to DefaultPlanTemperature.
func NewPlanner(client llm.Client, catalog Catalog, opts ...Option) *Planner {
	p := &Planner{
		client:   client,
		catalog:  catalog,
		settings: newSettings(DefaultPlanTemperature, opts),
	}
	p.logger = p.logger.Named("planner")
	return p
}

func (p *Planner) Plan(ctx context.Context, goal agent.Goal, history []agent.Entry) (agent.Plan, error) {
	prompt, err := planPrompt(goal, history, p.catalog.Describe())
	if err != nil {
		return nil, agent.Malformed(err)
	}

	text, err := complete(ctx, p.client, p.settings, prompt)
	if err != nil {
		return nil, err
	}

	plan, err := ParsePlan(text)
	if err != nil {
		p.logger.Warn("Could not parse planner response", zap.String("response", text), zap.Error(err))
		return nil, err
	}
	p.logger.Debug("Parsed plan", zap.Int("steps", len(plan)))
	return plan, nil
}
