// Package agenttest provides deterministic collaborators for exercising the loop controller.
package agenttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reactagent/internal/agent"
)

// ErrScriptExhausted is returned when a scripted collaborator is called more often than scripted.
var ErrScriptExhausted = errors.New("script exhausted")

// PlanTurn is one scripted Planner response.
type PlanTurn struct {
	Plan agent.Plan
	Err  error
}

// Planner replays PlanTurns in order and records the history it was shown on every call.
type Planner struct {
	mu    sync.Mutex
	turns []PlanTurn
	calls [][]agent.Entry
}

func NewPlanner(turns ...PlanTurn) *Planner {
	return &Planner{turns: turns}
}

func (p *Planner) Plan(_ context.Context, _ agent.Goal, history []agent.Entry) (agent.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	index := len(p.calls)
	p.calls = append(p.calls, agent.CloneEntries(history))
	if index >= len(p.turns) {
		return nil, fmt.Errorf("%w: planner call %d", ErrScriptExhausted, index+1)
	}
	turn := p.turns[index]
	return turn.Plan.Clone(), turn.Err
}

// Calls returns the history snapshots passed to each Plan call.
func (p *Planner) Calls() [][]agent.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]agent.Entry, len(p.calls))
	for i, call := range p.calls {
		out[i] = agent.CloneEntries(call)
	}
	return out
}

func (p *Planner) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// EvalTurn is one scripted Evaluator response.
type EvalTurn struct {
	Decision      agent.Decision
	Justification string
	Err           error
}

// Evaluator replays EvalTurns in order. When Repeat is set, the last turn is reused once the
// script runs out.
type Evaluator struct {
	Repeat bool

	mu    sync.Mutex
	turns []EvalTurn
	calls [][]agent.Entry
}

func NewEvaluator(turns ...EvalTurn) *Evaluator {
	return &Evaluator{turns: turns}
}

// Always returns an evaluator that answers decision on every call.
func Always(decision agent.Decision) *Evaluator {
	return &Evaluator{Repeat: true, turns: []EvalTurn{{Decision: decision}}}
}

func (e *Evaluator) Evaluate(_ context.Context, _ agent.Goal, history []agent.Entry) (agent.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := len(e.calls)
	e.calls = append(e.calls, agent.CloneEntries(history))
	if index >= len(e.turns) {
		if !e.Repeat || len(e.turns) == 0 {
			return agent.Verdict{}, fmt.Errorf("%w: evaluator call %d", ErrScriptExhausted, index+1)
		}
		index = len(e.turns) - 1
	}
	turn := e.turns[index]
	if turn.Err != nil {
		return agent.Verdict{}, turn.Err
	}
	return agent.Verdict{Decision: turn.Decision, Justification: turn.Justification}, nil
}

func (e *Evaluator) Calls() [][]agent.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]agent.Entry, len(e.calls))
	for i, call := range e.calls {
		out[i] = agent.CloneEntries(call)
	}
	return out
}

func (e *Evaluator) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// ToolFunc handles one step for Tools.
type ToolFunc func(ctx context.Context, step agent.Step) agent.Outcome

// Tools dispatches steps to handlers keyed by "tool.action" and records every executed step.
// Steps without a handler fail with unknown_tool.
type Tools struct {
	mu       sync.Mutex
	handlers map[string]ToolFunc
	executed []agent.Step
}

func NewTools() *Tools {
	return &Tools{handlers: make(map[string]ToolFunc)}
}

// Handle registers fn for tool.action and returns t for chaining.
func (t *Tools) Handle(tool, action string, fn ToolFunc) *Tools {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[tool+"."+action] = fn
	return t
}

// Echo registers a handler that returns output for tool.action.
func (t *Tools) Echo(tool, action string, output any) *Tools {
	return t.Handle(tool, action, func(context.Context, agent.Step) agent.Outcome {
		return agent.Succeeded(output)
	})
}

// Fail registers a handler that fails tool.action with reason.
func (t *Tools) Fail(tool, action string, reason agent.FailureReason, message string) *Tools {
	return t.Handle(tool, action, func(context.Context, agent.Step) agent.Outcome {
		return agent.Failed(reason, message)
	})
}

func (t *Tools) Execute(ctx context.Context, step agent.Step) agent.Outcome {
	t.mu.Lock()
	t.executed = append(t.executed, step.Clone())
	fn, ok := t.handlers[step.Tool+"."+step.Action]
	t.mu.Unlock()

	if !ok {
		return agent.Failed(agent.FailureReasonUnknownTool, fmt.Sprintf("no handler for %s.%s", step.Tool, step.Action))
	}
	return fn(ctx, step)
}

// Executed returns the executed steps in call order.
func (t *Tools) Executed() []agent.Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]agent.Step, len(t.executed))
	for i, step := range t.executed {
		out[i] = step.Clone()
	}
	return out
}

// Sink records published events.
type Sink struct {
	mu     sync.Mutex
	events []agent.Event
	Err    error
}

func (s *Sink) Publish(_ context.Context, event agent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.Err
}

func (s *Sink) Events() []agent.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Event(nil), s.events...)
}

// States returns the State of every state_changed event in order.
func (s *Sink) States() []agent.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	var states []agent.State
	for _, event := range s.events {
		if event.Type == agent.EventTypeStateChanged {
			states = append(states, event.State)
		}
	}
	return states
}
