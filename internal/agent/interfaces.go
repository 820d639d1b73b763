package agent

import "context"

// Planner proposes the next plan from the goal and a snapshot of the history.
// A non-nil error is a planning failure and ends the run.
type Planner interface {
	Plan(ctx context.Context, goal Goal, history []Entry) (Plan, error)
}

// Evaluator judges whether the goal is satisfied given a snapshot of the history.
// A non-nil error is an evaluation failure and ends the run.
type Evaluator interface {
	Evaluate(ctx context.Context, goal Goal, history []Entry) (Verdict, error)
}

// ToolProvider executes exactly one step and reports its outcome. Ordinary problems such as
// unknown tools, bad arguments or timeouts are returned as Outcome.Err, never as panics.
type ToolProvider interface {
	Execute(ctx context.Context, step Step) Outcome
}

// EventSink receives loop events. Publishing is best effort.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
