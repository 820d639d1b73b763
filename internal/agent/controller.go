package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller drives the plan -> execute -> evaluate loop. It holds no per-run state, so a
// single Controller may run any number of goals; every Run gets its own history.
type Controller struct {
	planner       Planner
	evaluator     Evaluator
	tools         ToolProvider
	maxIterations int
	logger        *zap.Logger
	events        EventSink
	now           func() time.Time
	newRunID      func() string
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxIterations sets the iteration cap. Values below one select DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(c *Controller) {
		if n <= 0 {
			n = DefaultMaxIterations
		}
		c.maxIterations = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger.Named("controller")
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.events = sink
		}
	}
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithRunIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newRunID = gen
		}
	}
}

func NewController(planner Planner, evaluator Evaluator, tools ToolProvider, opts ...Option) (*Controller, error) {
	if planner == nil {
		return nil, errors.New("planner is required")
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if tools == nil {
		return nil, errors.New("tool provider is required")
	}
	c := &Controller{
		planner:       planner,
		evaluator:     evaluator,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
		events:        noopEventSink{},
		now:           time.Now,
		newRunID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MaxIterations returns the configured cap.
func (c *Controller) MaxIterations() int { return c.maxIterations }

// loopState is the mutable state of one run.
type loopState struct {
	runID         string
	goal          Goal
	history       *History
	state         State
	iteration     int // current iteration, 1-based
	completed     int // fully evaluated iterations
	maxIterations int
	plan          Plan
	verdict       *Verdict
	failure       *OracleFailure
	outcome       RunOutcome
	startedAt     time.Time
	logger        *zap.Logger
}

// Run executes the loop for goal until the goal is satisfied, the cap is reached or an
// oracle fails. The returned error is non-nil only for a blank goal or an oracle failure;
// in the latter case the report is returned as well.
func (c *Controller) Run(ctx context.Context, goal string) (*Report, error) {
	g, err := NewGoal(goal)
	if err != nil {
		return nil, err
	}

	runID := c.newRunID()
	st := &loopState{
		runID:         runID,
		goal:          g,
		history:       NewHistory(),
		iteration:     1,
		maxIterations: c.maxIterations,
		startedAt:     c.now(),
		logger:        c.logger.With(zap.String("run_id", runID)),
	}
	st.logger.Info("Starting run", zap.String("goal", g.String()), zap.Int("max_iterations", st.maxIterations))
	c.publish(ctx, st, Event{Type: EventTypeRunStarted})

	if err := c.transition(ctx, st, StatePlanning); err != nil {
		return nil, err
	}
	for st.state != StateDone {
		var stepErr error
		switch st.state {
		case StatePlanning:
			stepErr = c.plan(ctx, st)
		case StateExecuting:
			stepErr = c.execute(ctx, st)
		case StateEvaluating:
			stepErr = c.evaluate(ctx, st)
		case StateReplanning:
			st.iteration++
			stepErr = c.transition(ctx, st, StatePlanning)
		default:
			stepErr = fmt.Errorf("%w: unexpected state %q", ErrInvalidTransition, st.state)
		}
		if stepErr != nil {
			return nil, stepErr
		}
	}

	report := st.report(c.now())
	c.publish(ctx, st, Event{Type: EventTypeRunFinished, Report: report})
	if report.Failure != nil {
		return report, report.Failure
	}
	return report, nil
}

func (c *Controller) plan(ctx context.Context, st *loopState) error {
	plan, err := c.planner.Plan(ctx, st.goal, st.history.Snapshot())
	if err != nil {
		return c.fail(ctx, st, classifyOracleError(PhasePlanning, st.iteration, err))
	}

	st.plan = plan.Clone()
	st.logger.Info("Plan received", zap.Int("iteration", st.iteration), zap.Int("steps", len(st.plan)))
	c.append(ctx, st, PlanRecord{EntryMeta: c.meta(st), Steps: st.plan})
	return c.transition(ctx, st, StateExecuting)
}

// execute runs every planned step in order. A failed step never stops the remaining ones.
func (c *Controller) execute(ctx context.Context, st *loopState) error {
	for i, step := range st.plan {
		outcome := c.tools.Execute(ctx, step.Clone())
		fields := []zap.Field{
			zap.Int("iteration", st.iteration),
			zap.Int("step", i+1),
			zap.String("tool", step.Tool),
			zap.String("action", step.Action),
		}
		if outcome.Err != nil {
			reason := outcome.Err.Reason
			if reason == "" {
				reason = FailureReasonToolError
			}
			st.logger.Warn("Step failed", append(fields, zap.String("reason", string(reason)), zap.String("message", outcome.Err.Message))...)
			c.append(ctx, st, Failure{
				EntryMeta: c.meta(st),
				Step:      step,
				Reason:    reason,
				Message:   outcome.Err.Message,
			})
			continue
		}
		st.logger.Info("Step succeeded", fields...)
		c.append(ctx, st, Result{EntryMeta: c.meta(st), Step: step, Output: outcome.Output})
	}
	st.plan = nil
	return c.transition(ctx, st, StateEvaluating)
}

func (c *Controller) evaluate(ctx context.Context, st *loopState) error {
	verdict, err := c.evaluator.Evaluate(ctx, st.goal, st.history.Snapshot())
	if err == nil && !verdict.Decision.Valid() {
		err = Malformed(fmt.Errorf("unknown decision %q", verdict.Decision))
	}
	if err != nil {
		return c.fail(ctx, st, classifyOracleError(PhaseEvaluation, st.iteration, err))
	}

	verdict.EntryMeta = c.meta(st)
	c.append(ctx, st, verdict)
	st.verdict = &verdict
	st.completed++

	fields := []zap.Field{
		zap.Int("iteration", st.iteration),
		zap.String("decision", string(verdict.Decision)),
		zap.String("justification", verdict.Justification),
	}
	switch {
	case verdict.Decision == DecisionSatisfied:
		st.logger.Info("Goal satisfied", fields...)
		st.outcome = OutcomeSatisfied
		return c.transition(ctx, st, StateDone)
	case st.completed >= st.maxIterations:
		st.logger.Warn("Iteration cap reached without satisfying the goal", append(fields, zap.Int("max_iterations", st.maxIterations))...)
		st.outcome = OutcomeCapExceeded
		return c.transition(ctx, st, StateDone)
	default:
		if verdict.Decision == DecisionIndeterminate {
			st.logger.Warn("Evaluator could not decide; replanning", fields...)
		} else {
			st.logger.Info("Goal not satisfied; replanning", fields...)
		}
		return c.transition(ctx, st, StateReplanning)
	}
}

func (c *Controller) fail(ctx context.Context, st *loopState, failure *OracleFailure) error {
	st.logger.Error("Run failed",
		zap.String("phase", string(failure.Phase)),
		zap.String("reason", string(failure.Reason)),
		zap.Int("iteration", failure.Iteration),
		zap.Error(failure.Err),
	)
	st.failure = failure
	st.outcome = OutcomeFailed
	return c.transition(ctx, st, StateDone)
}

func (c *Controller) transition(ctx context.Context, st *loopState, to State) error {
	if err := validateTransition(st.state, to); err != nil {
		return err
	}
	st.logger.Debug("State transition",
		zap.String("from", string(st.state)),
		zap.String("to", string(to)),
		zap.Int("iteration", st.iteration),
	)
	st.state = to
	c.publish(ctx, st, Event{Type: EventTypeStateChanged})
	return nil
}

func (c *Controller) append(ctx context.Context, st *loopState, entry Entry) {
	st.history.Append(entry)
	c.publish(ctx, st, Event{Type: EventTypeEntryAppended, Entry: entry.cloneEntry()})
}

func (c *Controller) meta(st *loopState) EntryMeta {
	return EntryMeta{
		Ordinal:   st.history.Len() + 1,
		Iteration: st.iteration,
		At:        c.now(),
	}
}

func (c *Controller) publish(ctx context.Context, st *loopState, event Event) {
	event.RunID = st.runID
	event.Goal = st.goal
	event.Iteration = st.iteration
	event.State = st.state
	if err := c.events.Publish(ctx, event); err != nil {
		st.logger.Debug("Event sink rejected event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (st *loopState) report(finishedAt time.Time) *Report {
	report := &Report{
		RunID:         st.runID,
		Goal:          st.goal,
		Outcome:       st.outcome,
		Iterations:    st.completed,
		MaxIterations: st.maxIterations,
		Failure:       st.failure,
		History:       st.history.Snapshot(),
		StartedAt:     st.startedAt,
		FinishedAt:    finishedAt,
	}
	if st.verdict != nil {
		verdict := *st.verdict
		report.Verdict = &verdict
	}
	return report
}
