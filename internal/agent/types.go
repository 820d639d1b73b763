package agent

import (
	"strings"
	"time"
)

// DefaultMaxIterations bounds a run when no cap is configured.
const DefaultMaxIterations = 10

// Goal is the user's objective for one run.
type Goal string

// NewGoal trims the input and rejects blank goals.
func NewGoal(s string) (Goal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", ErrEmptyGoal
	}
	return Goal(trimmed), nil
}

func (g Goal) String() string { return string(g) }

// Step is one planned tool invocation.
type Step struct {
	Tool      string         `json:"tool"`
	Action    string         `json:"action"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Rationale string         `json:"rationale,omitempty"`
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.Arguments != nil {
		out.Arguments = cloneMap(s.Arguments)
	}
	return out
}

// Plan is the ordered list of steps returned by one Planner call. An empty plan is valid.
type Plan []Step

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	out := make(Plan, len(p))
	for i := range p {
		out[i] = p[i].Clone()
	}
	return out
}

// FailureReason classifies why a step did not succeed.
type FailureReason string

const (
	FailureReasonUnknownTool      FailureReason = "unknown_tool"
	FailureReasonUnknownAction    FailureReason = "unknown_action"
	FailureReasonInvalidArguments FailureReason = "invalid_arguments"
	FailureReasonDenied           FailureReason = "denied"
	FailureReasonTimeout          FailureReason = "timeout"
	FailureReasonUnavailable      FailureReason = "unavailable"
	FailureReasonToolError        FailureReason = "tool_error"
)

// StepError is the business-level failure of a single step.
type StepError struct {
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

func (e *StepError) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Message
}

// Outcome is what a ToolProvider reports for one step: an output or a StepError.
type Outcome struct {
	Output any
	Err    *StepError
}

// Succeeded builds a successful outcome.
func Succeeded(output any) Outcome {
	return Outcome{Output: output}
}

// Failed builds a failed outcome.
func Failed(reason FailureReason, message string) Outcome {
	return Outcome{Err: &StepError{Reason: reason, Message: message}}
}

// Decision is the evaluator's judgement of goal satisfaction.
type Decision string

const (
	DecisionSatisfied     Decision = "satisfied"
	DecisionNotSatisfied  Decision = "not_satisfied"
	DecisionIndeterminate Decision = "indeterminate"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionSatisfied, DecisionNotSatisfied, DecisionIndeterminate:
		return true
	default:
		return false
	}
}

// RunOutcome is the terminal classification of a run.
type RunOutcome string

const (
	OutcomeSatisfied   RunOutcome = "satisfied"
	OutcomeCapExceeded RunOutcome = "cap_exceeded"
	OutcomeFailed      RunOutcome = "failed"
)

// Report is the frozen result of a run.
type Report struct {
	RunID         string         `json:"run_id"`
	Goal          Goal           `json:"goal"`
	Outcome       RunOutcome     `json:"outcome"`
	Iterations    int            `json:"iterations"`
	MaxIterations int            `json:"max_iterations"`
	Verdict       *Verdict       `json:"verdict,omitempty"`
	Failure       *OracleFailure `json:"failure,omitempty"`
	History       []Entry        `json:"-"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types produced by JSON decoding; other values are
// treated as immutable.
func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		out := make([]any, len(value))
		for i := range value {
			out[i] = cloneValue(value[i])
		}
		return out
	case []string:
		return append([]string(nil), value...)
	case map[string]string:
		out := make(map[string]string, len(value))
		for k, s := range value {
			out[k] = s
		}
		return out
	case []byte:
		return append([]byte(nil), value...)
	default:
		return v
	}
}
