package agent

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyGoal         = errors.New("goal is empty")
	ErrPlanningFailure   = errors.New("planning failed")
	ErrEvaluationFailure = errors.New("evaluation failed")
	// ErrInvalidTransition reports a state change the loop state machine does not allow.
	ErrInvalidTransition = errors.New("invalid loop state transition")
)

// Phase identifies which oracle call failed.
type Phase string

const (
	PhasePlanning   Phase = "planning"
	PhaseEvaluation Phase = "evaluation"
)

// OracleReason classifies an oracle failure.
type OracleReason string

const (
	OracleReasonMalformed   OracleReason = "malformed_response"
	OracleReasonUnavailable OracleReason = "unavailable"
	OracleReasonRefused     OracleReason = "refused"
)

// OracleFailure is a PlanningFailure or EvaluationFailure. It always ends the run.
type OracleFailure struct {
	Phase     Phase        `json:"phase"`
	Reason    OracleReason `json:"reason"`
	Iteration int          `json:"iteration"`
	Message   string       `json:"message"`
	Err       error        `json:"-"`
}

func (e *OracleFailure) Error() string {
	prefix := "oracle failed"
	switch e.Phase {
	case PhasePlanning:
		prefix = ErrPlanningFailure.Error()
	case PhaseEvaluation:
		prefix = ErrEvaluationFailure.Error()
	}
	if e.Iteration > 0 {
		prefix = fmt.Sprintf("%s at iteration %d", prefix, e.Iteration)
	}
	return fmt.Sprintf("%s (%s): %s", prefix, e.Reason, e.Message)
}

func (e *OracleFailure) Unwrap() error { return e.Err }

// Is matches ErrPlanningFailure or ErrEvaluationFailure according to the phase.
func (e *OracleFailure) Is(target error) bool {
	switch target {
	case ErrPlanningFailure:
		return e.Phase == PhasePlanning
	case ErrEvaluationFailure:
		return e.Phase == PhaseEvaluation
	default:
		return false
	}
}

// Malformed marks an oracle response that could not be parsed into a plan or verdict.
func Malformed(err error) error {
	return newOracleFailure(OracleReasonMalformed, err)
}

// Unavailable marks an oracle that could not be reached.
func Unavailable(err error) error {
	return newOracleFailure(OracleReasonUnavailable, err)
}

// Refused marks an oracle that declined to answer.
func Refused(message string) error {
	return newOracleFailure(OracleReasonRefused, errors.New(message))
}

func newOracleFailure(reason OracleReason, err error) *OracleFailure {
	if err == nil {
		err = errors.New(string(reason))
	}
	return &OracleFailure{Reason: reason, Message: err.Error(), Err: err}
}

// classifyOracleError stamps phase and iteration onto err. Errors that were not built by
// Malformed, Unavailable or Refused are treated as unavailable.
func classifyOracleError(phase Phase, iteration int, err error) *OracleFailure {
	var failure *OracleFailure
	if errors.As(err, &failure) {
		stamped := *failure
		stamped.Phase = phase
		stamped.Iteration = iteration
		return &stamped
	}
	return &OracleFailure{
		Phase:     phase,
		Reason:    OracleReasonUnavailable,
		Iteration: iteration,
		Message:   err.Error(),
		Err:       err,
	}
}
