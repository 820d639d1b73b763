package agent

import "fmt"

// State is a phase of the loop state machine.
type State string

const (
	StatePlanning   State = "planning"
	StateExecuting  State = "executing"
	StateEvaluating State = "evaluating"
	StateReplanning State = "replanning"
	StateDone       State = "done"
)

var allowedTransitions = map[State]map[State]struct{}{
	"": {
		StatePlanning: {},
	},
	StatePlanning: {
		StateExecuting: {},
		StateDone:      {},
	},
	StateExecuting: {
		StateEvaluating: {},
	},
	StateEvaluating: {
		StateReplanning: {},
		StateDone:       {},
	},
	StateReplanning: {
		StatePlanning: {},
	},
	StateDone: {},
}

func validateTransition(from, to State) error {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source state %q", ErrInvalidTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
