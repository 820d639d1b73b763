package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{"", StatePlanning, true},
		{"", StateExecuting, false},
		{StatePlanning, StateExecuting, true},
		{StatePlanning, StateDone, true},
		{StatePlanning, StateEvaluating, false},
		{StateExecuting, StateEvaluating, true},
		{StateExecuting, StateDone, false},
		{StateEvaluating, StateReplanning, true},
		{StateEvaluating, StateDone, true},
		{StateEvaluating, StatePlanning, false},
		{StateReplanning, StatePlanning, true},
		{StateReplanning, StateExecuting, false},
		{StateDone, StatePlanning, false},
		{"bogus", StatePlanning, false},
	}
	for _, tt := range tests {
		err := validateTransition(tt.from, tt.to)
		if tt.ok {
			assert.NoError(t, err, "%q -> %q", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition, "%q -> %q", tt.from, tt.to)
		}
	}
}

func TestClassifyOracleError(t *testing.T) {
	failure := classifyOracleError(PhaseEvaluation, 4, Refused("policy"))
	assert.Equal(t, PhaseEvaluation, failure.Phase)
	assert.Equal(t, OracleReasonRefused, failure.Reason)
	assert.Equal(t, 4, failure.Iteration)
	assert.Equal(t, "policy", failure.Message)
	assert.ErrorIs(t, failure, ErrEvaluationFailure)
	assert.Equal(t, "evaluation failed at iteration 4 (refused): policy", failure.Error())
}
