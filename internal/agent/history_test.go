package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactagent/internal/agent"
)

func TestNewGoal(t *testing.T) {
	goal, err := agent.NewGoal("  summarize the report \n")
	require.NoError(t, err)
	assert.Equal(t, "summarize the report", goal.String())

	_, err = agent.NewGoal("")
	assert.ErrorIs(t, err, agent.ErrEmptyGoal)
}

func TestHistoryAppendCopiesEntries(t *testing.T) {
	h := agent.NewHistory()
	args := map[string]any{"path": "a.txt", "nested": map[string]any{"k": []any{"v"}}}
	plan := agent.Plan{{Tool: "fs", Action: "read", Arguments: args}}
	h.Append(agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 1, Iteration: 1}, Steps: plan})
	h.Append(nil)

	args["path"] = "changed.txt"
	args["nested"].(map[string]any)["k"] = "gone"

	require.Equal(t, 1, h.Len())
	rec := h.Snapshot()[0].(agent.PlanRecord)
	assert.Equal(t, "a.txt", rec.Steps[0].Arguments["path"])
	assert.Equal(t, []any{"v"}, rec.Steps[0].Arguments["nested"].(map[string]any)["k"])
}

func TestHistorySnapshotIsIsolated(t *testing.T) {
	h := agent.NewHistory()
	h.Append(agent.Result{
		EntryMeta: agent.EntryMeta{Ordinal: 1, Iteration: 1},
		Step:      agent.Step{Tool: "fs", Action: "list", Arguments: map[string]any{"path": "."}},
		Output:    []any{"a", "b"},
	})

	snap := h.Snapshot()
	res := snap[0].(agent.Result)
	res.Step.Arguments["path"] = "/"
	res.Output.([]any)[0] = "z"
	snap[0] = agent.Verdict{}

	again := h.Snapshot()[0].(agent.Result)
	assert.Equal(t, ".", again.Step.Arguments["path"])
	assert.Equal(t, []any{"a", "b"}, again.Output)
}

func TestPlanCloneNil(t *testing.T) {
	var p agent.Plan
	assert.Nil(t, p.Clone())
	assert.Equal(t, agent.Step{Tool: "x"}, agent.Step{Tool: "x"}.Clone())
}
