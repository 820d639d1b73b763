package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactagent/internal/agent"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(id string, started time.Time) *agent.Report {
	at := started.Add(time.Second)
	step := agent.Step{Tool: "filesystem", Action: "read_file", Arguments: map[string]any{"path": "a.txt"}, Rationale: "look"}
	verdict := agent.Verdict{EntryMeta: agent.EntryMeta{Ordinal: 4, Iteration: 1, At: at}, Decision: agent.DecisionSatisfied, Justification: "found it"}
	return &agent.Report{
		RunID:         id,
		Goal:          "read a.txt",
		Outcome:       agent.OutcomeSatisfied,
		Iterations:    1,
		MaxIterations: 10,
		Verdict:       &verdict,
		StartedAt:     started,
		FinishedAt:    started.Add(2 * time.Second),
		History: []agent.Entry{
			agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 1, Iteration: 1, At: at}, Steps: agent.Plan{step, step}},
			agent.Result{EntryMeta: agent.EntryMeta{Ordinal: 2, Iteration: 1, At: at}, Step: step, Output: "hello"},
			agent.Failure{EntryMeta: agent.EntryMeta{Ordinal: 3, Iteration: 1, At: at}, Step: step, Reason: agent.FailureReasonTimeout, Message: "slow"},
			verdict,
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	report := sampleReport("run-1", started)

	require.NoError(t, store.Save(ctx, report))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, report.Goal, loaded.Goal)
	assert.Equal(t, report.Outcome, loaded.Outcome)
	assert.Equal(t, 1, loaded.Iterations)
	assert.Equal(t, 10, loaded.MaxIterations)
	assert.Equal(t, report.Verdict, loaded.Verdict)
	assert.Nil(t, loaded.Failure)
	assert.True(t, started.Equal(loaded.StartedAt))
	assert.True(t, report.FinishedAt.Equal(loaded.FinishedAt))
	assert.Equal(t, report.History, loaded.History)
}

func TestSaveFailureAndReplace(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	report := sampleReport("run-2", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, report))

	report.Outcome = agent.OutcomeFailed
	report.Verdict = nil
	report.History = report.History[:1]
	report.Failure = &agent.OracleFailure{
		Phase:     agent.PhaseEvaluation,
		Reason:    agent.OracleReasonMalformed,
		Iteration: 1,
		Message:   "not JSON",
	}
	require.NoError(t, store.Save(ctx, report))

	loaded, err := store.Load(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, agent.OutcomeFailed, loaded.Outcome)
	assert.Nil(t, loaded.Verdict)
	require.NotNil(t, loaded.Failure)
	assert.Equal(t, agent.PhaseEvaluation, loaded.Failure.Phase)
	assert.Equal(t, agent.OracleReasonMalformed, loaded.Failure.Reason)
	assert.Equal(t, "not JSON", loaded.Failure.Message)
	assert.Len(t, loaded.History, 1)
}

func TestLoadUnknownRun(t *testing.T) {
	store := openStore(t)

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresRunID(t *testing.T) {
	store := openStore(t)

	assert.Error(t, store.Save(context.Background(), &agent.Report{}))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "middle", "new"} {
		require.NoError(t, store.Save(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "old", runs[2].RunID)
	assert.Equal(t, agent.Goal("read a.txt"), runs[0].Goal)
	assert.Equal(t, agent.OutcomeSatisfied, runs[0].Outcome)

	runs, err = store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
