package agent_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactagent/internal/agent"
)

func sampleHistory() []agent.Entry {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	read := agent.Step{Tool: "filesystem", Action: "read_file", Arguments: map[string]any{"path": "notes.txt"}, Rationale: "inspect notes"}
	search := agent.Step{Tool: "brave-search", Action: "search", Arguments: map[string]any{"query": "go", "limit": float64(3)}}
	return []agent.Entry{
		agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 1, Iteration: 1, At: at}, Steps: agent.Plan{read, search}},
		agent.Result{EntryMeta: agent.EntryMeta{Ordinal: 2, Iteration: 1, At: at}, Step: read, Output: "hello"},
		agent.Failure{EntryMeta: agent.EntryMeta{Ordinal: 3, Iteration: 1, At: at}, Step: search, Reason: agent.FailureReasonTimeout, Message: "deadline exceeded"},
		agent.Verdict{EntryMeta: agent.EntryMeta{Ordinal: 4, Iteration: 1, At: at}, Decision: agent.DecisionNotSatisfied, Justification: "search failed"},
		agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 5, Iteration: 2, At: at}, Steps: agent.Plan{}},
		agent.Verdict{EntryMeta: agent.EntryMeta{Ordinal: 6, Iteration: 2, At: at}, Decision: agent.DecisionSatisfied},
	}
}

func TestTranscriptEmpty(t *testing.T) {
	assert.Equal(t, "(No previous steps executed.)", agent.Transcript(nil))
}

func TestTranscript(t *testing.T) {
	out := agent.Transcript(sampleHistory())

	assert.Contains(t, out, "Plan: 2 step(s)")
	assert.Contains(t, out, "1. filesystem.read_file {path=notes.txt} - inspect notes")
	assert.Contains(t, out, "2. brave-search.search {limit=3, query=go}")
	assert.Contains(t, out, "Result: hello")
	assert.Contains(t, out, "Failure (timeout): deadline exceeded")
	assert.Contains(t, out, "Verdict: not_satisfied\nReason: search failed")
	assert.Contains(t, out, "Plan: (no steps)")
	assert.Equal(t, out, agent.Transcript(sampleHistory()))
}

func TestLatestIteration(t *testing.T) {
	assert.Nil(t, agent.LatestIteration(nil))

	latest := agent.LatestIteration(sampleHistory())
	require.Len(t, latest, 2)
	assert.Equal(t, 5, latest[0].Meta().Ordinal)

	first := agent.LatestIteration(sampleHistory()[:3])
	assert.Len(t, first, 3)
}

func TestEntriesRoundTrip(t *testing.T) {
	entries := sampleHistory()

	data, err := agent.MarshalEntries(entries)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"failure"`)

	decoded, err := agent.UnmarshalEntries(data)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestUnmarshalEntryRejectsUnknownKind(t *testing.T) {
	_, err := agent.UnmarshalEntry([]byte(`{"kind":"thought","ordinal":1}`))
	assert.ErrorContains(t, err, "unknown history entry kind")

	_, err = agent.UnmarshalEntry([]byte(`{"kind":"result","ordinal":2}`))
	assert.ErrorContains(t, err, "has no step")
}

func TestReportMarshalIncludesHistory(t *testing.T) {
	report := agent.Report{
		RunID:         "abc",
		Goal:          "goal",
		Outcome:       agent.OutcomeCapExceeded,
		Iterations:    2,
		MaxIterations: 2,
		History:       sampleHistory(),
	}
	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded struct {
		RunID   string            `json:"run_id"`
		Outcome string            `json:"outcome"`
		History []json.RawMessage `json:"history"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc", decoded.RunID)
	assert.Equal(t, "cap_exceeded", decoded.Outcome)
	assert.Len(t, decoded.History, 6)
}
