package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactagent/internal/agent"
	"reactagent/internal/audit"
)

func report() *agent.Report {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	step := agent.Step{Tool: "filesystem", Action: "read_file", Arguments: map[string]any{"path": "a.txt"}, Rationale: "check contents"}
	verdict := agent.Verdict{EntryMeta: agent.EntryMeta{Ordinal: 7, Iteration: 2}, Decision: agent.DecisionSatisfied, Justification: "file read"}
	return &agent.Report{
		RunID:         "run-1",
		Goal:          "read a.txt",
		Outcome:       agent.OutcomeSatisfied,
		Iterations:    2,
		MaxIterations: 10,
		Verdict:       &verdict,
		StartedAt:     started,
		FinishedAt:    started.Add(1500 * time.Millisecond),
		History: []agent.Entry{
			agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 1, Iteration: 1}, Steps: agent.Plan{step}},
			agent.Failure{EntryMeta: agent.EntryMeta{Ordinal: 2, Iteration: 1}, Step: step, Reason: agent.FailureReasonTimeout, Message: "too slow"},
			agent.Verdict{EntryMeta: agent.EntryMeta{Ordinal: 3, Iteration: 1}, Decision: agent.DecisionNotSatisfied},
			agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 4, Iteration: 2}, Steps: agent.Plan{step}},
			agent.Result{EntryMeta: agent.EntryMeta{Ordinal: 5, Iteration: 2}, Step: step, Output: map[string]any{"lines": 3}},
			agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 6, Iteration: 2}, Steps: agent.Plan{}},
			verdict,
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(report())

	assert.Contains(t, md, "# Run run-1")
	assert.Contains(t, md, "- **Goal:** read a.txt")
	assert.Contains(t, md, "- **Iterations:** 2 of 10")
	assert.Contains(t, md, "- **Duration:** 1.5s")
	assert.Contains(t, md, "- **Justification:** file read")
	assert.Contains(t, md, "### Iteration 1")
	assert.Contains(t, md, "### Iteration 2")
	assert.Contains(t, md, "1. `filesystem.read_file` `{\"path\":\"a.txt\"}` check contents")
	assert.Contains(t, md, "`timeout` too slow")
	assert.Contains(t, md, "\"lines\": 3")
	assert.Contains(t, md, "**Plan:** no steps")
	assert.Contains(t, md, "**Verdict:** satisfied. file read")
	assert.Equal(t, 1, strings.Count(md, "### Iteration 2"))
}

func TestMarkdownFailedRun(t *testing.T) {
	r := &agent.Report{
		RunID:   "run-2",
		Goal:    "g",
		Outcome: agent.OutcomeFailed,
		Failure: &agent.OracleFailure{Phase: agent.PhasePlanning, Reason: agent.OracleReasonUnavailable, Iteration: 1, Message: "connection refused"},
	}
	md := Markdown(r)
	assert.Contains(t, md, "- **Failure:** connection refused during planning (unavailable)")
	assert.Contains(t, md, "_No history recorded._")
	assert.NotContains(t, md, "Duration")
}

func TestOutputTruncates(t *testing.T) {
	long := strings.Repeat("x", maxOutputChars+10)
	assert.True(t, strings.HasSuffix(output(long), "...(truncated)"))
	assert.Equal(t, "null", output(nil))
	assert.Equal(t, "'''", output("```"))
}

func TestStatusLine(t *testing.T) {
	r := report()
	assert.Contains(t, StatusLine(r), "Goal satisfied after 2 iteration(s).")

	r.Outcome = agent.OutcomeCapExceeded
	assert.Contains(t, StatusLine(r), "within the cap of 10 iteration(s)")

	r.Outcome = agent.OutcomeFailed
	r.Failure = &agent.OracleFailure{Phase: agent.PhaseEvaluation, Reason: agent.OracleReasonRefused, Iteration: 3, Message: "no"}
	assert.Contains(t, StatusLine(r), "evaluation failed at iteration 3 (refused): no")
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(report(), 80, "notty")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "read a.txt")
	assert.Contains(t, out, "Iteration 2")
}

func TestRunTable(t *testing.T) {
	assert.Equal(t, "No runs recorded.", RunTable(nil))

	out := RunTable([]audit.RunSummary{{
		RunID:      "run-1",
		Goal:       agent.Goal(strings.Repeat("g", 80)),
		Outcome:    agent.OutcomeFailed,
		Iterations: 3,
		StartedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}})
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, strings.Repeat("g", 57)+"...")
}
