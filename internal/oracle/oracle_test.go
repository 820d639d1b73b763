package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reactagent/internal/agent"
	"reactagent/internal/llm"
	"reactagent/internal/tools"
)

type fakeClient struct {
	answer   string
	err      error
	requests []llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.answer, f.err
}

func (f *fakeClient) Model() string { return "fake-model" }

type staticCatalog []tools.ToolInfo

func (c staticCatalog) Describe() []tools.ToolInfo { return c }

var catalog = staticCatalog{{
	Name:        "filesystem",
	Description: "files",
	Actions:     []tools.Action{{Name: "read_file"}},
}}

func sampleHistory() []agent.Entry {
	step := agent.Step{Tool: "filesystem", Action: "read_file", Arguments: map[string]any{"path": "a.txt"}}
	return []agent.Entry{
		agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 1, Iteration: 1}, Steps: agent.Plan{step}},
		agent.Failure{EntryMeta: agent.EntryMeta{Ordinal: 2, Iteration: 1}, Step: step, Reason: agent.FailureReasonToolError, Message: "no such file"},
		agent.Verdict{EntryMeta: agent.EntryMeta{Ordinal: 3, Iteration: 1}, Decision: agent.DecisionNotSatisfied},
		agent.PlanRecord{EntryMeta: agent.EntryMeta{Ordinal: 4, Iteration: 2}, Steps: agent.Plan{}},
	}
}

func TestPlannerBuildsPromptAndParses(t *testing.T) {
	client := &fakeClient{answer: `{"steps":[{"tool":"filesystem","action":"read_file","arguments":{"path":"b.txt"}}]}`}
	planner := NewPlanner(client, catalog, WithSystemPrompt("be brief"), WithMaxTokens(512), WithLogger(zaptest.NewLogger(t)))

	plan, err := planner.Plan(context.Background(), "read b.txt", sampleHistory())
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "b.txt", plan[0].Arguments["path"])

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, DefaultPlanTemperature, req.Temperature)
	assert.Equal(t, 512, req.MaxTokens)
	assert.True(t, req.JSON)
	assert.Contains(t, req.Prompt, "Goal: read b.txt")
	assert.Contains(t, req.Prompt, "Failure (tool_error): no such file")
	assert.Contains(t, req.Prompt, `"name": "filesystem"`)
	assert.Contains(t, req.Prompt, `{"steps": []}`)
}

func TestPlannerEmptyHistory(t *testing.T) {
	client := &fakeClient{answer: `{"steps":[]}`}
	planner := NewPlanner(client, catalog)

	plan, err := planner.Plan(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
	assert.Contains(t, client.requests[0].Prompt, agent.EmptyTranscript)
}

func TestPlannerMapsClientErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want agent.OracleReason
	}{
		{"refusal", &llm.RefusalError{Reason: "policy"}, agent.OracleReasonRefused},
		{"empty", llm.ErrEmptyResponse, agent.OracleReasonMalformed},
		{"status", &llm.StatusError{Code: 503, Body: "overloaded"}, agent.OracleReasonUnavailable},
		{"network", errors.New("dial tcp: connection refused"), agent.OracleReasonUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			planner := NewPlanner(&fakeClient{err: tc.err}, catalog)
			_, err := planner.Plan(context.Background(), "goal", nil)
			require.Error(t, err)
			assert.Equal(t, tc.want, reasonOf(t, err))
			if tc.want != agent.OracleReasonRefused {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestPlannerMalformedAnswer(t *testing.T) {
	planner := NewPlanner(&fakeClient{answer: "Sure! First, read the file."}, catalog)

	_, err := planner.Plan(context.Background(), "goal", nil)
	assert.Equal(t, agent.OracleReasonMalformed, reasonOf(t, err))
}

func TestEvaluatorPrompt(t *testing.T) {
	client := &fakeClient{answer: `{"verdict":"satisfied","justification":"done"}`}
	evaluator := NewEvaluator(client, WithTemperature(0.5))

	verdict, err := evaluator.Evaluate(context.Background(), "read a.txt", sampleHistory())
	require.NoError(t, err)
	assert.Equal(t, agent.DecisionSatisfied, verdict.Decision)
	assert.Equal(t, "done", verdict.Justification)

	req := client.requests[0]
	assert.Equal(t, 0.5, req.Temperature)
	assert.Contains(t, req.Prompt, "Goal: read a.txt")
	assert.Contains(t, req.Prompt, "Latest results:\n"+NoLatestActions)
	assert.Contains(t, req.Prompt, `"verdict"`)
}

func TestEvaluatorDefaultTemperature(t *testing.T) {
	client := &fakeClient{answer: `{"goalAchieved":false}`}
	verdict, err := NewEvaluator(client).Evaluate(context.Background(), "g", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.DecisionNotSatisfied, verdict.Decision)
	assert.Equal(t, DefaultEvalTemperature, client.requests[0].Temperature)
}

func TestLatestResults(t *testing.T) {
	history := sampleHistory()[:3]
	out := latestResults(history)
	assert.Contains(t, out, "Failure (tool_error): no such file")
	assert.NotContains(t, out, "Verdict")

	assert.Equal(t, NoLatestActions, latestResults(nil))
}
