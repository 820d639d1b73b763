package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"reactagent/internal/agent"
	"reactagent/internal/tools"
)

// NoLatestActions is rendered when the latest iteration executed nothing.
const NoLatestActions = "(No actions executed in this iteration.)"

const planInstructions = `Draft the next plan toward the goal using only the tools and actions listed above.
Learn from earlier results and failures; do not repeat a step that already failed the same way.
Respond with JSON only, following this schema:
{
  "steps": [
    {
      "tool": "tool name",
      "action": "action name",
      "arguments": {"key": "value"},
      "rationale": "why this step moves toward the goal"
    }
  ]
}
Return {"steps": []} if no tool call is useful right now.
If you cannot help with this goal, respond with {"refusal": "reason"} instead.`

const evalInstructions = `Judge whether the goal has been achieved based on the information above.
Respond with JSON only, following this schema:
{
  "verdict": "satisfied" | "not_satisfied" | "indeterminate",
  "justification": "the evidence for your judgement"
}
Use "indeterminate" when the history does not contain enough evidence either way.`

func planPrompt(goal agent.Goal, history []agent.Entry, catalog []tools.ToolInfo) (string, error) {
	catalogJSON, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding tool catalog: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	fmt.Fprintf(&b, "Execution history so far:\n%s\n\n", agent.Transcript(history))
	fmt.Fprintf(&b, "Available tools (JSON):\n%s\n\n", catalogJSON)
	b.WriteString(planInstructions)
	return b.String(), nil
}

func evalPrompt(goal agent.Goal, history []agent.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	fmt.Fprintf(&b, "Execution history summary:\n%s\n\n", agent.Transcript(history))
	fmt.Fprintf(&b, "Latest results:\n%s\n\n", latestResults(history))
	b.WriteString(evalInstructions)
	return b.String()
}

// latestResults renders the step outcomes of the most recent iteration.
func latestResults(history []agent.Entry) string {
	var outcomes []agent.Entry
	for _, entry := range agent.LatestIteration(history) {
		switch entry.Kind() {
		case agent.EntryKindResult, agent.EntryKindFailure:
			outcomes = append(outcomes, entry)
		}
	}
	if len(outcomes) == 0 {
		return NoLatestActions
	}
	return agent.Transcript(outcomes)
}
