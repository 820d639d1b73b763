package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reactagent/internal/agent"
)

// extractJSON returns the JSON object in a model answer, tolerating ```json fences and prose
// around the object.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}
	open := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if open < 0 || end < open {
		return "", errors.New("response does not contain a JSON object")
	}
	return s[open : end+1], nil
}

type planResponse struct {
	Steps   *[]planStep `json:"steps"`
	Refusal string      `json:"refusal"`
}

// planStep accepts both the tool/arguments/rationale keys and the server/parameters/summary
// keys some prompts produce.
type planStep struct {
	Tool       string         `json:"tool"`
	Server     string         `json:"server"`
	Action     string         `json:"action"`
	Arguments  map[string]any `json:"arguments"`
	Parameters map[string]any `json:"parameters"`
	Rationale  string         `json:"rationale"`
	Summary    string         `json:"summary"`
}

// ParsePlan converts a planner answer into a Plan. Failures are agent oracle errors.
func ParsePlan(text string) (agent.Plan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, agent.Malformed(err)
	}
	var resp planResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, agent.Malformed(fmt.Errorf("planner response was not valid JSON: %w", err))
	}
	if strings.TrimSpace(resp.Refusal) != "" {
		return nil, agent.Refused(resp.Refusal)
	}
	if resp.Steps == nil {
		return nil, agent.Malformed(errors.New("planner response must include a 'steps' array"))
	}

	plan := make(agent.Plan, 0, len(*resp.Steps))
	for i, step := range *resp.Steps {
		tool := firstNonEmpty(step.Tool, step.Server)
		action := strings.TrimSpace(step.Action)
		if tool == "" || action == "" {
			return nil, agent.Malformed(fmt.Errorf("plan step %d must include tool and action", i+1))
		}
		args := step.Arguments
		if args == nil {
			args = step.Parameters
		}
		if args == nil {
			args = map[string]any{}
		}
		plan = append(plan, agent.Step{
			Tool:      tool,
			Action:    action,
			Arguments: args,
			Rationale: firstNonEmpty(step.Rationale, step.Summary),
		})
	}
	return plan, nil
}

type verdictResponse struct {
	Verdict       string `json:"verdict"`
	Decision      string `json:"decision"`
	GoalAchieved  *bool  `json:"goalAchieved"`
	Justification string `json:"justification"`
	Reason        string `json:"reason"`
	Refusal       string `json:"refusal"`
}

// ParseVerdict converts an evaluator answer into a Verdict. A missing decision is
// indeterminate; an unknown one is malformed.
func ParseVerdict(text string) (agent.Verdict, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return agent.Verdict{}, agent.Malformed(err)
	}
	var resp verdictResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return agent.Verdict{}, agent.Malformed(fmt.Errorf("evaluation response was not valid JSON: %w", err))
	}
	if strings.TrimSpace(resp.Refusal) != "" {
		return agent.Verdict{}, agent.Refused(resp.Refusal)
	}

	verdict := agent.Verdict{Justification: firstNonEmpty(resp.Justification, resp.Reason)}
	switch label := firstNonEmpty(resp.Verdict, resp.Decision); {
	case label != "":
		decision, ok := normalizeDecision(label)
		if !ok {
			return agent.Verdict{}, agent.Malformed(fmt.Errorf("unknown verdict %q", label))
		}
		verdict.Decision = decision
	case resp.GoalAchieved != nil && *resp.GoalAchieved:
		verdict.Decision = agent.DecisionSatisfied
	case resp.GoalAchieved != nil:
		verdict.Decision = agent.DecisionNotSatisfied
	default:
		verdict.Decision = agent.DecisionIndeterminate
	}
	return verdict, nil
}

func normalizeDecision(label string) (agent.Decision, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "satisfied", "achieved", "done":
		return agent.DecisionSatisfied, true
	case "not_satisfied", "unsatisfied", "not_achieved":
		return agent.DecisionNotSatisfied, true
	case "indeterminate", "unknown", "unclear":
		return agent.DecisionIndeterminate, true
	default:
		return "", false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
