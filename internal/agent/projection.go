package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// EmptyTranscript is rendered for a history without entries.
const EmptyTranscript = "(No previous steps executed.)"

// Transcript renders entries as plain text for prompting. It is a pure function of its input.
func Transcript(entries []Entry) string {
	if len(entries) == 0 {
		return EmptyTranscript
	}

	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		blocks = append(blocks, describeEntry(entry))
	}
	return strings.Join(blocks, "\n\n")
}

// LatestIteration returns the entries that belong to the most recent iteration.
func LatestIteration(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1].Meta().Iteration
	start := len(entries)
	for start > 0 && entries[start-1].Meta().Iteration == last {
		start--
	}
	return entries[start:]
}

func describeEntry(entry Entry) string {
	meta := entry.Meta()
	lines := []string{fmt.Sprintf("Iteration: %d", meta.Iteration)}
	switch e := entry.(type) {
	case PlanRecord:
		if len(e.Steps) == 0 {
			lines = append(lines, "Plan: (no steps)")
			break
		}
		lines = append(lines, fmt.Sprintf("Plan: %d step(s)", len(e.Steps)))
		for i, step := range e.Steps {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, describeStep(step)))
		}
	case Result:
		lines = append(lines,
			"Step: "+describeStep(e.Step),
			"Result: "+formatValue(e.Output),
		)
	case Failure:
		lines = append(lines,
			"Step: "+describeStep(e.Step),
			fmt.Sprintf("Failure (%s): %s", e.Reason, e.Message),
		)
	case Verdict:
		lines = append(lines, "Verdict: "+string(e.Decision))
		if e.Justification != "" {
			lines = append(lines, "Reason: "+e.Justification)
		}
	default:
		lines = append(lines, fmt.Sprintf("Entry: %s", entry.Kind()))
	}
	return strings.Join(lines, "\n")
}

func describeStep(step Step) string {
	var b strings.Builder
	b.WriteString(step.Tool)
	b.WriteString(".")
	b.WriteString(step.Action)
	b.WriteString(" ")
	b.WriteString(formatArguments(step.Arguments))
	if step.Rationale != "" {
		b.WriteString(" - ")
		b.WriteString(step.Rationale)
	}
	return b.String()
}

// formatArguments renders arguments with sorted keys so the projection is deterministic.
func formatArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "null"
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// entryEnvelope is the JSON form of an Entry, tagged by kind.
type entryEnvelope struct {
	Kind EntryKind `json:"kind"`
	EntryMeta
	Steps         Plan          `json:"steps,omitempty"`
	Step          *Step         `json:"step,omitempty"`
	Output        any           `json:"output,omitempty"`
	Reason        FailureReason `json:"reason,omitempty"`
	Message       string        `json:"message,omitempty"`
	Decision      Decision      `json:"decision,omitempty"`
	Justification string        `json:"justification,omitempty"`
}

// MarshalEntry encodes one entry as tagged JSON.
func MarshalEntry(entry Entry) ([]byte, error) {
	env := entryEnvelope{Kind: entry.Kind(), EntryMeta: entry.Meta()}
	switch e := entry.(type) {
	case PlanRecord:
		env.Steps = e.Steps
	case Result:
		step := e.Step
		env.Step = &step
		env.Output = e.Output
	case Failure:
		step := e.Step
		env.Step = &step
		env.Reason = e.Reason
		env.Message = e.Message
	case Verdict:
		env.Decision = e.Decision
		env.Justification = e.Justification
	default:
		return nil, fmt.Errorf("unsupported entry type %T", entry)
	}
	return json.Marshal(env)
}

// UnmarshalEntry decodes tagged JSON produced by MarshalEntry.
func UnmarshalEntry(data []byte) (Entry, error) {
	var env entryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("error decoding history entry: %w", err)
	}
	switch env.Kind {
	case EntryKindPlan:
		if env.Steps == nil {
			env.Steps = Plan{}
		}
		return PlanRecord{EntryMeta: env.EntryMeta, Steps: env.Steps}, nil
	case EntryKindResult:
		if env.Step == nil {
			return nil, fmt.Errorf("result entry %d has no step", env.Ordinal)
		}
		return Result{EntryMeta: env.EntryMeta, Step: *env.Step, Output: env.Output}, nil
	case EntryKindFailure:
		if env.Step == nil {
			return nil, fmt.Errorf("failure entry %d has no step", env.Ordinal)
		}
		return Failure{EntryMeta: env.EntryMeta, Step: *env.Step, Reason: env.Reason, Message: env.Message}, nil
	case EntryKindVerdict:
		return Verdict{EntryMeta: env.EntryMeta, Decision: env.Decision, Justification: env.Justification}, nil
	default:
		return nil, fmt.Errorf("unknown history entry kind %q", env.Kind)
	}
}

// MarshalEntries encodes a history as a JSON array of tagged entries.
func MarshalEntries(entries []Entry) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		data, err := MarshalEntry(entry)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return json.Marshal(raw)
}

// UnmarshalEntries decodes the output of MarshalEntries.
func UnmarshalEntries(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error decoding history: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		entry, err := UnmarshalEntry(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MarshalJSON includes the tagged history alongside the report fields.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	history, err := MarshalEntries(r.History)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		History json.RawMessage `json:"history"`
	}{plain: plain(r), History: history})
}
