// Package render turns run reports into markdown and terminal output.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"reactagent/internal/agent"
	"reactagent/internal/audit"
)

// maxOutputChars shortens long step outputs in reports.
const maxOutputChars = 2000

var (
	satisfiedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("70"))
	capStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	failedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// StatusLine is the one-line summary printed after a run.
func StatusLine(report *agent.Report) string {
	switch report.Outcome {
	case agent.OutcomeSatisfied:
		return satisfiedStyle.Render(fmt.Sprintf("Goal satisfied after %d iteration(s).", report.Iterations))
	case agent.OutcomeCapExceeded:
		return capStyle.Render(fmt.Sprintf("Goal not satisfied within the cap of %d iteration(s).", report.MaxIterations))
	default:
		msg := "Run failed."
		if report.Failure != nil {
			msg = fmt.Sprintf("Run failed: %s", report.Failure.Error())
		}
		return failedStyle.Render(msg)
	}
}

// Markdown renders the report with its history grouped by iteration.
func Markdown(report *agent.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", report.RunID)
	fmt.Fprintf(&b, "- **Goal:** %s\n", report.Goal)
	fmt.Fprintf(&b, "- **Outcome:** %s\n", report.Outcome)
	fmt.Fprintf(&b, "- **Iterations:** %d of %d\n", report.Iterations, report.MaxIterations)
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "- **Duration:** %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
	if report.Verdict != nil {
		fmt.Fprintf(&b, "- **Verdict:** %s\n", report.Verdict.Decision)
		if report.Verdict.Justification != "" {
			fmt.Fprintf(&b, "- **Justification:** %s\n", report.Verdict.Justification)
		}
	}
	if report.Failure != nil {
		fmt.Fprintf(&b, "- **Failure:** %s during %s (%s)\n", report.Failure.Message, report.Failure.Phase, report.Failure.Reason)
	}

	if len(report.History) == 0 {
		b.WriteString("\n_No history recorded._\n")
		return b.String()
	}

	b.WriteString("\n## History\n")
	iteration := 0
	for _, entry := range report.History {
		if it := entry.Meta().Iteration; it != iteration {
			iteration = it
			fmt.Fprintf(&b, "\n### Iteration %d\n\n", iteration)
		}
		b.WriteString(Entry(entry))
	}
	return b.String()
}

// Entry renders one history entry as a markdown fragment.
func Entry(entry agent.Entry) string {
	var b strings.Builder
	switch e := entry.(type) {
	case agent.PlanRecord:
		if len(e.Steps) == 0 {
			b.WriteString("**Plan:** no steps\n\n")
			break
		}
		fmt.Fprintf(&b, "**Plan:** %d step(s)\n\n", len(e.Steps))
		for i, step := range e.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, stepLabel(step))
		}
		b.WriteString("\n")
	case agent.Result:
		fmt.Fprintf(&b, "**Result** of %s\n\n", stepLabel(e.Step))
		fmt.Fprintf(&b, "```\n%s\n```\n\n", output(e.Output))
	case agent.Failure:
		fmt.Fprintf(&b, "**Failure** of %s: `%s` %s\n\n", stepLabel(e.Step), e.Reason, e.Message)
	case agent.Verdict:
		fmt.Fprintf(&b, "**Verdict:** %s", e.Decision)
		if e.Justification != "" {
			fmt.Fprintf(&b, ". %s", e.Justification)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// Terminal renders the markdown report for a terminal of the given width. Style is a
// glamour style name; empty selects one from the terminal background.
func Terminal(report *agent.Report, width int, style string) (string, error) {
	return RenderMarkdown(Markdown(report), width, style)
}

// RenderMarkdown renders arbitrary markdown with glamour.
func RenderMarkdown(md string, width int, style string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("error creating markdown renderer: %w", err)
	}
	return renderer.Render(md)
}

func stepLabel(step agent.Step) string {
	label := fmt.Sprintf("`%s.%s`", step.Tool, step.Action)
	if len(step.Arguments) > 0 {
		if data, err := json.Marshal(step.Arguments); err == nil {
			label += fmt.Sprintf(" `%s`", data)
		}
	}
	if step.Rationale != "" {
		label += " " + step.Rationale
	}
	return label
}

func output(v any) string {
	var s string
	switch value := v.(type) {
	case nil:
		s = "null"
	case string:
		s = value
	default:
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			s = fmt.Sprintf("%v", value)
		} else {
			s = string(data)
		}
	}
	s = strings.TrimRight(s, "\n")
	if len(s) > maxOutputChars {
		s = s[:maxOutputChars] + "\n...(truncated)"
	}
	return strings.ReplaceAll(s, "```", "'''")
}

// RunTable lists audited runs.
func RunTable(runs []audit.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "OUTCOME", "ITER", "GOAL")
	for _, run := range runs {
		t.Row(run.RunID, run.StartedAt.Local().Format("2006-01-02 15:04"), string(run.Outcome),
			fmt.Sprint(run.Iterations), truncateGoal(string(run.Goal), 60))
	}
	return t.String()
}

func truncateGoal(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
