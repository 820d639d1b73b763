package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reactagent/internal/agent"
	"reactagent/internal/render"
	"reactagent/internal/tools"
)

// Runner executes one run, publishing its events to sink.
type Runner func(ctx context.Context, goal string, sink agent.EventSink) (*agent.Report, error)

// Options configures the program.
type Options struct {
	// Goal starts a run immediately instead of asking for one.
	Goal string
	// Model is shown in the header.
	Model string
	// Style is the glamour style for the final report. Empty picks one automatically.
	Style string
}

// Custom messages for Bubble Tea
type eventMsg agent.Event
type approvalMsg approvalRequest
type runDoneMsg struct {
	report *agent.Report
	err    error
}

type phase int

const (
	phaseInput phase = iota
	phaseRunning
	phaseConfirming
	phaseDone
)

var (
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("66"))
	stateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	confirmStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// model is the state of the TUI.
type model struct {
	run    Runner
	bridge *Bridge
	opts   Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	phase   phase
	goal    string
	state   agent.State
	lines   []string
	pending *approvalRequest
	report  *agent.Report
	err     error
	width   int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewModel creates the initial model. The bridge must be the sink and approver the runner
// wires into its controller and registry.
func NewModel(run Runner, bridge *Bridge, opts Options) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "Describe the goal for the agent..."
	ta.SetHeight(3)
	ta.Focus()

	ctx, cancel := context.WithCancel(context.Background())
	return model{
		run:      run,
		bridge:   bridge,
		opts:     opts,
		viewport: viewport.New(0, 0),
		textarea: ta,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m model) Init() tea.Cmd {
	if goal := strings.TrimSpace(m.opts.Goal); goal != "" {
		return func() tea.Msg { return startMsg(goal) }
	}
	return textarea.Blink
}

type startMsg string

func (m model) start(goal string) (model, tea.Cmd) {
	m.phase = phaseRunning
	m.goal = goal
	m.textarea.Blur()
	m.lines = append(m.lines, headerStyle.Render("Goal: ")+goal)
	m.refresh()

	run, bridge, ctx := m.run, m.bridge, m.ctx
	execute := func() tea.Msg {
		report, err := run(ctx, goal, bridge)
		return runDoneMsg{report: report, err: err}
	}
	return m, tea.Batch(execute, m.spinner.Tick, m.waitForEvent, m.waitForApproval)
}

func (m model) waitForEvent() tea.Msg {
	select {
	case ev := <-m.bridge.events:
		return eventMsg(ev)
	case <-m.ctx.Done():
		return nil
	}
}

func (m model) waitForApproval() tea.Msg {
	select {
	case req := <-m.bridge.approvals:
		return approvalMsg(req)
	case <-m.ctx.Done():
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.footerHeight()
		m.refresh()
		return m, nil

	case startMsg:
		return m.start(string(msg))

	case eventMsg:
		// waitForEvent is the only reader; lines keep publish order and stay above the report.
		if line := eventLine(agent.Event(msg)); line != "" {
			m.lines = append(m.lines, line)
		}
		if msg.State != "" {
			m.state = msg.State
		}
		m.refresh()
		return m, m.waitForEvent

	case approvalMsg:
		req := approvalRequest(msg)
		m.pending = &req
		m.phase = phaseConfirming
		m.lines = append(m.lines, confirmStyle.Render("Confirm: ")+tools.DescribeStep(req.step))
		m.refresh()
		return m, nil

	case runDoneMsg:
		m.phase = phaseDone
		m.report, m.err = msg.report, msg.err
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.phase != phaseRunning && m.phase != phaseConfirming {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			return m, tea.Quit
		}
		switch m.phase {
		case phaseInput:
			switch msg.Type {
			case tea.KeyEsc:
				m.cancel()
				return m, tea.Quit
			case tea.KeyEnter:
				if goal := strings.TrimSpace(m.textarea.Value()); goal != "" {
					m.textarea.Reset()
					return m.start(goal)
				}
				return m, nil
			}
		case phaseConfirming:
			switch strings.ToLower(msg.String()) {
			case "y":
				return m.answer(true)
			case "n", "esc":
				return m.answer(false)
			}
			return m, nil
		case phaseDone:
			switch msg.String() {
			case "q", "esc":
				m.cancel()
				return m, tea.Quit
			}
		}
	}

	if m.phase == phaseInput {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) answer(ok bool) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		m.pending.reply <- ok
		verdict := "denied"
		if ok {
			verdict = "approved"
		}
		m.lines = append(m.lines, stateStyle.Render("  "+verdict))
	}
	m.pending = nil
	m.phase = phaseRunning
	m.refresh()
	return m, tea.Batch(m.waitForApproval, m.spinner.Tick)
}

func (m *model) refresh() {
	m.viewport.SetContent(m.content())
	m.viewport.GotoBottom()
}

func (m model) content() string {
	var b strings.Builder
	b.WriteString(strings.Join(m.lines, "\n"))

	if m.phase != phaseDone {
		return b.String()
	}
	b.WriteString("\n\n")
	if m.report == nil {
		if m.err != nil {
			b.WriteString(failureStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}
		return b.String()
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	rendered, err := render.Terminal(m.report, width, m.opts.Style)
	if err != nil {
		rendered = render.Markdown(m.report)
	}
	b.WriteString(rendered)
	b.WriteString("\n" + render.StatusLine(m.report))
	return b.String()
}

func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		m.footer(),
	)
}

func (m model) footerHeight() int {
	return lipgloss.Height(m.footer())
}

func (m model) footer() string {
	switch m.phase {
	case phaseInput:
		return lipgloss.JoinVertical(lipgloss.Left, m.textarea.View(), helpStyle.Render("enter: run | esc/ctrl+c: quit"))
	case phaseConfirming:
		return confirmStyle.Render("Allow this action? [y/n]")
	case phaseDone:
		return helpStyle.Render("↑/↓: scroll | q: quit")
	default:
		status := fmt.Sprintf("%s %s", m.spinner.View(), m.state)
		if m.opts.Model != "" {
			status += stateStyle.Render(" · " + m.opts.Model)
		}
		return status + "\n" + helpStyle.Render("ctrl+c: abort")
	}
}

// eventLine renders an event for the live log. State changes other than replanning are
// shown in the footer only.
func eventLine(ev agent.Event) string {
	switch ev.Type {
	case agent.EventTypeRunStarted:
		return stateStyle.Render(fmt.Sprintf("Run %s started", ev.RunID))
	case agent.EventTypeStateChanged:
		if ev.State == agent.StateReplanning {
			return stateStyle.Render(fmt.Sprintf("Iteration %d finished, replanning", ev.Iteration))
		}
		return ""
	case agent.EventTypeEntryAppended:
		if ev.Entry == nil {
			return ""
		}
		return entryLine(ev.Entry)
	default:
		return ""
	}
}

func entryLine(entry agent.Entry) string {
	prefix := fmt.Sprintf("[%d] ", entry.Meta().Iteration)
	switch e := entry.(type) {
	case agent.PlanRecord:
		if len(e.Steps) == 0 {
			return prefix + "plan: no steps"
		}
		names := make([]string, 0, len(e.Steps))
		for _, step := range e.Steps {
			names = append(names, step.Tool+"."+step.Action)
		}
		return prefix + "plan: " + strings.Join(names, ", ")
	case agent.Result:
		return prefix + "ok " + e.Step.Tool + "." + e.Step.Action
	case agent.Failure:
		return prefix + failureStyle.Render(fmt.Sprintf("failed %s.%s (%s): %s", e.Step.Tool, e.Step.Action, e.Reason, firstLine(e.Message)))
	case agent.Verdict:
		line := prefix + "verdict: " + string(e.Decision)
		if e.Justification != "" {
			line += " - " + firstLine(e.Justification)
		}
		return line
	default:
		return prefix + string(entry.Kind())
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
