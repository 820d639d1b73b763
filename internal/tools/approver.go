package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"reactagent/internal/agent"
)

// Approver decides whether a step that requires confirmation may run.
type Approver interface {
	Approve(ctx context.Context, step agent.Step) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, step agent.Step) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, step agent.Step) (bool, error) {
	return f(ctx, step)
}

var (
	// AllowAll approves every step.
	AllowAll Approver = ApproverFunc(func(context.Context, agent.Step) (bool, error) { return true, nil })
	// DenyAll rejects every step.
	DenyAll Approver = ApproverFunc(func(context.Context, agent.Step) (bool, error) { return false, nil })
)

// PromptApprover asks on a terminal. Only "y" and "yes" approve.
type PromptApprover struct {
	mu     sync.Mutex
	out    io.Writer
	reader *bufio.Reader
}

func NewPromptApprover(in io.Reader, out io.Writer) *PromptApprover {
	return &PromptApprover{out: out, reader: bufio.NewReader(in)}
}

func (p *PromptApprover) Approve(ctx context.Context, step agent.Step) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "\n%s\nAllow this action? [y/N]: ", DescribeStep(step))

	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// DescribeStep renders a step for confirmation prompts.
func DescribeStep(step agent.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s", step.Tool, step.Action)
	if len(step.Arguments) > 0 {
		if data, err := json.Marshal(step.Arguments); err == nil {
			fmt.Fprintf(&b, " %s", data)
		}
	}
	if step.Rationale != "" {
		fmt.Fprintf(&b, "\n  %s", step.Rationale)
	}
	return b.String()
}
