package tui

import (
	"context"

	"reactagent/internal/agent"
	"reactagent/internal/tools"
)

type approvalRequest struct {
	step  agent.Step
	reply chan bool
}

// Bridge carries loop events and confirmation requests from the controller goroutine into
// the Bubble Tea program. It is both an agent.EventSink and a tools.Approver.
type Bridge struct {
	events    chan agent.Event
	approvals chan approvalRequest
}

var (
	_ agent.EventSink = (*Bridge)(nil)
	_ tools.Approver  = (*Bridge)(nil)
)

func NewBridge() *Bridge {
	return &Bridge{
		events:    make(chan agent.Event, 64),
		approvals: make(chan approvalRequest),
	}
}

func (b *Bridge) Publish(ctx context.Context, event agent.Event) error {
	select {
	case b.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Approve blocks until the user answers in the UI or ctx ends.
func (b *Bridge) Approve(ctx context.Context, step agent.Step) (bool, error) {
	req := approvalRequest{step: step, reply: make(chan bool, 1)}
	select {
	case b.approvals <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
