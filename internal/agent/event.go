package agent

import "context"

// EventType is emitted by the controller for logging, streaming and UIs.
type EventType string

const (
	EventTypeRunStarted    EventType = "run_started"
	EventTypeStateChanged  EventType = "state_changed"
	EventTypeEntryAppended EventType = "entry_appended"
	EventTypeRunFinished   EventType = "run_finished"
)

// Event is intentionally compact so adapters can map it to logs or views.
type Event struct {
	RunID     string    `json:"run_id"`
	Goal      Goal      `json:"goal"`
	Iteration int       `json:"iteration"`
	Type      EventType `json:"type"`
	State     State     `json:"state,omitempty"`
	Entry     Entry     `json:"-"`
	Report    *Report   `json:"-"`
}

type noopEventSink struct{}

func (noopEventSink) Publish(_ context.Context, _ Event) error { return nil }

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, event Event) error

func (f EventSinkFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}
