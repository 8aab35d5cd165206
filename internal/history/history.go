package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
	EventCrash EventType = "crash"
)

// Event records one lifecycle transition of a managed process.
type Event struct {
	Type       EventType `json:"type"`
	Key        string    `json:"key"`
	PID        int       `json:"pid"`
	OccurredAt time.Time `json:"occurred_at"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for lifecycle events (audit/analytics systems).
// Implementations must be safe for concurrent use. Send failures are
// logged by the supervisor and never block process control.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
