package engine

import (
	"context"
	"time"
)

// EventType classifies run progress events.
type EventType string

const (
	EventExecutionStarted  EventType = "execution_started"
	EventStepStart         EventType = "step_start"
	EventStepComplete      EventType = "step_complete"
	EventTransition        EventType = "transition"
	EventExecutionComplete EventType = "execution_complete"
	EventExecutionFailed   EventType = "execution_failed"
	EventStatusUpdate      EventType = "status_update"
	EventError             EventType = "error"
	EventPong              EventType = "pong"
)

// Event is a structured notification describing run progress.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(typ EventType, data map[string]any) Event {
	return Event{Type: typ, Timestamp: time.Now().UTC(), Data: data}
}

// EventSink receives run events. Emit is awaited by the run loop before it
// proceeds, so delivery is strictly ordered and backpressure-coupled: a
// slow sink slows the run.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to an EventSink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Emit(ctx context.Context, event Event) error {
	return f(ctx, event)
}
