package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
)

type workflowIDKey struct{}

// ContextWithWorkflowID marks ctx as running inside a Temporal workflow
func ContextWithWorkflowID(ctx context.Context, workflowID string) context.Context {
	return context.WithValue(ctx, workflowIDKey{}, workflowID)
}

// WorkflowIDFromContext returns the id stored by ContextWithWorkflowID
func WorkflowIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workflowIDKey{}).(string)
	return id
}

// Option adjusts an event before it is returned by the factory
type Option func(*Event)

// WithCorrelationID overrides the correlation id taken from the context.
// An empty id keeps the context value.
func WithCorrelationID(id string) Option {
	return func(e *Event) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

// WithWorkflowID overrides the workflow id taken from the context
func WithWorkflowID(id string) Option {
	return func(e *Event) {
		if id != "" {
			e.WorkflowID = id
		}
	}
}

// EventFactory stamps events with one source
type EventFactory struct {
	source string
}

// NewEventFactory creates a factory for source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent returns a new event with a fresh id and the current UTC time.
// Correlation and workflow ids carried by ctx are copied before opts apply.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}, opts ...Option) *Event {
	event := &Event{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
		WorkflowID:      WorkflowIDFromContext(ctx),
	}
	for _, opt := range opts {
		opt(event)
	}
	return event
}
