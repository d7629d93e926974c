// Package outbox keeps CloudEvents in the same MongoDB transaction as the
// evaluation that raised them and relays them to Kafka after commit.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
)

// MaxAttempts is how often the relay tries a message before leaving it
// parked with its last error.
const MaxAttempts = 10

// Message is one queued CloudEvent
type Message struct {
	ID        string          `bson:"_id" json:"id"`
	Key       string          `bson:"key" json:"key"`
	Type      string          `bson:"type" json:"type"`
	Topic     string          `bson:"topic" json:"topic"`
	Event     json.RawMessage `bson:"event" json:"event"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	SentAt    *time.Time      `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Attempts  int             `bson:"attempts" json:"attempts"`
	LastError string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

// NewMessage queues event for topic. key groups the messages of one
// evaluation and is what ForKey looks up.
func NewMessage(topic, key string, event *cloudevents.Event) (*Message, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	return &Message{
		ID:        uuid.NewString(),
		Key:       key,
		Type:      event.Type,
		Topic:     topic,
		Event:     raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Sent reports whether the relay has delivered the message
func (m *Message) Sent() bool {
	return m.SentAt != nil
}

// Pending reports whether the relay should still try the message
func (m *Message) Pending(maxAttempts int) bool {
	return !m.Sent() && m.Attempts < maxAttempts
}

// CloudEvent decodes the stored event
func (m *Message) CloudEvent() (*cloudevents.Event, error) {
	var event cloudevents.Event
	if err := json.Unmarshal(m.Event, &event); err != nil {
		return nil, fmt.Errorf("decode outbox message %s: %w", m.ID, err)
	}
	return &event, nil
}
