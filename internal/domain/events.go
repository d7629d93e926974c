package domain

import "time"

const (
	EventTypePickupOptionOffered  = "diylabel.pickup.option-offered"
	EventTypePickupOptionDeclined = "diylabel.pickup.option-declined"
)

// DomainEvent interface for domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// PickupOptionOfferedEvent is emitted when an evaluation adds the pickup option
type PickupOptionOfferedEvent struct {
	EvaluationID      string    `json:"evaluationId"`
	Policy            string    `json:"policy"`
	LocationHandle    string    `json:"locationHandle"`
	VirtualLocation   bool      `json:"virtualLocation"`
	PickupInstruction string    `json:"pickupInstruction"`
	LineCount         int       `json:"lineCount"`
	OfferedAt         time.Time `json:"offeredAt"`
}

func (e *PickupOptionOfferedEvent) EventType() string    { return EventTypePickupOptionOffered }
func (e *PickupOptionOfferedEvent) OccurredAt() time.Time { return e.OfferedAt }

// PickupOptionDeclinedEvent is emitted when an evaluation adds nothing
type PickupOptionDeclinedEvent struct {
	EvaluationID string    `json:"evaluationId"`
	Policy       string    `json:"policy"`
	Reason       string    `json:"reason"`
	LineCount    int       `json:"lineCount"`
	DeclinedAt   time.Time `json:"declinedAt"`
}

func (e *PickupOptionDeclinedEvent) EventType() string    { return EventTypePickupOptionDeclined }
func (e *PickupOptionDeclinedEvent) OccurredAt() time.Time { return e.DeclinedAt }
