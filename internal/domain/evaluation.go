package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Evaluation errors
var (
	ErrInvalidOutcome = errors.New("invalid evaluation outcome")
)

// Evaluation is the persisted record of one pickup decision
type Evaluation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	EvaluationID    string             `bson:"evaluationId"`
	Policy          string             `bson:"policy"`
	Outcome         Outcome            `bson:"outcome"`
	LocationHandle  string             `bson:"locationHandle,omitempty"`
	VirtualLocation bool               `bson:"virtualLocation"`
	AttributeValue  string             `bson:"attributeValue,omitempty"`
	LineCount       int                `bson:"lineCount"`
	LocationCount   int                `bson:"locationCount"`
	ConfigEnabled   bool               `bson:"configEnabled"`
	Result          FunctionRunResult  `bson:"result"`
	CorrelationID   string             `bson:"correlationId,omitempty"`
	EvaluatedAt     time.Time          `bson:"evaluatedAt"`
	DomainEvents    []DomainEvent      `bson:"-"`
}

// NewEvaluation records decision for input and raises the matching domain event
func NewEvaluation(input FunctionInput, policy Policy, decision Decision) (*Evaluation, error) {
	return NewEvaluationWithID("", input, policy, decision)
}

// NewEvaluationWithID is NewEvaluation under a caller chosen id, so a
// retried request records the same evaluation. An empty id gets a random one.
func NewEvaluationWithID(id string, input FunctionInput, policy Policy, decision Decision) (*Evaluation, error) {
	if !decision.Outcome.IsValid() {
		return nil, ErrInvalidOutcome
	}
	if id == "" {
		id = uuid.New().String()
	}

	attribute, _ := input.Cart.AttributeValue()
	evaluation := &Evaluation{
		EvaluationID:    id,
		Policy:          policy.Name,
		Outcome:         decision.Outcome,
		LocationHandle:  decision.LocationHandle,
		VirtualLocation: decision.VirtualLocation,
		AttributeValue:  attribute,
		LineCount:       len(input.Cart.Lines),
		LocationCount:   len(input.Locations),
		ConfigEnabled:   decision.Config.Enabled,
		Result:          decision.Result,
		EvaluatedAt:     time.Now().UTC(),
		DomainEvents:    make([]DomainEvent, 0),
	}

	if decision.Outcome == OutcomeOffered {
		var instruction string
		if ops := decision.Result.Operations; len(ops) > 0 && ops[0].Add.PickupLocation.PickupInstruction != nil {
			instruction = *ops[0].Add.PickupLocation.PickupInstruction
		}
		evaluation.AddDomainEvent(&PickupOptionOfferedEvent{
			EvaluationID:      evaluation.EvaluationID,
			Policy:            evaluation.Policy,
			LocationHandle:    evaluation.LocationHandle,
			VirtualLocation:   evaluation.VirtualLocation,
			PickupInstruction: instruction,
			LineCount:         evaluation.LineCount,
			OfferedAt:         evaluation.EvaluatedAt,
		})
	} else {
		evaluation.AddDomainEvent(&PickupOptionDeclinedEvent{
			EvaluationID: evaluation.EvaluationID,
			Policy:       evaluation.Policy,
			Reason:       string(evaluation.Outcome),
			LineCount:    evaluation.LineCount,
			DeclinedAt:   evaluation.EvaluatedAt,
		})
	}

	return evaluation, nil
}

// Offered reports whether a pickup option was emitted
func (e *Evaluation) Offered() bool {
	return e.Outcome == OutcomeOffered
}

// AddDomainEvent adds a domain event
func (e *Evaluation) AddDomainEvent(event DomainEvent) {
	e.DomainEvents = append(e.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (e *Evaluation) ClearDomainEvents() {
	e.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (e *Evaluation) GetDomainEvents() []DomainEvent {
	return e.DomainEvents
}
