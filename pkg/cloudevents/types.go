// Package cloudevents builds the CloudEvents 1.0 envelopes the pickup
// service emits for each stored evaluation.
package cloudevents

import (
	"errors"
	"time"
)

// Event types emitted for local pickup evaluations
const (
	PickupOptionOffered  = "diylabel.pickup.option-offered"
	PickupOptionDeclined = "diylabel.pickup.option-declined"
)

// SourcePickupService is the CloudEvents source of the pickup service
const SourcePickupService = "/pickup-service"

// SpecVersion is the CloudEvents version produced by the factory
const SpecVersion = "1.0"

// Extension attribute names
const (
	ExtCorrelationID = "correlationid"
	ExtWorkflowID    = "workflowid"
)

var (
	ErrMissingID     = errors.New("cloudevent id is required")
	ErrMissingType   = errors.New("cloudevent type is required")
	ErrMissingSource = errors.New("cloudevent source is required")
)

// Event is a structured mode CloudEvent. The two extensions are flattened
// into the top level object as the format requires.
type Event struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	CorrelationID string `json:"correlationid,omitempty"`
	WorkflowID    string `json:"workflowid,omitempty"`
}

// Validate checks the required context attributes
func (e *Event) Validate() error {
	switch {
	case e.ID == "":
		return ErrMissingID
	case e.Type == "":
		return ErrMissingType
	case e.Source == "":
		return ErrMissingSource
	}
	return nil
}
