package domain

import (
	"errors"
	"fmt"
)

// Policy errors
var (
	ErrUnknownPolicy        = errors.New("unknown pickup policy")
	ErrNoTriggerValues      = errors.New("policy requires at least one trigger value")
	ErrInvalidFallbackMode  = errors.New("invalid fallback mode")
	ErrMissingVirtualHandle = errors.New("virtual fallback requires a virtual location handle")
)

// FallbackMode decides what happens when the host supplies no locations
type FallbackMode string

const (
	// FallbackVirtual emits the option against a synthesized virtual location
	FallbackVirtual FallbackMode = "virtual"
	// FallbackNone emits nothing when no location is known
	FallbackNone FallbackMode = "none"
)

// IsValid checks if the fallback mode is known
func (m FallbackMode) IsValid() bool {
	switch m {
	case FallbackVirtual, FallbackNone:
		return true
	default:
		return false
	}
}

const (
	PolicyNameDefault = "default"
	PolicyNameStrict  = "strict"

	// VirtualLocationHandle stands in for sellers without a registered point-of-sale location
	VirtualLocationHandle = "diy-label-virtual-location"

	PickupTitle       = "🌱 Local Print Shop Pickup"
	PickupInstruction = "Your order will be printed at a local print shop and ready for pickup. You'll receive a notification with pickup details when it's ready."

	StrictPickupInstruction = "Your order will be printed locally and ready for pickup. You'll receive a notification when it's ready."
)

// Policy is the named configuration of the pickup decision
type Policy struct {
	Name                  string       `json:"name" bson:"name"`
	TriggerValues         []string     `json:"triggerValues" bson:"triggerValues"`
	Fallback              FallbackMode `json:"fallback" bson:"fallback"`
	VirtualLocationHandle string       `json:"virtualLocationHandle,omitempty" bson:"virtualLocationHandle,omitempty"`
	Title                 string       `json:"title" bson:"title"`
	Instruction           string       `json:"instruction" bson:"instruction"`
}

// DefaultPolicy accepts "pickup" and "true" and falls back to the virtual location
var DefaultPolicy = Policy{
	Name:                  PolicyNameDefault,
	TriggerValues:         []string{"pickup", "true"},
	Fallback:              FallbackVirtual,
	VirtualLocationHandle: VirtualLocationHandle,
	Title:                 PickupTitle,
	Instruction:           PickupInstruction,
}

// StrictPolicy accepts only "pickup" and emits nothing without a real location
var StrictPolicy = Policy{
	Name:          PolicyNameStrict,
	TriggerValues: []string{"pickup"},
	Fallback:      FallbackNone,
	Title:         PickupTitle,
	Instruction:   StrictPickupInstruction,
}

// PolicyByName resolves a named policy. An empty name selects the default.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyNameDefault:
		return DefaultPolicy.clone(), nil
	case PolicyNameStrict:
		return StrictPolicy.clone(), nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Validate checks that the policy can produce a decision
func (p Policy) Validate() error {
	if len(p.TriggerValues) == 0 {
		return ErrNoTriggerValues
	}
	if !p.Fallback.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFallbackMode, p.Fallback)
	}
	if p.Fallback == FallbackVirtual && p.VirtualLocationHandle == "" {
		return ErrMissingVirtualHandle
	}
	return nil
}

// IsTrigger reports whether value opts the cart into pickup. Matching is exact.
func (p Policy) IsTrigger(value string) bool {
	for _, trigger := range p.TriggerValues {
		if value == trigger {
			return true
		}
	}
	return false
}

func (p Policy) clone() Policy {
	c := p
	c.TriggerValues = append([]string(nil), p.TriggerValues...)
	return c
}
