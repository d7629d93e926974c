package application

import "encoding/json"

// RunLocalPickupCommand runs the pickup decision on a raw FunctionInput payload
type RunLocalPickupCommand struct {
	Input json.RawMessage `json:"input"`
}

// GetEvaluationQuery fetches one stored evaluation
type GetEvaluationQuery struct {
	EvaluationID string `json:"evaluationId"`
}

// ListEvaluationsQuery pages through stored evaluations, newest first
type ListEvaluationsQuery struct {
	Outcome string `form:"outcome" binding:"omitempty,pickup_outcome"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)
