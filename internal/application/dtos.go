package application

import (
	"time"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
)

// RunResultDTO is the decision returned to the caller plus the id it was stored under
type RunResultDTO struct {
	EvaluationID    string                   `json:"evaluationId"`
	Outcome         string                   `json:"outcome"`
	VirtualLocation bool                     `json:"virtualLocation"`
	Result          domain.FunctionRunResult `json:"result"`
}

// EvaluationDTO represents a stored evaluation
type EvaluationDTO struct {
	EvaluationID    string                   `json:"evaluationId"`
	Policy          string                   `json:"policy"`
	Outcome         string                   `json:"outcome"`
	LocationHandle  string                   `json:"locationHandle,omitempty"`
	VirtualLocation bool                     `json:"virtualLocation"`
	AttributeValue  string                   `json:"attributeValue,omitempty"`
	LineCount       int                      `json:"lineCount"`
	LocationCount   int                      `json:"locationCount"`
	ConfigEnabled   bool                     `json:"configEnabled"`
	Result          domain.FunctionRunResult `json:"result"`
	CorrelationID   string                   `json:"correlationId,omitempty"`
	EvaluatedAt     time.Time                `json:"evaluatedAt"`
}

// EvaluationListDTO is one page of evaluations
type EvaluationListDTO struct {
	Evaluations []EvaluationDTO `json:"evaluations"`
	Total       int64           `json:"total"`
	Limit       int             `json:"limit"`
	Offset      int             `json:"offset"`
}

// PolicyDTO represents the active pickup policy
type PolicyDTO struct {
	Name                  string   `json:"name"`
	TriggerValues         []string `json:"triggerValues"`
	Fallback              string   `json:"fallback"`
	VirtualLocationHandle string   `json:"virtualLocationHandle,omitempty"`
	Title                 string   `json:"title"`
	Instruction           string   `json:"instruction"`
}
