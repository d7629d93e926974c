package activities

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/application"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/cloudevents"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/errors"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
	pkgtemporal "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/temporal"
)

// ErrorTypeValidation marks failures that retrying cannot fix
const ErrorTypeValidation = "ValidationError"

// Evaluator decides and records a pickup evaluation for a decoded input
type Evaluator interface {
	Evaluate(ctx context.Context, input domain.FunctionInput, policyName string) (*application.RunResultDTO, error)
}

// EvaluateLocalPickupInput is the activity payload
type EvaluateLocalPickupInput struct {
	Input  domain.FunctionInput `json:"input"`
	Policy string               `json:"policy,omitempty"`
}

// EvaluateLocalPickupResult is what the activity hands back to the workflow
type EvaluateLocalPickupResult struct {
	EvaluationID    string                   `json:"evaluationId"`
	Outcome         string                   `json:"outcome"`
	VirtualLocation bool                     `json:"virtualLocation"`
	Result          domain.FunctionRunResult `json:"result"`
}

// PickupActivities contains activities for the local pickup workflow
type PickupActivities struct {
	evaluator Evaluator
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// NewPickupActivities creates a new PickupActivities instance. m may be nil.
func NewPickupActivities(evaluator Evaluator, m *metrics.Metrics, logger *logging.Logger) *PickupActivities {
	return &PickupActivities{
		evaluator: evaluator,
		metrics:   m,
		logger:    logger,
	}
}

// EvaluateLocalPickup runs the pickup decision and stores the evaluation
func (a *PickupActivities) EvaluateLocalPickup(ctx context.Context, input EvaluateLocalPickupInput) (*EvaluateLocalPickupResult, error) {
	logger := activity.GetLogger(ctx)
	start := time.Now()
	info := activity.GetInfo(ctx)
	ctx = cloudevents.ContextWithWorkflowID(ctx, info.WorkflowExecution.ID)
	ctx = application.ContextWithEvaluationID(ctx, evaluationID(info))

	logger.Info("Evaluating local pickup", "policy", input.Policy, "lineCount", len(input.Input.Cart.Lines))

	result, err := a.evaluator.Evaluate(ctx, input.Input, input.Policy)
	a.record(ctx, err == nil, time.Since(start))
	if err != nil {
		logger.Error("Failed to evaluate local pickup", "error", err)
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.CodeValidationError {
			return nil, temporal.NewNonRetryableApplicationError(appErr.Message, ErrorTypeValidation, err)
		}
		return nil, err
	}

	logger.Info("Local pickup evaluated", "evaluationId", result.EvaluationID, "outcome", result.Outcome)
	return &EvaluateLocalPickupResult{
		EvaluationID:    result.EvaluationID,
		Outcome:         result.Outcome,
		VirtualLocation: result.VirtualLocation,
		Result:          result.Result,
	}, nil
}

// evaluationID is stable across the attempts of one scheduled activity, so a
// retry after a committed save stores nothing new
func evaluationID(info activity.Info) string {
	key := "temporal:" + info.WorkflowExecution.RunID + "/" + info.ActivityID
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func (a *PickupActivities) record(ctx context.Context, success bool, duration time.Duration) {
	a.logger.Activity(ctx, pkgtemporal.EvaluateLocalPickupActivity, duration, success)
	if a.metrics != nil {
		a.metrics.RecordActivityCompleted(pkgtemporal.EvaluateLocalPickupActivity, success, duration)
	}
}
