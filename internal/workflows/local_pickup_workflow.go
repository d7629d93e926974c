package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/activities"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	pkgtemporal "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/temporal"
)

// LocalPickupWorkflowInput represents the input for the local pickup workflow
type LocalPickupWorkflowInput struct {
	Input  domain.FunctionInput `json:"input"`
	Policy string               `json:"policy,omitempty"`
}

// LocalPickupWorkflowResult represents the result of the local pickup workflow
type LocalPickupWorkflowResult struct {
	EvaluationID    string                   `json:"evaluationId"`
	Outcome         string                   `json:"outcome"`
	VirtualLocation bool                     `json:"virtualLocation"`
	Offered         bool                     `json:"offered"`
	Result          domain.FunctionRunResult `json:"result"`
	Error           string                   `json:"error,omitempty"`
}

// LocalPickupWorkflow evaluates a checkout's local pickup option as a durable step
func LocalPickupWorkflow(ctx workflow.Context, input LocalPickupWorkflowInput) (*LocalPickupWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting local pickup workflow", "policy", input.Policy, "lineCount", len(input.Input.Cart.Lines))

	ctx = workflow.WithActivityOptions(ctx, pkgtemporal.ActivityOptions(activities.ErrorTypeValidation))

	result := &LocalPickupWorkflowResult{Result: domain.EmptyResult()}

	var evaluated activities.EvaluateLocalPickupResult
	err := workflow.ExecuteActivity(ctx, pkgtemporal.EvaluateLocalPickupActivity, activities.EvaluateLocalPickupInput{
		Input:  input.Input,
		Policy: input.Policy,
	}).Get(ctx, &evaluated)
	if err != nil {
		result.Error = fmt.Sprintf("failed to evaluate local pickup: %v", err)
		return result, err
	}

	result.EvaluationID = evaluated.EvaluationID
	result.Outcome = evaluated.Outcome
	result.VirtualLocation = evaluated.VirtualLocation
	result.Offered = evaluated.Outcome == string(domain.OutcomeOffered)
	if evaluated.Result.Operations != nil {
		result.Result = evaluated.Result
	}

	logger.Info("Local pickup workflow completed", "evaluationId", result.EvaluationID, "outcome", result.Outcome)
	return result, nil
}
