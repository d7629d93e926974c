package application

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/contracts/jsonschema"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/errors"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
)

// EvaluationRepository interface for evaluation persistence
type EvaluationRepository interface {
	Save(ctx context.Context, evaluation *domain.Evaluation) error
	FindByEvaluationID(ctx context.Context, evaluationID string) (*domain.Evaluation, error)
	List(ctx context.Context, outcome domain.Outcome, limit, offset int) ([]*domain.Evaluation, error)
	Count(ctx context.Context, outcome domain.Outcome) (int64, error)
}

// InputDecoder validates and decodes raw FunctionInput payloads
type InputDecoder struct {
	validator *jsonschema.InputValidator
}

// NewInputDecoder compiles the FunctionInput schema
func NewInputDecoder() (*InputDecoder, error) {
	v, err := jsonschema.NewInputValidator()
	if err != nil {
		return nil, err
	}
	return &InputDecoder{validator: v}, nil
}

// Decode validates raw against the schema and decodes it. Failures are VALIDATION_ERROR.
func (d *InputDecoder) Decode(raw []byte) (domain.FunctionInput, error) {
	var input domain.FunctionInput

	if err := d.validator.Validate(raw); err != nil {
		var schemaErr *jsonschema.ValidationError
		if stderrors.As(err, &schemaErr) {
			return input, errors.ErrValidationWithFields("function input does not match schema", schemaErr.Fields).Wrap(err)
		}
		return input, errors.ErrValidation("function input is not valid JSON").Wrap(err)
	}

	if err := json.Unmarshal(raw, &input); err != nil {
		return input, errors.ErrValidation("function input could not be decoded").Wrap(err)
	}
	return input, nil
}

// PickupApplicationService handles local pickup use cases
type PickupApplicationService struct {
	repo    EvaluationRepository
	decoder *InputDecoder
	policy  domain.Policy
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewPickupApplicationService creates a service deciding under policy. m may be nil.
func NewPickupApplicationService(
	repo EvaluationRepository,
	policy domain.Policy,
	m *metrics.Metrics,
	logger *logging.Logger,
) (*PickupApplicationService, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pickup policy %q: %w", policy.Name, err)
	}

	decoder, err := NewInputDecoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create input decoder: %w", err)
	}

	return &PickupApplicationService{
		repo:    repo,
		decoder: decoder,
		policy:  policy,
		metrics: m,
		logger:  logger,
	}, nil
}

// RunLocalPickup validates the raw input, decides, and records the evaluation
func (s *PickupApplicationService) RunLocalPickup(ctx context.Context, cmd RunLocalPickupCommand) (*RunResultDTO, error) {
	input, err := s.decoder.Decode(cmd.Input)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, input, "")
}

// Evaluate decides for an already decoded input. An empty policyName uses the service policy.
func (s *PickupApplicationService) Evaluate(ctx context.Context, input domain.FunctionInput, policyName string) (*RunResultDTO, error) {
	policy := s.policy
	if policyName != "" && policyName != s.policy.Name {
		named, err := domain.PolicyByName(policyName)
		if err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
		policy = named
	}

	decision := domain.Evaluate(input, policy)
	if decision.ConfigErr != nil {
		s.logger.WithContext(ctx).Warn("Generator configuration is malformed, using defaults",
			"error", decision.ConfigErr.Error(),
			"policy", policy.Name,
		)
		if s.metrics != nil {
			s.metrics.RecordPickupConfigError()
		}
	}

	evaluation, err := domain.NewEvaluationWithID(EvaluationIDFromContext(ctx), input, policy, decision)
	if err != nil {
		return nil, errors.ErrInternal("failed to record evaluation").Wrap(err)
	}
	evaluation.CorrelationID = logging.CorrelationIDFromContext(ctx)

	if err := s.repo.Save(ctx, evaluation); err != nil {
		s.logger.WithError(err).Error("Failed to save evaluation", "evaluationId", evaluation.EvaluationID)
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPickupEvaluation(policy.Name, string(decision.Outcome), decision.VirtualLocation)
	}

	s.logger.Evaluation(ctx, logging.EvaluationRecord{
		EvaluationID:    evaluation.EvaluationID,
		Policy:          policy.Name,
		Outcome:         string(decision.Outcome),
		LocationHandle:  decision.LocationHandle,
		VirtualLocation: decision.VirtualLocation,
		LineCount:       evaluation.LineCount,
	})

	return &RunResultDTO{
		EvaluationID:    evaluation.EvaluationID,
		Outcome:         string(decision.Outcome),
		VirtualLocation: decision.VirtualLocation,
		Result:          decision.Result,
	}, nil
}

// GetEvaluation retrieves an evaluation by ID
func (s *PickupApplicationService) GetEvaluation(ctx context.Context, query GetEvaluationQuery) (*EvaluationDTO, error) {
	if query.EvaluationID == "" {
		return nil, errors.ErrValidation("evaluationId is required")
	}

	evaluation, err := s.repo.FindByEvaluationID(ctx, query.EvaluationID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get evaluation", "evaluationId", query.EvaluationID)
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	if evaluation == nil {
		return nil, errors.ErrNotFoundWithID("evaluation", query.EvaluationID)
	}

	return ToEvaluationDTO(evaluation), nil
}

// ListEvaluations returns one page of evaluations, newest first
func (s *PickupApplicationService) ListEvaluations(ctx context.Context, query ListEvaluationsQuery) (*EvaluationListDTO, error) {
	outcome := domain.Outcome(query.Outcome)
	if outcome != "" && !outcome.IsValid() {
		return nil, errors.ErrValidationWithFields("invalid query", map[string]string{"outcome": "must be a known evaluation outcome"})
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	evaluations, err := s.repo.List(ctx, outcome, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list evaluations", "outcome", query.Outcome)
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	total, err := s.repo.Count(ctx, outcome)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count evaluations", "outcome", query.Outcome)
		return nil, fmt.Errorf("failed to count evaluations: %w", err)
	}

	return &EvaluationListDTO{
		Evaluations: ToEvaluationDTOs(evaluations),
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	}, nil
}

// GetPolicy returns the policy the service decides under
func (s *PickupApplicationService) GetPolicy() PolicyDTO {
	return ToPolicyDTO(s.policy)
}
