package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	sharedErrors "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/errors"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/metrics"
)

// MockEvaluationRepository is an in-memory EvaluationRepository
type MockEvaluationRepository struct {
	evaluations []*domain.Evaluation
	saveErr     error
	findErr     error
	countErr    error

	lastOutcome domain.Outcome
	lastLimit   int
	lastOffset  int
}

func NewMockEvaluationRepository() *MockEvaluationRepository {
	return &MockEvaluationRepository{}
}

func (m *MockEvaluationRepository) Save(ctx context.Context, evaluation *domain.Evaluation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.evaluations = append(m.evaluations, evaluation)
	return nil
}

func (m *MockEvaluationRepository) FindByEvaluationID(ctx context.Context, evaluationID string) (*domain.Evaluation, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, e := range m.evaluations {
		if e.EvaluationID == evaluationID {
			return e, nil
		}
	}
	return nil, nil
}

func (m *MockEvaluationRepository) List(ctx context.Context, outcome domain.Outcome, limit, offset int) ([]*domain.Evaluation, error) {
	m.lastOutcome, m.lastLimit, m.lastOffset = outcome, limit, offset
	if m.findErr != nil {
		return nil, m.findErr
	}
	result := make([]*domain.Evaluation, 0)
	for i := len(m.evaluations) - 1; i >= 0; i-- {
		if outcome == "" || m.evaluations[i].Outcome == outcome {
			result = append(result, m.evaluations[i])
		}
	}
	return result, nil
}

func (m *MockEvaluationRepository) Count(ctx context.Context, outcome domain.Outcome) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, e := range m.evaluations {
		if outcome == "" || e.Outcome == outcome {
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T, repo EvaluationRepository, policy domain.Policy) (*PickupApplicationService, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(metrics.DefaultConfig("pickup-test"))
	service, err := NewPickupApplicationService(repo, policy, m, logging.NewNop())
	require.NoError(t, err)
	return service, m
}

// counterValue reads a counter from the metrics registry, 0 when it has not been observed
func counterValue(t *testing.T, m *metrics.Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

const pickupInput = `{"cart":{"attribute":{"value":"pickup"},"lines":[{"id":"L1","quantity":1}]},"locations":[{"handle":"shopA"}]}`

func TestNewPickupApplicationService_InvalidPolicy(t *testing.T) {
	policy := domain.DefaultPolicy
	policy.TriggerValues = nil

	_, err := NewPickupApplicationService(NewMockEvaluationRepository(), policy, nil, logging.NewNop())
	assert.ErrorIs(t, err, domain.ErrNoTriggerValues)
}

func TestPickupApplicationService_RunLocalPickup(t *testing.T) {
	repo := NewMockEvaluationRepository()
	service, m := newTestService(t, repo, domain.DefaultPolicy)

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-9")
	result, err := service.RunLocalPickup(ctx, RunLocalPickupCommand{Input: []byte(pickupInput)})
	require.NoError(t, err)

	assert.NotEmpty(t, result.EvaluationID)
	assert.Equal(t, string(domain.OutcomeOffered), result.Outcome)
	require.Len(t, result.Result.Operations, 1)
	assert.Equal(t, "shopA", result.Result.Operations[0].Add.PickupLocation.LocationHandle)

	require.Len(t, repo.evaluations, 1)
	saved := repo.evaluations[0]
	assert.Equal(t, result.EvaluationID, saved.EvaluationID)
	assert.Equal(t, "corr-9", saved.CorrelationID)
	assert.Equal(t, domain.PolicyNameDefault, saved.Policy)

	assert.Equal(t, 1.0, counterValue(t, m, "diylabel_pickup_evaluations_total", map[string]string{"policy": "default", "outcome": "offered"}))
}

func TestPickupApplicationService_RunLocalPickup_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not JSON", `{"cart":`},
		{"schema violation", `{"cart":{"lines":"many"}}`},
		{"missing cart", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockEvaluationRepository()
			service, _ := newTestService(t, repo, domain.DefaultPolicy)

			_, err := service.RunLocalPickup(context.Background(), RunLocalPickupCommand{Input: []byte(tt.input)})
			require.Error(t, err)

			appErr, ok := sharedErrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, sharedErrors.CodeValidationError, appErr.Code)
			assert.Empty(t, repo.evaluations)
		})
	}
}

func TestPickupApplicationService_Evaluate(t *testing.T) {
	input := domain.FunctionInput{
		Cart: domain.Cart{
			Attribute: &domain.CartAttribute{Value: strPtr("pickup")},
			Lines:     []domain.CartLine{{ID: "L1"}},
		},
	}

	t.Run("service policy falls back to virtual location", func(t *testing.T) {
		service, m := newTestService(t, NewMockEvaluationRepository(), domain.DefaultPolicy)

		result, err := service.Evaluate(context.Background(), input, "")
		require.NoError(t, err)
		assert.True(t, result.VirtualLocation)
		assert.Equal(t, 1.0, counterValue(t, m, "diylabel_pickup_virtual_locations_total", map[string]string{"policy": "default"}))
	})

	t.Run("named policy overrides service policy", func(t *testing.T) {
		service, _ := newTestService(t, NewMockEvaluationRepository(), domain.DefaultPolicy)

		result, err := service.Evaluate(context.Background(), input, domain.PolicyNameStrict)
		require.NoError(t, err)
		assert.Equal(t, string(domain.OutcomeNoLocation), result.Outcome)
		assert.True(t, result.Result.IsEmpty())
	})

	t.Run("unknown policy", func(t *testing.T) {
		service, _ := newTestService(t, NewMockEvaluationRepository(), domain.DefaultPolicy)

		_, err := service.Evaluate(context.Background(), input, "lenient")
		appErr, ok := sharedErrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, sharedErrors.CodeValidationError, appErr.Code)
	})

	t.Run("malformed generator config counts and still decides", func(t *testing.T) {
		service, m := newTestService(t, NewMockEvaluationRepository(), domain.DefaultPolicy)
		withConfig := input
		withConfig.DeliveryOptionGenerator = &domain.DeliveryOptionGenerator{Metafield: &domain.Metafield{Value: "{"}}

		result, err := service.Evaluate(context.Background(), withConfig, "")
		require.NoError(t, err)
		assert.Equal(t, string(domain.OutcomeOffered), result.Outcome)
		assert.Equal(t, 1.0, counterValue(t, m, "diylabel_pickup_config_errors_total", nil))
	})

	t.Run("evaluation id from context", func(t *testing.T) {
		repo := NewMockEvaluationRepository()
		service, _ := newTestService(t, repo, domain.DefaultPolicy)
		ctx := ContextWithEvaluationID(context.Background(), "6f1e2d3c-aaaa-5bbb-8ccc-123456789abc")

		first, err := service.Evaluate(ctx, input, "")
		require.NoError(t, err)
		second, err := service.Evaluate(ctx, input, "")
		require.NoError(t, err)

		assert.Equal(t, "6f1e2d3c-aaaa-5bbb-8ccc-123456789abc", first.EvaluationID)
		assert.Equal(t, first.EvaluationID, second.EvaluationID)
		require.Len(t, repo.evaluations, 2)
		assert.Equal(t, first.EvaluationID, repo.evaluations[1].EvaluationID)
	})

	t.Run("save error", func(t *testing.T) {
		repo := NewMockEvaluationRepository()
		repo.saveErr = errors.New("mongo down")
		service, m := newTestService(t, repo, domain.DefaultPolicy)

		_, err := service.Evaluate(context.Background(), input, "")
		assert.Error(t, err)
		assert.Equal(t, 0.0, counterValue(t, m, "diylabel_pickup_evaluations_total", map[string]string{"policy": "default", "outcome": "offered"}))
	})
}

func TestPickupApplicationService_GetEvaluation(t *testing.T) {
	repo := NewMockEvaluationRepository()
	service, _ := newTestService(t, repo, domain.DefaultPolicy)

	result, err := service.RunLocalPickup(context.Background(), RunLocalPickupCommand{Input: []byte(pickupInput)})
	require.NoError(t, err)

	dto, err := service.GetEvaluation(context.Background(), GetEvaluationQuery{EvaluationID: result.EvaluationID})
	require.NoError(t, err)
	assert.Equal(t, result.EvaluationID, dto.EvaluationID)
	assert.Equal(t, "pickup", dto.AttributeValue)

	_, err = service.GetEvaluation(context.Background(), GetEvaluationQuery{EvaluationID: "missing"})
	appErr, ok := sharedErrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, sharedErrors.CodeNotFound, appErr.Code)

	_, err = service.GetEvaluation(context.Background(), GetEvaluationQuery{})
	appErr, ok = sharedErrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, sharedErrors.CodeValidationError, appErr.Code)

	repo.findErr = errors.New("find failed")
	_, err = service.GetEvaluation(context.Background(), GetEvaluationQuery{EvaluationID: result.EvaluationID})
	_, isAppErr := sharedErrors.AsAppError(err)
	assert.False(t, isAppErr)
}

func TestPickupApplicationService_ListEvaluations(t *testing.T) {
	repo := NewMockEvaluationRepository()
	service, _ := newTestService(t, repo, domain.DefaultPolicy)

	for _, input := range []string{
		pickupInput,
		`{"cart":{"attribute":{"value":"no"},"lines":[{"id":"L1"}]}}`,
		pickupInput,
	} {
		_, err := service.RunLocalPickup(context.Background(), RunLocalPickupCommand{Input: []byte(input)})
		require.NoError(t, err)
	}

	page, err := service.ListEvaluations(context.Background(), ListEvaluationsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Evaluations, 3)
	assert.Equal(t, DefaultListLimit, page.Limit)
	assert.Equal(t, DefaultListLimit, repo.lastLimit)

	page, err = service.ListEvaluations(context.Background(), ListEvaluationsQuery{Outcome: "offered", Limit: 500, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, MaxListLimit, repo.lastLimit)
	assert.Equal(t, 1, repo.lastOffset)
	assert.Equal(t, domain.OutcomeOffered, repo.lastOutcome)

	_, err = service.ListEvaluations(context.Background(), ListEvaluationsQuery{Outcome: "maybe"})
	appErr, ok := sharedErrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "must be a known evaluation outcome", appErr.Details["outcome"])

	repo.countErr = errors.New("count failed")
	_, err = service.ListEvaluations(context.Background(), ListEvaluationsQuery{})
	assert.Error(t, err)
}

func TestPickupApplicationService_GetPolicy(t *testing.T) {
	service, _ := newTestService(t, NewMockEvaluationRepository(), domain.StrictPolicy)

	policy := service.GetPolicy()
	assert.Equal(t, domain.PolicyNameStrict, policy.Name)
	assert.Equal(t, []string{"pickup"}, policy.TriggerValues)
	assert.Equal(t, "none", policy.Fallback)
	assert.Empty(t, policy.VirtualLocationHandle)
}

func strPtr(s string) *string { return &s }
