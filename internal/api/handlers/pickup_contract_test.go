package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/api"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/application"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/contracts/openapi"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
)

// memoryEvaluationRepository keeps evaluations in insertion order
type memoryEvaluationRepository struct {
	mu          sync.Mutex
	evaluations []*domain.Evaluation
}

func (r *memoryEvaluationRepository) Save(ctx context.Context, evaluation *domain.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	evaluation.ClearDomainEvents()
	r.evaluations = append(r.evaluations, evaluation)
	return nil
}

func (r *memoryEvaluationRepository) FindByEvaluationID(ctx context.Context, evaluationID string) (*domain.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.evaluations {
		if e.EvaluationID == evaluationID {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memoryEvaluationRepository) matching(outcome domain.Outcome) []*domain.Evaluation {
	var out []*domain.Evaluation
	for _, e := range r.evaluations {
		if outcome == "" || e.Outcome == outcome {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EvaluatedAt.After(out[j].EvaluatedAt) })
	return out
}

func (r *memoryEvaluationRepository) List(ctx context.Context, outcome domain.Outcome, limit, offset int) ([]*domain.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(outcome)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryEvaluationRepository) Count(ctx context.Context, outcome domain.Outcome) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(outcome))), nil
}

type contractHarness struct {
	t        *testing.T
	router   http.Handler
	contract *openapi.Contract
}

func newContractHarness(t *testing.T, policy domain.Policy) *contractHarness {
	t.Helper()

	service, err := application.NewPickupApplicationService(&memoryEvaluationRepository{}, policy, nil, logging.NewNop())
	require.NoError(t, err)

	contract, err := openapi.Load(api.OpenAPI)
	require.NoError(t, err)

	return &contractHarness{t: t, router: newTestRouter(service), contract: contract}
}

// do sends the request through the router and checks both sides against the OpenAPI document
func (h *contractHarness) do(method, path, body string, validateRequest bool) *httptest.ResponseRecorder {
	h.t.Helper()

	if validateRequest {
		require.NoError(h.t, h.contract.Request(newRequest(method, path, body)), "request %s %s", method, path)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, newRequest(method, path, body))

	err := h.contract.Response(newRequest(method, path, body), rec.Code, rec.Header(), rec.Body.Bytes())
	require.NoError(h.t, err, "response %d %s", rec.Code, rec.Body.String())
	return rec
}

func TestContract_Run(t *testing.T) {
	h := newContractHarness(t, domain.DefaultPolicy)

	inputs := []struct {
		name   string
		body   string
		offers bool
	}{
		{"pickup with location", `{"cart":{"attribute":{"value":"pickup"},"lines":[{"id":"gid://shopify/CartLine/1","quantity":1}]},"locations":[{"handle":"shopA","name":"Shop A"}]}`, true},
		{"virtual location", `{"cart":{"attribute":{"value":"true"},"lines":[{"id":"L1"}]},"locations":[]}`, true},
		{"attribute missing", `{"cart":{"attribute":null,"lines":[{"id":"L1"}]}}`, false},
		{"empty cart", `{"cart":{"attribute":{"value":"pickup"},"lines":[]}}`, false},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/v1/delivery-options/local-pickup/run", tt.body, true)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(HeaderEvaluationID))
			if tt.offers {
				assert.Contains(t, rec.Body.String(), `"location_handle"`)
			} else {
				assert.JSONEq(t, `{"operations":[]}`, rec.Body.String())
			}
		})
	}

	t.Run("schema violation", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/delivery-options/local-pickup/run", `{"cart":{"attribute":{"value":7}}}`, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/delivery-options/local-pickup/run", `{"cart":`, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestContract_EvaluationsAndPolicy(t *testing.T) {
	h := newContractHarness(t, domain.StrictPolicy)

	rec := h.do(http.MethodPost, "/api/v1/delivery-options/local-pickup/run",
		`{"cart":{"attribute":{"value":"pickup"},"lines":[{"id":"L1"}]},"locations":[]}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	evaluationID := rec.Header().Get(HeaderEvaluationID)
	require.NotEmpty(t, evaluationID)

	rec = h.do(http.MethodGet, "/api/v1/delivery-options/local-pickup/evaluations/"+evaluationID, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"no_location"`)

	rec = h.do(http.MethodGet, "/api/v1/delivery-options/local-pickup/evaluations?outcome=no_location&limit=10", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = h.do(http.MethodGet, "/api/v1/delivery-options/local-pickup/evaluations/unknown", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/delivery-options/local-pickup/policy", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fallback":"none"`)
}
