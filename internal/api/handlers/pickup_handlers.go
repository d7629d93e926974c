package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/application"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/errors"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/logging"
	"github.com/Tauheed-Elahee/diylabel-shopify-extension-public/pkg/middleware"
)

// HeaderEvaluationID carries the id of the stored evaluation on run responses
const HeaderEvaluationID = "X-Evaluation-ID"

// maxInputBytes bounds the FunctionInput body
const maxInputBytes = 1 << 20

// PickupService is the application surface the handlers depend on
type PickupService interface {
	RunLocalPickup(ctx context.Context, cmd application.RunLocalPickupCommand) (*application.RunResultDTO, error)
	GetEvaluation(ctx context.Context, query application.GetEvaluationQuery) (*application.EvaluationDTO, error)
	ListEvaluations(ctx context.Context, query application.ListEvaluationsQuery) (*application.EvaluationListDTO, error)
	GetPolicy() application.PolicyDTO
}

// PickupHandlers contains handlers for local pickup operations
type PickupHandlers struct {
	service PickupService
	logger  *logging.Logger
}

// NewPickupHandlers creates a new PickupHandlers
func NewPickupHandlers(service PickupService, logger *logging.Logger) *PickupHandlers {
	return &PickupHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers local pickup routes on the router
func (h *PickupHandlers) RegisterRoutes(router *gin.RouterGroup) {
	pickup := router.Group("/delivery-options/local-pickup")
	{
		pickup.POST("/run", h.Run)
		pickup.GET("/evaluations", h.ListEvaluations)
		pickup.GET("/evaluations/:evaluationId", h.GetEvaluation)
		pickup.GET("/policy", h.GetPolicy)
	}
}

// Run decides whether the cart in the body is offered local pickup
func (h *PickupHandlers) Run(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInputBytes+1))
	if err != nil {
		middleware.RespondError(c, h.logger.Logger, errors.ErrBadRequest("failed to read request body"))
		return
	}
	if len(body) > maxInputBytes {
		middleware.RespondError(c, h.logger.Logger, errors.NewAppError(errors.CodeBadRequest, "request body too large", http.StatusRequestEntityTooLarge))
		return
	}

	result, err := h.service.RunLocalPickup(c.Request.Context(), application.RunLocalPickupCommand{Input: body})
	if err != nil {
		middleware.RespondError(c, h.logger.Logger, err)
		return
	}

	middleware.SpanAttributes(c,
		attribute.String("pickup.evaluation_id", result.EvaluationID),
		attribute.String("pickup.outcome", result.Outcome),
		attribute.Bool("pickup.virtual_location", result.VirtualLocation),
	)

	c.Header(HeaderEvaluationID, result.EvaluationID)
	c.JSON(http.StatusOK, result.Result)
}

// GetEvaluation handles getting an evaluation by ID
func (h *PickupHandlers) GetEvaluation(c *gin.Context) {
	evaluationID := c.Param("evaluationId")
	middleware.SpanAttributes(c, attribute.String("pickup.evaluation_id", evaluationID))

	evaluation, err := h.service.GetEvaluation(c.Request.Context(), application.GetEvaluationQuery{EvaluationID: evaluationID})
	if err != nil {
		middleware.RespondError(c, h.logger.Logger, err)
		return
	}

	c.JSON(http.StatusOK, evaluation)
}

// ListEvaluations handles listing evaluations
func (h *PickupHandlers) ListEvaluations(c *gin.Context) {
	var query application.ListEvaluationsQuery
	if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
		middleware.RespondError(c, h.logger.Logger, appErr)
		return
	}

	page, err := h.service.ListEvaluations(c.Request.Context(), query)
	if err != nil {
		middleware.RespondError(c, h.logger.Logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetPolicy returns the active pickup policy
func (h *PickupHandlers) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetPolicy())
}
