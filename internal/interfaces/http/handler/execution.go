package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	listingapp "github.com/n3/backend/internal/application/listing"
	"github.com/n3/backend/internal/domain/listing"
)

// ListingExecutor is the dispatch use case behind the listing endpoints
type ListingExecutor interface {
	ExecuteBatch(ctx context.Context, opts listingapp.ExecuteOptions) (*listingapp.ExecuteBatchResult, error)
	Retry(ctx context.Context, req listingapp.RetryRequest) (*listingapp.ExecuteResult, error)
	Stats(ctx context.Context) (*listing.QueueStats, error)
}

// ExecutionHandler serves marketplace dispatch
type ExecutionHandler struct {
	BaseHandler
	executor ListingExecutor
}

// NewExecutionHandler creates a new ExecutionHandler
func NewExecutionHandler(executor ListingExecutor) *ExecutionHandler {
	return &ExecutionHandler{executor: executor}
}

// Execute godoc
// @ID           executeListings
// @Summary      Dispatch decided products
// @Description  Dispatches products with a strategy decision to their recommended marketplace account. With dry_run nothing is sent and no state changes; the payloads are returned instead.
// @Tags         listing
// @Accept       json
// @Produce      json
// @Param        request body listingapp.ExecuteOptions false "Run options"
// @Success      200 {object} Envelope[listingapp.ExecuteBatchResult]
// @Failure      400 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /listing/execute [post]
func (h *ExecutionHandler) Execute(c *gin.Context) {
	var opts listingapp.ExecuteOptions
	if err := bindOptionalJSON(c, &opts); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.executor.ExecuteBatch(c.Request.Context(), opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Status godoc
// @ID           getExecutionStatus
// @Summary      Execution queue status
// @Description  Returns queue depth, pending retries, in-flight items and recent success and failure counts
// @Tags         listing
// @Produce      json
// @Success      200 {object} Envelope[listing.QueueStats]
// @Failure      503 {object} FailureEnvelope
// @Router       /listing/execute [get]
func (h *ExecutionHandler) Status(c *gin.Context) {
	stats, err := h.executor.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Retry godoc
// @ID           retryListing
// @Summary      Retry one placement
// @Description  Re-dispatches a single (sku, platform, account) outside the batch cycle
// @Tags         listing
// @Accept       json
// @Produce      json
// @Param        request body listingapp.RetryRequest true "Placement to retry"
// @Success      200 {object} Envelope[listingapp.ExecuteResult]
// @Failure      400 {object} FailureEnvelope
// @Failure      404 {object} FailureEnvelope
// @Failure      409 {object} FailureEnvelope "Another dispatcher holds the item"
// @Failure      422 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /listing/retry [post]
func (h *ExecutionHandler) Retry(c *gin.Context) {
	var req listingapp.RetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.executor.Retry(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
