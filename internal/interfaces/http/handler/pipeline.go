package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	listingapp "github.com/n3/backend/internal/application/listing"
)

// PipelineRunner chains strategy determination into dispatch
type PipelineRunner interface {
	Run(ctx context.Context, opts listingapp.PipelineOptions) (*listingapp.PipelineResult, error)
}

// PipelineHandler serves the end-to-end listing run
type PipelineHandler struct {
	BaseHandler
	runner PipelineRunner
}

// NewPipelineHandler creates a new PipelineHandler
func NewPipelineHandler(runner PipelineRunner) *PipelineHandler {
	return &PipelineHandler{runner: runner}
}

// Run godoc
// @ID           runListingPipeline
// @Summary      Score and dispatch in one run
// @Description  Scores pending products and dispatches every strategy_determined product. A dry run saves no decision, changes no status and returns the payloads that would be sent.
// @Tags         listing
// @Accept       json
// @Produce      json
// @Param        request body listingapp.PipelineOptions false "Run options"
// @Success      200 {object} Envelope[listingapp.PipelineResult]
// @Failure      400 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /listing/pipeline [post]
func (h *PipelineHandler) Run(c *gin.Context) {
	var opts listingapp.PipelineOptions
	if err := bindOptionalJSON(c, &opts); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.runner.Run(c.Request.Context(), opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
