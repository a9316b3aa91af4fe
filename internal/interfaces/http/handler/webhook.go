package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	listingapp "github.com/n3/backend/internal/application/listing"
)

// PriceDropProcessor handles a verified price-drop event
type PriceDropProcessor interface {
	Handle(ctx context.Context, evt listingapp.PriceDropEvent) (*listingapp.PriceDropResult, error)
}

// WebhookHandler receives supplier webhooks. Signature checking happens in middleware.
type WebhookHandler struct {
	BaseHandler
	priceDrops PriceDropProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(priceDrops PriceDropProcessor) *WebhookHandler {
	return &WebhookHandler{priceDrops: priceDrops}
}

// PriceDropResponse reports how a price-drop event was handled
type PriceDropResponse struct {
	EventID   string                    `json:"event_id"`
	SKU       string                    `json:"sku"`
	Duplicate bool                      `json:"duplicate"`
	Skipped   bool                      `json:"skipped"`
	Reason    string                    `json:"reason,omitempty"`
	Decision  *DecisionResponse         `json:"decision,omitempty"`
	Execution *listingapp.ExecuteResult `json:"execution,omitempty"`
}

func toPriceDropResponse(r *listingapp.PriceDropResult) PriceDropResponse {
	resp := PriceDropResponse{
		EventID:   r.EventID,
		SKU:       r.SKU,
		Duplicate: r.Duplicate,
		Skipped:   r.Skipped,
		Reason:    r.Reason,
		Execution: r.Execution,
	}
	if r.Decision != nil {
		d := toDecisionResponse(r.Decision)
		resp.Decision = &d
	}
	return resp
}

// PriceDrop godoc
// @ID           receivePriceDrop
// @Summary      Supplier price drop
// @Description  Updates the product cost and re-scores it. Events are deduplicated by event_id; a replay returns duplicate=true without side effects. A high enough score dispatches immediately.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Signature header string false "sha256=<hex HMAC of the body>"
// @Param        request body listingapp.PriceDropEvent true "Price drop event"
// @Success      200 {object} Envelope[PriceDropResponse]
// @Failure      400 {object} FailureEnvelope
// @Failure      401 {object} FailureEnvelope "Bad signature"
// @Failure      404 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /webhooks/price-drop [post]
func (h *WebhookHandler) PriceDrop(c *gin.Context) {
	var evt listingapp.PriceDropEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.priceDrops.Handle(c.Request.Context(), evt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPriceDropResponse(result))
}
