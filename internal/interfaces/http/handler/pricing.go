package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	pricingapp "github.com/n3/backend/internal/application/pricing"
)

// PriceCalculator is the pricing use case behind the price endpoints
type PriceCalculator interface {
	CalculateBatch(ctx context.Context, reqs []pricingapp.PriceRequest) *pricingapp.BatchResult
	CalculateForProduct(ctx context.Context, sku, platform, accountID string) (*pricingapp.PriceQuote, error)
}

// DefaultMaxPriceBatch bounds a POST /price/calculate body when no limit is configured
const DefaultMaxPriceBatch = 500

// PricingHandler serves landed-cost price calculations
type PricingHandler struct {
	BaseHandler
	calculator PriceCalculator
	maxBatch   int
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(calculator PriceCalculator, maxBatch int) *PricingHandler {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxPriceBatch
	}
	return &PricingHandler{calculator: calculator, maxBatch: maxBatch}
}

// CalculatePriceRequest is the body of POST /price/calculate
type CalculatePriceRequest struct {
	Items []pricingapp.PriceRequest `json:"items" binding:"required,min=1,dive"`
}

// Calculate godoc
// @ID           calculatePrices
// @Summary      Calculate listing prices
// @Description  Prices every item in DDP and DDU variants. Items fail independently; the batch never aborts.
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        request body CalculatePriceRequest true "Items to price"
// @Success      200 {object} Envelope[pricingapp.BatchResult]
// @Failure      400 {object} FailureEnvelope
// @Router       /price/calculate [post]
func (h *PricingHandler) Calculate(c *gin.Context) {
	var req CalculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if len(req.Items) > h.maxBatch {
		h.BadRequest(c, fmt.Sprintf("batch of %d items exceeds the limit of %d", len(req.Items), h.maxBatch))
		return
	}

	h.Success(c, h.calculator.CalculateBatch(c.Request.Context(), req.Items))
}

// ProductPriceQuery is the query of GET /price/calculate
type ProductPriceQuery struct {
	SKU       string `form:"sku" binding:"required,max=64"`
	Platform  string `form:"platform" binding:"omitempty,platform"`
	AccountID string `form:"account_id" binding:"max=64"`
}

// CalculateForProduct godoc
// @ID           calculateProductPrice
// @Summary      Price a stored product
// @Description  Prices one product on one marketplace account. Platform and account fall back to the configured defaults.
// @Tags         pricing
// @Produce      json
// @Param        sku        query string true  "Product SKU"
// @Param        platform   query string false "Marketplace (EBAY, SHOPEE)"
// @Param        account_id query string false "Marketplace account"
// @Success      200 {object} Envelope[pricingapp.PriceQuote]
// @Failure      400 {object} FailureEnvelope
// @Failure      404 {object} FailureEnvelope
// @Failure      422 {object} FailureEnvelope "No route or margin unattainable"
// @Failure      503 {object} FailureEnvelope
// @Router       /price/calculate [get]
func (h *PricingHandler) CalculateForProduct(c *gin.Context) {
	var q ProductPriceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	quote, err := h.calculator.CalculateForProduct(c.Request.Context(), q.SKU, q.Platform, q.AccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}
