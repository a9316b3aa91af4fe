package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	listingapp "github.com/n3/backend/internal/application/listing"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// StrategyDeterminer is the scorer use case behind the strategy endpoints
type StrategyDeterminer interface {
	DetermineForSKU(ctx context.Context, sku string) (*listing.StrategyDecision, error)
	DetermineBatch(ctx context.Context, limit int) (*listingapp.DetermineBatchResult, error)
}

// StrategyCatalog lists registered strategies
type StrategyCatalog interface {
	List(strategyType strategy.StrategyType) []string
	GetDefault(strategyType strategy.StrategyType) string
}

// StrategyHandler serves placement decisions
type StrategyHandler struct {
	BaseHandler
	determiner StrategyDeterminer
	catalog    StrategyCatalog
}

// NewStrategyHandler creates a new StrategyHandler
func NewStrategyHandler(determiner StrategyDeterminer, catalog StrategyCatalog) *StrategyHandler {
	return &StrategyHandler{determiner: determiner, catalog: catalog}
}

// DetermineRequest is the optional body of POST /strategy/determine-listing
type DetermineRequest struct {
	// Limit caps the products scored in this run; 0 uses the configured batch limit
	Limit int `json:"limit" binding:"gte=0,lte=1000"`
}

// DecisionResponse is a strategy decision
type DecisionResponse struct {
	SKU                 string                      `json:"sku"`
	Status              listing.DecisionStatus      `json:"status"`
	RecommendedPlatform string                      `json:"recommended_platform,omitempty"`
	RecommendedAccount  string                      `json:"recommended_account,omitempty"`
	Score               decimal.Decimal             `json:"score"`
	ListingPrice        decimal.Decimal             `json:"listing_price"`
	Currency            string                      `json:"currency,omitempty"`
	Candidates          []listing.StrategyCandidate `json:"candidates"`
	Error               string                      `json:"error,omitempty"`
	DecidedAt           time.Time                   `json:"decided_at"`
}

func toDecisionResponse(d *listing.StrategyDecision) DecisionResponse {
	candidates := d.Candidates
	if candidates == nil {
		candidates = []listing.StrategyCandidate{}
	}
	return DecisionResponse{
		SKU:                 d.SKU,
		Status:              d.Status,
		RecommendedPlatform: d.RecommendedPlatform.String(),
		RecommendedAccount:  d.RecommendedAccount,
		Score:               d.Score,
		ListingPrice:        d.ListingPrice,
		Currency:            d.Currency,
		Candidates:          candidates,
		Error:               d.Error,
		DecidedAt:           d.DecidedAt,
	}
}

// DetermineBatch godoc
// @ID           determineListingBatch
// @Summary      Score pending products
// @Description  Runs the scorer over products awaiting a strategy and returns per-product outcomes with summary counts.
// @Tags         strategy
// @Accept       json
// @Produce      json
// @Param        request body DetermineRequest false "Run options"
// @Success      200 {object} Envelope[listingapp.DetermineBatchResult]
// @Failure      400 {object} FailureEnvelope
// @Failure      503 {object} FailureEnvelope
// @Router       /strategy/determine-listing [post]
func (h *StrategyHandler) DetermineBatch(c *gin.Context) {
	var req DetermineRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.determiner.DetermineBatch(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DetermineForSKU godoc
// @ID           determineListingForSKU
// @Summary      Score one product
// @Description  Re-scores a single product and returns its decision, including rejected candidates.
// @Tags         strategy
// @Produce      json
// @Param        sku_id query string true "Product SKU"
// @Success      200 {object} Envelope[DecisionResponse]
// @Failure      400 {object} FailureEnvelope
// @Failure      404 {object} FailureEnvelope
// @Failure      422 {object} FailureEnvelope "Product is not in a state that can be scored"
// @Failure      503 {object} FailureEnvelope
// @Router       /strategy/determine-listing [get]
func (h *StrategyHandler) DetermineForSKU(c *gin.Context) {
	sku := queryTrimmed(c, "sku_id")
	if sku == "" {
		h.BadRequest(c, "sku_id is required")
		return
	}

	decision, err := h.determiner.DetermineForSKU(c.Request.Context(), sku)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDecisionResponse(decision))
}

// StrategyInfo describes one registered strategy
type StrategyInfo struct {
	Name      string `json:"name" example:"target_margin"`
	IsDefault bool   `json:"is_default" example:"true"`
}

// StrategiesResponse lists registered strategies by type. Constraints are in evaluation order.
type StrategiesResponse struct {
	Pricing     []StrategyInfo `json:"pricing"`
	Constraints []StrategyInfo `json:"constraints"`
	Scoring     []StrategyInfo `json:"scoring"`
}

// ListStrategies godoc
// @ID           listSystemStrategies
// @Summary      List registered strategies
// @Description  Returns pricing solvers, enabled constraints in evaluation order, and scorers
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[StrategiesResponse]
// @Router       /system/strategies [get]
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	h.Success(c, StrategiesResponse{
		Pricing:     h.strategyInfos(strategy.StrategyTypePricing),
		Constraints: h.strategyInfos(strategy.StrategyTypeConstraint),
		Scoring:     h.strategyInfos(strategy.StrategyTypeScoring),
	})
}

func (h *StrategyHandler) strategyInfos(t strategy.StrategyType) []StrategyInfo {
	names := h.catalog.List(t)
	def := h.catalog.GetDefault(t)
	infos := make([]StrategyInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, StrategyInfo{Name: name, IsDefault: name == def})
	}
	return infos
}
