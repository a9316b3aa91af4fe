// Package pricing turns a product and a marketplace into DDP and DDU listing prices.
package pricing

import (
	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// PriceRequest is one item to price. Amounts are in the source currency.
type PriceRequest struct {
	SKU               string           `json:"sku" binding:"omitempty,max=64"`
	ItemCost          decimal.Decimal  `json:"item_cost"`
	DeclaredValue     *decimal.Decimal `json:"declared_value"`
	WeightGrams       decimal.Decimal  `json:"weight"`
	LengthCm          decimal.Decimal  `json:"length_cm"`
	WidthCm           decimal.Decimal  `json:"width_cm"`
	HeightCm          decimal.Decimal  `json:"height_cm"`
	HSCode            string           `json:"hs_code" binding:"max=16"`
	OriginCountry     string           `json:"origin_country" binding:"omitempty,len=2"`
	EstimatedDutyRate *decimal.Decimal `json:"estimated_duty_rate"`
	Destination       string           `json:"destination" binding:"omitempty,len=2"`
	Platform          string           `json:"platform"`
	AccountID         string           `json:"account_id"`
	TargetMargin      *decimal.Decimal `json:"target_margin"`
	RequireSignature  bool             `json:"require_signature"`
	RequireInsurance  bool             `json:"require_insurance"`
}

// DisplaySource says where the buyer-facing shipping cost came from
type DisplaySource string

const (
	DisplaySourceRateTable DisplaySource = "rate_table"
	DisplaySourceLiveQuote DisplaySource = "live_quote"
)

// PriceQuote is the full pricing outcome for one (item, platform, account)
type PriceQuote struct {
	SKU                 string                    `json:"sku,omitempty"`
	Platform            string                    `json:"platform"`
	AccountID           string                    `json:"account_id"`
	Currency            string                    `json:"currency"`
	FXRate              decimal.Decimal           `json:"fx_rate"`
	Duty                logistics.DutyResolution  `json:"duty"`
	Shipping            *logistics.ShippingOption `json:"shipping"`
	DisplayShippingCost decimal.Decimal           `json:"display_shipping_cost"`
	DisplaySource       DisplaySource             `json:"display_source"`
	DDP                 strategy.PricingResult    `json:"ddp"`
	DDU                 strategy.PricingResult    `json:"ddu"`
	Mode                strategy.DutyMode         `json:"mode"`
}

// Primary returns the result for the mode the marketplace requires
func (q *PriceQuote) Primary() *strategy.PricingResult {
	if q.Mode == strategy.DutyModeDDU {
		return &q.DDU
	}
	return &q.DDP
}

// BatchItem is the per-item outcome of a batch. Exactly one of Quote and Error is set.
type BatchItem struct {
	Index     int         `json:"index"`
	SKU       string      `json:"sku,omitempty"`
	Quote     *PriceQuote `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}

// BatchStats aggregates a batch
type BatchStats struct {
	Total         int             `json:"total"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	Profitable    int             `json:"profitable"`
	Unprofitable  int             `json:"unprofitable"`
	AverageMargin decimal.Decimal `json:"average_margin"`
	AveragePrice  decimal.Decimal `json:"average_price"`
}

// BatchResult is returned by CalculateBatch
type BatchResult struct {
	Items []BatchItem `json:"items"`
	Stats BatchStats  `json:"stats"`
}
