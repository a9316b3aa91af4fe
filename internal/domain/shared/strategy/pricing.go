package strategy

import (
	"github.com/shopspring/decimal"
)

// DutyMode says who pays import duty on a listing
type DutyMode string

const (
	// DutyModeDDP means the seller prepays duty and the listing price includes it
	DutyModeDDP DutyMode = "DDP"
	// DutyModeDDU means the buyer pays duty on delivery
	DutyModeDDU DutyMode = "DDU"
)

// String returns the string representation of the duty mode
func (m DutyMode) String() string {
	return string(m)
}

// IsValid returns true if the duty mode is known
func (m DutyMode) IsValid() bool {
	return m == DutyModeDDP || m == DutyModeDDU
}

// PricingContext carries everything needed to solve for a listing price.
// All amounts are in the marketplace currency and all rates are fractions.
type PricingContext struct {
	Mode                DutyMode
	LandedCost          decimal.Decimal
	ShippingCost        decimal.Decimal // seller-facing cost of the cheapest route
	DisplayShippingCost decimal.Decimal // buyer-facing shipping, added on top in DDP mode
	FeeRate             decimal.Decimal
	PaymentFeeRate      decimal.Decimal
	FixedFee            decimal.Decimal
	TargetMargin        decimal.Decimal
	Currency            string
}

// PricingResult is the outcome of a price solve after rounding
type PricingResult struct {
	Mode                DutyMode        `json:"mode"`
	ProductPrice        decimal.Decimal `json:"product_price"`
	UnroundedPrice      decimal.Decimal `json:"unrounded_price"`
	ShippingCost        decimal.Decimal `json:"shipping_cost"`
	DisplayShippingCost decimal.Decimal `json:"display_shipping_cost"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	LandedCost          decimal.Decimal `json:"landed_cost"`
	FeeAmount           decimal.Decimal `json:"fee_amount"`
	ProfitAmount        decimal.Decimal `json:"profit_amount"`
	ProfitMargin        decimal.Decimal `json:"profit_margin"`
	TargetMargin        decimal.Decimal `json:"target_margin"`
	IsProfitable        bool            `json:"is_profitable"`
	MeetsTarget         bool            `json:"meets_target"`
	Currency            string          `json:"currency"`
}

// PricingStrategy solves for a listing price. Implementations are pure.
type PricingStrategy interface {
	Strategy
	// Solve returns the listing price that reaches the target margin net of fees
	Solve(pricingCtx PricingContext) (PricingResult, error)
}

// LandedCost returns the seller's cost basis: acquisition plus prepaid duty for DDP,
// acquisition alone for DDU.
func LandedCost(mode DutyMode, acquisitionCost, declaredValue, dutyRate decimal.Decimal) decimal.Decimal {
	if mode == DutyModeDDU {
		return acquisitionCost
	}
	return acquisitionCost.Add(declaredValue.Mul(dutyRate))
}
