package strategy

import (
	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Rounding scales used by TargetMarginPricingStrategy
const (
	DefaultPriceScale  int32 = 2
	DefaultMarginScale int32 = 4
)

// TargetMarginPricingStrategy solves
//
//	P = (fixed_fee + shipping_cost + landed_cost) / (1 - fee_rate - payment_fee_rate - target_margin)
//
// then rounds P half-up to the cent and recomputes profit and margin at the rounded price.
type TargetMarginPricingStrategy struct {
	BaseStrategy
	priceScale  int32
	marginScale int32
}

// NewTargetMarginPricingStrategy creates the algebraic target-margin solver
func NewTargetMarginPricingStrategy() *TargetMarginPricingStrategy {
	return &TargetMarginPricingStrategy{
		BaseStrategy: NewBaseStrategy(
			"target_margin",
			StrategyTypePricing,
			"Solves for the listing price that yields the target margin net of marketplace fees",
		),
		priceScale:  DefaultPriceScale,
		marginScale: DefaultMarginScale,
	}
}

// Solve implements PricingStrategy
func (s *TargetMarginPricingStrategy) Solve(pc PricingContext) (PricingResult, error) {
	if err := validatePricingContext(pc); err != nil {
		return PricingResult{}, err
	}

	one := decimal.NewFromInt(1)
	feeTotal := pc.FeeRate.Add(pc.PaymentFeeRate)
	denominator := one.Sub(feeTotal).Sub(pc.TargetMargin)
	if !denominator.IsPositive() {
		return PricingResult{}, shared.WrapError(shared.ErrMarginUnattainable,
			"fee_rate %s + payment_fee_rate %s + target_margin %s >= 1",
			pc.FeeRate.String(), pc.PaymentFeeRate.String(), pc.TargetMargin.String())
	}

	costs := pc.FixedFee.Add(pc.ShippingCost).Add(pc.LandedCost)
	raw := costs.Div(denominator)
	price := raw.Round(s.priceScale)

	profit := price.Mul(one.Sub(feeTotal)).Sub(costs)
	margin := decimal.Zero
	if price.IsPositive() {
		margin = profit.Div(price).Round(s.marginScale)
	}

	total := price
	display := decimal.Zero
	if pc.Mode == DutyModeDDP {
		display = pc.DisplayShippingCost.Round(s.priceScale)
		total = price.Add(display)
	}

	return PricingResult{
		Mode:                pc.Mode,
		ProductPrice:        price,
		UnroundedPrice:      raw,
		ShippingCost:        pc.ShippingCost.Round(s.priceScale),
		DisplayShippingCost: display,
		TotalPrice:          total,
		LandedCost:          pc.LandedCost.Round(s.priceScale),
		FeeAmount:           price.Mul(feeTotal).Add(pc.FixedFee).Round(s.priceScale),
		ProfitAmount:        profit.Round(s.priceScale),
		ProfitMargin:        margin,
		TargetMargin:        pc.TargetMargin,
		IsProfitable:        profit.IsPositive(),
		MeetsTarget:         margin.GreaterThanOrEqual(pc.TargetMargin.Round(s.marginScale)),
		Currency:            pc.Currency,
	}, nil
}

func validatePricingContext(pc PricingContext) error {
	if !pc.Mode.IsValid() {
		return shared.WrapError(shared.ErrInvalidInput, "unknown duty mode %q", pc.Mode)
	}
	checks := []struct {
		name  string
		value decimal.Decimal
	}{
		{"landed_cost", pc.LandedCost},
		{"shipping_cost", pc.ShippingCost},
		{"display_shipping_cost", pc.DisplayShippingCost},
		{"fee_rate", pc.FeeRate},
		{"payment_fee_rate", pc.PaymentFeeRate},
		{"fixed_fee", pc.FixedFee},
		{"target_margin", pc.TargetMargin},
	}
	for _, c := range checks {
		if c.value.IsNegative() {
			return shared.WrapError(shared.ErrInvalidInput, "%s cannot be negative", c.name)
		}
	}
	return nil
}
