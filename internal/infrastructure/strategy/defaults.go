package strategy

import (
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/n3/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// NewRegistryFromConfig registers the target-margin solver, the hard
// constraints in evaluation order (brand block, minimum profit, exclusion,
// price range, inventory protection) and the weighted scorer.
func NewRegistryFromConfig(cfg config.StrategyConfig) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	solver := strategy.NewTargetMarginPricingStrategy()
	if err := r.RegisterPricingStrategy(solver); err != nil {
		return nil, err
	}

	constraints := []strategy.ConstraintStrategy{
		strategy.NewBrandBlockConstraint(cfg.BlockedBrands, cfg.BlockedTitleTerms),
		strategy.NewMinProfitConstraint(decimal.NewFromFloat(cfg.MinMargin), decimal.NewFromFloat(cfg.MinProfit)),
		strategy.NewExclusionConstraint(cfg.ExcludedCategories, cfg.ExcludedKeywords),
		strategy.NewPriceRangeConstraint(decimal.NewFromFloat(cfg.MinPrice), decimal.NewFromFloat(cfg.MaxPrice)),
		strategy.NewInventoryProtectionConstraint(),
	}
	for _, c := range constraints {
		if err := r.RegisterConstraint(c); err != nil {
			return nil, err
		}
	}

	weights := strategy.ScoringWeights{
		Margin:   decimal.NewFromFloat(cfg.Weights.Margin),
		Profit:   decimal.NewFromFloat(cfg.Weights.Profit),
		Platform: decimal.NewFromFloat(cfg.Weights.Platform),
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	scorer := strategy.NewWeightedScoringStrategy(weights)
	if err := r.RegisterScoringStrategy(scorer); err != nil {
		return nil, err
	}

	if err := r.SetDefault(strategy.StrategyTypePricing, solver.Name()); err != nil {
		return nil, err
	}
	if err := r.SetDefault(strategy.StrategyTypeScoring, scorer.Name()); err != nil {
		return nil, err
	}
	return r, nil
}
