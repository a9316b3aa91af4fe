package strategy

import (
	"sort"

	"github.com/shopspring/decimal"
)

const scoreScale int32 = 6

// WeightedScoringStrategy scores candidates as
//
//	w_margin*margin + w_profit*(profit / max_profit) + w_platform*preference
//
// and orders them by score desc, then profit desc, then fee_rate asc, then key asc.
type WeightedScoringStrategy struct {
	BaseStrategy
	weights ScoringWeights
}

// NewWeightedScoringStrategy creates a weighted scorer
func NewWeightedScoringStrategy(weights ScoringWeights) *WeightedScoringStrategy {
	return &WeightedScoringStrategy{
		BaseStrategy: NewBaseStrategy("weighted", StrategyTypeScoring,
			"Weighted composite of margin, normalized profit and platform preference"),
		weights: weights,
	}
}

// Weights returns the configured weights
func (s *WeightedScoringStrategy) Weights() ScoringWeights {
	return s.weights
}

// Rank implements ScoringStrategy. The result is deterministic for a given input set.
func (s *WeightedScoringStrategy) Rank(inputs []ScoringInput) []ScoredCandidate {
	maxProfit := decimal.Zero
	for _, in := range inputs {
		if in.ProfitAmount.GreaterThan(maxProfit) {
			maxProfit = in.ProfitAmount
		}
	}

	scored := make([]ScoredCandidate, 0, len(inputs))
	for _, in := range inputs {
		profitNorm := decimal.Zero
		if maxProfit.IsPositive() && in.ProfitAmount.IsPositive() {
			profitNorm = in.ProfitAmount.Div(maxProfit)
		}
		score := s.weights.Margin.Mul(in.ProfitMargin).
			Add(s.weights.Profit.Mul(profitNorm)).
			Add(s.weights.Platform.Mul(in.Preference)).
			Round(scoreScale)
		scored = append(scored, ScoredCandidate{ScoringInput: in, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return Better(scored[i], scored[j])
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}

// Better reports whether a ranks ahead of b
func Better(a, b ScoredCandidate) bool {
	if !a.Score.Equal(b.Score) {
		return a.Score.GreaterThan(b.Score)
	}
	if !a.ProfitAmount.Equal(b.ProfitAmount) {
		return a.ProfitAmount.GreaterThan(b.ProfitAmount)
	}
	if !a.FeeRate.Equal(b.FeeRate) {
		return a.FeeRate.LessThan(b.FeeRate)
	}
	return a.Key < b.Key
}
