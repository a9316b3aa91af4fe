package listing

import (
	"context"
	"errors"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StrategyOptions configures the scorer
type StrategyOptions struct {
	// TargetMargin overrides the pricing default when set
	TargetMargin *decimal.Decimal
	Concurrency  int
	BatchLimit   int
}

// DetermineResult is the per-product outcome of a scorer run
type DetermineResult struct {
	SKU       string                    `json:"sku"`
	Status    listing.DecisionStatus    `json:"status,omitempty"`
	Decision  *listing.StrategyDecision `json:"decision,omitempty"`
	Skipped   bool                      `json:"skipped,omitempty"`
	Error     string                    `json:"error,omitempty"`
	ErrorCode string                    `json:"error_code,omitempty"`
}

// DetermineSummary counts batch outcomes
type DetermineSummary struct {
	Total        int `json:"total"`
	Success      int `json:"success"`
	NoCandidates int `json:"no_candidates"`
	Errors       int `json:"errors"`
	Skipped      int `json:"skipped"`
}

// DetermineBatchResult is returned by DetermineBatch
type DetermineBatchResult struct {
	Items   []DetermineResult `json:"items"`
	Summary DetermineSummary  `json:"summary"`
}

// StrategyService picks the best (platform, account) for each product
type StrategyService struct {
	products    catalog.ProductRepository
	settings    integration.MarketplaceSettingsRepository
	decisions   listing.DecisionRepository
	quoter      ProductQuoter
	constraints []strategy.ConstraintStrategy
	scorer      strategy.ScoringStrategy
	opts        StrategyOptions
	metrics     Metrics
	logger      *zap.Logger
}

// NewStrategyService creates a new StrategyService
func NewStrategyService(
	products catalog.ProductRepository,
	settings integration.MarketplaceSettingsRepository,
	decisions listing.DecisionRepository,
	quoter ProductQuoter,
	constraints []strategy.ConstraintStrategy,
	scorer strategy.ScoringStrategy,
	opts StrategyOptions,
	logger *zap.Logger,
) *StrategyService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 500
	}
	return &StrategyService{
		products:    products,
		settings:    settings,
		decisions:   decisions,
		quoter:      quoter,
		constraints: constraints,
		scorer:      scorer,
		opts:        opts,
		metrics:     noopMetrics{},
		logger:      logger,
	}
}

// SetMetrics sets the metrics recorder
func (s *StrategyService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// DetermineForSKU scores one product. A product that is not in a scorable status
// returns ErrInvalidState.
func (s *StrategyService) DetermineForSKU(ctx context.Context, sku string) (*listing.StrategyDecision, error) {
	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !product.Status.Scorable() {
		return nil, shared.WrapError(shared.ErrInvalidState, "product %s is %s", sku, product.Status)
	}
	claimed, err := s.products.TransitionStatus(ctx, sku, catalog.ScorableStatuses(), catalog.ProductStatusScoring)
	if err != nil {
		return nil, shared.Unavailable("claim product for scoring", err)
	}
	if !claimed {
		return nil, shared.WrapError(shared.ErrInvalidState, "product %s is being processed", sku)
	}
	return s.determineClaimed(ctx, product)
}

// DetermineBatch scores up to limit products in pending_strategy. One product's
// failure never aborts the batch.
func (s *StrategyService) DetermineBatch(ctx context.Context, limit int) (*DetermineBatchResult, error) {
	products, err := s.pending(ctx, limit)
	if err != nil {
		return nil, err
	}
	result := s.scoreAll(products, func(p *catalog.Product) DetermineResult {
		return s.determineOne(ctx, p)
	})
	s.logger.Info("Strategy batch completed",
		zap.Int("total", result.Summary.Total),
		zap.Int("success", result.Summary.Success),
		zap.Int("no_candidates", result.Summary.NoCandidates),
		zap.Int("errors", result.Summary.Errors),
		zap.Int("skipped", result.Summary.Skipped),
	)
	return result, nil
}

// previewBatch scores up to limit pending_strategy products without claiming them
// or saving decisions. Items[i] belongs to products[i].
func (s *StrategyService) previewBatch(ctx context.Context, limit int) ([]catalog.Product, *DetermineBatchResult, error) {
	products, err := s.pending(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	result := s.scoreAll(products, func(p *catalog.Product) DetermineResult {
		return s.previewOne(ctx, p)
	})
	return products, result, nil
}

func (s *StrategyService) pending(ctx context.Context, limit int) ([]catalog.Product, error) {
	if limit <= 0 || limit > s.opts.BatchLimit {
		limit = s.opts.BatchLimit
	}
	products, err := s.products.FindByFilter(ctx, catalog.ProductFilter{
		Statuses: []catalog.ProductStatus{catalog.ProductStatusPendingStrategy},
		Limit:    limit,
	})
	if err != nil {
		return nil, shared.Unavailable("list pending products", err)
	}
	return products, nil
}

func (s *StrategyService) scoreAll(products []catalog.Product, score func(*catalog.Product) DetermineResult) *DetermineBatchResult {
	items := make([]DetermineResult, len(products))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := range products {
		g.Go(func() error {
			items[i] = score(&products[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &DetermineBatchResult{Items: items, Summary: DetermineSummary{Total: len(items)}}
	for _, it := range items {
		switch {
		case it.Skipped:
			result.Summary.Skipped++
		case it.Status == listing.DecisionStatusSuccess:
			result.Summary.Success++
		case it.Status == listing.DecisionStatusNoCandidates:
			result.Summary.NoCandidates++
		default:
			result.Summary.Errors++
		}
	}
	return result
}

func (s *StrategyService) previewOne(ctx context.Context, product *catalog.Product) DetermineResult {
	res := DetermineResult{SKU: product.SKU}
	candidates, err := s.evaluate(ctx, product)
	if err != nil {
		res.Decision = listing.NewErrorDecision(product.SKU, err, candidates)
		res.Status = listing.DecisionStatusError
		res.Error, res.ErrorCode = err.Error(), shared.ErrorCode(err)
		return res
	}
	res.Decision = listing.NewDecision(product.SKU, candidates)
	res.Status = res.Decision.Status
	return res
}

func (s *StrategyService) determineOne(ctx context.Context, product *catalog.Product) DetermineResult {
	res := DetermineResult{SKU: product.SKU}
	claimed, err := s.products.TransitionStatus(ctx, product.SKU, catalog.ScorableStatuses(), catalog.ProductStatusScoring)
	if err != nil {
		err = shared.Unavailable("claim product for scoring", err)
		res.Error, res.ErrorCode = err.Error(), shared.ErrorCode(err)
		return res
	}
	if !claimed {
		res.Skipped = true
		return res
	}
	decision, err := s.determineClaimed(ctx, product)
	if decision != nil {
		res.Decision = decision
		res.Status = decision.Status
	}
	if err != nil {
		res.Status = listing.DecisionStatusError
		res.Error, res.ErrorCode = err.Error(), shared.ErrorCode(err)
	}
	return res
}

// determineClaimed runs on a product already flipped to scoring and always
// moves it out of scoring before returning.
func (s *StrategyService) determineClaimed(ctx context.Context, product *catalog.Product) (*listing.StrategyDecision, error) {
	log := s.logger.With(zap.String("sku", product.SKU))

	candidates, err := s.evaluate(ctx, product)
	if err != nil {
		decision := listing.NewErrorDecision(product.SKU, err, candidates)
		if upErr := s.decisions.Upsert(ctx, decision); upErr != nil {
			log.Warn("Failed to record error decision", zap.Error(upErr))
		}
		s.release(ctx, product.SKU, catalog.ProductStatusPendingStrategy)
		s.metrics.RecordDecision(ctx, string(listing.DecisionStatusError))
		log.Error("Strategy determination failed", zap.Error(err))
		return decision, err
	}

	decision := listing.NewDecision(product.SKU, candidates)
	if err := s.decisions.Upsert(ctx, decision); err != nil {
		s.release(ctx, product.SKU, catalog.ProductStatusPendingStrategy)
		s.metrics.RecordDecision(ctx, string(listing.DecisionStatusError))
		return nil, shared.Unavailable("save strategy decision", err)
	}

	next := catalog.ProductStatusNotListable
	if decision.Status == listing.DecisionStatusSuccess {
		next = catalog.ProductStatusStrategyDetermined
	}
	if _, err := s.products.TransitionStatus(ctx, product.SKU,
		[]catalog.ProductStatus{catalog.ProductStatusScoring}, next); err != nil {
		return decision, shared.Unavailable("update product status", err)
	}
	s.metrics.RecordDecision(ctx, string(decision.Status))

	log.Info("Strategy determined",
		zap.String("status", string(decision.Status)),
		zap.String("recommended", decision.RecommendedKey()),
		zap.String("score", decision.Score.String()),
		zap.Int("candidates", len(decision.Candidates)),
	)
	return decision, nil
}

func (s *StrategyService) release(ctx context.Context, sku string, to catalog.ProductStatus) {
	if _, err := s.products.TransitionStatus(ctx, sku,
		[]catalog.ProductStatus{catalog.ProductStatusScoring}, to); err != nil {
		s.logger.Warn("Failed to release scoring claim", zap.String("sku", sku), zap.Error(err))
	}
}

// evaluate prices every active account, applies hard constraints and ranks the
// survivors. Only a dependency outage aborts the run; pricing failures reject
// the candidate.
func (s *StrategyService) evaluate(ctx context.Context, product *catalog.Product) ([]listing.StrategyCandidate, error) {
	settingsList, err := s.settings.FindActive(ctx)
	if err != nil {
		return nil, shared.Unavailable("list marketplace settings", err)
	}

	candidates := make([]listing.StrategyCandidate, 0, len(settingsList))
	var inputs []strategy.ScoringInput
	for i := range settingsList {
		st := &settingsList[i]
		cand := listing.StrategyCandidate{
			Platform:   st.Platform,
			AccountID:  st.AccountID,
			FeeRate:    st.FeeRate.Add(st.PaymentFeeRate),
			Preference: st.Preference,
		}

		quote, err := s.quoter.QuoteProduct(ctx, product, st, s.opts.TargetMargin)
		if err != nil {
			if errors.Is(err, shared.ErrDependencyUnavailable) {
				return candidates, err
			}
			reason := err.Error()
			if code := shared.ErrorCode(err); code != "" {
				reason = code + ": " + reason
			}
			cand.Reject(reason)
			candidates = append(candidates, cand)
			continue
		}

		primary := *quote.Primary()
		cand.Priced = true
		cand.Price = &primary
		cand.ProfitSrc = st.ToSourceCurrency(primary.ProfitAmount).Round(2)

		results, ok := strategy.EvaluateAll(s.constraints, strategy.ConstraintInput{
			SKU:             product.SKU,
			Title:           product.Title,
			Brand:           product.Brand,
			Category:        product.Category,
			Keywords:        product.Keywords,
			Platform:        st.Platform.String(),
			AccountID:       st.AccountID,
			CandidateKey:    cand.Key(),
			ListingPrice:    primary.ProductPrice,
			ProfitAmount:    cand.ProfitSrc,
			ProfitMargin:    primary.ProfitMargin,
			MinListingPrice: st.MinListingPrice,
			MaxListingPrice: st.MaxListingPrice,
			ReservedBy:      product.ReservedBy,
		})
		cand.Constraints = results
		if !ok {
			for _, r := range results {
				if !r.Passed {
					cand.Reject(r.Constraint + ": " + r.Reason)
				}
			}
		} else {
			inputs = append(inputs, strategy.ScoringInput{
				Key:          cand.Key(),
				Platform:     st.Platform.String(),
				AccountID:    st.AccountID,
				ProfitMargin: primary.ProfitMargin,
				ProfitAmount: cand.ProfitSrc,
				Preference:   st.Preference,
				FeeRate:      cand.FeeRate,
			})
		}
		candidates = append(candidates, cand)
	}

	if len(inputs) > 0 {
		ranked := s.scorer.Rank(inputs)
		byKey := make(map[string]strategy.ScoredCandidate, len(ranked))
		for _, r := range ranked {
			byKey[r.Key] = r
		}
		for i := range candidates {
			if r, ok := byKey[candidates[i].Key()]; ok && !candidates[i].Rejected {
				candidates[i].Score = r.Score
				candidates[i].Rank = r.Rank
			}
		}
	}
	return candidates, nil
}
