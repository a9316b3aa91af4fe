package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/n3/backend/internal/application/logistics"
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	domainlogistics "github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DutyResolver resolves import duty
type DutyResolver interface {
	Resolve(ctx context.Context, q logistics.DutyQuery) (domainlogistics.DutyResolution, error)
}

// ShipmentQuoter prices a parcel across carrier services
type ShipmentQuoter interface {
	Quote(ctx context.Context, sh domainlogistics.Shipment) (*domainlogistics.ShippingQuote, error)
}

// Metrics records pricing outcomes
type Metrics interface {
	RecordPriceSolve(ctx context.Context, platform, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordPriceSolve(context.Context, string, string) {}

// Options holds pricing defaults
type Options struct {
	DefaultTargetMargin decimal.Decimal
	DefaultDutyRate     decimal.Decimal
	DefaultPlatform     string
	DefaultAccount      string
	BatchConcurrency    int
}

// Service prices items against marketplace settings
type Service struct {
	products   catalog.ProductRepository
	settings   integration.MarketplaceSettingsRepository
	duty       DutyResolver
	shipping   ShipmentQuoter
	rateTables domainlogistics.RateTableRepository
	solver     strategy.PricingStrategy
	opts       Options
	metrics    Metrics
	logger     *zap.Logger
}

// NewService creates a new pricing Service
func NewService(
	products catalog.ProductRepository,
	settings integration.MarketplaceSettingsRepository,
	duty DutyResolver,
	shipping ShipmentQuoter,
	rateTables domainlogistics.RateTableRepository,
	solver strategy.PricingStrategy,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	return &Service{
		products:   products,
		settings:   settings,
		duty:       duty,
		shipping:   shipping,
		rateTables: rateTables,
		solver:     solver,
		opts:       opts,
		metrics:    noopMetrics{},
		logger:     logger,
	}
}

// SetMetrics sets the metrics recorder
func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Calculate prices a single request
func (s *Service) Calculate(ctx context.Context, req PriceRequest) (*PriceQuote, error) {
	settings, err := s.resolveSettings(ctx, req.Platform, req.AccountID)
	if err != nil {
		return nil, err
	}
	return s.Quote(ctx, req, settings)
}

// CalculateForProduct prices a stored product on one marketplace account
func (s *Service) CalculateForProduct(ctx context.Context, sku, platform, accountID string) (*PriceQuote, error) {
	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	settings, err := s.resolveSettings(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}
	return s.QuoteProduct(ctx, product, settings, nil)
}

// QuoteProduct prices a product against already loaded settings
func (s *Service) QuoteProduct(
	ctx context.Context,
	product *catalog.Product,
	settings *integration.MarketplaceSettings,
	targetMargin *decimal.Decimal,
) (*PriceQuote, error) {
	return s.Quote(ctx, RequestFromProduct(product, targetMargin), settings)
}

// RequestFromProduct maps a stored product into a PriceRequest
func RequestFromProduct(p *catalog.Product, targetMargin *decimal.Decimal) PriceRequest {
	declared := p.DeclaredValue
	req := PriceRequest{
		SKU:           p.SKU,
		ItemCost:      p.AcquisitionCost,
		DeclaredValue: &declared,
		WeightGrams:   p.WeightGrams,
		LengthCm:      p.LengthCm,
		WidthCm:       p.WidthCm,
		HeightCm:      p.HeightCm,
		HSCode:        p.HSCode,
		OriginCountry: p.OriginCountry,
		TargetMargin:  targetMargin,
	}
	if !p.EstimatedDutyRate.IsZero() {
		rate := p.EstimatedDutyRate
		req.EstimatedDutyRate = &rate
	}
	return req
}

// Quote runs duty, shipping and the price solve for one request on one marketplace
func (s *Service) Quote(ctx context.Context, req PriceRequest, settings *integration.MarketplaceSettings) (*PriceQuote, error) {
	platform := settings.Platform.String()
	quote, err := s.quote(ctx, req, settings)
	switch {
	case err == nil:
		s.metrics.RecordPriceSolve(ctx, platform, "ok")
	case errors.Is(err, shared.ErrMarginUnattainable):
		s.metrics.RecordPriceSolve(ctx, platform, "margin_unattainable")
	case errors.Is(err, shared.ErrNoRoute):
		s.metrics.RecordPriceSolve(ctx, platform, "no_route")
	default:
		s.metrics.RecordPriceSolve(ctx, platform, "error")
	}
	return quote, err
}

func (s *Service) quote(ctx context.Context, req PriceRequest, settings *integration.MarketplaceSettings) (*PriceQuote, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	target := s.opts.DefaultTargetMargin
	if req.TargetMargin != nil {
		target = *req.TargetMargin
	}
	fallback := s.opts.DefaultDutyRate
	if req.EstimatedDutyRate != nil {
		fallback = *req.EstimatedDutyRate
	}
	declaredSrc := req.ItemCost
	if req.DeclaredValue != nil {
		declaredSrc = *req.DeclaredValue
	}
	declared := settings.ToMarketCurrency(declaredSrc)
	acquisition := settings.ToMarketCurrency(req.ItemCost)

	duty, err := s.duty.Resolve(ctx, logistics.DutyQuery{
		HSCode:        req.HSCode,
		OriginCountry: req.OriginCountry,
		FallbackRate:  fallback,
		DeclaredValue: declared,
	})
	if err != nil {
		return nil, err
	}

	destination := req.Destination
	if destination == "" {
		destination = settings.CountryCode
	}
	shipQuote, err := s.shipping.Quote(ctx, domainlogistics.Shipment{
		WeightGrams:      req.WeightGrams,
		LengthCm:         req.LengthCm,
		WidthCm:          req.WidthCm,
		HeightCm:         req.HeightCm,
		Destination:      destination,
		DeclaredValue:    declared,
		RequireSignature: req.RequireSignature,
		RequireInsurance: req.RequireInsurance,
	})
	if err != nil {
		return nil, err
	}
	shippingCost, err := shipQuote.Cost()
	if err != nil {
		return nil, err
	}
	if err := checkShippingCurrency(shipQuote.Selected, settings); err != nil {
		return nil, err
	}

	base := strategy.PricingContext{
		ShippingCost:   shippingCost,
		FeeRate:        settings.FeeRate,
		PaymentFeeRate: settings.PaymentFeeRate,
		FixedFee:       settings.FixedFee,
		TargetMargin:   target,
		Currency:       settings.Currency,
	}

	dduCtx := base
	dduCtx.Mode = strategy.DutyModeDDU
	dduCtx.LandedCost = strategy.LandedCost(strategy.DutyModeDDU, acquisition, declared, duty.TotalRate)
	ddu, err := s.solver.Solve(dduCtx)
	if err != nil {
		return nil, err
	}

	ddpCtx := base
	ddpCtx.Mode = strategy.DutyModeDDP
	ddpCtx.LandedCost = strategy.LandedCost(strategy.DutyModeDDP, acquisition, declared, duty.TotalRate)
	ddp, err := s.solver.Solve(ddpCtx)
	if err != nil {
		return nil, err
	}

	display, source, err := s.displayShipping(ctx, shipQuote.Selected, destination, duty.TotalRate, ddp.ProductPrice)
	if err != nil {
		return nil, err
	}
	ddpCtx.DisplayShippingCost = display
	if ddp, err = s.solver.Solve(ddpCtx); err != nil {
		return nil, err
	}

	mode := strategy.DutyModeDDU
	if settings.DDPRequired {
		mode = strategy.DutyModeDDP
	}
	return &PriceQuote{
		SKU:                 req.SKU,
		Platform:            settings.Platform.String(),
		AccountID:           settings.AccountID,
		Currency:            settings.Currency,
		FXRate:              settings.FXRate,
		Duty:                duty,
		Shipping:            shipQuote.Selected,
		DisplayShippingCost: display,
		DisplaySource:       source,
		DDP:                 ddp,
		DDU:                 ddu,
		Mode:                mode,
	}, nil
}

// checkShippingCurrency rejects a carrier quote that is not in the marketplace
// currency. Settings only carry an FX rate from the product's source currency.
func checkShippingCurrency(opt *domainlogistics.ShippingOption, settings *integration.MarketplaceSettings) error {
	if opt.Currency == "" || strings.EqualFold(opt.Currency, settings.Currency) {
		return nil
	}
	return shared.WrapError(shared.ErrInvalidInput, "shipping via %s is quoted in %s but %s prices in %s",
		opt.ServiceCode, strings.ToUpper(opt.Currency), settings.Key(), settings.Currency)
}

// displayShipping prefers the rate table generated for the duty's tariff and falls back
// to the live quote on a miss
func (s *Service) displayShipping(
	ctx context.Context,
	selected *domainlogistics.ShippingOption,
	destination string,
	tariff decimal.Decimal,
	price decimal.Decimal,
) (decimal.Decimal, DisplaySource, error) {
	if s.rateTables == nil {
		return selected.Total, DisplaySourceLiveQuote, nil
	}
	cost, err := s.rateTables.FindDisplayCost(ctx, domainlogistics.RateTableLookup{
		ServiceCode: selected.ServiceCode,
		Destination: domainlogistics.NormalizeCountry(destination),
		WeightBand:  selected.WeightBand,
		TariffRate:  tariff,
		Price:       price,
	})
	switch {
	case err == nil:
		return cost, DisplaySourceRateTable, nil
	case errors.Is(err, shared.ErrNotFound):
		return selected.Total, DisplaySourceLiveQuote, nil
	default:
		return decimal.Zero, "", shared.Unavailable("rate table lookup", err)
	}
}

// CalculateBatch prices every request. One item's failure never aborts the batch.
func (s *Service) CalculateBatch(ctx context.Context, reqs []PriceRequest) *BatchResult {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency)
	for i := range reqs {
		g.Go(func() error {
			item := BatchItem{Index: i, SKU: reqs[i].SKU}
			quote, err := s.Calculate(ctx, reqs[i])
			if err != nil {
				item.Error = err.Error()
				item.ErrorCode = shared.ErrorCode(err)
			} else {
				item.Quote = quote
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{Items: items, Stats: summarize(items)}
	s.logger.Info("Price batch completed",
		zap.Int("total", result.Stats.Total),
		zap.Int("succeeded", result.Stats.Succeeded),
		zap.Int("failed", result.Stats.Failed),
	)
	return result
}

func summarize(items []BatchItem) BatchStats {
	stats := BatchStats{Total: len(items), AverageMargin: decimal.Zero, AveragePrice: decimal.Zero}
	marginSum, priceSum := decimal.Zero, decimal.Zero
	for _, it := range items {
		if it.Quote == nil {
			stats.Failed++
			continue
		}
		stats.Succeeded++
		primary := it.Quote.Primary()
		if primary.IsProfitable {
			stats.Profitable++
		} else {
			stats.Unprofitable++
		}
		marginSum = marginSum.Add(primary.ProfitMargin)
		priceSum = priceSum.Add(primary.ProductPrice)
	}
	if stats.Succeeded > 0 {
		n := decimal.NewFromInt(int64(stats.Succeeded))
		stats.AverageMargin = marginSum.Div(n).Round(4)
		stats.AveragePrice = priceSum.Div(n).Round(2)
	}
	return stats
}

func (s *Service) resolveSettings(ctx context.Context, platform, accountID string) (*integration.MarketplaceSettings, error) {
	if strings.TrimSpace(platform) == "" {
		platform = s.opts.DefaultPlatform
	}
	if strings.TrimSpace(accountID) == "" {
		accountID = s.opts.DefaultAccount
	}
	code, err := integration.ParsePlatformCode(platform)
	if err != nil {
		return nil, shared.WrapError(shared.ErrInvalidInput, "%v", err)
	}
	settings, err := s.settings.FindByKey(ctx, code, accountID)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func validateRequest(req PriceRequest) error {
	if req.ItemCost.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "item cost cannot be negative")
	}
	if !req.WeightGrams.IsPositive() {
		return shared.WrapError(shared.ErrInvalidInput, "weight must be positive")
	}
	if req.TargetMargin != nil && req.TargetMargin.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "target margin cannot be negative")
	}
	return nil
}
