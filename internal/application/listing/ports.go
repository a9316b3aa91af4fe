// Package listing runs the strategy scorer and the marketplace dispatcher.
package listing

import (
	"context"
	"time"

	"github.com/n3/backend/internal/application/pricing"
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ProductQuoter prices a product on one marketplace account
type ProductQuoter interface {
	QuoteProduct(
		ctx context.Context,
		product *catalog.Product,
		settings *integration.MarketplaceSettings,
		targetMargin *decimal.Decimal,
	) (*pricing.PriceQuote, error)
}

// AdapterRegistry resolves the adapter for a marketplace
type AdapterRegistry interface {
	Get(platform integration.PlatformCode) (integration.MarketplaceAdapter, error)
}

// Metrics records pipeline outcomes
type Metrics interface {
	RecordDecision(ctx context.Context, status string)
	RecordDispatch(ctx context.Context, platform, outcome string, took time.Duration)
	RecordRetryScheduled(ctx context.Context, platform string)
}

type noopMetrics struct{}

func (noopMetrics) RecordDecision(context.Context, string)                       {}
func (noopMetrics) RecordDispatch(context.Context, string, string, time.Duration) {}
func (noopMetrics) RecordRetryScheduled(context.Context, string)                 {}
