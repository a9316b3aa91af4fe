package ecommerce

import (
	"context"

	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// tracedAdapter wraps each CreateListing call in a client span
type tracedAdapter struct {
	integration.MarketplaceAdapter
}

// Traced decorates adapter with OpenTelemetry spans
func Traced(adapter integration.MarketplaceAdapter) integration.MarketplaceAdapter {
	return tracedAdapter{MarketplaceAdapter: adapter}
}

func (t tracedAdapter) CreateListing(ctx context.Context, payload integration.ListingPayload) (string, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "marketplace.create_listing",
		attribute.String("marketplace.platform", t.Platform().String()),
		attribute.String("marketplace.account_id", payload.AccountID),
		attribute.String("listing.sku", payload.SKU),
	)
	id, err := t.MarketplaceAdapter.CreateListing(ctx, payload)
	if err == nil {
		span.SetAttributes(attribute.String("marketplace.listing_id", id))
	}
	telemetry.EndSpan(span, err)
	return id, err
}
