package listing

import (
	"github.com/n3/backend/internal/application/pricing"
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/shared/strategy"
)

// PayloadBuilder translates a priced product into the platform-neutral payload
type PayloadBuilder struct{}

// NewPayloadBuilder creates a new PayloadBuilder
func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{}
}

// Build returns a validated payload. DDP listings carry the display shipping cost,
// DDU listings the live carrier quote.
func (b *PayloadBuilder) Build(
	product *catalog.Product,
	settings *integration.MarketplaceSettings,
	quote *pricing.PriceQuote,
) (*integration.ListingPayload, error) {
	primary := quote.Primary()
	ddp := quote.Mode == strategy.DutyModeDDP

	shipping := quote.DisplayShippingCost
	if !ddp && quote.Shipping != nil {
		shipping = quote.Shipping.Total
	}

	attrs := map[string]string{
		"duty_mode":   string(quote.Mode),
		"duty_source": string(quote.Duty.Source),
	}
	if product.Brand != "" {
		attrs["brand"] = product.Brand
	}
	if quote.Shipping != nil {
		attrs["shipping_service"] = quote.Shipping.ServiceCode
	}

	payload := &integration.ListingPayload{
		SKU:           product.SKU,
		Platform:      settings.Platform,
		AccountID:     settings.AccountID,
		Title:         product.Title,
		Category:      product.Category,
		Price:         primary.ProductPrice,
		ShippingCost:  shipping.Round(2),
		Currency:      settings.Currency,
		Quantity:      product.Stock,
		DDP:           ddp,
		CountryCode:   settings.CountryCode,
		WeightGrams:   product.WeightGrams,
		HSCode:        product.HSCode,
		OriginCountry: product.OriginCountry,
		Attributes:    attrs,
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}
