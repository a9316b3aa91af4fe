package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixture defaults shared by the integration suites
const (
	FixtureHSCode      = "85258030"
	FixtureOrigin      = "JP"
	FixtureService     = "EMS"
	FixtureEbayAccount = "ebay-us-1"
)

// Dec parses a decimal literal and panics on bad input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// NewProduct returns a priceable camera listing in pending_strategy.
// Cost is in JPY and weight in grams.
func NewProduct(t *testing.T, sku string, costJPY, weightGrams int64) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(sku, "Film Camera "+sku, decimal.NewFromInt(costJPY), decimal.NewFromInt(weightGrams))
	require.NoError(t, err, "Failed to build product")
	p.Brand = "Nikon"
	p.Category = "cameras"
	p.Keywords = []string{"camera", "film"}
	p.HSCode = FixtureHSCode
	p.OriginCountry = FixtureOrigin
	p.Stock = 1
	return p
}

// NewEbaySettings returns active eBay US settings that require DDP.
func NewEbaySettings(account string) *integration.MarketplaceSettings {
	return &integration.MarketplaceSettings{
		Platform:        integration.PlatformCodeEbay,
		AccountID:       account,
		CountryCode:     "US",
		Currency:        "USD",
		FeeRate:         Dec("0.13"),
		PaymentFeeRate:  Dec("0.03"),
		FixedFee:        Dec("0.3"),
		DDPRequired:     true,
		FXRate:          Dec("0.0067"),
		Preference:      Dec("0.8"),
		MaxListingPrice: Dec("5000"),
		Active:          true,
	}
}

// NewShopeeSettings returns active Shopee SG settings.
func NewShopeeSettings(account string) *integration.MarketplaceSettings {
	return &integration.MarketplaceSettings{
		Platform:        integration.PlatformCodeShopee,
		AccountID:       account,
		CountryCode:     "SG",
		Currency:        "SGD",
		FeeRate:         Dec("0.1"),
		PaymentFeeRate:  Dec("0.02"),
		FixedFee:        Dec("0"),
		FXRate:          Dec("0.009"),
		Preference:      Dec("0.5"),
		MaxListingPrice: Dec("3000"),
		Active:          true,
	}
}

// NewShippingService returns an active half-kilogram banded service.
func NewShippingService(code string, destinations ...string) *logistics.ShippingService {
	return &logistics.ShippingService{
		Code:         code,
		Carrier:      "JP Post",
		Active:       true,
		Destinations: destinations,
		Currency:     "USD",
		Unit:         logistics.WeightUnitKg,
		BandSize:     Dec("0.5"),
		BandCount:    4,
		SignatureFee: Dec("3.5"),
	}
}

// BandRates returns one rate per weight band, starting at band 1.
func BandRates(service, destination string, rates ...string) []logistics.ShippingRateEntry {
	entries := make([]logistics.ShippingRateEntry, 0, len(rates))
	for i, r := range rates {
		entries = append(entries, logistics.ShippingRateEntry{
			ServiceCode: service,
			Destination: destination,
			WeightBand:  i + 1,
			BaseRate:    Dec(r),
			Currency:    "USD",
		})
	}
	return entries
}

// SeedCatalog stores eBay settings, an EMS route to the US, a duty rate and
// one product per SKU. Every product is priceable on the eBay account.
func SeedCatalog(t *testing.T, db *gorm.DB, skus ...string) {
	t.Helper()
	ctx := context.Background()

	settings := persistence.NewGormMarketplaceSettingsRepository(db)
	require.NoError(t, settings.Save(ctx, NewEbaySettings(FixtureEbayAccount)), "Failed to seed settings")

	shipping := persistence.NewGormShippingRepository(db)
	require.NoError(t, shipping.SaveService(ctx, NewShippingService(FixtureService, "US")), "Failed to seed service")
	require.NoError(t, shipping.SaveRates(ctx, BandRates(FixtureService, "US", "18", "24", "30", "36")), "Failed to seed rates")

	duty := persistence.NewGormDutyRateRepository(db)
	require.NoError(t, duty.Save(ctx, &logistics.DutyRate{
		HSCode:        FixtureHSCode,
		OriginCountry: FixtureOrigin,
		BaseRate:      Dec("0.05"),
	}), "Failed to seed duty rate")

	products := persistence.NewGormProductRepository(db)
	for i, sku := range skus {
		p := NewProduct(t, sku, int64(12000+1000*i), 850)
		require.NoError(t, products.Save(ctx, p), fmt.Sprintf("Failed to seed product %s", sku))
	}
}
