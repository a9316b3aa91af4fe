package logistics

import (
	"context"
	"fmt"
	"time"

	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceBand is one price bracket of a rate table
type PriceBand struct {
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	Markup decimal.Decimal `json:"markup"`
}

// Avg returns the midpoint of the band
func (b PriceBand) Avg() decimal.Decimal {
	return b.Min.Add(b.Max).Div(decimal.NewFromInt(2))
}

// Contains reports whether price falls in [Min, Max]
func (b PriceBand) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(b.Min) && price.LessThanOrEqual(b.Max)
}

// Validate checks the band bounds
func (b PriceBand) Validate() error {
	if b.Min.IsNegative() || b.Max.LessThan(b.Min) {
		return shared.WrapError(shared.ErrInvalidInput, "invalid price band %s-%s", b.Min, b.Max)
	}
	if b.Markup.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "negative markup on band %s-%s", b.Min, b.Max)
	}
	return nil
}

// LinearPriceBands builds count contiguous bands of equal width starting at start.
// Each band's markup is markupStep times its zero-based index.
func LinearPriceBands(start, width decimal.Decimal, count int, markupStep decimal.Decimal) []PriceBand {
	bands := make([]PriceBand, 0, count)
	for i := 0; i < count; i++ {
		idx := decimal.NewFromInt(int64(i))
		lo := start.Add(width.Mul(idx))
		bands = append(bands, PriceBand{
			Min:    lo,
			Max:    lo.Add(width),
			Markup: markupStep.Mul(idx),
		})
	}
	return bands
}

// RateTableName derives the stable row-group name for a price band and tariff,
// e.g. RT_Price$0-50_Tariff6.5%
func RateTableName(band PriceBand, ddpSurchargeRate decimal.Decimal) string {
	pct := ddpSurchargeRate.Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("RT_Price$%s-%s_Tariff%s%%", band.Min.String(), band.Max.String(), pct.String())
}

// DisplayDDPCost = base rate + band markup + surcharge rate * band midpoint, rounded to the cent
func DisplayDDPCost(baseRate decimal.Decimal, band PriceBand, ddpSurchargeRate decimal.Decimal) decimal.Decimal {
	return baseRate.Add(band.Markup).Add(ddpSurchargeRate.Mul(band.Avg())).Round(2)
}

// RateTableRow is one (weight band, price band) cell of a display shipping table
type RateTableRow struct {
	Name          string
	ServiceCode   string
	Destination   string
	WeightBand    int
	WeightCeiling decimal.Decimal
	PriceMin      decimal.Decimal
	PriceMax      decimal.Decimal
	TariffRate    decimal.Decimal
	BaseRate      decimal.Decimal
	Markup        decimal.Decimal
	DisplayCost   decimal.Decimal
	Currency      string
	GeneratedAt   time.Time
}

// RateTableLookup finds the display cost for a concrete weight, price and tariff.
// Tables generated for different tariff rates never answer each other's lookups.
type RateTableLookup struct {
	ServiceCode string
	Destination string
	WeightBand  int
	TariffRate  decimal.Decimal
	Price       decimal.Decimal
}

// RateTableRepository defines persistence for generated display tables
type RateTableRepository interface {
	// Upsert writes one row keyed by (name, service, destination, weight band)
	Upsert(ctx context.Context, row *RateTableRow) error
	// FindDisplayCost returns shared.ErrNotFound when no row covers the lookup
	FindDisplayCost(ctx context.Context, lookup RateTableLookup) (decimal.Decimal, error)
	// CountByService returns the number of stored rows for a service and destination
	CountByService(ctx context.Context, serviceCode, destination string) (int64, error)
}
