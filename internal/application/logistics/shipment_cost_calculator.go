package logistics

import (
	"context"
	"errors"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ShipmentCostCalculator prices a concrete parcel across every carrier service
type ShipmentCostCalculator struct {
	repo   logistics.ShippingRepository
	logger *zap.Logger
}

// NewShipmentCostCalculator creates a new ShipmentCostCalculator
func NewShipmentCostCalculator(repo logistics.ShippingRepository, logger *zap.Logger) *ShipmentCostCalculator {
	return &ShipmentCostCalculator{repo: repo, logger: logger}
}

// Quote returns every available option and the cheapest one.
// When nothing matches the quote is still returned, with its exclusions, alongside ErrNoRoute.
func (c *ShipmentCostCalculator) Quote(ctx context.Context, sh logistics.Shipment) (*logistics.ShippingQuote, error) {
	if !sh.WeightGrams.IsPositive() {
		return nil, shared.WrapError(shared.ErrInvalidInput, "shipment weight must be positive")
	}
	if sh.DeclaredValue.IsNegative() {
		return nil, shared.WrapError(shared.ErrInvalidInput, "declared value cannot be negative")
	}
	dest := logistics.NormalizeCountry(sh.Destination)
	if dest == "" {
		return nil, shared.WrapError(shared.ErrInvalidInput, "destination is required")
	}
	sh.Destination = dest

	services, err := c.repo.FindServices(ctx, dest)
	if err != nil {
		return nil, shared.Unavailable("find shipping services", err)
	}

	quote := &logistics.ShippingQuote{Destination: dest, Options: []logistics.ShippingOption{}}
	for i := range services {
		svc := &services[i]
		band, billable, ex := svc.Match(sh)
		if ex != nil {
			quote.Excluded = append(quote.Excluded, *ex)
			continue
		}

		rate, err := c.repo.FindRate(ctx, svc.Code, dest, band)
		if errors.Is(err, shared.ErrNotFound) {
			quote.Excluded = append(quote.Excluded, logistics.NoRateExclusion(svc.Code, band))
			continue
		}
		if err != nil {
			return nil, shared.Unavailable("find shipping rate", err)
		}

		signature, insurance := svc.AddOns(sh)
		currency := rate.Currency
		if currency == "" {
			currency = svc.Currency
		}
		option := logistics.ShippingOption{
			ServiceCode:    svc.Code,
			Carrier:        svc.Carrier,
			WeightBand:     band,
			BillableWeight: billable.Round(3),
			Unit:           svc.Unit,
			BaseRate:       rate.BaseRate,
			SignatureFee:   signature,
			InsuranceFee:   insurance,
			Total:          rate.BaseRate.Add(signature).Add(insurance).Round(2),
			Currency:       currency,
		}
		quote.Options = append(quote.Options, option)
		if quote.Selected == nil || option.Better(*quote.Selected) {
			selected := option
			quote.Selected = &selected
		}
	}

	if quote.Selected == nil {
		c.logger.Info("No shipping route",
			zap.String("destination", dest),
			zap.String("weight_grams", sh.WeightGrams.String()),
			zap.Int("excluded", len(quote.Excluded)),
		)
		return quote, shared.WrapError(shared.ErrNoRoute, "no shipping service to %s for %sg", dest, sh.WeightGrams)
	}
	return quote, nil
}
