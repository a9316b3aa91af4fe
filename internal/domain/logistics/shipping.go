package logistics

import (
	"context"
	"fmt"

	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WeightUnit is the unit a carrier bands weights in
type WeightUnit string

const (
	WeightUnitKg WeightUnit = "kg"
	WeightUnitLb WeightUnit = "lb"
)

var (
	gramsPerKg = decimal.NewFromInt(1000)
	gramsPerLb = decimal.RequireFromString("453.59237")
)

// IsValid returns true for a supported unit
func (u WeightUnit) IsValid() bool {
	return u == WeightUnitKg || u == WeightUnitLb
}

// FromGrams converts grams into this unit
func (u WeightUnit) FromGrams(grams decimal.Decimal) decimal.Decimal {
	if u == WeightUnitLb {
		return grams.Div(gramsPerLb)
	}
	return grams.Div(gramsPerKg)
}

// ShippingService is one carrier service and its banding rules
type ShippingService struct {
	Code         string
	Carrier      string
	Active       bool
	Destinations []string
	Currency     string
	Unit         WeightUnit
	// BandSize is the width of one weight band, typically 0.5
	BandSize  decimal.Decimal
	BandCount int

	SignatureFee       decimal.Decimal
	SignatureThreshold decimal.Decimal // declared value at or above which signature is mandatory, zero disables
	InsuranceRate      decimal.Decimal // fraction of declared value
	InsuranceThreshold decimal.Decimal

	// VolumetricDivisor is cm3 per kg, zero when the service bills actual weight only
	VolumetricDivisor decimal.Decimal
}

// Validate checks banding configuration
func (s *ShippingService) Validate() error {
	if s.Code == "" {
		return shared.WrapError(shared.ErrInvalidInput, "service code is required")
	}
	if !s.Unit.IsValid() {
		return shared.WrapError(shared.ErrInvalidInput, "service %s: unknown weight unit %q", s.Code, s.Unit)
	}
	if !s.BandSize.IsPositive() || s.BandCount <= 0 {
		return shared.WrapError(shared.ErrInvalidInput, "service %s: band size and count must be positive", s.Code)
	}
	if s.VolumetricDivisor.IsNegative() || s.InsuranceRate.IsNegative() || s.SignatureFee.IsNegative() {
		return shared.WrapError(shared.ErrInvalidInput, "service %s: negative add-on configuration", s.Code)
	}
	return nil
}

// ServesDestination reports whether the service ships to the country
func (s *ShippingService) ServesDestination(country string) bool {
	country = NormalizeCountry(country)
	for _, d := range s.Destinations {
		if NormalizeCountry(d) == country {
			return true
		}
	}
	return false
}

// MaxWeight returns the ceiling of the heaviest band
func (s *ShippingService) MaxWeight() decimal.Decimal {
	return s.BandSize.Mul(decimal.NewFromInt(int64(s.BandCount)))
}

// BandFor returns the 1-based band holding weight (in the service unit).
// Band n covers ((n-1)*size, n*size].
func (s *ShippingService) BandFor(weight decimal.Decimal) (int, bool) {
	if !weight.IsPositive() {
		return 1, s.BandCount >= 1
	}
	band := int(weight.Div(s.BandSize).Ceil().IntPart())
	if band < 1 {
		band = 1
	}
	if band > s.BandCount {
		return 0, false
	}
	return band, true
}

// BandCeiling returns the upper weight bound of a band
func (s *ShippingService) BandCeiling(band int) decimal.Decimal {
	return s.BandSize.Mul(decimal.NewFromInt(int64(band)))
}

// BillableWeight returns max(actual, volumetric) in the service unit
func (s *ShippingService) BillableWeight(grams, lengthCm, widthCm, heightCm decimal.Decimal) decimal.Decimal {
	actual := s.Unit.FromGrams(grams)
	if !s.VolumetricDivisor.IsPositive() {
		return actual
	}
	volKg := lengthCm.Mul(widthCm).Mul(heightCm).Div(s.VolumetricDivisor)
	volumetric := s.Unit.FromGrams(volKg.Mul(gramsPerKg))
	return decimal.Max(actual, volumetric)
}

// ShippingRateEntry is the base rate of one weight band for a service and destination
type ShippingRateEntry struct {
	ServiceCode string
	Destination string
	WeightBand  int
	BaseRate    decimal.Decimal
	Currency    string
}

// ShippingRepository defines persistence for carrier services and their rates
type ShippingRepository interface {
	// FindServices returns every service, active or not, that lists the destination
	FindServices(ctx context.Context, destination string) ([]ShippingService, error)
	FindService(ctx context.Context, code string) (*ShippingService, error)
	// FindRate returns shared.ErrNotFound when the band has no rate
	FindRate(ctx context.Context, serviceCode, destination string, band int) (*ShippingRateEntry, error)
	ListRates(ctx context.Context, serviceCode, destination string) ([]ShippingRateEntry, error)
	SaveService(ctx context.Context, service *ShippingService) error
	SaveRates(ctx context.Context, rates []ShippingRateEntry) error
}

// ---------------------------------------------------------------------------
// Live quote
// ---------------------------------------------------------------------------

// Shipment is a concrete parcel to quote
type Shipment struct {
	WeightGrams      decimal.Decimal `json:"weight_grams"`
	LengthCm         decimal.Decimal `json:"length_cm"`
	WidthCm          decimal.Decimal `json:"width_cm"`
	HeightCm         decimal.Decimal `json:"height_cm"`
	Destination      string          `json:"destination"`
	DeclaredValue    decimal.Decimal `json:"declared_value"`
	RequireSignature bool            `json:"require_signature"`
	RequireInsurance bool            `json:"require_insurance"`
}

// ShippingOption is the priced outcome of one available service
type ShippingOption struct {
	ServiceCode    string          `json:"service_code"`
	Carrier        string          `json:"carrier"`
	WeightBand     int             `json:"weight_band"`
	BillableWeight decimal.Decimal `json:"billable_weight"`
	Unit           WeightUnit      `json:"unit"`
	BaseRate       decimal.Decimal `json:"base_rate"`
	SignatureFee   decimal.Decimal `json:"signature_fee"`
	InsuranceFee   decimal.Decimal `json:"insurance_fee"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
}

// ExcludedService explains why a service was not priced
type ExcludedService struct {
	ServiceCode string `json:"service_code"`
	Reason      string `json:"reason"`
}

// ShippingQuote is the result of costing one shipment
type ShippingQuote struct {
	Destination string            `json:"destination"`
	Selected    *ShippingOption   `json:"selected,omitempty"`
	Options     []ShippingOption  `json:"options"`
	Excluded    []ExcludedService `json:"excluded,omitempty"`
}

// Cost returns the selected total or ErrNoRoute
func (q *ShippingQuote) Cost() (decimal.Decimal, error) {
	if q.Selected == nil {
		return decimal.Zero, shared.WrapError(shared.ErrNoRoute, "no shipping service to %s", q.Destination)
	}
	return q.Selected.Total, nil
}

// AddOns computes the signature and insurance fees for a shipment on a service
func (s *ShippingService) AddOns(sh Shipment) (signature, insurance decimal.Decimal) {
	signature, insurance = decimal.Zero, decimal.Zero
	if sh.RequireSignature || (s.SignatureThreshold.IsPositive() && sh.DeclaredValue.GreaterThanOrEqual(s.SignatureThreshold)) {
		signature = s.SignatureFee
	}
	if sh.RequireInsurance || (s.InsuranceThreshold.IsPositive() && sh.DeclaredValue.GreaterThanOrEqual(s.InsuranceThreshold)) {
		insurance = sh.DeclaredValue.Mul(s.InsuranceRate).Round(2)
	}
	return signature, insurance
}

// Better reports whether a is preferred over b: lower total, then lower service code
func (a ShippingOption) Better(b ShippingOption) bool {
	if c := a.Total.Cmp(b.Total); c != 0 {
		return c < 0
	}
	return a.ServiceCode < b.ServiceCode
}

// Match resolves the weight band a shipment falls into on this service.
// A service that is inactive, does not serve the destination or cannot carry
// the billable weight is returned as an exclusion, never as a zero cost.
func (s *ShippingService) Match(sh Shipment) (int, decimal.Decimal, *ExcludedService) {
	if !s.Active {
		ex := exclusion(s.Code, "service inactive")
		return 0, decimal.Zero, &ex
	}
	if !s.ServesDestination(sh.Destination) {
		ex := exclusion(s.Code, "destination %s not served", NormalizeCountry(sh.Destination))
		return 0, decimal.Zero, &ex
	}
	billable := s.BillableWeight(sh.WeightGrams, sh.LengthCm, sh.WidthCm, sh.HeightCm)
	band, ok := s.BandFor(billable)
	if !ok {
		ex := exclusion(s.Code, "billable weight %s%s exceeds max %s%s",
			billable.Round(3), s.Unit, s.MaxWeight(), s.Unit)
		return 0, billable, &ex
	}
	return band, billable, nil
}

// NoRateExclusion is used when a matched band has no stored rate
func NoRateExclusion(code string, band int) ExcludedService {
	return exclusion(code, "no rate for weight band %d", band)
}

func exclusion(code, format string, args ...any) ExcludedService {
	return ExcludedService{ServiceCode: code, Reason: fmt.Sprintf(format, args...)}
}
