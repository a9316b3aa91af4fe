package logistics

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DutySource records where a duty rate came from
type DutySource string

const (
	DutySourceVerified DutySource = "verified"
	DutySourceFallback DutySource = "fallback"
)

// DutyRate is the authoritative duty for an (hs_code, origin_country) pair
type DutyRate struct {
	HSCode        string
	OriginCountry string
	BaseRate      decimal.Decimal
	// SurchargeRate covers trade-remedy programs layered on top of the base rate
	SurchargeRate    decimal.Decimal
	SurchargeProgram string
	UpdatedAt        time.Time
}

// TotalRate returns base + surcharge
func (r *DutyRate) TotalRate() decimal.Decimal {
	return r.BaseRate.Add(r.SurchargeRate)
}

// DutyResolution is the outcome of resolving duty for one product
type DutyResolution struct {
	HSCode        string          `json:"hs_code"`
	OriginCountry string          `json:"origin_country"`
	BaseRate      decimal.Decimal `json:"base_duty_rate"`
	SurchargeRate decimal.Decimal `json:"surcharge_rate"`
	TotalRate     decimal.Decimal `json:"total_duty_rate"`
	DutyAmount    decimal.Decimal `json:"duty_amount"`
	Source        DutySource      `json:"duty_source"`
}

// NewVerifiedResolution builds a resolution from a stored rate
func NewVerifiedResolution(rate *DutyRate, declaredValue decimal.Decimal) DutyResolution {
	total := rate.TotalRate()
	return DutyResolution{
		HSCode:        rate.HSCode,
		OriginCountry: rate.OriginCountry,
		BaseRate:      rate.BaseRate,
		SurchargeRate: rate.SurchargeRate,
		TotalRate:     total,
		DutyAmount:    declaredValue.Mul(total).Round(2),
		Source:        DutySourceVerified,
	}
}

// NewFallbackResolution uses the caller-supplied estimate exactly
func NewFallbackResolution(hsCode, origin string, fallbackRate, declaredValue decimal.Decimal) DutyResolution {
	return DutyResolution{
		HSCode:        hsCode,
		OriginCountry: origin,
		BaseRate:      fallbackRate,
		SurchargeRate: decimal.Zero,
		TotalRate:     fallbackRate,
		DutyAmount:    declaredValue.Mul(fallbackRate).Round(2),
		Source:        DutySourceFallback,
	}
}

// NormalizeHSCode strips separators so "8525.80.30" and "85258030" match
func NormalizeHSCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(code))
}

// NormalizeCountry upper-cases an ISO country code
func NormalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DutyRateRepository defines persistence for duty rates
type DutyRateRepository interface {
	// FindByKey returns shared.ErrNotFound on a miss and a
	// shared.ErrDependencyUnavailable wrapped error when the store fails
	FindByKey(ctx context.Context, hsCode, originCountry string) (*DutyRate, error)
	Save(ctx context.Context, rate *DutyRate) error
}
