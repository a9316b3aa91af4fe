// Package logistics resolves import duty and shipping cost for pricing.
package logistics

import (
	"context"
	"errors"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DutyQuery is the input of a duty resolution
type DutyQuery struct {
	HSCode        string
	OriginCountry string
	// FallbackRate is used verbatim when no verified rate is stored
	FallbackRate  decimal.Decimal
	DeclaredValue decimal.Decimal
}

// DutyResolver looks up verified duty rates
type DutyResolver struct {
	repo   logistics.DutyRateRepository
	logger *zap.Logger
}

// NewDutyResolver creates a new DutyResolver
func NewDutyResolver(repo logistics.DutyRateRepository, logger *zap.Logger) *DutyResolver {
	return &DutyResolver{repo: repo, logger: logger}
}

// Resolve returns the verified rate for (hs_code, origin) or the caller's fallback on a miss.
// Store failures are returned as ErrDependencyUnavailable and never default to zero duty.
func (r *DutyResolver) Resolve(ctx context.Context, q DutyQuery) (logistics.DutyResolution, error) {
	if q.FallbackRate.IsNegative() || q.DeclaredValue.IsNegative() {
		return logistics.DutyResolution{}, shared.WrapError(shared.ErrInvalidInput, "duty inputs cannot be negative")
	}
	hs := logistics.NormalizeHSCode(q.HSCode)
	origin := logistics.NormalizeCountry(q.OriginCountry)

	if hs == "" {
		return logistics.NewFallbackResolution(hs, origin, q.FallbackRate, q.DeclaredValue), nil
	}

	rate, err := r.repo.FindByKey(ctx, hs, origin)
	switch {
	case err == nil:
		return logistics.NewVerifiedResolution(rate, q.DeclaredValue), nil
	case errors.Is(err, shared.ErrNotFound):
		r.logger.Debug("Duty rate not found, using fallback",
			zap.String("hs_code", hs),
			zap.String("origin_country", origin),
			zap.String("fallback_rate", q.FallbackRate.String()),
		)
		return logistics.NewFallbackResolution(hs, origin, q.FallbackRate, q.DeclaredValue), nil
	default:
		r.logger.Error("Duty rate lookup failed",
			zap.String("hs_code", hs),
			zap.String("origin_country", origin),
			zap.Error(err),
		)
		return logistics.DutyResolution{}, shared.Unavailable("duty rate lookup", err)
	}
}
