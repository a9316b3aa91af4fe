package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	csvimport "github.com/n3/backend/internal/infrastructure/import"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Duty schedule columns
const (
	colHSCode           = "hs_code"
	colOriginCountry    = "origin_country"
	colSurchargeRate    = "surcharge_rate"
	colSurchargeProgram = "surcharge_program"
)

// DutyRateImportService loads verified duty rates keyed by (hs_code, origin_country)
type DutyRateImportService struct {
	repo   logistics.DutyRateRepository
	logger *zap.Logger
}

// NewDutyRateImportService creates a new DutyRateImportService
func NewDutyRateImportService(repo logistics.DutyRateRepository, logger *zap.Logger) *DutyRateImportService {
	return &DutyRateImportService{repo: repo, logger: logger}
}

// GetValidationRules returns the column rules of a duty schedule
func (s *DutyRateImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(colHSCode).Required().Length(4, 14).Custom(hsCodeRule).Build(),
		csvimport.Field(colOriginCountry).Required().Length(2, 2).Build(),
		csvimport.Field(colBaseRate).Required().Decimal().Min(decimal.Zero).Build(),
		csvimport.Field(colSurchargeRate).Decimal().Min(decimal.Zero).Build(),
		csvimport.Field(colSurchargeProgram).Length(0, 64).Build(),
	}
}

// Import validates the sheet and saves each accepted row. A row the store rejects is
// reported; a store outage aborts the run with the rows before it already saved.
func (s *DutyRateImportService) Import(ctx context.Context, r io.Reader, opts Options) (*ImportResult, error) {
	read, err := csvimport.Read(ctx, r, s.GetValidationRules(),
		csvimport.WithUniqueKey(colHSCode, colOriginCountry))
	if err != nil {
		return nil, fileError(err)
	}
	result := &ImportResult{DryRun: opts.DryRun}

	for _, row := range read.Valid {
		rate := dutyRate(row)
		if rate.SurchargeProgram != "" && rate.SurchargeRate.IsZero() {
			read.Reject(row, colSurchargeProgram, csvimport.ErrCodeImportInvalidValue,
				"surcharge_program needs a non-zero surcharge_rate")
			continue
		}

		_, err := s.repo.FindByKey(ctx, rate.HSCode, rate.OriginCountry)
		exists := err == nil
		switch {
		case exists:
			what := fmt.Sprintf("duty rate for %s from %s", rate.HSCode, rate.OriginCountry)
			if !conflict(opts.ConflictMode, read, row, colHSCode, what, result) {
				continue
			}
		case errors.Is(err, shared.ErrNotFound):
		default:
			return nil, unavailable("duty rate lookup", err)
		}

		if !opts.DryRun {
			if err := s.repo.Save(ctx, rate); err != nil {
				if errors.Is(err, shared.ErrInvalidInput) {
					read.Reject(row, colHSCode, csvimport.ErrCodeImportRejected, err.Error())
					continue
				}
				return nil, unavailable("duty rate save", err)
			}
		}
		if exists {
			result.UpdatedRows++
		} else {
			result.ImportedRows++
		}
	}

	result.finish(read)
	s.logger.Info("Duty rate import finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("updated_rows", result.UpdatedRows),
		zap.Int("skipped_rows", result.SkippedRows),
		zap.Int("error_rows", result.ErrorRows),
	)
	return result, nil
}

// dutyRate converts a row that already passed the column rules
func dutyRate(row *csvimport.Row) *logistics.DutyRate {
	surcharge := decimal.Zero
	if v := row.Get(colSurchargeRate); v != "" {
		surcharge = decimal.RequireFromString(v)
	}
	return &logistics.DutyRate{
		HSCode:           logistics.NormalizeHSCode(row.Get(colHSCode)),
		OriginCountry:    logistics.NormalizeCountry(row.Get(colOriginCountry)),
		BaseRate:         decimal.RequireFromString(row.Get(colBaseRate)),
		SurchargeRate:    surcharge,
		SurchargeProgram: row.Get(colSurchargeProgram),
	}
}

func unavailable(op string, err error) error {
	if errors.Is(err, shared.ErrDependencyUnavailable) {
		return err
	}
	return shared.Unavailable(op, err)
}
