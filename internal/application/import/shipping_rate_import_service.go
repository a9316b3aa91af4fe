package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	csvimport "github.com/n3/backend/internal/infrastructure/import"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Shipping rate sheet columns
const (
	colServiceCode = "service_code"
	colDestination = "destination"
	colWeightBand  = "weight_band"
	colBaseRate    = "base_rate"
	colCurrency    = "currency"
)

// ShippingRateImportService loads carrier rate cards into the shipping rate table
type ShippingRateImportService struct {
	repo   logistics.ShippingRepository
	logger *zap.Logger
}

// NewShippingRateImportService creates a new ShippingRateImportService
func NewShippingRateImportService(repo logistics.ShippingRepository, logger *zap.Logger) *ShippingRateImportService {
	return &ShippingRateImportService{repo: repo, logger: logger}
}

// GetValidationRules returns the column rules of a rate card
func (s *ShippingRateImportService) GetValidationRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(colServiceCode).Required().Length(1, 50).Build(),
		csvimport.Field(colDestination).Required().Length(2, 2).Build(),
		csvimport.Field(colWeightBand).Required().Int().Min(decimal.NewFromInt(1)).Build(),
		csvimport.Field(colBaseRate).Required().Decimal().Min(decimal.Zero).Build(),
		csvimport.Field(colCurrency).Required().Length(3, 3).Build(),
	}
}

// Import validates the sheet, resolves every row against its carrier service and writes the
// accepted rows in a single batch. Rows for unknown services, unserved destinations or bands
// past the service's last band are reported and skipped.
func (s *ShippingRateImportService) Import(ctx context.Context, r io.Reader, opts Options) (*ImportResult, error) {
	read, err := csvimport.Read(ctx, r, s.GetValidationRules(),
		csvimport.WithUniqueKey(colServiceCode, colDestination, colWeightBand))
	if err != nil {
		return nil, fileError(err)
	}
	result := &ImportResult{DryRun: opts.DryRun}

	services := make(map[string]*logistics.ShippingService)
	entries := make([]logistics.ShippingRateEntry, 0, len(read.Valid))

	for _, row := range read.Valid {
		entry := rateEntry(row)

		service, err := s.service(ctx, services, entry.ServiceCode)
		if err != nil {
			return nil, err
		}
		if msg := checkRateAgainstService(service, entry); msg != "" {
			read.Reject(row, colServiceCode, csvimport.ErrCodeImportReference, msg)
			continue
		}

		_, err = s.repo.FindRate(ctx, entry.ServiceCode, entry.Destination, entry.WeightBand)
		switch {
		case err == nil:
			what := fmt.Sprintf("rate for %s %s band %d", entry.ServiceCode, entry.Destination, entry.WeightBand)
			if !conflict(opts.ConflictMode, read, row, colWeightBand, what, result) {
				continue
			}
			result.UpdatedRows++
		case errors.Is(err, shared.ErrNotFound):
			result.ImportedRows++
		default:
			return nil, unavailable("shipping rate lookup", err)
		}
		entries = append(entries, entry)
	}

	if !opts.DryRun && len(entries) > 0 {
		if err := s.repo.SaveRates(ctx, entries); err != nil {
			if errors.Is(err, shared.ErrInvalidInput) {
				return nil, err
			}
			return nil, unavailable("shipping rate save", err)
		}
	}

	result.finish(read)
	s.logger.Info("Shipping rate import finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("updated_rows", result.UpdatedRows),
		zap.Int("skipped_rows", result.SkippedRows),
		zap.Int("error_rows", result.ErrorRows),
	)
	return result, nil
}

// service memoizes FindService for the run. A nil service means the code is unknown.
func (s *ShippingRateImportService) service(ctx context.Context, seen map[string]*logistics.ShippingService, code string) (*logistics.ShippingService, error) {
	if svc, ok := seen[code]; ok {
		return svc, nil
	}
	svc, err := s.repo.FindService(ctx, code)
	if errors.Is(err, shared.ErrNotFound) {
		seen[code] = nil
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("shipping service lookup", err)
	}
	seen[code] = svc
	return svc, nil
}

func checkRateAgainstService(service *logistics.ShippingService, entry logistics.ShippingRateEntry) string {
	switch {
	case service == nil:
		return fmt.Sprintf("shipping service '%s' not found", entry.ServiceCode)
	case !service.ServesDestination(entry.Destination):
		return fmt.Sprintf("service %s does not ship to %s", entry.ServiceCode, entry.Destination)
	case entry.WeightBand > service.BandCount:
		return fmt.Sprintf("service %s has %d weight bands", entry.ServiceCode, service.BandCount)
	}
	return ""
}

// rateEntry converts a row that already passed the column rules
func rateEntry(row *csvimport.Row) logistics.ShippingRateEntry {
	band, _ := strconv.Atoi(row.Get(colWeightBand))
	return logistics.ShippingRateEntry{
		ServiceCode: row.Get(colServiceCode),
		Destination: logistics.NormalizeCountry(row.Get(colDestination)),
		WeightBand:  band,
		BaseRate:    decimal.RequireFromString(row.Get(colBaseRate)),
		Currency:    strings.ToUpper(row.Get(colCurrency)),
	}
}
