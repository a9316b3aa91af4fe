package logistics

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExportStorage receives generated rate tables
type ExportStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// RateTableSpec describes one display shipping table
type RateTableSpec struct {
	ServiceCode      string                `json:"service_code" binding:"required"`
	Destination      string                `json:"destination" binding:"required,len=2"`
	PriceBands       []logistics.PriceBand `json:"price_bands" binding:"required,min=1,dive"`
	DDPSurchargeRate decimal.Decimal       `json:"ddp_surcharge_rate"`
	Export           bool                  `json:"export"`
}

// RowResult reports the outcome of one table cell
type RowResult struct {
	Name        string          `json:"name"`
	WeightBand  int             `json:"weight_band"`
	DisplayCost decimal.Decimal `json:"display_cost"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
}

// GenerationReport summarizes a generation run
type GenerationReport struct {
	ServiceCode string      `json:"service_code"`
	Destination string      `json:"destination"`
	Total       int         `json:"total"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	Rows        []RowResult `json:"rows"`
	ExportKey   string      `json:"export_key,omitempty"`
	ExportURL   string      `json:"export_url,omitempty"`
}

// RateTableGenerator builds the weight x price display shipping matrix
type RateTableGenerator struct {
	shippingRepo logistics.ShippingRepository
	tableRepo    logistics.RateTableRepository
	storage      ExportStorage
	logger       *zap.Logger
	clock        func() time.Time
}

// NewRateTableGenerator creates a new RateTableGenerator. storage may be nil to disable export.
func NewRateTableGenerator(
	shippingRepo logistics.ShippingRepository,
	tableRepo logistics.RateTableRepository,
	storage ExportStorage,
	logger *zap.Logger,
) *RateTableGenerator {
	return &RateTableGenerator{
		shippingRepo: shippingRepo,
		tableRepo:    tableRepo,
		storage:      storage,
		logger:       logger,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate writes one row per (weight band, price band). Row failures are reported, not fatal.
// Only an unreadable service definition aborts the run.
func (g *RateTableGenerator) Generate(ctx context.Context, spec RateTableSpec) (*GenerationReport, error) {
	if len(spec.PriceBands) == 0 {
		return nil, shared.WrapError(shared.ErrInvalidInput, "at least one price band is required")
	}
	if spec.DDPSurchargeRate.IsNegative() {
		return nil, shared.WrapError(shared.ErrInvalidInput, "ddp surcharge rate cannot be negative")
	}
	for _, b := range spec.PriceBands {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}
	dest := logistics.NormalizeCountry(spec.Destination)

	svc, err := g.shippingRepo.FindService(ctx, spec.ServiceCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.WrapError(shared.ErrNotFound, "shipping service %s", spec.ServiceCode)
		}
		return nil, shared.Unavailable("find shipping service", err)
	}

	rates, err := g.shippingRepo.ListRates(ctx, svc.Code, dest)
	if err != nil {
		return nil, shared.Unavailable("list shipping rates", err)
	}
	byBand := make(map[int]logistics.ShippingRateEntry, len(rates))
	for _, r := range rates {
		byBand[r.WeightBand] = r
	}

	report := &GenerationReport{ServiceCode: svc.Code, Destination: dest}
	generatedAt := g.clock()
	var written []logistics.RateTableRow

	for band := 1; band <= svc.BandCount; band++ {
		rate, hasRate := byBand[band]
		for _, pb := range spec.PriceBands {
			name := logistics.RateTableName(pb, spec.DDPSurchargeRate)
			result := RowResult{Name: name, WeightBand: band}
			report.Total++

			if !hasRate {
				result.Error = fmt.Sprintf("no base rate for weight band %d", band)
				report.Failed++
				report.Rows = append(report.Rows, result)
				continue
			}

			row := logistics.RateTableRow{
				Name:          name,
				ServiceCode:   svc.Code,
				Destination:   dest,
				WeightBand:    band,
				WeightCeiling: svc.BandCeiling(band),
				PriceMin:      pb.Min,
				PriceMax:      pb.Max,
				TariffRate:    spec.DDPSurchargeRate,
				BaseRate:      rate.BaseRate,
				Markup:        pb.Markup,
				DisplayCost:   logistics.DisplayDDPCost(rate.BaseRate, pb, spec.DDPSurchargeRate),
				Currency:      rate.Currency,
				GeneratedAt:   generatedAt,
			}
			result.DisplayCost = row.DisplayCost

			if err := g.tableRepo.Upsert(ctx, &row); err != nil {
				result.Error = err.Error()
				report.Failed++
				report.Rows = append(report.Rows, result)
				continue
			}
			result.Success = true
			report.Succeeded++
			report.Rows = append(report.Rows, result)
			written = append(written, row)
		}
	}

	g.logger.Info("Rate table generated",
		zap.String("service_code", svc.Code),
		zap.String("destination", dest),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	if spec.Export && g.storage != nil && len(written) > 0 {
		if err := g.export(ctx, report, written); err != nil {
			g.logger.Warn("Rate table export failed", zap.String("service_code", svc.Code), zap.Error(err))
		}
	}
	return report, nil
}

func (g *RateTableGenerator) export(ctx context.Context, report *GenerationReport, rows []logistics.RateTableRow) error {
	data, err := EncodeRateTableCSV(rows)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("rate-tables/%s/%s.csv", report.ServiceCode, report.Destination)
	if err := g.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		return err
	}
	report.ExportKey = key
	if url, _, err := g.storage.GenerateDownloadURL(ctx, key, 0); err == nil {
		report.ExportURL = url
	}
	return nil
}

// EncodeRateTableCSV renders rows in the order given. Output is deterministic for equal input.
func EncodeRateTableCSV(rows []logistics.RateTableRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"name", "service_code", "destination", "weight_band", "weight_ceiling",
		"price_min", "price_max", "tariff_rate", "base_rate", "markup", "display_cost", "currency"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.Name, r.ServiceCode, r.Destination, strconv.Itoa(r.WeightBand), r.WeightCeiling.String(),
			r.PriceMin.String(), r.PriceMax.String(), r.TariffRate.String(), r.BaseRate.StringFixed(2),
			r.Markup.StringFixed(2), r.DisplayCost.StringFixed(2), r.Currency,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
