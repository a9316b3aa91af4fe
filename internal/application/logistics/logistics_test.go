package logistics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MockDutyRateRepository is a mock implementation of logistics.DutyRateRepository
type MockDutyRateRepository struct {
	mock.Mock
}

func (m *MockDutyRateRepository) FindByKey(ctx context.Context, hsCode, origin string) (*logistics.DutyRate, error) {
	args := m.Called(ctx, hsCode, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logistics.DutyRate), args.Error(1)
}

func (m *MockDutyRateRepository) Save(ctx context.Context, rate *logistics.DutyRate) error {
	return m.Called(ctx, rate).Error(0)
}

// MockShippingRepository is a mock implementation of logistics.ShippingRepository
type MockShippingRepository struct {
	mock.Mock
}

func (m *MockShippingRepository) FindServices(ctx context.Context, destination string) ([]logistics.ShippingService, error) {
	args := m.Called(ctx, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]logistics.ShippingService), args.Error(1)
}

func (m *MockShippingRepository) FindService(ctx context.Context, code string) (*logistics.ShippingService, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logistics.ShippingService), args.Error(1)
}

func (m *MockShippingRepository) FindRate(ctx context.Context, code, destination string, band int) (*logistics.ShippingRateEntry, error) {
	args := m.Called(ctx, code, destination, band)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logistics.ShippingRateEntry), args.Error(1)
}

func (m *MockShippingRepository) ListRates(ctx context.Context, code, destination string) ([]logistics.ShippingRateEntry, error) {
	args := m.Called(ctx, code, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]logistics.ShippingRateEntry), args.Error(1)
}

func (m *MockShippingRepository) SaveService(ctx context.Context, service *logistics.ShippingService) error {
	return m.Called(ctx, service).Error(0)
}

func (m *MockShippingRepository) SaveRates(ctx context.Context, rates []logistics.ShippingRateEntry) error {
	return m.Called(ctx, rates).Error(0)
}

// fakeRateTableRepository records upserts in memory keyed like the real table
type fakeRateTableRepository struct {
	rows   map[string]logistics.RateTableRow
	failOn map[int]bool
}

func newFakeRateTableRepository() *fakeRateTableRepository {
	return &fakeRateTableRepository{rows: map[string]logistics.RateTableRow{}, failOn: map[int]bool{}}
}

func (f *fakeRateTableRepository) Upsert(_ context.Context, row *logistics.RateTableRow) error {
	if f.failOn[row.WeightBand] {
		return errors.New("write failed")
	}
	key := fmt.Sprintf("%s|%s|%s|%d", row.Name, row.ServiceCode, row.Destination, row.WeightBand)
	f.rows[key] = *row
	return nil
}

func (f *fakeRateTableRepository) FindDisplayCost(context.Context, logistics.RateTableLookup) (decimal.Decimal, error) {
	return decimal.Zero, shared.ErrNotFound
}

func (f *fakeRateTableRepository) CountByService(context.Context, string, string) (int64, error) {
	return int64(len(f.rows)), nil
}

// fakeStorage captures uploads
type fakeStorage struct {
	uploads map[string][]byte
}

func (s *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStorage) GenerateDownloadURL(_ context.Context, key string, _ time.Duration) (string, time.Time, error) {
	return "https://files.test/" + key, time.Now().Add(time.Hour), nil
}

// ---------------------------------------------------------------------------
// DutyResolver
// ---------------------------------------------------------------------------

func TestDutyResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("verified hit", func(t *testing.T) {
		repo := new(MockDutyRateRepository)
		repo.On("FindByKey", mock.Anything, "85258030", "JP").Return(&logistics.DutyRate{
			HSCode: "85258030", OriginCountry: "JP", BaseRate: d("0.02"), SurchargeRate: d("0.10"),
		}, nil)

		res, err := NewDutyResolver(repo, zap.NewNop()).Resolve(ctx, DutyQuery{
			HSCode: "8525.80.30", OriginCountry: "jp", FallbackRate: d("0.05"), DeclaredValue: d("100"),
		})
		require.NoError(t, err)
		assert.Equal(t, logistics.DutySourceVerified, res.Source)
		assert.True(t, res.TotalRate.Equal(d("0.12")))
		assert.True(t, res.DutyAmount.Equal(d("12")))
		repo.AssertExpectations(t)
	})

	t.Run("miss uses fallback exactly", func(t *testing.T) {
		repo := new(MockDutyRateRepository)
		repo.On("FindByKey", mock.Anything, "9503", "CN").Return(nil, shared.ErrNotFound)

		res, err := NewDutyResolver(repo, zap.NewNop()).Resolve(ctx, DutyQuery{
			HSCode: "9503", OriginCountry: "CN", FallbackRate: d("0.075"), DeclaredValue: d("40"),
		})
		require.NoError(t, err)
		assert.Equal(t, logistics.DutySourceFallback, res.Source)
		assert.True(t, res.TotalRate.Equal(d("0.075")))
		assert.True(t, res.SurchargeRate.IsZero())
		assert.True(t, res.DutyAmount.Equal(d("3")))
	})

	t.Run("store failure is not defaulted", func(t *testing.T) {
		repo := new(MockDutyRateRepository)
		repo.On("FindByKey", mock.Anything, "9503", "CN").Return(nil, errors.New("connection refused"))

		_, err := NewDutyResolver(repo, zap.NewNop()).Resolve(ctx, DutyQuery{
			HSCode: "9503", OriginCountry: "CN", FallbackRate: d("0.075"),
		})
		assert.ErrorIs(t, err, shared.ErrDependencyUnavailable)
	})

	t.Run("negative fallback rejected", func(t *testing.T) {
		repo := new(MockDutyRateRepository)
		_, err := NewDutyResolver(repo, zap.NewNop()).Resolve(ctx, DutyQuery{HSCode: "9503", FallbackRate: d("-0.1")})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		repo.AssertNotCalled(t, "FindByKey")
	})
}

// ---------------------------------------------------------------------------
// ShipmentCostCalculator
// ---------------------------------------------------------------------------

func testServices() []logistics.ShippingService {
	base := logistics.ShippingService{
		Active: true, Destinations: []string{"US"}, Currency: "USD",
		Unit: logistics.WeightUnitKg, BandSize: d("0.5"), BandCount: 60,
	}
	ems, air, sal, off := base, base, base, base
	ems.Code, ems.Carrier = "EMS", "JapanPost"
	air.Code, air.Carrier = "AIR", "JapanPost"
	air.SignatureFee, air.SignatureThreshold = d("5"), d("100")
	sal.Code, sal.BandCount = "SAL", 2
	off.Code, off.Active = "DHL", false
	return []logistics.ShippingService{ems, air, sal, off}
}

func TestShipmentCostCalculator_Quote(t *testing.T) {
	ctx := context.Background()

	t.Run("cheapest available service wins", func(t *testing.T) {
		repo := new(MockShippingRepository)
		repo.On("FindServices", mock.Anything, "US").Return(testServices(), nil)
		repo.On("FindRate", mock.Anything, "EMS", "US", 3).Return(&logistics.ShippingRateEntry{BaseRate: d("14.00"), Currency: "USD"}, nil)
		repo.On("FindRate", mock.Anything, "AIR", "US", 3).Return(&logistics.ShippingRateEntry{BaseRate: d("10.00"), Currency: "USD"}, nil)

		quote, err := NewShipmentCostCalculator(repo, zap.NewNop()).Quote(ctx, logistics.Shipment{
			WeightGrams: d("1200"), Destination: "us", DeclaredValue: d("150"),
		})
		require.NoError(t, err)
		require.NotNil(t, quote.Selected)
		// AIR is 10 + 5 signature above the threshold, EMS is 14
		assert.Equal(t, "EMS", quote.Selected.ServiceCode)
		assert.Len(t, quote.Options, 2)
		assert.Len(t, quote.Excluded, 2) // SAL over max weight, DHL inactive

		cost, err := quote.Cost()
		require.NoError(t, err)
		assert.True(t, cost.Equal(d("14")))
	})

	t.Run("equal totals break on service code", func(t *testing.T) {
		repo := new(MockShippingRepository)
		repo.On("FindServices", mock.Anything, "US").Return(testServices(), nil)
		repo.On("FindRate", mock.Anything, "EMS", "US", 1).Return(&logistics.ShippingRateEntry{BaseRate: d("9")}, nil)
		repo.On("FindRate", mock.Anything, "AIR", "US", 1).Return(&logistics.ShippingRateEntry{BaseRate: d("9")}, nil)
		repo.On("FindRate", mock.Anything, "SAL", "US", 1).Return(nil, shared.ErrNotFound)

		quote, err := NewShipmentCostCalculator(repo, zap.NewNop()).Quote(ctx, logistics.Shipment{
			WeightGrams: d("300"), Destination: "US",
		})
		require.NoError(t, err)
		assert.Equal(t, "AIR", quote.Selected.ServiceCode)
		assert.Equal(t, "USD", quote.Selected.Currency)
	})

	t.Run("no route is an error, not zero cost", func(t *testing.T) {
		repo := new(MockShippingRepository)
		repo.On("FindServices", mock.Anything, "AU").Return([]logistics.ShippingService{}, nil)

		quote, err := NewShipmentCostCalculator(repo, zap.NewNop()).Quote(ctx, logistics.Shipment{
			WeightGrams: d("300"), Destination: "AU",
		})
		assert.ErrorIs(t, err, shared.ErrNoRoute)
		require.NotNil(t, quote)
		assert.Nil(t, quote.Selected)
	})

	t.Run("rate store failure", func(t *testing.T) {
		repo := new(MockShippingRepository)
		repo.On("FindServices", mock.Anything, "US").Return(testServices()[:1], nil)
		repo.On("FindRate", mock.Anything, "EMS", "US", 1).Return(nil, errors.New("timeout"))

		_, err := NewShipmentCostCalculator(repo, zap.NewNop()).Quote(ctx, logistics.Shipment{
			WeightGrams: d("300"), Destination: "US",
		})
		assert.ErrorIs(t, err, shared.ErrDependencyUnavailable)
	})

	t.Run("invalid weight", func(t *testing.T) {
		repo := new(MockShippingRepository)
		_, err := NewShipmentCostCalculator(repo, zap.NewNop()).Quote(ctx, logistics.Shipment{Destination: "US"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

// ---------------------------------------------------------------------------
// RateTableGenerator
// ---------------------------------------------------------------------------

func generatorFixture(t *testing.T, bandCount int, missing ...int) (*MockShippingRepository, RateTableSpec) {
	t.Helper()
	svc := &logistics.ShippingService{
		Code: "EMS", Active: true, Destinations: []string{"US"}, Unit: logistics.WeightUnitKg,
		BandSize: d("0.5"), BandCount: bandCount,
	}
	skip := map[int]bool{}
	for _, m := range missing {
		skip[m] = true
	}
	var rates []logistics.ShippingRateEntry
	for b := 1; b <= bandCount; b++ {
		if skip[b] {
			continue
		}
		rates = append(rates, logistics.ShippingRateEntry{
			ServiceCode: "EMS", Destination: "US", WeightBand: b,
			BaseRate: d("10").Add(decimal.NewFromInt(int64(b))), Currency: "USD",
		})
	}
	repo := new(MockShippingRepository)
	repo.On("FindService", mock.Anything, "EMS").Return(svc, nil)
	repo.On("ListRates", mock.Anything, "EMS", "US").Return(rates, nil)

	spec := RateTableSpec{
		ServiceCode:      "EMS",
		Destination:      "US",
		PriceBands:       logistics.LinearPriceBands(decimal.Zero, d("50"), 20, d("0.5")),
		DDPSurchargeRate: d("0.065"),
		Export:           true,
	}
	return repo, spec
}

func TestRateTableGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("full matrix", func(t *testing.T) {
		repo, spec := generatorFixture(t, 60)
		table := newFakeRateTableRepository()
		store := &fakeStorage{}

		report, err := NewRateTableGenerator(repo, table, store, zap.NewNop()).Generate(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, 1200, report.Total)
		assert.Equal(t, 1200, report.Succeeded)
		assert.Zero(t, report.Failed)
		assert.Len(t, table.rows, 1200)
		assert.Equal(t, "rate-tables/EMS/US.csv", report.ExportKey)
		assert.Contains(t, report.ExportURL, "rate-tables/EMS/US.csv")

		// band 1 base 11, first price band markup 0, 0.065*25 = 1.625 -> 12.63
		first := report.Rows[0]
		assert.Equal(t, "RT_Price$0-50_Tariff6.5%", first.Name)
		assert.True(t, first.DisplayCost.Equal(d("12.63")), "got %s", first.DisplayCost)
	})

	t.Run("regeneration is identical", func(t *testing.T) {
		repo, spec := generatorFixture(t, 60)
		table := newFakeRateTableRepository()
		store := &fakeStorage{}
		gen := NewRateTableGenerator(repo, table, store, zap.NewNop())

		first, err := gen.Generate(ctx, spec)
		require.NoError(t, err)
		firstCSV := store.uploads[first.ExportKey]
		rowsAfterFirst := len(table.rows)

		second, err := gen.Generate(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, first.Rows, second.Rows)
		assert.Equal(t, rowsAfterFirst, len(table.rows))
		assert.True(t, bytes.Equal(firstCSV, store.uploads[second.ExportKey]))
	})

	t.Run("missing base rate reported per row", func(t *testing.T) {
		repo, spec := generatorFixture(t, 4, 2)
		table := newFakeRateTableRepository()
		table.failOn[4] = true

		report, err := NewRateTableGenerator(repo, table, nil, zap.NewNop()).Generate(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, 80, report.Total)
		assert.Equal(t, 40, report.Succeeded)
		assert.Equal(t, 40, report.Failed)
		assert.Empty(t, report.ExportKey)
		assert.Contains(t, report.Rows[20].Error, "weight band 2")
		assert.Equal(t, "write failed", report.Rows[60].Error)
	})

	t.Run("unknown service", func(t *testing.T) {
		repo := new(MockShippingRepository)
		repo.On("FindService", mock.Anything, "NOPE").Return(nil, shared.ErrNotFound)

		_, err := NewRateTableGenerator(repo, newFakeRateTableRepository(), nil, zap.NewNop()).Generate(ctx, RateTableSpec{
			ServiceCode: "NOPE", Destination: "US", PriceBands: []logistics.PriceBand{{Min: d("0"), Max: d("10")}},
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("no bands", func(t *testing.T) {
		_, err := NewRateTableGenerator(new(MockShippingRepository), newFakeRateTableRepository(), nil, zap.NewNop()).
			Generate(ctx, RateTableSpec{ServiceCode: "EMS"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
