package handler

import (
	"context"
	"io"

	importapp "github.com/n3/backend/internal/application/import"
	listingapp "github.com/n3/backend/internal/application/listing"
	logisticsapp "github.com/n3/backend/internal/application/logistics"
	pricingapp "github.com/n3/backend/internal/application/pricing"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/n3/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/mock"
)

// MockPriceCalculator implements PriceCalculator for testing
type MockPriceCalculator struct {
	mock.Mock
}

func (m *MockPriceCalculator) CalculateBatch(ctx context.Context, reqs []pricingapp.PriceRequest) *pricingapp.BatchResult {
	args := m.Called(ctx, reqs)
	return args.Get(0).(*pricingapp.BatchResult)
}

func (m *MockPriceCalculator) CalculateForProduct(ctx context.Context, sku, platform, accountID string) (*pricingapp.PriceQuote, error) {
	args := m.Called(ctx, sku, platform, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricingapp.PriceQuote), args.Error(1)
}

// MockStrategyDeterminer implements StrategyDeterminer for testing
type MockStrategyDeterminer struct {
	mock.Mock
}

func (m *MockStrategyDeterminer) DetermineForSKU(ctx context.Context, sku string) (*listing.StrategyDecision, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.StrategyDecision), args.Error(1)
}

func (m *MockStrategyDeterminer) DetermineBatch(ctx context.Context, limit int) (*listingapp.DetermineBatchResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingapp.DetermineBatchResult), args.Error(1)
}

// MockStrategyCatalog implements StrategyCatalog for testing
type MockStrategyCatalog struct {
	mock.Mock
}

func (m *MockStrategyCatalog) List(strategyType strategy.StrategyType) []string {
	args := m.Called(strategyType)
	return args.Get(0).([]string)
}

func (m *MockStrategyCatalog) GetDefault(strategyType strategy.StrategyType) string {
	args := m.Called(strategyType)
	return args.String(0)
}

// MockListingExecutor implements ListingExecutor for testing
type MockListingExecutor struct {
	mock.Mock
}

func (m *MockListingExecutor) ExecuteBatch(ctx context.Context, opts listingapp.ExecuteOptions) (*listingapp.ExecuteBatchResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingapp.ExecuteBatchResult), args.Error(1)
}

func (m *MockListingExecutor) Retry(ctx context.Context, req listingapp.RetryRequest) (*listingapp.ExecuteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingapp.ExecuteResult), args.Error(1)
}

func (m *MockListingExecutor) Stats(ctx context.Context) (*listing.QueueStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.QueueStats), args.Error(1)
}

// MockRateTableBuilder implements RateTableBuilder for testing
type MockRateTableBuilder struct {
	mock.Mock
}

func (m *MockRateTableBuilder) Generate(ctx context.Context, spec logisticsapp.RateTableSpec) (*logisticsapp.GenerationReport, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logisticsapp.GenerationReport), args.Error(1)
}

// MockShippingQuoter implements ShippingQuoter for testing
type MockShippingQuoter struct {
	mock.Mock
}

func (m *MockShippingQuoter) Quote(ctx context.Context, sh logistics.Shipment) (*logistics.ShippingQuote, error) {
	args := m.Called(ctx, sh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logistics.ShippingQuote), args.Error(1)
}

// MockSheetImporter implements SheetImporter for testing
type MockSheetImporter struct {
	mock.Mock
}

func (m *MockSheetImporter) Import(ctx context.Context, r io.Reader, opts importapp.Options) (*importapp.ImportResult, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body), opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importapp.ImportResult), args.Error(1)
}

// MockPriceDropProcessor implements PriceDropProcessor for testing
type MockPriceDropProcessor struct {
	mock.Mock
}

func (m *MockPriceDropProcessor) Handle(ctx context.Context, evt listingapp.PriceDropEvent) (*listingapp.PriceDropResult, error) {
	args := m.Called(ctx, evt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingapp.PriceDropResult), args.Error(1)
}

// MockJobScheduler implements JobScheduler for testing
type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) Trigger(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockJobScheduler) JobNames() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockJobScheduler) LastRuns() []scheduler.JobRun {
	runs, _ := m.Called().Get(0).([]scheduler.JobRun)
	return runs
}

func (m *MockJobScheduler) IsRunning() bool {
	return m.Called().Bool(0)
}

// MockPipelineRunner implements PipelineRunner for testing
type MockPipelineRunner struct {
	mock.Mock
}

func (m *MockPipelineRunner) Run(ctx context.Context, opts listingapp.PipelineOptions) (*listingapp.PipelineResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listingapp.PipelineResult), args.Error(1)
}
