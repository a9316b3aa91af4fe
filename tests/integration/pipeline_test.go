package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	listingapp "github.com/n3/backend/internal/application/listing"
	logisticsapp "github.com/n3/backend/internal/application/logistics"
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_ListsPricedProducts(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB, "CAM-1", "CAM-2")
	ebay := &recordingAdapter{platform: integration.PlatformCodeEbay}
	s := newStack(t, testDB.DB, ebay)
	ctx := context.Background()

	result, err := s.pipeline.Run(ctx, listingapp.PipelineOptions{})
	require.NoError(t, err)
	require.NotNil(t, result.Execution)

	assert.Equal(t, 2, result.Strategy.Summary.Success)
	assert.Equal(t, 2, result.Execution.Summary.Listed)

	sent := ebay.sent()
	require.Len(t, sent, 2)
	for _, p := range sent {
		assert.Equal(t, testutil.FixtureEbayAccount, p.AccountID)
		assert.Equal(t, "USD", p.Currency)
		assert.True(t, p.DDP, "eBay US settings require DDP")
		assert.True(t, p.Price.IsPositive())
	}

	for _, sku := range []string{"CAM-1", "CAM-2"} {
		product, err := s.products.FindBySKU(ctx, sku)
		require.NoError(t, err)
		assert.Equal(t, catalog.ProductStatusListed, product.Status)
		assert.Equal(t, "LST-"+sku, product.ListingID)

		logs, err := s.logs.ListBySKU(ctx, sku)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, listing.OutcomeSuccess, logs[0].Outcome)
	}

	stats, err := s.execution.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.RecentSuccess)
	assert.Zero(t, stats.InFlight)
}

func TestPipeline_DryRunChangesNothing(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB, "CAM-1")
	ebay := &recordingAdapter{platform: integration.PlatformCodeEbay}
	s := newStack(t, testDB.DB, ebay)
	ctx := context.Background()

	preview, err := s.pipeline.Run(ctx, listingapp.PipelineOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, preview.Strategy.Summary.Success)
	require.NotNil(t, preview.Execution)
	assert.Equal(t, 1, preview.Execution.Summary.DryRun)
	pending, err := s.products.FindBySKU(ctx, "CAM-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductStatusPendingStrategy, pending.Status)

	_, err = s.strategy.DetermineBatch(ctx, 0)
	require.NoError(t, err)

	result, err := s.execution.ExecuteBatch(ctx, listingapp.ExecuteOptions{DryRun: true})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, listingapp.ExecuteStatusDryRun, result.Items[0].Status)
	require.NotNil(t, result.Items[0].Payload)
	assert.Empty(t, ebay.sent())

	product, err := s.products.FindBySKU(ctx, "CAM-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductStatusStrategyDetermined, product.Status)

	logs, err := s.logs.ListBySKU(ctx, "CAM-1")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestExecution_RetryableFailureSchedulesRetry(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB, "CAM-1")
	ebay := &recordingAdapter{platform: integration.PlatformCodeEbay, failWith: integration.ErrPlatformUnavailable}
	s := newStack(t, testDB.DB, ebay)
	ctx := context.Background()

	result, err := s.pipeline.Run(ctx, listingapp.PipelineOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Execution.Summary.RetryPending)

	item, err := s.queue.FindByKey(ctx, listing.QueueKey{
		SKU:       "CAM-1",
		Platform:  integration.PlatformCodeEbay,
		AccountID: testutil.FixtureEbayAccount,
	})
	require.NoError(t, err)
	assert.Equal(t, listing.QueueStatusRetryPending, item.Status)
	assert.Equal(t, 1, item.RetryCount)
	require.NotNil(t, item.NextRetryAt)
	assert.True(t, item.NextRetryAt.After(time.Now().Add(-time.Second)))

	product, err := s.products.FindBySKU(ctx, "CAM-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductStatusRetryPending, product.Status)

	logs, err := s.logs.ListBySKU(ctx, "CAM-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, listing.OutcomeFailure, logs[0].Outcome)
}

func TestExecutionQueue_ClaimHasSingleWinner(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	s := newStack(t, testDB.DB)
	ctx := context.Background()

	item, err := s.queue.Ensure(ctx, listing.NewExecutionQueueItem("CAM-1", integration.PlatformCodeEbay, "acct", 3))
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.queue.Claim(ctx, item.ID, []listing.QueueStatus{listing.QueueStatusPending}, time.Now().UTC())
			if assert.NoError(t, err) && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	again, err := s.queue.Ensure(ctx, listing.NewExecutionQueueItem("CAM-1", integration.PlatformCodeEbay, "acct", 3))
	require.NoError(t, err)
	assert.Equal(t, item.ID, again.ID, "ensure keeps the existing item")
	assert.Equal(t, listing.QueueStatusInFlight, again.Status)
}

func TestPriceDrop_DuplicateEventIsIgnored(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB, "CAM-1")
	s := newStack(t, testDB.DB, &recordingAdapter{platform: integration.PlatformCodeEbay})
	ctx := context.Background()

	evt := listingapp.PriceDropEvent{EventID: "evt-1", SKU: "CAM-1", NewCost: testutil.Dec("9000")}

	first, err := s.priceDrop.Handle(ctx, evt)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	require.NotNil(t, first.Decision)
	assert.Equal(t, listing.DecisionStatusSuccess, first.Decision.Status)

	product, err := s.products.FindBySKU(ctx, "CAM-1")
	require.NoError(t, err)
	assert.True(t, product.AcquisitionCost.Equal(testutil.Dec("9000")))

	second, err := s.priceDrop.Handle(ctx, evt)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Decision)
}

func TestRateTableGenerator_ExportsTable(t *testing.T) {
	skipShort(t)

	testDB := NewSharedTestDB(t)
	testutil.SeedCatalog(t, testDB.DB)
	s := newStack(t, testDB.DB)
	ctx := context.Background()

	report, err := s.rateTable.Generate(ctx, logisticsapp.RateTableSpec{
		ServiceCode: testutil.FixtureService,
		Destination: "US",
		PriceBands: []logistics.PriceBand{
			{Min: testutil.Dec("0"), Max: testutil.Dec("100"), Markup: testutil.Dec("0")},
			{Min: testutil.Dec("100"), Max: testutil.Dec("500"), Markup: testutil.Dec("0.05")},
		},
		Export: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, report.Total, "four weight bands by two price bands")
	assert.Equal(t, report.Total, report.Succeeded)
	require.NotEmpty(t, report.ExportKey)
	_, ok := s.exports.Get(report.ExportKey)
	assert.True(t, ok)
}
