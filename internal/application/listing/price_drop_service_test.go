package listing

import (
	"context"
	"testing"
	"time"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type priceDropFixture struct {
	store   *memStore
	ids     *memIdempotency
	adapter *fakeAdapter
	svc     *PriceDropService
}

func newPriceDropFixture(threshold string) *priceDropFixture {
	store := newMemStore()
	settings := &settingsRepo{list: []integration.MarketplaceSettings{usSettings(), sgSettings()}}
	adapter := &fakeAdapter{platform: integration.PlatformCodeShopee}
	strategySvc := NewStrategyService(store, settings, decisionRepo{store}, twoMarkets, nil,
		strategy.NewWeightedScoringStrategy(strategy.DefaultScoringWeights()), StrategyOptions{}, zap.NewNop())
	execSvc := NewExecutionService(store, settings, decisionRepo{store}, queueRepo{store}, logRepo{store}, recorder{store},
		twoMarkets, registry{integration.PlatformCodeShopee: adapter}, ExecutionOptions{}, zap.NewNop())
	ids := newMemIdempotency()
	svc := NewPriceDropService(store, NewPipeline(strategySvc, execSvc, zap.NewNop()), ids,
		PriceDropOptions{AutoExecuteScore: d(threshold), IdempotencyTTL: time.Hour}, zap.NewNop())
	return &priceDropFixture{store: store, ids: ids, adapter: adapter, svc: svc}
}

func TestPriceDropService_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("re-scores and auto-executes above the threshold", func(t *testing.T) {
		f := newPriceDropFixture("0.4")
		seedProduct(t, f.store, "SKU-1", catalog.ProductStatusNotListable)

		res, err := f.svc.Handle(ctx, PriceDropEvent{EventID: "evt-1", SKU: "SKU-1", NewCost: d("30")})
		require.NoError(t, err)
		require.NotNil(t, res.Decision)
		assert.Equal(t, listing.DecisionStatusSuccess, res.Decision.Status)
		require.NotNil(t, res.Execution)
		assert.Equal(t, ExecuteStatusListed, res.Execution.Status)
		assert.Equal(t, catalog.ProductStatusListed, f.store.status("SKU-1"))

		p, err := f.store.FindBySKU(ctx, "SKU-1")
		require.NoError(t, err)
		assert.True(t, p.AcquisitionCost.Equal(d("30")))
	})

	t.Run("below the threshold only re-scores", func(t *testing.T) {
		f := newPriceDropFixture("0.9")
		seedProduct(t, f.store, "SKU-1", catalog.ProductStatusPendingStrategy)

		res, err := f.svc.Handle(ctx, PriceDropEvent{EventID: "evt-1", SKU: "SKU-1", NewCost: d("30")})
		require.NoError(t, err)
		assert.Nil(t, res.Execution)
		assert.Equal(t, catalog.ProductStatusStrategyDetermined, f.store.status("SKU-1"))
		assert.Equal(t, int32(0), f.adapter.calls.Load())
	})

	t.Run("duplicate delivery is acknowledged once", func(t *testing.T) {
		f := newPriceDropFixture("0")
		seedProduct(t, f.store, "SKU-1", catalog.ProductStatusPendingStrategy)
		evt := PriceDropEvent{EventID: "evt-1", SKU: "SKU-1", NewCost: d("30")}

		first, err := f.svc.Handle(ctx, evt)
		require.NoError(t, err)
		assert.False(t, first.Duplicate)

		second, err := f.svc.Handle(ctx, evt)
		require.NoError(t, err)
		assert.True(t, second.Duplicate)
		assert.Nil(t, second.Decision)
	})

	t.Run("listed product is skipped", func(t *testing.T) {
		f := newPriceDropFixture("0")
		seedProduct(t, f.store, "SKU-1", catalog.ProductStatusListed)

		res, err := f.svc.Handle(ctx, PriceDropEvent{EventID: "evt-1", SKU: "SKU-1", NewCost: d("30")})
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		p, _ := f.store.FindBySKU(ctx, "SKU-1")
		assert.True(t, p.AcquisitionCost.Equal(d("40")))
	})

	t.Run("in-flight product keeps the new cost without re-scoring", func(t *testing.T) {
		f := newPriceDropFixture("0")
		seedProduct(t, f.store, "SKU-1", catalog.ProductStatusInFlight)

		res, err := f.svc.Handle(ctx, PriceDropEvent{EventID: "evt-1", SKU: "SKU-1", NewCost: d("30")})
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, catalog.ProductStatusInFlight, f.store.status("SKU-1"))
	})

	t.Run("failure releases the event id", func(t *testing.T) {
		f := newPriceDropFixture("0")

		_, err := f.svc.Handle(ctx, PriceDropEvent{EventID: "evt-1", SKU: "MISSING", NewCost: d("30")})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		seen, err := f.ids.IsProcessed(ctx, "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("invalid event", func(t *testing.T) {
		f := newPriceDropFixture("0")
		_, err := f.svc.Handle(ctx, PriceDropEvent{EventID: "evt-1", SKU: "SKU-1", NewCost: d("-1")})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		_, err = f.svc.Handle(ctx, PriceDropEvent{SKU: "SKU-1", NewCost: d("1")})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestPipeline_SkipExecute(t *testing.T) {
	ctx := context.Background()
	f := newPriceDropFixture("0")
	seedProduct(t, f.store, "SKU-1", catalog.ProductStatusPendingStrategy)

	pipeline := NewPipeline(f.svc.strategy, f.svc.execution, zap.NewNop())
	result, err := pipeline.Run(ctx, PipelineOptions{SkipExecute: true})
	require.NoError(t, err)
	assert.Nil(t, result.Execution)
	assert.Equal(t, catalog.ProductStatusStrategyDetermined, f.store.status("SKU-1"))
	assert.Equal(t, int32(0), f.adapter.calls.Load())
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	f := newPriceDropFixture("0")
	seedProduct(t, f.store, "SKU-1", catalog.ProductStatusPendingStrategy)
	seedProduct(t, f.store, "SKU-2", catalog.ProductStatusPendingStrategy)

	pipeline := NewPipeline(f.svc.strategy, f.svc.execution, zap.NewNop())

	dry, err := pipeline.Run(ctx, PipelineOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 2, dry.Strategy.Summary.Success)
	assert.Equal(t, 2, dry.Execution.Summary.DryRun)
	for _, item := range dry.Execution.Items {
		require.NotNil(t, item.Payload)
		assert.Equal(t, ExecuteStatusDryRun, item.Status)
	}
	assert.Equal(t, int32(0), f.adapter.calls.Load())

	// the dry run saved no decision and moved no product
	assert.Equal(t, catalog.ProductStatusPendingStrategy, f.store.status("SKU-1"))
	assert.Equal(t, catalog.ProductStatusPendingStrategy, f.store.status("SKU-2"))
	_, err = decisionRepo{f.store}.FindBySKU(ctx, "SKU-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	live, err := pipeline.Run(ctx, PipelineOptions{})
	require.NoError(t, err)
	assert.False(t, live.DryRun)
	assert.Equal(t, 2, live.Strategy.Summary.Success)
	assert.Equal(t, 2, live.Execution.Summary.Listed)
	assert.Equal(t, catalog.ProductStatusListed, f.store.status("SKU-1"))
	assert.Equal(t, catalog.ProductStatusListed, f.store.status("SKU-2"))
}
