package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/n3/backend/internal/domain/listing"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// QueueStatsSource reports execution queue depth
type QueueStatsSource interface {
	Stats(ctx context.Context) (*listing.QueueStats, error)
}

// ListingMetrics records scoring, pricing and dispatch outcomes. It satisfies
// the Metrics ports of the pricing and listing services.
type ListingMetrics struct {
	logger *zap.Logger

	decisions      *Counter
	priceSolves    *Counter
	dispatches     *Counter
	dispatchTime   *Histogram
	retries        *Counter
	queueItems     *Gauge
	recentOutcomes *Gauge

	stopCh      chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
	wg          sync.WaitGroup
}

// NewListingMetrics creates the listing instruments on meter
func NewListingMetrics(meter metric.Meter, logger *zap.Logger) (*ListingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ListingMetrics{logger: logger, stopCh: make(chan struct{})}

	var err error
	if m.decisions, err = NewCounter(meter, "n3_strategy_decisions_total",
		"Strategy decisions by resulting status", "{decision}"); err != nil {
		return nil, err
	}
	if m.priceSolves, err = NewCounter(meter, "n3_price_solve_total",
		"Price solves by platform and outcome", "{solve}"); err != nil {
		return nil, err
	}
	if m.dispatches, err = NewCounter(meter, "n3_listing_dispatch_total",
		"Marketplace dispatches by platform and outcome", "{dispatch}"); err != nil {
		return nil, err
	}
	if m.dispatchTime, err = NewHistogram(meter, "n3_listing_dispatch_duration_seconds",
		"Marketplace adapter call latency", "s", DispatchDurationBuckets); err != nil {
		return nil, err
	}
	if m.retries, err = NewCounter(meter, "n3_listing_retry_scheduled_total",
		"Dispatches rescheduled with backoff", "{retry}"); err != nil {
		return nil, err
	}
	if m.queueItems, err = NewGauge(meter, "n3_execution_queue_items",
		"Execution queue items by state", "{item}"); err != nil {
		return nil, err
	}
	if m.recentOutcomes, err = NewGauge(meter, "n3_execution_recent_outcomes",
		"Dispatch outcomes inside the stats window", "{dispatch}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordDecision counts a strategy decision
func (m *ListingMetrics) RecordDecision(ctx context.Context, status string) {
	m.decisions.Inc(ctx, AttrStatus.String(status))
}

// RecordPriceSolve counts a price solve
func (m *ListingMetrics) RecordPriceSolve(ctx context.Context, platform, outcome string) {
	m.priceSolves.Inc(ctx, AttrPlatform.String(platform), AttrOutcome.String(outcome))
}

// RecordDispatch counts an adapter call and its latency
func (m *ListingMetrics) RecordDispatch(ctx context.Context, platform, outcome string, took time.Duration) {
	m.dispatches.Inc(ctx, AttrPlatform.String(platform), AttrOutcome.String(outcome))
	m.dispatchTime.RecordDuration(ctx, took, AttrPlatform.String(platform), AttrOutcome.String(outcome))
}

// RecordRetryScheduled counts a backoff reschedule
func (m *ListingMetrics) RecordRetryScheduled(ctx context.Context, platform string) {
	m.retries.Inc(ctx, AttrPlatform.String(platform))
}

// RecordQueueStats publishes a queue snapshot to the gauges
func (m *ListingMetrics) RecordQueueStats(ctx context.Context, stats *listing.QueueStats) {
	for state, n := range map[string]int64{
		"pending":       stats.Pending,
		"in_flight":     stats.InFlight,
		"pending_retry": stats.PendingRetry,
		"failed":        stats.Failed,
	} {
		m.queueItems.Record(ctx, n, AttrQueueState.String(state))
	}
	m.recentOutcomes.Record(ctx, stats.RecentSuccess, AttrOutcome.String("success"))
	m.recentOutcomes.Record(ctx, stats.RecentFailures, AttrOutcome.String("failure"))
}

// StartQueueCollection polls source every interval until Stop or ctx ends.
// Only the first call starts a collector.
func (m *ListingMetrics) StartQueueCollection(ctx context.Context, source QueueStatsSource, interval time.Duration) {
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		m.wg.Add(1)
		go m.runQueueCollection(ctx, source, interval)
	})
}

func (m *ListingMetrics) runQueueCollection(ctx context.Context, source QueueStatsSource, interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectQueue(ctx, source)
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectQueue(ctx, source)
		}
	}
}

func (m *ListingMetrics) collectQueue(ctx context.Context, source QueueStatsSource) {
	stats, err := source.Stats(ctx)
	if err != nil {
		m.logger.Warn("Failed to collect queue stats", zap.Error(err))
		return
	}
	m.RecordQueueStats(ctx, stats)
}

// Stop ends queue collection and waits for the collector to exit
func (m *ListingMetrics) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
