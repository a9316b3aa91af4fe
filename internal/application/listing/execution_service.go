package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errStaleDispatch marks a claim whose adapter outcome is unknown. It is never
// retried automatically.
var errStaleDispatch = errors.New("dispatch outcome unknown: claim went stale")

const recordSuccessAttempts = 3

// ExecutionOptions configures the dispatcher
type ExecutionOptions struct {
	TargetMargin       *decimal.Decimal
	AdapterTimeout     time.Duration
	Backoff            listing.BackoffPolicy
	AccountConcurrency int
	BatchConcurrency   int
	BatchLimit         int
	StaleAfter         time.Duration
	StatsWindow        time.Duration
	RecordRetryDelay   time.Duration
}

// ExecuteOptions filters one dispatch run
type ExecuteOptions struct {
	DryRun   bool `json:"dry_run"`
	Limit    int  `json:"limit" binding:"gte=0,lte=1000"`
	MinStock int  `json:"min_stock" binding:"gte=0"`
}

// ExecuteStatus is the per-item outcome of a dispatch run
type ExecuteStatus string

const (
	ExecuteStatusListed       ExecuteStatus = "listed"
	ExecuteStatusRetryPending ExecuteStatus = "retry_pending"
	ExecuteStatusFailed       ExecuteStatus = "failed"
	ExecuteStatusSkipped      ExecuteStatus = "skipped"
	ExecuteStatusDryRun       ExecuteStatus = "dry_run"
	ExecuteStatusError        ExecuteStatus = "error"
)

// ExecuteResult reports what happened, or would happen in a dry run, to one product
type ExecuteResult struct {
	SKU         string                      `json:"sku"`
	Platform    string                      `json:"platform,omitempty"`
	AccountID   string                      `json:"account_id,omitempty"`
	Status      ExecuteStatus               `json:"status"`
	ListingID   string                      `json:"listing_id,omitempty"`
	Attempt     int                         `json:"attempt,omitempty"`
	NextRetryAt *time.Time                  `json:"next_retry_at,omitempty"`
	Payload     *integration.ListingPayload `json:"payload,omitempty"`
	Reason      string                      `json:"reason,omitempty"`
	Error       string                      `json:"error,omitempty"`
	ErrorCode   string                      `json:"error_code,omitempty"`
}

// ExecuteSummary counts dispatch outcomes
type ExecuteSummary struct {
	Total        int `json:"total"`
	Listed       int `json:"listed"`
	RetryPending int `json:"retry_pending"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	DryRun       int `json:"dry_run"`
	Errors       int `json:"errors"`
}

// ExecuteBatchResult is returned by batch dispatch runs
type ExecuteBatchResult struct {
	DryRun  bool            `json:"dry_run"`
	Items   []ExecuteResult `json:"items"`
	Summary ExecuteSummary  `json:"summary"`
}

// RetryRequest identifies a single placement to re-dispatch
type RetryRequest struct {
	SKU       string `json:"sku" binding:"required,max=64"`
	Platform  string `json:"platform" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
}

// SweepResult reports what a stale sweep reconciled
type SweepResult struct {
	Reconciled      int   `json:"reconciled"`
	Failed          int   `json:"failed"`
	OrphansFailed   int64 `json:"orphans_failed"`
	ReleasedScoring int64 `json:"released_scoring"`
}

// ExecutionService dispatches recommended placements to marketplace adapters
type ExecutionService struct {
	products  catalog.ProductRepository
	settings  integration.MarketplaceSettingsRepository
	decisions listing.DecisionRepository
	queue     listing.ExecutionQueueRepository
	logs      listing.ExecutionLogRepository
	recorder  listing.ExecutionRecorder
	quoter    ProductQuoter
	builder   *PayloadBuilder
	adapters  AdapterRegistry
	pool      *AccountPool
	opts      ExecutionOptions
	metrics   Metrics
	logger    *zap.Logger
	clock     func() time.Time
}

// NewExecutionService creates a new ExecutionService
func NewExecutionService(
	products catalog.ProductRepository,
	settings integration.MarketplaceSettingsRepository,
	decisions listing.DecisionRepository,
	queue listing.ExecutionQueueRepository,
	logs listing.ExecutionLogRepository,
	recorder listing.ExecutionRecorder,
	quoter ProductQuoter,
	adapters AdapterRegistry,
	opts ExecutionOptions,
	logger *zap.Logger,
) *ExecutionService {
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = 30 * time.Second
	}
	if opts.Backoff.Base <= 0 {
		opts.Backoff = listing.DefaultBackoffPolicy()
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 200
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	// a live claim covers one adapter call plus the success commit
	if floor := 2 * opts.AdapterTimeout; opts.StaleAfter < floor {
		logger.Warn("Stale window raised to cover an adapter call",
			zap.Duration("stale_after", opts.StaleAfter), zap.Duration("floor", floor))
		opts.StaleAfter = floor
	}
	if opts.RecordRetryDelay <= 0 {
		opts.RecordRetryDelay = 200 * time.Millisecond
	}
	if opts.StatsWindow <= 0 {
		opts.StatsWindow = 24 * time.Hour
	}
	return &ExecutionService{
		products:  products,
		settings:  settings,
		decisions: decisions,
		queue:     queue,
		logs:      logs,
		recorder:  recorder,
		quoter:    quoter,
		builder:   NewPayloadBuilder(),
		adapters:  adapters,
		pool:      NewAccountPool(opts.AccountConcurrency),
		opts:      opts,
		metrics:   noopMetrics{},
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics sets the metrics recorder
func (s *ExecutionService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// ExecuteBatch dispatches strategy_determined products matching the filter
func (s *ExecutionService) ExecuteBatch(ctx context.Context, opts ExecuteOptions) (*ExecuteBatchResult, error) {
	limit := opts.Limit
	if limit <= 0 || limit > s.opts.BatchLimit {
		limit = s.opts.BatchLimit
	}
	products, err := s.products.FindByFilter(ctx, catalog.ProductFilter{
		Statuses: []catalog.ProductStatus{catalog.ProductStatusStrategyDetermined},
		MinStock: opts.MinStock,
		Limit:    limit,
	})
	if err != nil {
		return nil, shared.Unavailable("list products for dispatch", err)
	}

	items := make([]ExecuteResult, len(products))
	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency)
	for i := range products {
		g.Go(func() error {
			items[i] = s.executeProduct(ctx, &products[i], opts.DryRun)
			return nil
		})
	}
	_ = g.Wait()

	result := &ExecuteBatchResult{DryRun: opts.DryRun, Items: items, Summary: summarizeExecution(items)}
	s.logger.Info("Execution batch completed",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("total", result.Summary.Total),
		zap.Int("listed", result.Summary.Listed),
		zap.Int("retry_pending", result.Summary.RetryPending),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("skipped", result.Summary.Skipped),
	)
	return result, nil
}

// ExecuteSKU dispatches one strategy_determined product
func (s *ExecutionService) ExecuteSKU(ctx context.Context, sku string, dryRun bool) (*ExecuteResult, error) {
	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if product.Status != catalog.ProductStatusStrategyDetermined {
		return nil, shared.WrapError(shared.ErrInvalidState, "product %s is %s", sku, product.Status)
	}
	res := s.executeProduct(ctx, product, dryRun)
	return &res, nil
}

// Retry re-dispatches one placement outside the batch cycle. Failed items are
// claimable here even after automatic retries are exhausted.
func (s *ExecutionService) Retry(ctx context.Context, req RetryRequest) (*ExecuteResult, error) {
	platform, err := integration.ParsePlatformCode(req.Platform)
	if err != nil {
		return nil, shared.WrapError(shared.ErrInvalidInput, "%v", err)
	}
	product, err := s.products.FindBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if product.Status == catalog.ProductStatusListed {
		return nil, shared.WrapError(shared.ErrInvalidState, "product %s is already listed", req.SKU)
	}

	payload, err := s.prepare(ctx, product, platform, req.AccountID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSlot(ctx, platform, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	claimed, err := s.products.TransitionStatus(ctx, product.SKU, []catalog.ProductStatus{
		catalog.ProductStatusStrategyDetermined,
		catalog.ProductStatusRetryPending,
		catalog.ProductStatusFailed,
	}, catalog.ProductStatusInFlight)
	if err != nil {
		return nil, shared.Unavailable("claim product", err)
	}
	if !claimed {
		return nil, shared.WrapError(shared.ErrInvalidState, "product %s is %s", req.SKU, product.Status)
	}

	item, err := s.claimQueueItem(ctx, product.SKU, platform, req.AccountID, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Manual retry",
		zap.String("sku", item.SKU),
		zap.String("platform", item.Platform.String()),
		zap.String("account_id", item.AccountID),
		zap.Int("attempt", item.Attempt()),
	)
	res := s.dispatch(ctx, item, payload)
	return &res, nil
}

// ProcessDueRetries dispatches retry_pending items whose backoff has elapsed
func (s *ExecutionService) ProcessDueRetries(ctx context.Context) (*ExecuteBatchResult, error) {
	due, err := s.queue.FindDue(ctx, s.clock(), s.opts.BatchLimit)
	if err != nil {
		return nil, shared.Unavailable("list due retries", err)
	}

	items := make([]ExecuteResult, len(due))
	var g errgroup.Group
	g.SetLimit(s.opts.BatchConcurrency)
	for i := range due {
		g.Go(func() error {
			items[i] = s.retryDue(ctx, &due[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &ExecuteBatchResult{Items: items, Summary: summarizeExecution(items)}
	if result.Summary.Total > 0 {
		s.logger.Info("Due retries processed",
			zap.Int("total", result.Summary.Total),
			zap.Int("listed", result.Summary.Listed),
			zap.Int("failed", result.Summary.Failed),
		)
	}
	return result, nil
}

// SweepStale reconciles claims left behind by a crashed or timed out worker
func (s *ExecutionService) SweepStale(ctx context.Context) (*SweepResult, error) {
	now := s.clock()
	olderThan := now.Add(-s.opts.StaleAfter)
	result := &SweepResult{}

	stale, err := s.queue.FindStale(ctx, olderThan, s.opts.BatchLimit)
	if err != nil {
		return nil, shared.Unavailable("list stale queue items", err)
	}
	for i := range stale {
		item := &stale[i]
		if item.ListingID != "" {
			if err := s.reconcileListed(ctx, item); err != nil {
				s.logger.Error("Failed to reconcile created listing",
					zap.String("sku", item.SKU),
					zap.String("listing_id", item.ListingID),
					zap.Error(err),
				)
				continue
			}
			result.Reconciled++
			continue
		}
		if res := s.fail(ctx, item, errStaleDispatch, 0); res.Status == ExecuteStatusFailed {
			result.Failed++
		}
	}

	if result.OrphansFailed, err = s.products.ReleaseStale(ctx,
		catalog.ProductStatusInFlight, catalog.ProductStatusFailed, olderThan); err != nil {
		return result, shared.Unavailable("release in-flight products", err)
	}
	if result.ReleasedScoring, err = s.products.ReleaseStale(ctx,
		catalog.ProductStatusScoring, catalog.ProductStatusPendingStrategy, olderThan); err != nil {
		return result, shared.Unavailable("release scoring products", err)
	}

	if result.Reconciled+result.Failed > 0 || result.OrphansFailed+result.ReleasedScoring > 0 {
		s.logger.Warn("Stale claims reconciled",
			zap.Int("reconciled", result.Reconciled),
			zap.Int("failed", result.Failed),
			zap.Int64("orphans_failed", result.OrphansFailed),
			zap.Int64("released_scoring", result.ReleasedScoring),
		)
	}
	return result, nil
}

// Stats returns queue depth and recent outcome counts
func (s *ExecutionService) Stats(ctx context.Context) (*listing.QueueStats, error) {
	counts, err := s.queue.CountByStatus(ctx)
	if err != nil {
		return nil, shared.Unavailable("count queue items", err)
	}
	since := s.clock().Add(-s.opts.StatsWindow)
	success, err := s.logs.CountSince(ctx, listing.OutcomeSuccess, since)
	if err != nil {
		return nil, shared.Unavailable("count recent successes", err)
	}
	failures, err := s.logs.CountSince(ctx, listing.OutcomeFailure, since)
	if err != nil {
		return nil, shared.Unavailable("count recent failures", err)
	}

	stats := &listing.QueueStats{
		Pending:        counts[listing.QueueStatusPending],
		InFlight:       counts[listing.QueueStatusInFlight],
		PendingRetry:   counts[listing.QueueStatusRetryPending],
		Failed:         counts[listing.QueueStatusFailed],
		RecentSuccess:  success,
		RecentFailures: failures,
	}
	stats.Depth = stats.Pending + stats.InFlight + stats.PendingRetry
	return stats, nil
}

func (s *ExecutionService) executeProduct(ctx context.Context, product *catalog.Product, dryRun bool) ExecuteResult {
	decision, err := s.decisions.FindBySKU(ctx, product.SKU)
	if err != nil {
		return withError(ExecuteResult{SKU: product.SKU}, err)
	}
	return s.executeDecision(ctx, product, decision, dryRun)
}

// previewDecisions builds dry-run payloads for decisions that were scored but never
// saved. decisions[i] belongs to products[i].
func (s *ExecutionService) previewDecisions(
	ctx context.Context,
	products []catalog.Product,
	decisions []*listing.StrategyDecision,
	minStock int,
) []ExecuteResult {
	var out []ExecuteResult
	for i := range products {
		dec := decisions[i]
		if dec == nil || dec.Status != listing.DecisionStatusSuccess || products[i].Stock < minStock {
			continue
		}
		out = append(out, s.executeDecision(ctx, &products[i], dec, true))
	}
	return out
}

func (s *ExecutionService) executeDecision(
	ctx context.Context,
	product *catalog.Product,
	decision *listing.StrategyDecision,
	dryRun bool,
) ExecuteResult {
	res := ExecuteResult{SKU: product.SKU}
	if decision.Status != listing.DecisionStatusSuccess {
		res.Status = ExecuteStatusSkipped
		res.Reason = "no recommended placement"
		return res
	}
	res.Platform = decision.RecommendedPlatform.String()
	res.AccountID = decision.RecommendedAccount

	payload, err := s.prepare(ctx, product, decision.RecommendedPlatform, decision.RecommendedAccount)
	if err != nil {
		return withError(res, err)
	}
	if dryRun {
		res.Status = ExecuteStatusDryRun
		res.Payload = payload
		return res
	}

	release, err := s.acquireSlot(ctx, decision.RecommendedPlatform, decision.RecommendedAccount)
	if err != nil {
		return withError(res, err)
	}
	defer release()

	claimed, err := s.products.TransitionStatus(ctx, product.SKU,
		[]catalog.ProductStatus{catalog.ProductStatusStrategyDetermined}, catalog.ProductStatusInFlight)
	if err != nil {
		return withError(res, shared.Unavailable("claim product", err))
	}
	if !claimed {
		res.Status = ExecuteStatusSkipped
		res.Reason = "claimed by another dispatcher"
		return res
	}

	item, err := s.claimQueueItem(ctx, product.SKU, decision.RecommendedPlatform, decision.RecommendedAccount, payload)
	if err != nil {
		return withError(res, err)
	}
	return s.dispatch(ctx, item, payload)
}

// claimQueueItem runs after the product claim succeeded. A queue item that cannot be
// claimed fails the product so it surfaces for manual retry instead of staying in flight.
func (s *ExecutionService) claimQueueItem(
	ctx context.Context,
	sku string,
	platform integration.PlatformCode,
	accountID string,
	payload *integration.ListingPayload,
) (*listing.ExecutionQueueItem, error) {
	fresh := listing.NewExecutionQueueItem(sku, platform, accountID, s.opts.Backoff.MaxRetries)
	fresh.Payload = payload
	item, err := s.queue.Ensure(ctx, fresh)
	if err != nil {
		return nil, shared.Unavailable("ensure queue item", err)
	}

	now := s.clock()
	ok, err := s.queue.Claim(ctx, item.ID, listing.ClaimableStatuses(true), now)
	if err != nil {
		return nil, shared.Unavailable("claim queue item", err)
	}
	if !ok {
		if _, terr := s.products.TransitionStatus(ctx, sku,
			[]catalog.ProductStatus{catalog.ProductStatusInFlight}, catalog.ProductStatusFailed); terr != nil {
			s.logger.Warn("Failed to release product claim", zap.String("sku", sku), zap.Error(terr))
		}
		return nil, shared.WrapError(shared.ErrInvalidState, "queue item %s is %s", item.Key(), item.Status)
	}
	item.Status = listing.QueueStatusInFlight
	item.ClaimedAt = &now
	item.Payload = payload
	return item, nil
}

func (s *ExecutionService) retryDue(ctx context.Context, item *listing.ExecutionQueueItem) ExecuteResult {
	res := ExecuteResult{SKU: item.SKU, Platform: item.Platform.String(), AccountID: item.AccountID}

	release, err := s.acquireSlot(ctx, item.Platform, item.AccountID)
	if err != nil {
		return withError(res, err)
	}
	defer release()

	claimed, err := s.products.TransitionStatus(ctx, item.SKU,
		[]catalog.ProductStatus{catalog.ProductStatusRetryPending}, catalog.ProductStatusInFlight)
	if err != nil {
		return withError(res, shared.Unavailable("claim product", err))
	}
	if !claimed {
		res.Status = ExecuteStatusSkipped
		res.Reason = "product is not retry_pending"
		return res
	}
	now := s.clock()
	ok, err := s.queue.Claim(ctx, item.ID, []listing.QueueStatus{listing.QueueStatusRetryPending}, now)
	if err != nil || !ok {
		if _, terr := s.products.TransitionStatus(ctx, item.SKU,
			[]catalog.ProductStatus{catalog.ProductStatusInFlight}, catalog.ProductStatusRetryPending); terr != nil {
			s.logger.Warn("Failed to release product claim", zap.String("sku", item.SKU), zap.Error(terr))
		}
		if err != nil {
			return withError(res, shared.Unavailable("claim queue item", err))
		}
		res.Status = ExecuteStatusSkipped
		res.Reason = "claimed by another dispatcher"
		return res
	}
	item.Status = listing.QueueStatusInFlight
	item.ClaimedAt = &now

	product, err := s.products.FindBySKU(ctx, item.SKU)
	if err != nil {
		return s.fail(ctx, item, err, 0)
	}
	payload, err := s.prepare(ctx, product, item.Platform, item.AccountID)
	if err != nil {
		return s.fail(ctx, item, err, 0)
	}
	item.Payload = payload
	return s.dispatch(ctx, item, payload)
}

func (s *ExecutionService) prepare(
	ctx context.Context,
	product *catalog.Product,
	platform integration.PlatformCode,
	accountID string,
) (*integration.ListingPayload, error) {
	settings, err := s.settings.FindByKey(ctx, platform, accountID)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoter.QuoteProduct(ctx, product, settings, s.opts.TargetMargin)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(product, settings, quote)
}

// dispatch calls the adapter for an item already claimed in_flight and records the
// outcome. The caller holds the account slot.
func (s *ExecutionService) dispatch(ctx context.Context, item *listing.ExecutionQueueItem, payload *integration.ListingPayload) ExecuteResult {
	start := time.Now()
	listingID, err := s.call(ctx, item, payload)
	took := time.Since(start)
	if err != nil {
		return s.fail(ctx, item, err, took)
	}

	log := s.logger.With(
		zap.String("sku", item.SKU),
		zap.String("platform", item.Platform.String()),
		zap.String("account_id", item.AccountID),
	)
	res := ExecuteResult{
		SKU:       item.SKU,
		Platform:  item.Platform.String(),
		AccountID: item.AccountID,
		Status:    ExecuteStatusListed,
		ListingID: listingID,
		Attempt:   item.Attempt(),
	}
	entry := listing.NewExecutionLog(item, listing.OutcomeSuccess, listingID, nil, took)
	item.Status = listing.QueueStatusSuccess
	item.ListingID = listingID
	item.LastError = ""
	item.NextRetryAt = nil
	s.metrics.RecordDispatch(ctx, item.Platform.String(), string(listing.OutcomeSuccess), took)

	if err := s.queue.SetListingID(context.WithoutCancel(ctx), item.ID, listingID); err != nil {
		log.Error("Failed to save listing id", zap.String("listing_id", listingID), zap.Error(err))
	}
	if err := s.recordSuccess(ctx, item, entry); err != nil {
		log.Error("Listing created but not recorded", zap.String("listing_id", listingID), zap.Error(err))
		res.Status = ExecuteStatusError
		return withError(res, shared.Unavailable("record listing success", err))
	}
	log.Info("Listing created", zap.String("listing_id", listingID), zap.Duration("took", took))
	return res
}

func (s *ExecutionService) call(ctx context.Context, item *listing.ExecutionQueueItem, payload *integration.ListingPayload) (string, error) {
	adapter, err := s.adapters.Get(item.Platform)
	if err != nil {
		return "", err
	}
	if !adapter.IsEnabled(ctx) {
		return "", fmt.Errorf("%w: %s", integration.ErrPlatformNotConfigured, item.Platform)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.AdapterTimeout)
	defer cancel()
	listingID, err := adapter.CreateListing(callCtx, *payload)
	if err != nil {
		return "", err
	}
	if listingID == "" {
		return "", fmt.Errorf("%w: empty listing id", integration.ErrPlatformInvalidResponse)
	}
	return listingID, nil
}

// acquireSlot waits for a free adapter slot on the account. Callers take the slot
// before claiming so claimed_at never includes time spent queueing.
func (s *ExecutionService) acquireSlot(ctx context.Context, platform integration.PlatformCode, accountID string) (func(), error) {
	key := integration.CandidateKey(platform, accountID)
	release, err := s.pool.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %v", integration.ErrPlatformUnavailable, key, err)
	}
	return release, nil
}

// recordSuccess commits a created listing on a context detached from the caller,
// retrying anything but a lost claim.
func (s *ExecutionService) recordSuccess(ctx context.Context, item *listing.ExecutionQueueItem, entry *listing.ExecutionLog) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= recordSuccessAttempts; attempt++ {
		err = s.recorder.RecordSuccess(ctx, item, entry)
		if err == nil || errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if attempt < recordSuccessAttempts {
			time.Sleep(time.Duration(attempt) * s.opts.RecordRetryDelay)
		}
	}
	return err
}

// reconcileListed completes a stale item whose listing was created but never recorded
func (s *ExecutionService) reconcileListed(ctx context.Context, item *listing.ExecutionQueueItem) error {
	entry := listing.NewExecutionLog(item, listing.OutcomeSuccess, item.ListingID, nil, 0)
	item.Status = listing.QueueStatusSuccess
	item.LastError = ""
	item.NextRetryAt = nil
	if err := s.recorder.RecordSuccess(ctx, item, entry); err != nil {
		return err
	}
	s.logger.Warn("Unrecorded listing reconciled",
		zap.String("sku", item.SKU),
		zap.String("platform", item.Platform.String()),
		zap.String("account_id", item.AccountID),
		zap.String("listing_id", item.ListingID),
	)
	return nil
}

// fail applies the backoff policy to an in_flight item and records the attempt
func (s *ExecutionService) fail(ctx context.Context, item *listing.ExecutionQueueItem, cause error, took time.Duration) ExecuteResult {
	retryable := integration.IsRetryable(cause) && !errors.Is(cause, errStaleDispatch)
	outcome := s.opts.Backoff.OnFailure(item, retryable, s.clock())
	entry := listing.NewExecutionLog(item, listing.OutcomeFailure, "", cause, took)
	item.LastError = cause.Error()

	res := ExecuteResult{
		SKU:         item.SKU,
		Platform:    item.Platform.String(),
		AccountID:   item.AccountID,
		Status:      ExecuteStatusRetryPending,
		Attempt:     entry.Attempt,
		NextRetryAt: outcome.NextRetryAt,
		Error:       cause.Error(),
		ErrorCode:   shared.ErrorCode(cause),
	}
	if outcome.Exhausted() {
		res.Status = ExecuteStatusFailed
	}
	if res.ErrorCode == "" {
		res.ErrorCode = shared.ErrAdapterRejected.Code
	}

	s.metrics.RecordDispatch(ctx, item.Platform.String(), string(listing.OutcomeFailure), took)
	if !outcome.Exhausted() {
		s.metrics.RecordRetryScheduled(ctx, item.Platform.String())
	}

	log := s.logger.With(
		zap.String("sku", item.SKU),
		zap.String("platform", item.Platform.String()),
		zap.String("account_id", item.AccountID),
		zap.Int("retry_count", outcome.RetryCount),
		zap.String("status", string(outcome.Status)),
	)
	if err := s.recorder.RecordFailure(ctx, item, outcome, entry); err != nil {
		log.Error("Failed to record dispatch failure", zap.NamedError("cause", cause), zap.Error(err))
		return withError(res, shared.Unavailable("record dispatch failure", err))
	}
	log.Warn("Listing dispatch failed", zap.Error(cause))
	return res
}

func withError(res ExecuteResult, err error) ExecuteResult {
	if res.Status == "" {
		res.Status = ExecuteStatusError
	}
	res.Error = err.Error()
	res.ErrorCode = shared.ErrorCode(err)
	return res
}

func summarizeExecution(items []ExecuteResult) ExecuteSummary {
	sum := ExecuteSummary{Total: len(items)}
	for _, it := range items {
		switch it.Status {
		case ExecuteStatusListed:
			sum.Listed++
		case ExecuteStatusRetryPending:
			sum.RetryPending++
		case ExecuteStatusFailed:
			sum.Failed++
		case ExecuteStatusSkipped:
			sum.Skipped++
		case ExecuteStatusDryRun:
			sum.DryRun++
		default:
			sum.Errors++
		}
	}
	return sum
}
