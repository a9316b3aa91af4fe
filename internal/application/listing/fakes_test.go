package listing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/n3/backend/internal/application/pricing"
	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/integration"
	domainlogistics "github.com/n3/backend/internal/domain/logistics"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memStore is an in-memory store honoring the conditional-write contracts
type memStore struct {
	mu        sync.Mutex
	products  map[string]*catalog.Product
	decisions map[string]*listing.StrategyDecision
	items     map[uuid.UUID]*listing.ExecutionQueueItem
	logs      []listing.ExecutionLog
	findErr   error
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[string]*catalog.Product),
		decisions: make(map[string]*listing.StrategyDecision),
		items:     make(map[uuid.UUID]*listing.ExecutionQueueItem),
	}
}

func (m *memStore) status(sku string) catalog.ProductStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[sku].Status
}

func (m *memStore) successLogs(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.logs {
		if l.SKU == sku && l.Outcome == listing.OutcomeSuccess {
			n++
		}
	}
	return n
}

// catalog.ProductRepository

func (m *memStore) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.products[sku]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) FindByFilter(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []catalog.Product
	for _, p := range m.products {
		if !containsStatus(f.Statuses, p.Status) || p.Stock < f.MinStock {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.SKU] = &cp
	return nil
}

func (m *memStore) TransitionStatus(_ context.Context, sku string, from []catalog.ProductStatus, to catalog.ProductStatus) (bool, error) {
	if err := catalog.ValidateTransition(from, to); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[sku]
	if !ok || !containsStatus(from, p.Status) {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memStore) UpdateAcquisitionCost(_ context.Context, sku string, cost decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[sku]
	if !ok {
		return shared.ErrNotFound
	}
	p.AcquisitionCost = cost
	return nil
}

func (m *memStore) ReleaseStale(_ context.Context, from, to catalog.ProductStatus, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.products {
		if p.Status == from && p.UpdatedAt.Before(olderThan) {
			p.Status = to
			n++
		}
	}
	return n, nil
}

func containsStatus(set []catalog.ProductStatus, s catalog.ProductStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// listing.DecisionRepository

type decisionRepo struct{ *memStore }

func (r decisionRepo) Upsert(_ context.Context, dec *listing.StrategyDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *dec
	r.decisions[dec.SKU] = &cp
	return nil
}

func (r decisionRepo) FindBySKU(_ context.Context, sku string) (*listing.StrategyDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dec, ok := r.decisions[sku]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *dec
	return &cp, nil
}

// listing.ExecutionQueueRepository

type queueRepo struct{ *memStore }

func (r queueRepo) Ensure(_ context.Context, item *listing.ExecutionQueueItem) (*listing.ExecutionQueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.SKU == item.SKU && it.Platform == item.Platform && it.AccountID == item.AccountID {
			cp := *it
			return &cp, nil
		}
	}
	cp := *item
	r.items[item.ID] = &cp
	out := cp
	return &out, nil
}

func (r queueRepo) Claim(_ context.Context, id uuid.UUID, from []listing.QueueStatus, now time.Time) (bool, error) {
	if err := listing.ValidateQueueTransition(from, listing.QueueStatusInFlight); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if it.Status == f {
			it.Status = listing.QueueStatusInFlight
			it.ClaimedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r queueRepo) SetListingID(_ context.Context, id uuid.UUID, listingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Status != listing.QueueStatusInFlight {
		return shared.WrapError(shared.ErrConcurrencyConflict, "queue item %s is no longer in flight", id)
	}
	it.ListingID = listingID
	return nil
}

func (r queueRepo) FindByKey(_ context.Context, key listing.QueueKey) (*listing.ExecutionQueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.SKU == key.SKU && it.Platform == key.Platform && it.AccountID == key.AccountID {
			cp := *it
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r queueRepo) FindDue(_ context.Context, now time.Time, limit int) ([]listing.ExecutionQueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []listing.ExecutionQueueItem
	for _, it := range r.items {
		if it.Status == listing.QueueStatusRetryPending && it.NextRetryAt != nil && !it.NextRetryAt.After(now) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r queueRepo) FindStale(_ context.Context, olderThan time.Time, limit int) ([]listing.ExecutionQueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []listing.ExecutionQueueItem
	for _, it := range r.items {
		if it.Status == listing.QueueStatusInFlight && it.ClaimedAt != nil && it.ClaimedAt.Before(olderThan) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r queueRepo) CountByStatus(context.Context) (map[listing.QueueStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[listing.QueueStatus]int64)
	for _, it := range r.items {
		out[it.Status]++
	}
	return out, nil
}

func (r queueRepo) item(sku string) *listing.ExecutionQueueItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.SKU == sku {
			cp := *it
			return &cp
		}
	}
	return nil
}

// listing.ExecutionLogRepository

type logRepo struct{ *memStore }

func (r logRepo) Append(_ context.Context, e *listing.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *e)
	return nil
}

func (r logRepo) CountSince(_ context.Context, outcome listing.ExecutionOutcome, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.logs {
		if l.Outcome == outcome && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r logRepo) ListBySKU(_ context.Context, sku string) ([]listing.ExecutionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []listing.ExecutionLog
	for _, l := range r.logs {
		if l.SKU == sku {
			out = append(out, l)
		}
	}
	return out, nil
}

// listing.ExecutionRecorder

type recorder struct{ *memStore }

func (r recorder) RecordSuccess(_ context.Context, item *listing.ExecutionQueueItem, entry *listing.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.items[item.ID]
	stored.Status = listing.QueueStatusSuccess
	stored.ListingID = item.ListingID
	stored.NextRetryAt = nil
	r.logs = append(r.logs, *entry)
	if p, ok := r.products[item.SKU]; ok && p.Status == catalog.ProductStatusInFlight {
		p.Status = catalog.ProductStatusListed
		p.ListingID = item.ListingID
		p.ListedPlatform = item.Platform.String()
		p.ListedAccountID = item.AccountID
	}
	return nil
}

func (r recorder) RecordFailure(_ context.Context, item *listing.ExecutionQueueItem, outcome listing.FailureOutcome, entry *listing.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.items[item.ID]
	stored.Status = outcome.Status
	stored.RetryCount = outcome.RetryCount
	stored.NextRetryAt = outcome.NextRetryAt
	stored.LastError = item.LastError
	r.logs = append(r.logs, *entry)
	if p, ok := r.products[item.SKU]; ok && p.Status == catalog.ProductStatusInFlight {
		p.Status = listing.ProductStatusFor(outcome.Status)
	}
	return nil
}

// flakyRecorder fails the next `failures` RecordSuccess calls
type flakyRecorder struct {
	recorder
	failures atomic.Int32
	calls    atomic.Int32
}

func (r *flakyRecorder) RecordSuccess(ctx context.Context, item *listing.ExecutionQueueItem, entry *listing.ExecutionLog) error {
	r.calls.Add(1)
	if r.failures.Add(-1) >= 0 {
		return errors.New("write tcp 10.0.0.5:5432: connection reset by peer")
	}
	return r.recorder.RecordSuccess(ctx, item, entry)
}

// settings

type settingsRepo struct {
	list []integration.MarketplaceSettings
	err  error
}

func (r *settingsRepo) FindActive(context.Context) ([]integration.MarketplaceSettings, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]integration.MarketplaceSettings(nil), r.list...), nil
}

func (r *settingsRepo) FindByKey(_ context.Context, p integration.PlatformCode, account string) (*integration.MarketplaceSettings, error) {
	for _, s := range r.list {
		if s.Platform == p && s.AccountID == account {
			cp := s
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *settingsRepo) Save(context.Context, *integration.MarketplaceSettings) error { return nil }

func usSettings() integration.MarketplaceSettings {
	return integration.MarketplaceSettings{
		Platform: integration.PlatformCodeEbay, AccountID: "us-main", CountryCode: "US", Currency: "USD",
		FeeRate: d("0.1315"), PaymentFeeRate: d("0.03"), FixedFee: d("0.30"), DDPRequired: true,
		FXRate: d("1"), Preference: d("0.5"), Active: true,
	}
}

func sgSettings() integration.MarketplaceSettings {
	return integration.MarketplaceSettings{
		Platform: integration.PlatformCodeShopee, AccountID: "sg-1", CountryCode: "SG", Currency: "SGD",
		FeeRate: d("0.10"), PaymentFeeRate: d("0.02"), DDPRequired: true,
		FXRate: d("1"), Preference: d("0.5"), Active: true,
	}
}

// quoter

type quoteFn func(p *catalog.Product, s *integration.MarketplaceSettings) (*pricing.PriceQuote, error)

func (f quoteFn) QuoteProduct(_ context.Context, p *catalog.Product, s *integration.MarketplaceSettings, _ *decimal.Decimal) (*pricing.PriceQuote, error) {
	return f(p, s)
}

func makeQuote(s *integration.MarketplaceSettings, price, profit, margin string) *pricing.PriceQuote {
	res := strategy.PricingResult{
		Mode:                strategy.DutyModeDDP,
		ProductPrice:        d(price),
		DisplayShippingCost: d("12.00"),
		TotalPrice:          d(price).Add(d("12.00")),
		ProfitAmount:        d(profit),
		ProfitMargin:        d(margin),
		IsProfitable:        d(profit).IsPositive(),
		Currency:            s.Currency,
	}
	return &pricing.PriceQuote{
		Platform:            s.Platform.String(),
		AccountID:           s.AccountID,
		Currency:            s.Currency,
		FXRate:              s.FXRate,
		Duty:                domainlogistics.DutyResolution{Source: domainlogistics.DutySourceVerified},
		Shipping:            &domainlogistics.ShippingOption{ServiceCode: "EMS", Total: d("14.00")},
		DisplayShippingCost: d("12.00"),
		DisplaySource:       pricing.DisplaySourceRateTable,
		DDP:                 res,
		DDU:                 res,
		Mode:                strategy.DutyModeDDP,
	}
}

// adapters

type fakeAdapter struct {
	platform integration.PlatformCode
	disabled bool
	delay    time.Duration
	calls    atomic.Int32
	fn       func(p integration.ListingPayload) (string, error)
}

func (a *fakeAdapter) Platform() integration.PlatformCode { return a.platform }

func (a *fakeAdapter) IsEnabled(context.Context) bool { return !a.disabled }

func (a *fakeAdapter) CreateListing(ctx context.Context, p integration.ListingPayload) (string, error) {
	a.calls.Add(1)
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if a.fn != nil {
		return a.fn(p)
	}
	return "L-" + p.SKU, nil
}

type registry map[integration.PlatformCode]integration.MarketplaceAdapter

func (r registry) Get(p integration.PlatformCode) (integration.MarketplaceAdapter, error) {
	a, ok := r[p]
	if !ok {
		return nil, integration.ErrPlatformNotRegistered
	}
	return a, nil
}

// idempotency

type memIdempotency struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{seen: make(map[string]bool)}
}

func (m *memIdempotency) MarkProcessed(_ context.Context, id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memIdempotency) IsProcessed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[id], nil
}

func (m *memIdempotency) Unmark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
	return nil
}

func (m *memIdempotency) Close() error { return nil }

func seedProduct(t interface{ Helper() }, store *memStore, sku string, status catalog.ProductStatus) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Film camera "+sku, d("40"), d("900"))
	if err != nil {
		panic(err)
	}
	p.Status = status
	p.Stock = 1
	p.Brand = "Olympus"
	p.Category = "cameras"
	_ = store.Save(context.Background(), p)
	return p
}
