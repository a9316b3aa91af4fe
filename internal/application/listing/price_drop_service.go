package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/n3/backend/internal/domain/catalog"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceDropEvent is an inbound notification that a product became cheaper to acquire
type PriceDropEvent struct {
	EventID    string          `json:"event_id" binding:"required,max=128"`
	SKU        string          `json:"sku" binding:"required,max=64"`
	NewCost    decimal.Decimal `json:"new_cost"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// PriceDropOptions configures webhook handling
type PriceDropOptions struct {
	// AutoExecuteScore dispatches immediately when the winning score reaches it. Zero disables.
	AutoExecuteScore decimal.Decimal
	IdempotencyTTL   time.Duration
}

// PriceDropResult reports how an event was handled
type PriceDropResult struct {
	EventID   string                    `json:"event_id"`
	SKU       string                    `json:"sku"`
	Duplicate bool                      `json:"duplicate,omitempty"`
	Skipped   bool                      `json:"skipped,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
	Decision  *listing.StrategyDecision `json:"decision,omitempty"`
	Execution *ExecuteResult            `json:"execution,omitempty"`
}

// PriceDropService re-scores a product when its acquisition cost drops
type PriceDropService struct {
	products  catalog.ProductRepository
	strategy  *StrategyService
	execution *ExecutionService
	store     shared.IdempotencyStore
	opts      PriceDropOptions
	logger    *zap.Logger
}

// NewPriceDropService creates a new PriceDropService. store may be nil to disable dedup.
func NewPriceDropService(
	products catalog.ProductRepository,
	pipeline *Pipeline,
	store shared.IdempotencyStore,
	opts PriceDropOptions,
	logger *zap.Logger,
) *PriceDropService {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = shared.DefaultEventTTL
	}
	return &PriceDropService{
		products:  products,
		strategy:  pipeline.Strategy(),
		execution: pipeline.Execution(),
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// Handle processes one event. A redelivered event id is acknowledged without work.
// When handling fails the id is released so the sender can redeliver.
func (s *PriceDropService) Handle(ctx context.Context, evt PriceDropEvent) (*PriceDropResult, error) {
	evt.EventID = strings.TrimSpace(evt.EventID)
	evt.SKU = strings.TrimSpace(evt.SKU)
	if evt.EventID == "" || evt.SKU == "" {
		return nil, shared.WrapError(shared.ErrInvalidInput, "event_id and sku are required")
	}
	if !evt.NewCost.IsPositive() {
		return nil, shared.WrapError(shared.ErrInvalidInput, "new_cost must be positive")
	}

	result := &PriceDropResult{EventID: evt.EventID, SKU: evt.SKU}
	if s.store != nil {
		fresh, err := s.store.MarkProcessed(ctx, evt.EventID, s.opts.IdempotencyTTL)
		if err != nil {
			return nil, shared.Unavailable("mark event processed", err)
		}
		if !fresh {
			result.Duplicate = true
			return result, nil
		}
	}

	if err := s.handle(ctx, evt, result); err != nil {
		if s.store != nil {
			if uerr := s.store.Unmark(ctx, evt.EventID); uerr != nil {
				s.logger.Warn("Failed to release event id", zap.String("event_id", evt.EventID), zap.Error(uerr))
			}
		}
		return nil, err
	}
	return result, nil
}

func (s *PriceDropService) handle(ctx context.Context, evt PriceDropEvent, result *PriceDropResult) error {
	log := s.logger.With(zap.String("event_id", evt.EventID), zap.String("sku", evt.SKU))

	product, err := s.products.FindBySKU(ctx, evt.SKU)
	if err != nil {
		return err
	}
	if product.Status == catalog.ProductStatusListed {
		result.Skipped = true
		result.Reason = "product is already listed"
		return nil
	}
	if err := s.products.UpdateAcquisitionCost(ctx, evt.SKU, evt.NewCost); err != nil {
		return shared.Unavailable("update acquisition cost", err)
	}

	decision, err := s.strategy.DetermineForSKU(ctx, evt.SKU)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidState) {
			result.Skipped = true
			result.Reason = err.Error()
			log.Info("Price drop recorded without re-scoring", zap.String("status", string(product.Status)))
			return nil
		}
		return err
	}
	result.Decision = decision

	threshold := s.opts.AutoExecuteScore
	if threshold.IsPositive() && decision.Status == listing.DecisionStatusSuccess &&
		decision.Score.GreaterThanOrEqual(threshold) {
		res, err := s.execution.ExecuteSKU(ctx, evt.SKU, false)
		if err != nil {
			log.Warn("Auto execution skipped", zap.Error(err))
		} else {
			result.Execution = res
		}
	}

	log.Info("Price drop handled",
		zap.String("new_cost", evt.NewCost.String()),
		zap.String("decision", string(decision.Status)),
		zap.Bool("executed", result.Execution != nil),
	)
	return nil
}
