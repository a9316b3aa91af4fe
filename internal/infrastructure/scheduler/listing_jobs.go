package scheduler

import (
	"context"

	listingapp "github.com/n3/backend/internal/application/listing"
	"github.com/n3/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Job names
const (
	JobStrategy = "strategy"
	JobExecute  = "execute"
	JobRetry    = "retry"
	JobSweep    = "sweep"
)

// StrategyRunner scores pending products
type StrategyRunner interface {
	DetermineBatch(ctx context.Context, limit int) (*listingapp.DetermineBatchResult, error)
}

// ExecutionRunner dispatches determined products and maintains the queue
type ExecutionRunner interface {
	ExecuteBatch(ctx context.Context, opts listingapp.ExecuteOptions) (*listingapp.ExecuteBatchResult, error)
	ProcessDueRetries(ctx context.Context) (*listingapp.ExecuteBatchResult, error)
	SweepStale(ctx context.Context) (*listingapp.SweepResult, error)
}

// ListingJobs builds the four periodic listing jobs from configuration
func ListingJobs(cfg config.SchedulerConfig, strategy StrategyRunner, execution ExecutionRunner, logger *zap.Logger) []Job {
	return []Job{
		{
			Name:     JobStrategy,
			Interval: cfg.StrategyInterval,
			Run: func(ctx context.Context) error {
				res, err := strategy.DetermineBatch(ctx, cfg.BatchLimit)
				if err != nil {
					return err
				}
				if res.Summary.Total > 0 {
					logger.Info("Strategy job finished",
						zap.Int("total", res.Summary.Total),
						zap.Int("success", res.Summary.Success),
						zap.Int("no_candidates", res.Summary.NoCandidates),
					)
				}
				return nil
			},
		},
		{
			Name:     JobExecute,
			Interval: cfg.ExecuteInterval,
			Run: func(ctx context.Context) error {
				_, err := execution.ExecuteBatch(ctx, listingapp.ExecuteOptions{Limit: cfg.BatchLimit})
				return err
			},
		},
		{
			Name:     JobRetry,
			Interval: cfg.RetryInterval,
			Run: func(ctx context.Context) error {
				_, err := execution.ProcessDueRetries(ctx)
				return err
			},
		},
		{
			Name:     JobSweep,
			Interval: cfg.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := execution.SweepStale(ctx)
				return err
			},
		},
	}
}
