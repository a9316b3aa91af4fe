package listing

import (
	"context"

	"github.com/n3/backend/internal/domain/listing"
	"go.uber.org/zap"
)

// PipelineOptions controls one end-to-end run
type PipelineOptions struct {
	Limit    int  `json:"limit" binding:"gte=0,lte=1000"`
	MinStock int  `json:"min_stock" binding:"gte=0"`
	DryRun   bool `json:"dry_run"`
	// SkipExecute stops after the strategy stage
	SkipExecute bool `json:"skip_execute"`
}

// PipelineResult carries the output of each stage that ran
type PipelineResult struct {
	DryRun    bool                  `json:"dry_run"`
	Strategy  *DetermineBatchResult `json:"strategy"`
	Execution *ExecuteBatchResult   `json:"execution,omitempty"`
}

// Pipeline chains strategy determination into dispatch in-process
type Pipeline struct {
	strategy  *StrategyService
	execution *ExecutionService
	logger    *zap.Logger
}

// NewPipeline creates a new Pipeline
func NewPipeline(strategy *StrategyService, execution *ExecutionService, logger *zap.Logger) *Pipeline {
	return &Pipeline{strategy: strategy, execution: execution, logger: logger}
}

// Strategy returns the strategy stage
func (p *Pipeline) Strategy() *StrategyService {
	return p.strategy
}

// Execution returns the dispatch stage
func (p *Pipeline) Execution() *ExecutionService {
	return p.execution
}

// Run scores pending products and then dispatches everything strategy_determined.
// A failing execute stage still returns the strategy result.
//
// A dry run writes nothing: pending products are scored in memory and the
// execute stage previews payloads for those decisions plus any product already
// strategy_determined.
func (p *Pipeline) Run(ctx context.Context, opts PipelineOptions) (*PipelineResult, error) {
	if opts.DryRun {
		return p.preview(ctx, opts)
	}

	determined, err := p.strategy.DetermineBatch(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}
	result := &PipelineResult{Strategy: determined}
	if opts.SkipExecute {
		return result, nil
	}

	executed, err := p.execution.ExecuteBatch(ctx, ExecuteOptions{Limit: opts.Limit, MinStock: opts.MinStock})
	if err != nil {
		p.logger.Error("Pipeline execute stage failed", zap.Error(err))
		return result, err
	}
	result.Execution = executed
	return result, nil
}

func (p *Pipeline) preview(ctx context.Context, opts PipelineOptions) (*PipelineResult, error) {
	products, scored, err := p.strategy.previewBatch(ctx, opts.Limit)
	if err != nil {
		return nil, err
	}
	result := &PipelineResult{DryRun: true, Strategy: scored}
	if opts.SkipExecute {
		return result, nil
	}

	executed, err := p.execution.ExecuteBatch(ctx, ExecuteOptions{DryRun: true, Limit: opts.Limit, MinStock: opts.MinStock})
	if err != nil {
		p.logger.Error("Pipeline preview stage failed", zap.Error(err))
		return result, err
	}
	decisions := make([]*listing.StrategyDecision, len(scored.Items))
	for i := range scored.Items {
		decisions[i] = scored.Items[i].Decision
	}
	executed.Items = append(executed.Items, p.execution.previewDecisions(ctx, products, decisions, opts.MinStock)...)
	executed.Summary = summarizeExecution(executed.Items)
	result.Execution = executed
	return result, nil
}
