package synckit

import (
	"context"
	"log/slog"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/strategy"
)

// parallelBatches is the batch concurrency used when tuning enables
// parallelism.
const parallelBatches = 4

// IntegrityChecker is implemented by appliers that can report on the target
// they write to.
type IntegrityChecker interface {
	ValidateDataIntegrity(ctx context.Context) error
	GetStatistics(ctx context.Context) (map[string]any, error)
}

// ProcessorCoordinator is a SyncCoordinator that applies the diff through a
// strategy.Processor. STANDARD_SYNC writes each bucket in one batch;
// BATCH_SYNC uses the tuned batch size.
type ProcessorCoordinator struct {
	applier   strategy.Applier
	processor *strategy.Processor
	engine    *compare.Engine
	logger    *slog.Logger
}

// NewProcessorCoordinator builds a coordinator writing through applier.
func NewProcessorCoordinator(applier strategy.Applier, cfg strategy.Config, logger *slog.Logger) *ProcessorCoordinator {
	logger = logging.ComponentLogger(logger, "processor-coordinator")
	return &ProcessorCoordinator{
		applier:   applier,
		processor: strategy.NewProcessor(applier, cfg, strategy.WithLogger(logger)),
		engine:    compare.NewEngine(compare.DefaultConfig(), compare.WithLogger(logger)),
		logger:    logger,
	}
}

// SyncData applies the diff carried in opts, computing it when absent.
func (c *ProcessorCoordinator) SyncData(ctx context.Context, source, target []record.Record, opts *SyncOptions) (*CoordinatorResult, error) {
	if opts == nil {
		opts = &SyncOptions{}
	}
	mode := opts.Mode
	if mode == "" {
		mode = string(strategy.Merge)
	}

	diff := opts.Diff
	if diff == nil {
		var err error
		if diff, err = c.engine.CalculateDifferences(ctx, source, target); err != nil {
			return nil, err
		}
	}
	changes := strategy.ChangeSetFromDiff(diff)
	changes.Modified = c.withResolved(ctx, changes.Modified, opts.Resolution)

	concurrency := 1
	if opts.Parallel {
		concurrency = parallelBatches
	}
	batchSize := opts.BatchSize
	if opts.Strategy == StandardSync {
		batchSize = max(changes.Len(), 1)
	}

	res, err := c.processor.ProcessTuned(ctx, mode, changes, strategy.Tuning{
		BatchSize:   batchSize,
		Concurrency: concurrency,
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "change set applied",
		slog.String("run_id", opts.RunID),
		slog.String("mode", string(res.Mode)),
		slog.Int("batch_size", batchSize),
		slog.Int("applied", res.Total()))

	return &CoordinatorResult{
		Success:   true,
		Synced:    res.Total(),
		Conflicts: opts.Conflicts.ConflictCount(),
		Applied:   res.Applied,
		Skipped:   res.Skipped,
		Warnings:  res.Warnings,
	}, nil
}

// withResolved returns modified with the handler's settled values written
// into each source record. The diff itself is left untouched.
func (c *ProcessorCoordinator) withResolved(ctx context.Context, modified []compare.ModifiedRecord, resolution *ConflictResolution) []compare.ModifiedRecord {
	if resolution == nil || len(resolution.Values) == 0 || len(modified) == 0 {
		return modified
	}
	byID := make(map[string][]ResolvedValue, len(resolution.Values))
	for _, v := range resolution.Values {
		byID[v.RecordID] = append(byID[v.RecordID], v)
	}

	out := make([]compare.ModifiedRecord, len(modified))
	copy(out, modified)
	for i := range out {
		for _, v := range byID[out[i].ID] {
			patched, ok := out[i].Source.WithField(v.Field, v.Value)
			if !ok {
				c.logger.WarnContext(ctx, "resolved value does not fit field",
					slog.String("record_id", v.RecordID),
					slog.String("field", v.Field))
				continue
			}
			out[i].Source = patched
		}
	}
	return out
}

// ValidateDataIntegrity delegates to the applier when it supports it.
func (c *ProcessorCoordinator) ValidateDataIntegrity(ctx context.Context) error {
	if checker, ok := c.applier.(IntegrityChecker); ok {
		return checker.ValidateDataIntegrity(ctx)
	}
	return nil
}

// GetStatistics reports processor counters and, when available, the
// applier's own statistics under "target".
func (c *ProcessorCoordinator) GetStatistics(ctx context.Context) (map[string]any, error) {
	out := map[string]any{"processor": c.processor.Stats()}
	if checker, ok := c.applier.(IntegrityChecker); ok {
		target, err := checker.GetStatistics(ctx)
		if err != nil {
			return nil, err
		}
		out["target"] = target
	}
	return out, nil
}

// ProcessorStats implements ProcessorStatsProvider.
func (c *ProcessorCoordinator) ProcessorStats() strategy.Stats {
	return c.processor.Stats()
}
