package synckit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/conflict"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/retry"
	"github.com/c0deZ3R0/readsync/strategy"
)

// Config groups the orchestrator thresholds and the configuration of the
// components it builds.
type Config struct {
	Compare  compare.Config
	Conflict conflict.Config
	Retry    retry.Config

	// BatchThreshold is the change count above which BATCH_SYNC is used.
	BatchThreshold int

	HeavyLoadItems    int
	HeavyLoadDuration time.Duration
	HistorySize       int
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Compare:           compare.DefaultConfig(),
		Conflict:          conflict.DefaultConfig(),
		Retry:             retry.DefaultConfig(),
		BatchThreshold:    20,
		HeavyLoadItems:    1000,
		HeavyLoadDuration: 5 * time.Second,
		HistorySize:       20,
	}
}

// Result is the outcome of one OrchestrateSync call. When Success is false,
// Err is a *errors.SyncError and Stage names the stage that failed.
type Result struct {
	RunID             string
	Success           bool
	Synchronized      int
	Conflicts         int
	ConflictsResolved int
	ConflictSeverity  conflict.Severity
	ProcessingTime    time.Duration
	Strategy          SyncStrategy
	RetryCount        int
	Err               error
	Stage             syncErrors.Stage
	Warnings          []string
	Diff              compare.Summary
}

// Orchestrator sequences comparison, conflict detection and synchronization.
// Runs may be issued concurrently; component statistics use atomic counters.
type Orchestrator struct {
	coordinator SyncCoordinator
	handler     ConflictHandler

	cfg     Config
	logger  *slog.Logger
	metrics MetricsCollector
	tracer  trace.Tracer

	engine   *compare.Engine
	detector *conflict.Detector
	retrier  *retry.Coordinator

	mu      sync.Mutex
	tuning  Tuning
	history []RunSample
	stats   runStats
}

// NewOrchestrator builds an orchestrator around coordinator. handler may be
// nil, in which case detected conflicts are only reported.
func NewOrchestrator(coordinator SyncCoordinator, handler ConflictHandler, opts ...Option) (*Orchestrator, error) {
	if coordinator == nil {
		return nil, syncErrors.E(
			syncErrors.OpConfig,
			syncErrors.Component("synckit"),
			syncErrors.KindInvalid,
			syncErrors.ErrCodeInvalidInput,
			errors.New("sync coordinator is required"),
		)
	}

	o := &Orchestrator{
		coordinator: coordinator,
		handler:     handler,
		cfg:         DefaultConfig(),
		metrics:     &NoOpMetricsCollector{},
		tuning:      defaultTuning(),
		stats:       newRunStats(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, syncErrors.NewWithComponent(syncErrors.OpConfig, "synckit", err)
		}
	}

	o.logger = logging.ComponentLogger(o.logger, "orchestrator")
	o.engine = compare.NewEngine(o.cfg.Compare, compare.WithLogger(o.logger))
	o.detector = conflict.NewDetector(o.cfg.Conflict,
		conflict.WithEngine(o.engine), conflict.WithLogger(o.logger))
	o.retrier = retry.NewCoordinator(o.cfg.Retry, retry.WithLogger(o.logger))
	return o, nil
}

// OrchestrateSync runs the pipeline once. The first failing stage aborts the
// run; later stages are never attempted.
func (o *Orchestrator) OrchestrateSync(ctx context.Context, source, target []record.Record, opts *SyncOptions) *Result {
	start := time.Now()
	res := &Result{RunID: uuid.NewString(), Warnings: []string{}}
	logger := logging.NewFrom(o.logger).WithRun(res.RunID)

	ctx, span := startSpan(ctx, o.tracer, "readsync.OrchestrateSync",
		AttrRunID.String(res.RunID),
		AttrSourceCount.Int(len(source)),
		AttrTargetCount.Int(len(target)))
	defer span.End()

	defer func() {
		res.ProcessingTime = time.Since(start)
		o.finish(ctx, logger, res, len(source)+len(target))
		if res.Err != nil {
			recordError(span, res.Err)
		}
		span.SetAttributes(AttrSynchronized.Int(res.Synchronized), AttrRetryCount.Int(res.RetryCount))
	}()

	// VALIDATION
	mode, err := o.validate(source, target, opts)
	if err != nil {
		o.fail(res, err)
		return res
	}
	if len(source) == 0 {
		res.Warnings = append(res.Warnings, "source data set is empty")
	}
	if len(target) == 0 {
		res.Warnings = append(res.Warnings, "target data set is empty")
	}

	// COMPARISON
	var diff *compare.DiffResult
	err = logger.LogOperation(ctx, logging.Operation(syncErrors.OpCompare), func() (err error) {
		diff, err = o.compareStage(ctx, source, target)
		return err
	})
	if err != nil {
		o.fail(res, syncErrors.WrapStage(err, syncErrors.StageComparison, syncErrors.OpCompare, syncErrors.ErrCodeComparison))
		return res
	}
	res.Diff = diff.Summary

	// CONFLICT_DETECTION
	var report *conflict.Report
	var resolution *ConflictResolution
	err = logger.LogOperation(ctx, logging.Operation(syncErrors.OpDetect), func() (err error) {
		report, resolution, err = o.conflictStage(ctx, source, target, diff)
		return err
	})
	if err != nil {
		o.fail(res, syncErrors.WrapStage(err, syncErrors.StageConflictDetection, syncErrors.OpDetect, syncErrors.ErrCodeConflict))
		return res
	}
	res.Conflicts = report.ConflictCount()
	res.ConflictSeverity = report.Severity
	if resolution != nil {
		res.ConflictsResolved = resolution.Resolved
		if resolution.Unresolved > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%d conflicts left unresolved", resolution.Unresolved))
		}
	} else if report.HasConflicts {
		res.Warnings = append(res.Warnings, "conflicts detected but no conflict handler is configured")
	}

	res.Strategy = o.selectStrategy(diff, report)
	span.SetAttributes(AttrStrategy.String(string(res.Strategy)), AttrChangeCount.Int(diff.ChangeCount()))

	// SYNC
	tuning := o.Tuning()
	syncOpts := &SyncOptions{
		Mode:              string(mode),
		Strategy:          res.Strategy,
		BatchSize:         tuning.BatchSize,
		Parallel:          tuning.Parallel,
		ConflictDetection: tuning.ConflictDetection,
		Diff:              diff,
		Conflicts:         report,
		Resolution:        resolution,
		RunID:             res.RunID,
	}
	var syncRes *CoordinatorResult
	err = logger.LogOperation(ctx, logging.Operation(syncErrors.OpSync), func() (err error) {
		syncRes, res.RetryCount, err = o.syncStage(ctx, logger, source, target, syncOpts)
		return err
	})
	if err != nil {
		o.fail(res, syncErrors.WrapStage(err, syncErrors.StageSync, syncErrors.OpSync, syncErrors.ErrCodeSync))
		return res
	}

	res.Success = true
	res.Synchronized = syncRes.Synced
	for _, w := range syncRes.Warnings {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	for _, s := range syncRes.Skipped {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %d", s.Reason, s.Count))
	}
	return res
}

func (o *Orchestrator) validate(source, target []record.Record, opts *SyncOptions) (strategy.Mode, error) {
	switch {
	case source == nil:
		return "", syncErrors.NewInvalidInput(syncErrors.OpValidate, errors.New("source data set must not be nil"))
	case target == nil:
		return "", syncErrors.NewInvalidInput(syncErrors.OpValidate, errors.New("target data set must not be nil"))
	case opts == nil:
		return "", syncErrors.NewInvalidInput(syncErrors.OpValidate, errors.New("sync options are required"))
	}
	if opts.Mode == "" {
		return strategy.Merge, nil
	}
	mode, err := strategy.ParseMode(opts.Mode)
	if err != nil {
		return "", syncErrors.NewInvalidInput(syncErrors.OpValidate, err)
	}
	return mode, nil
}

func (o *Orchestrator) compareStage(ctx context.Context, source, target []record.Record) (*compare.DiffResult, error) {
	ctx, span := startSpan(ctx, o.tracer, "readsync.compare", AttrStage.String(string(syncErrors.StageComparison)))
	defer span.End()

	diff, err := o.engine.CalculateDifferences(ctx, source, target)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(AttrChangeCount.Int(diff.ChangeCount()))
	return diff, nil
}

func (o *Orchestrator) conflictStage(ctx context.Context, source, target []record.Record, diff *compare.DiffResult) (*conflict.Report, *ConflictResolution, error) {
	ctx, span := startSpan(ctx, o.tracer, "readsync.detect_conflicts", AttrStage.String(string(syncErrors.StageConflictDetection)))
	defer span.End()

	report, err := o.detector.DetectConflicts(ctx, source, target, diff)
	if err != nil {
		recordError(span, err)
		return nil, nil, err
	}
	span.SetAttributes(AttrConflicts.Int(report.ConflictCount()))

	if !report.HasConflicts || o.handler == nil {
		return report, nil, nil
	}

	resolution, err := o.handler.HandleConflicts(ctx, report)
	if err != nil {
		recordError(span, err)
		return nil, nil, err
	}
	if resolution == nil {
		resolution = &ConflictResolution{Success: true}
	}
	o.metrics.RecordConflicts(ctx, resolution.Resolved)
	return report, resolution, nil
}

// selectStrategy picks BATCH_SYNC for large or conflicting change sets.
func (o *Orchestrator) selectStrategy(diff *compare.DiffResult, report *conflict.Report) SyncStrategy {
	if diff.ChangeCount() > o.cfg.BatchThreshold || report.HasConflicts {
		return BatchSync
	}
	return StandardSync
}

// syncStage delegates to the coordinator, retrying failures through the
// retry coordinator. It returns the number of retries used.
func (o *Orchestrator) syncStage(ctx context.Context, logger *logging.Logger, source, target []record.Record, opts *SyncOptions) (*CoordinatorResult, int, error) {
	ctx, span := startSpan(ctx, o.tracer, "readsync.sync",
		AttrStage.String(string(syncErrors.StageSync)),
		AttrStrategy.String(string(opts.Strategy)))
	defer span.End()

	attempt := func(ctx context.Context) (*CoordinatorResult, error) {
		res, err := o.coordinator.SyncData(ctx, source, target, opts)
		if err != nil {
			return nil, err
		}
		if res == nil || !res.Success {
			return nil, syncErrors.NewRetryable(syncErrors.OpSync, errors.New("sync coordinator reported an unsuccessful write"))
		}
		return res, nil
	}

	res, err := attempt(ctx)
	if err == nil {
		return res, 0, nil
	}

	job := retry.NewJob(err, map[string]any{"run_id": opts.RunID, "strategy": string(opts.Strategy)})
	logger.WarnContext(ctx, "sync attempt failed, retrying",
		slog.String("job_id", job.ID),
		slog.Any("error", err))

	_, err = o.retrier.Run(ctx, job, func(ctx context.Context, _ *retry.Job) error {
		r, err := attempt(ctx)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		recordError(span, err)
		return nil, job.RetryCount, err
	}
	return res, job.RetryCount, nil
}

func (o *Orchestrator) fail(res *Result, err error) {
	res.Success = false
	res.Err = err
	res.Stage = syncErrors.StageOf(err)
}

// finish records statistics, history and metrics for a completed run.
func (o *Orchestrator) finish(ctx context.Context, logger *logging.Logger, res *Result, items int) {
	o.mu.Lock()
	o.stats.record(res)
	if res.Success {
		o.history = append(o.history, RunSample{Items: items, Duration: res.ProcessingTime})
		if over := len(o.history) - o.cfg.HistorySize; over > 0 {
			o.history = append([]RunSample(nil), o.history[over:]...)
		}
	}
	o.mu.Unlock()

	o.metrics.RecordSyncDuration(ctx, string(res.Strategy), res.ProcessingTime, res.Success)
	if res.RetryCount > 0 {
		o.metrics.RecordRetries(ctx, res.RetryCount)
	}

	if !res.Success {
		o.metrics.RecordSyncErrors(ctx, string(res.Stage), string(syncErrors.CodeOf(res.Err)))
		logger.LogError(ctx, res.Err, "synchronization failed",
			slog.String("stage", string(res.Stage)),
			slog.Duration("duration", res.ProcessingTime))
		return
	}

	o.metrics.RecordSyncItems(ctx, res.Synchronized, res.Conflicts)
	logger.InfoContext(ctx, "synchronization completed",
		slog.String("strategy", string(res.Strategy)),
		slog.Int("synchronized", res.Synchronized),
		slog.Int("conflicts", res.Conflicts),
		slog.Int("resolved", res.ConflictsResolved),
		slog.Int("retries", res.RetryCount),
		slog.Duration("duration", res.ProcessingTime))
}

// HealthCheck runs the coordinator's integrity check and returns its
// statistics.
func (o *Orchestrator) HealthCheck(ctx context.Context) (map[string]any, error) {
	ctx, span := startSpan(ctx, o.tracer, "readsync.health_check")
	defer span.End()

	if err := o.coordinator.ValidateDataIntegrity(ctx); err != nil {
		recordError(span, err)
		return nil, syncErrors.NewWithComponent(syncErrors.OpValidate, "orchestrator", err)
	}
	stats, err := o.coordinator.GetStatistics(ctx)
	if err != nil {
		recordError(span, err)
		return nil, syncErrors.NewWithComponent(syncErrors.OpLoad, "orchestrator", err)
	}
	return stats, nil
}

// Engine exposes the comparison engine for callers that pre-filter records.
func (o *Orchestrator) Engine() *compare.Engine {
	return o.engine
}
