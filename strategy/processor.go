package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
)

// Config tunes batch application.
type Config struct {
	BatchSize       int
	Concurrency     int
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       100,
		Concurrency:     1,
		MaxTries:        DefaultBatchTries,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// Processor applies change sets through an Applier.
type Processor struct {
	applier Applier
	logger  *slog.Logger
	cfg     Config

	mu   sync.Mutex
	runs map[Mode]int64

	applied        atomic.Int64
	skipped        atomic.Int64
	batchesRetried atomic.Int64
	failures       atomic.Int64
}

// NewProcessor builds a processor writing through applier.
func NewProcessor(applier Applier, cfg Config, opts ...Option) *Processor {
	p := &Processor{applier: applier, cfg: withDefaults(cfg), runs: make(map[Mode]int64)}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.ComponentLogger(p.logger, "strategy")
	return p
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = def.MaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	return cfg
}

// Config returns the configuration the processor was built with.
func (p *Processor) Config() Config {
	return p.cfg
}

// Tuning overrides batch size and concurrency for one Process call. Zero
// fields keep the configured values.
type Tuning struct {
	BatchSize   int
	Concurrency int
}

func (p *Processor) tuned(t Tuning) Config {
	cfg := p.cfg
	if t.BatchSize > 0 {
		cfg.BatchSize = t.BatchSize
	}
	if t.Concurrency > 0 {
		cfg.Concurrency = t.Concurrency
	}
	return cfg
}

func (p *Processor) batchOptions(cfg Config) BatchOptions {
	return BatchOptions{
		Concurrency:     cfg.Concurrency,
		MaxTries:        cfg.MaxTries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Logger:          p.logger,
		OnRetry: func(string, error, time.Duration) {
			p.batchesRetried.Add(1)
		},
	}
}

// Process applies changes under the strategy called name. An unknown name
// fails before any write is attempted. A failed batch stops the run; the
// counts applied so far are kept in the returned Result.
func (p *Processor) Process(ctx context.Context, name string, changes ChangeSet) (*Result, error) {
	return p.ProcessTuned(ctx, name, changes, Tuning{})
}

// ProcessTuned is Process with per-call batch settings. Concurrent calls
// never see each other's tuning.
func (p *Processor) ProcessTuned(ctx context.Context, name string, changes ChangeSet, t Tuning) (*Result, error) {
	mode, err := ParseMode(name)
	if err != nil {
		p.failures.Add(1)
		return nil, err
	}
	if p.applier == nil {
		p.failures.Add(1)
		return nil, syncErrors.NewInvalidInput(syncErrors.OpApply, errors.New("no applier configured"))
	}

	p.mu.Lock()
	p.runs[mode]++
	p.mu.Unlock()

	cfg := p.tuned(t)
	res := &Result{Mode: mode, Skipped: []Skip{}, Warnings: []Warning{}}
	switch mode {
	case Merge:
		err = p.applyAll(ctx, cfg, changes, res)
	case Overwrite:
		res.Warnings = append(res.Warnings, Warning{
			Code:    DataLossWarning,
			Message: fmt.Sprintf("overwrite applies %d changes unconditionally; target-only data may be lost", changes.Len()),
		})
		err = p.applyAll(ctx, cfg, changes, res)
	case Append:
		err = p.applyAppend(ctx, cfg, changes, res)
	}

	p.applied.Add(int64(res.Total()))
	if err != nil {
		p.failures.Add(1)
		res.Errors = append(res.Errors, err)
		p.logger.ErrorContext(ctx, "strategy failed",
			slog.String("mode", string(mode)),
			slog.Int("applied", res.Total()),
			slog.Any("error", err))
		return res, err
	}

	p.logger.DebugContext(ctx, "strategy applied",
		slog.String("mode", string(mode)),
		slog.Int("added", res.Applied.Added),
		slog.Int("modified", res.Applied.Modified),
		slog.Int("deleted", res.Applied.Deleted),
		slog.Int("skips", len(res.Skipped)),
		slog.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (p *Processor) applyAll(ctx context.Context, cfg Config, changes ChangeSet, res *Result) error {
	opts := p.batchOptions(cfg)
	size := cfg.BatchSize

	n, err := ProcessBatchChanges(ctx, "added", p.applier.ApplyAdded, changes.Added, size, opts)
	res.Applied.Added = n
	if err != nil {
		return err
	}
	n, err = ProcessBatchChanges(ctx, "modified", p.applier.ApplyModified, changes.Modified, size, opts)
	res.Applied.Modified = n
	if err != nil {
		return err
	}
	n, err = ProcessBatchChanges(ctx, "deleted", p.applier.ApplyDeleted, changes.Deleted, size, opts)
	res.Applied.Deleted = n
	return err
}

func (p *Processor) applyAppend(ctx context.Context, cfg Config, changes ChangeSet, res *Result) error {
	if n := len(changes.Modified); n > 0 {
		res.Skipped = append(res.Skipped, Skip{Reason: ModificationsSkipped, Count: n})
		p.skipped.Add(int64(n))
	}
	if n := len(changes.Deleted); n > 0 {
		res.Skipped = append(res.Skipped, Skip{Reason: DeletionsSkipped, Count: n})
		p.skipped.Add(int64(n))
	}

	n, err := ProcessBatchChanges(ctx, "added", p.applier.ApplyAdded, changes.Added, cfg.BatchSize, p.batchOptions(cfg))
	res.Applied.Added = n
	return err
}

// Stats returns a snapshot of the processor's counters.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	runs := make(map[Mode]int64, len(p.runs))
	for k, v := range p.runs {
		runs[k] = v
	}
	p.mu.Unlock()

	return Stats{
		Runs:           runs,
		ItemsApplied:   p.applied.Load(),
		ItemsSkipped:   p.skipped.Load(),
		BatchesRetried: p.batchesRetried.Load(),
		Failures:       p.failures.Load(),
	}
}
