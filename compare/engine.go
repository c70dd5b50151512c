package compare

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
)

// Config controls field rules, batching and severity thresholds.
type Config struct {
	Rules Rules

	// BatchSize bounds how many source records are diffed per batch.
	BatchSize int

	// Concurrency is the number of batches diffed at once. Values below 2
	// run batches sequentially.
	Concurrency int

	ProgressHighDelta        float64
	ProgressMediumDelta      float64
	TitleSimilarityThreshold float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Rules:                    DefaultRules(),
		BatchSize:                500,
		Concurrency:              1,
		ProgressHighDelta:        50,
		ProgressMediumDelta:      20,
		TitleSimilarityThreshold: 0.8,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Engine computes DiffResults. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	fields []string
	logger *slog.Logger
	log    *logging.Logger

	comparisons     atomic.Int64
	recordsCompared atomic.Int64
	added           atomic.Int64
	modified        atomic.Int64
	deleted         atomic.Int64
	unchanged       atomic.Int64
	skipped         atomic.Int64
}

// NewEngine builds an engine. Zero-valued config fields take their defaults.
func NewEngine(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Rules == nil {
		cfg.Rules = def.Rules
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.ProgressHighDelta <= 0 {
		cfg.ProgressHighDelta = def.ProgressHighDelta
	}
	if cfg.ProgressMediumDelta <= 0 {
		cfg.ProgressMediumDelta = def.ProgressMediumDelta
	}
	if cfg.TitleSimilarityThreshold <= 0 {
		cfg.TitleSimilarityThreshold = def.TitleSimilarityThreshold
	}

	e := &Engine{cfg: cfg, fields: cfg.Rules.fields()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.ComponentLogger(e.logger, "compare")
	e.log = logging.NewFrom(e.logger)
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

type batchResult struct {
	added     []record.Record
	modified  []ModifiedRecord
	unchanged []record.Record
}

// CalculateDifferences diffs source against target by record id. Records
// without an id are skipped, and for duplicate ids the first record wins.
func (e *Engine) CalculateDifferences(ctx context.Context, source, target []record.Record) (*DiffResult, error) {
	skipped := 0

	targetByID := make(map[string]record.Record, len(target))
	targetOrder := make([]string, 0, len(target))
	for _, r := range target {
		if !r.HasID() {
			skipped++
			continue
		}
		if _, dup := targetByID[r.ID]; dup {
			skipped++
			continue
		}
		targetByID[r.ID] = r
		targetOrder = append(targetOrder, r.ID)
	}

	seen := make(map[string]struct{}, len(source))
	unique := make([]record.Record, 0, len(source))
	for _, r := range source {
		if !r.HasID() {
			skipped++
			continue
		}
		if _, dup := seen[r.ID]; dup {
			skipped++
			continue
		}
		seen[r.ID] = struct{}{}
		unique = append(unique, r)
	}

	batches := chunk(unique, e.cfg.BatchSize)
	results := make([]batchResult, len(batches))

	if e.cfg.Concurrency > 1 && len(batches) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Concurrency)
		for i, batch := range batches {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.diffBatch(gctx, batch, targetByID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, e.fail(err)
		}
	} else {
		for i, batch := range batches {
			if err := ctx.Err(); err != nil {
				return nil, e.fail(err)
			}
			results[i] = e.diffBatch(ctx, batch, targetByID)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, e.fail(err)
	}

	diff := &DiffResult{
		Added:     []record.Record{},
		Modified:  []ModifiedRecord{},
		Deleted:   []record.Record{},
		Unchanged: []record.Record{},
	}
	for _, res := range results {
		diff.Added = append(diff.Added, res.added...)
		diff.Modified = append(diff.Modified, res.modified...)
		diff.Unchanged = append(diff.Unchanged, res.unchanged...)
	}
	for _, id := range targetOrder {
		if _, matched := seen[id]; !matched {
			diff.Deleted = append(diff.Deleted, targetByID[id])
		}
	}

	diff.Summary = Summary{
		Added:     len(diff.Added),
		Modified:  len(diff.Modified),
		Deleted:   len(diff.Deleted),
		Unchanged: len(diff.Unchanged),
		Skipped:   skipped,
	}
	diff.Summary.Total = diff.Summary.Added + diff.Summary.Modified + diff.Summary.Deleted + diff.Summary.Unchanged

	e.comparisons.Add(1)
	e.recordsCompared.Add(int64(len(unique)))
	e.added.Add(int64(diff.Summary.Added))
	e.modified.Add(int64(diff.Summary.Modified))
	e.deleted.Add(int64(diff.Summary.Deleted))
	e.unchanged.Add(int64(diff.Summary.Unchanged))
	e.skipped.Add(int64(skipped))

	e.logger.DebugContext(ctx, "differences calculated",
		slog.Int("added", diff.Summary.Added),
		slog.Int("modified", diff.Summary.Modified),
		slog.Int("deleted", diff.Summary.Deleted),
		slog.Int("unchanged", diff.Summary.Unchanged),
		slog.Int("skipped", skipped),
		slog.Int("batches", len(batches)))

	return diff, nil
}

func (e *Engine) fail(err error) error {
	return syncErrors.E(syncErrors.OpCompare, syncErrors.Component("compare"),
		syncErrors.ErrCodeComparison, syncErrors.KindInternal, err)
}

func (e *Engine) diffBatch(ctx context.Context, batch []record.Record, targetByID map[string]record.Record) batchResult {
	var res batchResult
	trace := e.logger.Enabled(ctx, slog.Level(logging.LevelTrace))
	for _, src := range batch {
		tgt, ok := targetByID[src.ID]
		if !ok {
			res.added = append(res.added, src)
			continue
		}
		changes := e.CompareRecords(src, tgt)
		if len(changes) == 0 {
			res.unchanged = append(res.unchanged, src)
			continue
		}
		res.modified = append(res.modified, ModifiedRecord{
			ID:           src.ID,
			Source:       src,
			Target:       tgt,
			FieldChanges: changes,
		})
		if trace {
			for _, fc := range changes {
				e.log.Trace(ctx, "field changed",
					slog.String("record_id", src.ID),
					slog.String("field", fc.Field),
					slog.String("change", string(fc.ChangeType)),
					slog.String("severity", string(fc.Severity)))
			}
		}
	}
	return res
}

// CompareRecords returns one FieldChange per configured field that differs
// between a and b, in field-name order.
func (e *Engine) CompareRecords(a, b record.Record) []FieldChange {
	var changes []FieldChange
	for _, name := range e.fields {
		rule := e.cfg.Rules[name]
		sv, sok := a.Field(name)
		tv, tok := b.Field(name)
		ct, differs := rule.diff(sv, sok, tv, tok)
		if !differs {
			continue
		}
		changes = append(changes, FieldChange{
			Field:      name,
			Source:     sv,
			Target:     tv,
			ChangeType: ct,
			Severity:   e.severity(name, rule, ct, sv, tv),
		})
	}
	return changes
}

// HasChanges reports whether a and b differ in any configured field. It
// stops at the first difference.
func (e *Engine) HasChanges(a, b record.Record) bool {
	for _, name := range e.fields {
		sv, sok := a.Field(name)
		tv, tok := b.Field(name)
		if _, differs := e.cfg.Rules[name].diff(sv, sok, tv, tok); differs {
			return true
		}
	}
	return false
}

func (e *Engine) severity(name string, rule Rule, ct ChangeType, sv, tv any) Severity {
	switch ct {
	case TypeChanged:
		return SeverityHigh
	case Added, Removed:
		return SeverityMedium
	}

	switch {
	case name == record.FieldProgress:
		a, _ := toFloat(sv)
		b, _ := toFloat(tv)
		return e.ProgressSeverity(math.Abs(a - b))
	case name == record.FieldTitle:
		a, _ := sv.(string)
		b, _ := tv.(string)
		if Similarity(a, b) < e.cfg.TitleSimilarityThreshold {
			return SeverityHigh
		}
		return SeverityLow
	case rule.Kind == KindTime:
		return SeverityLow
	}
	return SeverityMedium
}

// ProgressSeverity grades an absolute progress gap.
func (e *Engine) ProgressSeverity(gap float64) Severity {
	switch {
	case gap >= e.cfg.ProgressHighDelta:
		return SeverityHigh
	case gap >= e.cfg.ProgressMediumDelta:
		return SeverityMedium
	}
	return SeverityLow
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Comparisons:     e.comparisons.Load(),
		RecordsCompared: e.recordsCompared.Load(),
		Added:           e.added.Load(),
		Modified:        e.modified.Load(),
		Deleted:         e.deleted.Load(),
		Unchanged:       e.unchanged.Load(),
		Skipped:         e.skipped.Load(),
	}
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
