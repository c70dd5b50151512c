package conflict

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c0deZ3R0/readsync/compare"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
)

// Config holds detection thresholds.
type Config struct {
	ProgressConflictThreshold float64
	ProgressHighGap           float64
	ProgressCriticalGap       float64
	TitleSimilarityThreshold  float64
	TimestampConflictWindow   time.Duration

	MaxConflictsPerItem      int
	MaxSubConflicts          int
	BatchResolutionThreshold int

	// AutoResolve gates IsAutoResolvable for the whole detector.
	AutoResolve bool

	// Compare configures the engine used when no diff is supplied.
	Compare compare.Config
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		ProgressConflictThreshold: 15,
		ProgressHighGap:           30,
		ProgressCriticalGap:       50,
		TitleSimilarityThreshold:  0.8,
		TimestampConflictWindow:   60 * time.Second,
		MaxConflictsPerItem:       3,
		MaxSubConflicts:           5,
		BatchResolutionThreshold:  7,
		AutoResolve:               true,
		Compare:                   compare.DefaultConfig(),
	}
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// WithEngine reuses an existing comparison engine instead of building one.
func WithEngine(e *compare.Engine) Option {
	return func(d *Detector) {
		d.engine = e
	}
}

// Detector turns a DiffResult into a conflict Report.
type Detector struct {
	cfg    Config
	engine *compare.Engine
	logger *slog.Logger

	detections atomic.Int64
	inspected  atomic.Int64
	conflicts  atomic.Int64
	composites atomic.Int64

	mu     sync.Mutex
	byType map[Type]int64
}

// NewDetector builds a detector. Zero or negative thresholds and limits take
// their DefaultConfig values; AutoResolve is used as given.
func NewDetector(cfg Config, opts ...Option) *Detector {
	d := &Detector{cfg: withDefaults(cfg), byType: make(map[Type]int64)}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.ComponentLogger(d.logger, "conflict")
	if d.engine == nil {
		d.engine = compare.NewEngine(d.cfg.Compare, compare.WithLogger(d.logger))
	}
	return d
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ProgressConflictThreshold <= 0 {
		cfg.ProgressConflictThreshold = def.ProgressConflictThreshold
	}
	if cfg.ProgressHighGap <= 0 {
		cfg.ProgressHighGap = def.ProgressHighGap
	}
	if cfg.ProgressCriticalGap <= 0 {
		cfg.ProgressCriticalGap = def.ProgressCriticalGap
	}
	if cfg.TitleSimilarityThreshold <= 0 {
		cfg.TitleSimilarityThreshold = def.TitleSimilarityThreshold
	}
	if cfg.TimestampConflictWindow <= 0 {
		cfg.TimestampConflictWindow = def.TimestampConflictWindow
	}
	if cfg.MaxConflictsPerItem <= 0 {
		cfg.MaxConflictsPerItem = def.MaxConflictsPerItem
	}
	if cfg.MaxSubConflicts <= 0 {
		cfg.MaxSubConflicts = def.MaxSubConflicts
	}
	if cfg.BatchResolutionThreshold <= 0 {
		cfg.BatchResolutionThreshold = def.BatchResolutionThreshold
	}
	return cfg
}

// DetectConflicts inspects every modified record of diff. When diff is nil
// it is computed from source and target first.
func (d *Detector) DetectConflicts(ctx context.Context, source, target []record.Record, diff *compare.DiffResult) (*Report, error) {
	if diff == nil {
		var err error
		diff, err = d.engine.CalculateDifferences(ctx, source, target)
		if err != nil {
			return nil, syncErrors.E(syncErrors.OpDetect, syncErrors.Component("conflict"),
				syncErrors.ErrCodeConflict, err)
		}
	}

	report := &Report{
		Items:           []ItemConflicts{},
		Recommendations: []Recommendation{},
	}

	for i, m := range diff.Modified {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, syncErrors.E(syncErrors.OpDetect, syncErrors.Component("conflict"),
					syncErrors.ErrCodeConflict, err)
			}
		}
		conflicts := d.detectItem(m)
		if len(conflicts) == 0 {
			continue
		}
		report.Items = append(report.Items, ItemConflicts{
			RecordID:  m.ID,
			Conflicts: conflicts,
			Severity:  AggregateSeverity(conflicts),
		})
		if report.Items[len(report.Items)-1].Severity > report.Severity {
			report.Severity = report.Items[len(report.Items)-1].Severity
		}
	}

	report.HasConflicts = len(report.Items) > 0
	report.Recommendations = d.recommend(report.Items)
	report.AutoResolvable = d.IsAutoResolvable(report)

	d.detections.Add(1)
	d.inspected.Add(int64(len(diff.Modified)))

	d.logger.DebugContext(ctx, "conflicts detected",
		slog.Int("items", len(report.Items)),
		slog.Int("conflicts", report.ConflictCount()),
		slog.String("severity", report.Severity.String()),
		slog.Bool("auto_resolvable", report.AutoResolvable))

	return report, nil
}

// detectItem runs every detector on one record and collapses the result into
// a composite when there are too many conflicts.
func (d *Detector) detectItem(m compare.ModifiedRecord) []Conflict {
	var found []Conflict
	for _, detect := range []func(Config, compare.ModifiedRecord) (Conflict, bool){
		detectTitle, detectProgress, detectTimestamp,
	} {
		if c, ok := detect(d.cfg, m); ok {
			found = append(found, c)
		}
	}
	for _, fc := range m.FieldChanges {
		if c, ok := detectValue(m, fc); ok {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		return nil
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Priority > found[j].Priority
	})

	d.mu.Lock()
	for _, c := range found {
		d.byType[c.Type]++
	}
	d.mu.Unlock()
	d.conflicts.Add(int64(len(found)))

	if len(found) > d.cfg.MaxConflictsPerItem {
		d.composites.Add(1)
		return []Conflict{composite(m.ID, found, d.cfg.MaxSubConflicts)}
	}
	return found
}

// IsAutoResolvable reports whether auto-resolution is enabled and every
// conflict in report can be resolved without a human.
func (d *Detector) IsAutoResolvable(report *Report) bool {
	if !d.cfg.AutoResolve || report == nil {
		return false
	}
	for _, item := range report.Items {
		for _, c := range item.Conflicts {
			if !c.AutoResolvable {
				return false
			}
		}
	}
	return true
}

// Stats returns a snapshot of the detector's counters.
func (d *Detector) Stats() Stats {
	d.mu.Lock()
	byType := make(map[Type]int64, len(d.byType))
	for k, v := range d.byType {
		byType[k] = v
	}
	d.mu.Unlock()

	return Stats{
		Detections:     d.detections.Load(),
		ItemsInspected: d.inspected.Load(),
		Conflicts:      d.conflicts.Load(),
		Composites:     d.composites.Load(),
		ByType:         byType,
	}
}
