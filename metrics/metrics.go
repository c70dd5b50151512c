// Package metrics records orchestration metrics with OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/c0deZ3R0/readsync/synckit"
)

// MeterName is the instrumentation scope of every readsync instrument.
const MeterName = "github.com/c0deZ3R0/readsync/synckit"

var _ synckit.MetricsCollector = (*Collector)(nil)

// Collector implements synckit.MetricsCollector. A nil *Collector is valid
// and records nothing.
type Collector struct {
	syncDuration metric.Float64Histogram
	synced       metric.Int64Counter
	conflicts    metric.Int64Counter
	resolved     metric.Int64Counter
	syncErrors   metric.Int64Counter
	retries      metric.Int64Counter
}

// New creates the instruments on provider. If provider is nil, it returns
// nil (no-op metrics).
func New(provider metric.MeterProvider) (*Collector, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(MeterName)

	syncDuration, err := meter.Float64Histogram(
		"readsync_sync_duration_seconds",
		metric.WithDescription("Duration of orchestrated synchronization runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	synced, err := meter.Int64Counter(
		"readsync_records_synchronized_total",
		metric.WithDescription("Number of records written by successful runs"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	conflicts, err := meter.Int64Counter(
		"readsync_conflicts_detected_total",
		metric.WithDescription("Number of conflicts detected by successful runs"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}

	resolved, err := meter.Int64Counter(
		"readsync_conflicts_resolved_total",
		metric.WithDescription("Number of conflicts resolved by the conflict handler"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}

	syncErrors, err := meter.Int64Counter(
		"readsync_sync_errors_total",
		metric.WithDescription("Number of failed runs by stage and error code"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"readsync_sync_retries_total",
		metric.WithDescription("Number of retries used by synchronization runs"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	return &Collector{
		syncDuration: syncDuration,
		synced:       synced,
		conflicts:    conflicts,
		resolved:     resolved,
		syncErrors:   syncErrors,
		retries:      retries,
	}, nil
}

// RecordSyncDuration records the duration of one run.
func (c *Collector) RecordSyncDuration(ctx context.Context, strategy string, duration time.Duration, success bool) {
	if c == nil || c.syncDuration == nil {
		return
	}
	c.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("success", success),
	))
}

// RecordSyncItems adds the records written and conflicts found by a run.
func (c *Collector) RecordSyncItems(ctx context.Context, synced, conflicts int) {
	if c == nil {
		return
	}
	c.synced.Add(ctx, int64(synced))
	c.conflicts.Add(ctx, int64(conflicts))
}

// RecordSyncErrors counts a failed run.
func (c *Collector) RecordSyncErrors(ctx context.Context, stage string, code string) {
	if c == nil {
		return
	}
	c.syncErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("code", code),
	))
}

// RecordConflicts adds the conflicts resolved by the handler.
func (c *Collector) RecordConflicts(ctx context.Context, resolved int) {
	if c == nil {
		return
	}
	c.resolved.Add(ctx, int64(resolved))
}

// RecordRetries adds the retries a run needed.
func (c *Collector) RecordRetries(ctx context.Context, retries int) {
	if c == nil {
		return
	}
	c.retries.Add(ctx, int64(retries))
}
