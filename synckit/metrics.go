package synckit

import (
	"context"
	"time"
)

// MetricsCollector provides hooks for collecting orchestration metrics
type MetricsCollector interface {
	// RecordSyncDuration records how long a run took
	RecordSyncDuration(ctx context.Context, strategy string, duration time.Duration, success bool)

	// RecordSyncItems records the number of records written and conflicts found
	RecordSyncItems(ctx context.Context, synced, conflicts int)

	// RecordSyncErrors records a failed run by stage and error code
	RecordSyncErrors(ctx context.Context, stage string, code string)

	// RecordConflicts records the number of conflicts resolved by the handler
	RecordConflicts(ctx context.Context, resolved int)

	// RecordRetries records how many retries a run needed
	RecordRetries(ctx context.Context, retries int)
}

// NoOpMetricsCollector is a default implementation that does nothing
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordSyncDuration(context.Context, string, time.Duration, bool) {}
func (n *NoOpMetricsCollector) RecordSyncItems(context.Context, int, int)                      {}
func (n *NoOpMetricsCollector) RecordSyncErrors(context.Context, string, string)               {}
func (n *NoOpMetricsCollector) RecordConflicts(context.Context, int)                           {}
func (n *NoOpMetricsCollector) RecordRetries(context.Context, int)                             {}
