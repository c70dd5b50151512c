// Package synckit orchestrates one reconciliation run: it diffs two record
// sets, detects conflicts, picks a synchronization strategy and delegates the
// write to an external coordinator with retries.
package synckit

import (
	"context"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/conflict"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/strategy"
)

// SyncStrategy is chosen by the orchestrator from the change volume.
type SyncStrategy string

const (
	StandardSync SyncStrategy = "STANDARD_SYNC"
	BatchSync    SyncStrategy = "BATCH_SYNC"
)

// Conflict-detection levels produced by OptimizeSyncPerformance.
const (
	DetectionStandard = "standard"
	DetectionEnhanced = "enhanced"
)

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks github.com/c0deZ3R0/readsync/synckit SyncCoordinator,ConflictHandler,MetricsCollector

// SyncCoordinator performs the actual write of an agreed change set.
type SyncCoordinator interface {
	SyncData(ctx context.Context, source, target []record.Record, opts *SyncOptions) (*CoordinatorResult, error)
	ValidateDataIntegrity(ctx context.Context) error
	GetStatistics(ctx context.Context) (map[string]any, error)
}

// ConflictHandler applies conflict-resolution decisions.
type ConflictHandler interface {
	HandleConflicts(ctx context.Context, report *conflict.Report) (*ConflictResolution, error)
}

// SyncOptions is supplied by the caller and completed by the orchestrator
// before it reaches the coordinator.
type SyncOptions struct {
	// Mode is the strategy.Mode name used to apply changes. Empty means MERGE.
	Mode string

	// Set by the orchestrator.
	Strategy          SyncStrategy
	BatchSize         int
	Parallel          bool
	ConflictDetection string
	Diff              *compare.DiffResult
	Conflicts         *conflict.Report
	Resolution        *ConflictResolution
	RunID             string
}

// CoordinatorResult is what a SyncCoordinator reports for one write.
type CoordinatorResult struct {
	Success   bool
	Synced    int
	Conflicts int
	Applied   strategy.Applied
	Skipped   []strategy.Skip
	Warnings  []strategy.Warning
}

// ConflictResolution is what a ConflictHandler reports. Values lists every
// field the handler settled, so the SYNC stage writes the settled value
// instead of the source side.
type ConflictResolution struct {
	Success    bool
	Resolved   int
	Unresolved int
	Values     []ResolvedValue
}

// ResolvedValue is the value a handler kept for one field of one record.
type ResolvedValue struct {
	RecordID string
	Field    string
	Value    any
}
