// Package strategy applies an agreed change set to a target under the
// MERGE, OVERWRITE or APPEND policy.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/c0deZ3R0/readsync/compare"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/record"
)

// Mode selects which changes are written.
type Mode string

const (
	Merge     Mode = "MERGE"
	Overwrite Mode = "OVERWRITE"
	Append    Mode = "APPEND"
)

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case Merge, Overwrite, Append:
		return m, nil
	}
	return "", syncErrors.NewInvalidInput(syncErrors.OpApply, fmt.Errorf("unsupported strategy %q", s))
}

// Applier writes changes to a target. Implementations must be safe for
// concurrent calls when batch concurrency is enabled.
type Applier interface {
	ApplyAdded(ctx context.Context, records []record.Record) error
	ApplyModified(ctx context.Context, changes []compare.ModifiedRecord) error
	ApplyDeleted(ctx context.Context, records []record.Record) error
}

// ChangeSet is the work handed to a strategy.
type ChangeSet struct {
	Added    []record.Record
	Modified []compare.ModifiedRecord
	Deleted  []record.Record
}

// ChangeSetFromDiff extracts the writable buckets of diff.
func ChangeSetFromDiff(diff *compare.DiffResult) ChangeSet {
	if diff == nil {
		return ChangeSet{}
	}
	return ChangeSet{Added: diff.Added, Modified: diff.Modified, Deleted: diff.Deleted}
}

// Len is the number of changes in the set.
func (c ChangeSet) Len() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

// Applied counts written changes per bucket.
type Applied struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`
}

// SkipReason explains why a bucket was left untouched.
type SkipReason string

const (
	ModificationsSkipped SkipReason = "MODIFICATIONS_SKIPPED"
	DeletionsSkipped     SkipReason = "DELETIONS_SKIPPED"
)

// Skip records a bucket that was not applied.
type Skip struct {
	Reason SkipReason `json:"reason"`
	Count  int        `json:"count"`
}

// WarningCode identifies an informational condition.
type WarningCode string

// DataLossWarning is emitted by every OVERWRITE run.
const DataLossWarning WarningCode = "DATA_LOSS_WARNING"

// Warning is informational and never fails a run.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// Result is the outcome of one Process call.
type Result struct {
	Mode     Mode      `json:"mode"`
	Applied  Applied   `json:"applied"`
	Skipped  []Skip    `json:"skipped"`
	Warnings []Warning `json:"warnings"`
	Errors   []error   `json:"-"`
}

// Total is the number of changes written.
func (r *Result) Total() int {
	return r.Applied.Added + r.Applied.Modified + r.Applied.Deleted
}

// HasWarning reports whether a warning with code was emitted.
func (r *Result) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Stats is a snapshot of a Processor's counters.
type Stats struct {
	Runs           map[Mode]int64 `json:"runs"`
	ItemsApplied   int64          `json:"itemsApplied"`
	ItemsSkipped   int64          `json:"itemsSkipped"`
	BatchesRetried int64          `json:"batchesRetried"`
	Failures       int64          `json:"failures"`
}
