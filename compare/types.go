// Package compare computes field-level differences between two record sets.
package compare

import (
	"github.com/c0deZ3R0/readsync/record"
)

// ChangeType describes how a single field differs between two records.
type ChangeType string

const (
	ValueChanged ChangeType = "VALUE_CHANGED"
	Added        ChangeType = "ADDED"
	Removed      ChangeType = "REMOVED"
	TypeChanged  ChangeType = "TYPE_CHANGED"
)

// Severity grades a field change.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// FieldChange is one differing field of a modified record pair.
type FieldChange struct {
	Field      string     `json:"field"`
	Source     any        `json:"source"`
	Target     any        `json:"target"`
	ChangeType ChangeType `json:"changeType"`
	Severity   Severity   `json:"severity"`
}

// ModifiedRecord pairs a source record with the target record sharing its id.
type ModifiedRecord struct {
	ID           string        `json:"id"`
	Source       record.Record `json:"source"`
	Target       record.Record `json:"target"`
	FieldChanges []FieldChange `json:"fieldChanges"`
}

// Change returns the change recorded for field, if any.
func (m ModifiedRecord) Change(field string) (FieldChange, bool) {
	for _, fc := range m.FieldChanges {
		if fc.Field == field {
			return fc, true
		}
	}
	return FieldChange{}, false
}

// Summary holds bucket counts. Skipped counts records ignored for a missing
// or duplicate id and is not part of Total.
type Summary struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
	Skipped   int `json:"skipped"`
}

// DiffResult partitions the ids of source and target into four disjoint buckets.
type DiffResult struct {
	Added     []record.Record  `json:"added"`
	Modified  []ModifiedRecord `json:"modified"`
	Deleted   []record.Record  `json:"deleted"`
	Unchanged []record.Record  `json:"unchanged"`
	Summary   Summary          `json:"summary"`
}

// ChangeCount is the number of records that would be written to the target.
func (d *DiffResult) ChangeCount() int {
	if d == nil {
		return 0
	}
	return len(d.Added) + len(d.Modified) + len(d.Deleted)
}

// HasChanges reports whether any record was added, modified or deleted.
func (d *DiffResult) HasChanges() bool {
	return d.ChangeCount() > 0
}

// Stats is a snapshot of an Engine's running counters.
type Stats struct {
	Comparisons     int64 `json:"comparisons"`
	RecordsCompared int64 `json:"recordsCompared"`
	Added           int64 `json:"added"`
	Modified        int64 `json:"modified"`
	Deleted         int64 `json:"deleted"`
	Unchanged       int64 `json:"unchanged"`
	Skipped         int64 `json:"skipped"`
}
