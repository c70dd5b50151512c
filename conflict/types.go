// Package conflict classifies field-level differences between matched
// records into typed, prioritized conflicts.
package conflict

import (
	"fmt"
	"time"
)

// Type is the closed set of conflict variants.
type Type string

const (
	ProgressMismatch   Type = "PROGRESS_MISMATCH"
	TitleDivergence    Type = "TITLE_DIVERGENCE"
	TimestampConflict  Type = "TIMESTAMP_CONFLICT"
	ValueInconsistency Type = "VALUE_INCONSISTENCY"
	CompositeConflict  Type = "COMPOSITE_CONFLICT"
)

// Severity is ordered: a larger value is more severe.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"NONE", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (s Severity) String() string {
	if s < SeverityNone || s > SeverityCritical {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Strategy is a recommended way of resolving a conflict.
type Strategy string

const (
	UseHigherProgress   Strategy = "USE_HIGHER_PROGRESS"
	UseLatestTimestamp  Strategy = "USE_LATEST_TIMESTAMP"
	ManualReview        Strategy = "MANUAL_REVIEW"
	ResolveSequentially Strategy = "RESOLVE_SEQUENTIALLY"
	BatchResolution     Strategy = "BATCH_RESOLUTION"
)

// Priorities order conflicts within an item; higher is handled first.
const (
	PriorityTitle     = 300
	PriorityProgress  = 200
	PriorityTimestamp = 100
	PriorityValue     = 50
)

// Conflict is one detected disagreement on a record. SubConflicts and
// Truncated are only set on COMPOSITE_CONFLICT.
type Conflict struct {
	Type                 Type       `json:"type"`
	RecordID             string     `json:"recordId"`
	Field                string     `json:"field,omitempty"`
	Severity             Severity   `json:"severity"`
	Priority             int        `json:"priority"`
	AutoResolvable       bool       `json:"autoResolvable"`
	Strategy             Strategy   `json:"strategy"`
	Source               any        `json:"source,omitempty"`
	Target               any        `json:"target,omitempty"`
	Difference           float64    `json:"difference,omitempty"`
	Similarity           float64    `json:"similarity,omitempty"`
	Message              string     `json:"message"`
	SubConflicts         []Conflict `json:"subConflicts,omitempty"`
	Truncated            int        `json:"truncated,omitempty"`
	ResolutionComplexity string     `json:"resolutionComplexity,omitempty"`
}

// ItemConflicts groups the conflicts found on one record.
type ItemConflicts struct {
	RecordID  string     `json:"recordId"`
	Conflicts []Conflict `json:"conflicts"`
	Severity  Severity   `json:"severity"`
}

// Recommendation describes how a conflict, or a whole batch of them, should
// be resolved.
type Recommendation struct {
	RecordID       string        `json:"recordId,omitempty"`
	ConflictType   Type          `json:"conflictType,omitempty"`
	Strategy       Strategy      `json:"strategy"`
	AutoResolvable bool          `json:"autoResolvable"`
	Confidence     float64       `json:"confidence"`
	EstimatedTime  time.Duration `json:"estimatedTime"`
	Description    string        `json:"description"`
}

// Report is the outcome of one detection run.
type Report struct {
	HasConflicts    bool             `json:"hasConflicts"`
	Items           []ItemConflicts  `json:"items"`
	Severity        Severity         `json:"severity"`
	Recommendations []Recommendation `json:"recommendations"`
	AutoResolvable  bool             `json:"autoResolvable"`
}

// ConflictCount is the number of top-level conflicts across all items.
// A composite counts once.
func (r *Report) ConflictCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, item := range r.Items {
		n += len(item.Conflicts)
	}
	return n
}

// Stats is a snapshot of a Detector's counters.
type Stats struct {
	Detections     int64          `json:"detections"`
	ItemsInspected int64          `json:"itemsInspected"`
	Conflicts      int64          `json:"conflicts"`
	Composites     int64          `json:"composites"`
	ByType         map[Type]int64 `json:"byType"`
}

// AggregateSeverity returns the highest severity in conflicts, or NONE.
func AggregateSeverity(conflicts []Conflict) Severity {
	highest := SeverityNone
	for _, c := range conflicts {
		if c.Severity > highest {
			highest = c.Severity
		}
	}
	return highest
}
