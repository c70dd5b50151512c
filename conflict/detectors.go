package conflict

import (
	"fmt"
	"math"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/record"
)

// detectProgress flags a progress gap above the conflict threshold. Small
// gaps heal by taking the higher value, large ones need a human.
func detectProgress(cfg Config, m compare.ModifiedRecord) (Conflict, bool) {
	if _, changed := m.Change(record.FieldProgress); !changed {
		return Conflict{}, false
	}
	gap := math.Abs(m.Source.Progress - m.Target.Progress)
	if gap <= cfg.ProgressConflictThreshold {
		return Conflict{}, false
	}

	c := Conflict{
		Type:       ProgressMismatch,
		RecordID:   m.ID,
		Field:      record.FieldProgress,
		Priority:   PriorityProgress,
		Source:     m.Source.Progress,
		Target:     m.Target.Progress,
		Difference: gap,
	}
	switch {
	case gap <= cfg.ProgressHighGap:
		c.Severity = SeverityMedium
		c.AutoResolvable = true
		c.Strategy = UseHigherProgress
	case gap <= cfg.ProgressCriticalGap:
		c.Severity = SeverityHigh
		c.Strategy = ManualReview
	default:
		c.Severity = SeverityCritical
		c.Strategy = ManualReview
	}
	c.Message = fmt.Sprintf("progress differs by %.1f points (%.1f vs %.1f)", gap, m.Source.Progress, m.Target.Progress)
	return c, true
}

func detectTitle(cfg Config, m compare.ModifiedRecord) (Conflict, bool) {
	if _, changed := m.Change(record.FieldTitle); !changed {
		return Conflict{}, false
	}
	sim := compare.Similarity(m.Source.Title, m.Target.Title)
	if sim >= cfg.TitleSimilarityThreshold {
		return Conflict{}, false
	}
	return Conflict{
		Type:       TitleDivergence,
		RecordID:   m.ID,
		Field:      record.FieldTitle,
		Severity:   SeverityHigh,
		Priority:   PriorityTitle,
		Strategy:   ManualReview,
		Source:     m.Source.Title,
		Target:     m.Target.Title,
		Similarity: sim,
		Message:    fmt.Sprintf("titles diverge (similarity %.2f): %q vs %q", sim, m.Source.Title, m.Target.Title),
	}, true
}

// detectTimestamp flags near-simultaneous edits. Timestamps further apart
// than the window are treated as an ordinary later update.
func detectTimestamp(cfg Config, m compare.ModifiedRecord) (Conflict, bool) {
	if _, changed := m.Change(record.FieldLastUpdated); !changed {
		return Conflict{}, false
	}
	src, tgt := m.Source.LastUpdated, m.Target.LastUpdated
	if src.IsZero() || tgt.IsZero() || src.Equal(tgt) {
		return Conflict{}, false
	}
	gap := src.Sub(tgt)
	if gap < 0 {
		gap = -gap
	}
	if gap > cfg.TimestampConflictWindow {
		return Conflict{}, false
	}
	return Conflict{
		Type:           TimestampConflict,
		RecordID:       m.ID,
		Field:          record.FieldLastUpdated,
		Severity:       SeverityLow,
		Priority:       PriorityTimestamp,
		AutoResolvable: true,
		Strategy:       UseLatestTimestamp,
		Source:         src,
		Target:         tgt,
		Difference:     gap.Seconds(),
		Message:        fmt.Sprintf("updated %s apart on both sides", gap),
	}, true
}

// detectValue covers every other field whose change was graded HIGH.
func detectValue(m compare.ModifiedRecord, fc compare.FieldChange) (Conflict, bool) {
	switch fc.Field {
	case record.FieldProgress, record.FieldTitle, record.FieldLastUpdated:
		return Conflict{}, false
	}
	if fc.Severity != compare.SeverityHigh {
		return Conflict{}, false
	}
	return Conflict{
		Type:     ValueInconsistency,
		RecordID: m.ID,
		Field:    fc.Field,
		Severity: SeverityHigh,
		Priority: PriorityValue,
		Strategy: ManualReview,
		Source:   fc.Source,
		Target:   fc.Target,
		Message:  fmt.Sprintf("field %s is inconsistent (%s)", fc.Field, fc.ChangeType),
	}, true
}

// composite folds conflicts, already sorted by priority, into one
// COMPOSITE_CONFLICT keeping at most maxSubs of them.
func composite(recordID string, conflicts []Conflict, maxSubs int) Conflict {
	subs := conflicts
	truncated := 0
	if len(subs) > maxSubs {
		truncated = len(subs) - maxSubs
		subs = subs[:maxSubs]
	}

	auto := true
	priority := 0
	for _, c := range conflicts {
		auto = auto && c.AutoResolvable
		priority = max(priority, c.Priority)
	}

	c := Conflict{
		Type:                 CompositeConflict,
		RecordID:             recordID,
		Severity:             AggregateSeverity(conflicts),
		Priority:             priority,
		AutoResolvable:       auto,
		Strategy:             ManualReview,
		SubConflicts:         append([]Conflict(nil), subs...),
		Truncated:            truncated,
		ResolutionComplexity: "HIGH",
		Message:              fmt.Sprintf("%d conflicts on one record", len(conflicts)),
	}
	if auto {
		c.Strategy = ResolveSequentially
	}
	return c
}
