package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/conflict"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/strategy"
	"github.com/c0deZ3R0/readsync/synckit"
)

func progressConflict(id string, source, target float64) conflict.Conflict {
	return conflict.Conflict{
		Type:           conflict.ProgressMismatch,
		RecordID:       id,
		Field:          record.FieldProgress,
		Severity:       conflict.SeverityMedium,
		AutoResolvable: true,
		Strategy:       conflict.UseHigherProgress,
		Source:         source,
		Target:         target,
	}
}

func timestampConflict(id string, source, target time.Time) conflict.Conflict {
	return conflict.Conflict{
		Type:           conflict.TimestampConflict,
		RecordID:       id,
		Field:          record.FieldLastUpdated,
		Severity:       conflict.SeverityLow,
		AutoResolvable: true,
		Strategy:       conflict.UseLatestTimestamp,
		Source:         source,
		Target:         target,
	}
}

func reportOf(conflicts ...conflict.Conflict) *conflict.Report {
	report := &conflict.Report{HasConflicts: len(conflicts) > 0}
	for _, c := range conflicts {
		report.Items = append(report.Items, conflict.ItemConflicts{
			RecordID:  c.RecordID,
			Conflicts: []conflict.Conflict{c},
			Severity:  c.Severity,
		})
	}
	return report
}

func TestStore_HandleConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []record.Record{book("a", 20), book("b", 50), book("c", 10), book("d", 5)}))

	later := updated.Add(90 * time.Second)
	title := conflict.Conflict{
		Type:     conflict.TitleDivergence,
		RecordID: "c",
		Field:    record.FieldTitle,
		Severity: conflict.SeverityHigh,
		Strategy: conflict.ManualReview,
		Source:   "Dune",
		Target:   "Emma",
	}
	composite := conflict.Conflict{
		Type:           conflict.CompositeConflict,
		RecordID:       "d",
		Severity:       conflict.SeverityMedium,
		AutoResolvable: true,
		Strategy:       conflict.ResolveSequentially,
		SubConflicts: []conflict.Conflict{
			progressConflict("d", 35, 5),
			timestampConflict("d", later, updated),
		},
	}

	res, err := store.HandleConflicts(ctx, reportOf(
		progressConflict("a", 35, 20),
		timestampConflict("b", updated, later),
		title,
		composite,
	))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Resolved)
	assert.Equal(t, 1, res.Unresolved)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 35.0, a.Progress)

	b, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, later, b.LastUpdated)
	assert.Equal(t, 50.0, b.Progress)

	c, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, book("c", 10), c, "manual review leaves the row untouched")

	d, err := store.Get(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 35.0, d.Progress)
	assert.Equal(t, later, d.LastUpdated)

	decisions, err := store.Resolutions(ctx, "c")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Resolved)
	assert.Equal(t, conflict.TitleDivergence, decisions[0].ConflictType)
	assert.Equal(t, conflict.ManualReview, decisions[0].Strategy)
	assert.Equal(t, "manual review required", decisions[0].Detail)

	decisions, err = store.Resolutions(ctx, "d")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Resolved)
	assert.Equal(t, "2 sub-conflicts resolved", decisions[0].Detail)

	stats, err := store.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats["resolutions"])
	assert.Equal(t, 3, stats["resolutions_resolved"])
}

func TestStore_HandleConflictsKeepsHigherTarget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []record.Record{book("a", 70)}))

	res, err := store.HandleConflicts(ctx, reportOf(progressConflict("a", 55, 70)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 70.0, a.Progress)
}

func TestStore_HandleConflictsUnresolvable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	truncated := conflict.Conflict{
		Type:           conflict.CompositeConflict,
		RecordID:       "a",
		AutoResolvable: true,
		Strategy:       conflict.ResolveSequentially,
		SubConflicts:   []conflict.Conflict{progressConflict("a", 30, 10)},
		Truncated:      2,
	}
	malformed := progressConflict("b", 30, 10)
	malformed.Source = "thirty"

	res, err := store.HandleConflicts(ctx, reportOf(truncated, malformed))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Resolved)
	assert.Equal(t, 2, res.Unresolved)

	decisions, err := store.Resolutions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "2 sub-conflicts were truncated", decisions[0].Detail)
}

func TestStore_HandleConflictsEmpty(t *testing.T) {
	store := newTestStore(t)

	for _, report := range []*conflict.Report{nil, {}} {
		res, err := store.HandleConflicts(context.Background(), report)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Resolved+res.Unresolved)
		assert.True(t, res.Success)
	}
}

// Detected conflicts flow into the store unchanged.
func TestStore_HandleDetectedConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	target := []record.Record{book("a", 20)}
	source := []record.Record{book("a", 40)}
	require.NoError(t, store.Upsert(ctx, target))

	engine := compare.NewEngine(compare.DefaultConfig())
	diff, err := engine.CalculateDifferences(ctx, source, target)
	require.NoError(t, err)

	detector := conflict.NewDetector(conflict.DefaultConfig(), conflict.WithEngine(engine))
	report, err := detector.DetectConflicts(ctx, source, target, diff)
	require.NoError(t, err)
	require.True(t, report.HasConflicts)

	res, err := store.HandleConflicts(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 40.0, a.Progress)
}

// The SYNC stage must write what the handler kept, not the source side.
func TestStore_ResolvedValuesSurviveSync(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []record.Record{book("a", 60), book("b", 10)}))

	incoming := book("a", 40)
	incoming.Platform = "kindle"
	source := []record.Record{incoming, book("b", 10)}
	target, err := store.Load(ctx)
	require.NoError(t, err)

	coord := synckit.NewProcessorCoordinator(store, strategy.DefaultConfig(), logging.Discard())
	orch, err := synckit.NewOrchestrator(coord, store, synckit.WithLogger(logging.Discard()))
	require.NoError(t, err)

	res := orch.OrchestrateSync(ctx, source, target, &synckit.SyncOptions{Mode: "MERGE"})
	require.True(t, res.Success, "unexpected error: %v", res.Err)
	assert.Equal(t, 1, res.ConflictsResolved)
	assert.Equal(t, 1, res.Synchronized)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 60.0, a.Progress, "resolved progress was overwritten by the source")
	assert.Equal(t, "kindle", a.Platform, "unresolved fields still come from the source")

	decisions, err := store.Resolutions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "progress set to 60.0", decisions[0].Detail)
}

func TestStore_HandleConflictsReturnsValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []record.Record{book("a", 20), book("b", 50)}))

	later := updated.Add(45 * time.Second)
	res, err := store.HandleConflicts(ctx, reportOf(
		progressConflict("a", 35, 20),
		timestampConflict("b", updated, later),
	))
	require.NoError(t, err)
	assert.ElementsMatch(t, []synckit.ResolvedValue{
		{RecordID: "a", Field: record.FieldProgress, Value: 35.0},
		{RecordID: "b", Field: record.FieldLastUpdated, Value: later},
	}, res.Values)
}
