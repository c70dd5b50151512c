package compare

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/record"
)

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func book(id, title string, progress float64) record.Record {
	return record.Record{
		ID:          id,
		Title:       title,
		Authors:     []string{"Ursula K. Le Guin"},
		Progress:    progress,
		LastUpdated: base,
	}
}

func newTestEngine(cfg Config) *Engine {
	return NewEngine(cfg, WithLogger(logging.Discard()))
}

func TestCalculateDifferences_Buckets(t *testing.T) {
	t.Parallel()

	source := []record.Record{
		book("1", "The Dispossessed", 40),
		book("2", "The Lathe of Heaven", 10),
		book("3", "Earthsea", 100),
	}
	target := []record.Record{
		book("2", "The Lathe of Heaven", 10),
		book("3", "Earthsea", 70),
		book("4", "Always Coming Home", 5),
	}

	diff, err := newTestEngine(DefaultConfig()).CalculateDifferences(context.Background(), source, target)
	require.NoError(t, err)

	require.Len(t, diff.Added, 1)
	assert.Equal(t, "1", diff.Added[0].ID)
	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "3", diff.Modified[0].ID)
	require.Len(t, diff.Deleted, 1)
	assert.Equal(t, "4", diff.Deleted[0].ID)
	require.Len(t, diff.Unchanged, 1)
	assert.Equal(t, "2", diff.Unchanged[0].ID)

	assert.Equal(t, Summary{Added: 1, Modified: 1, Deleted: 1, Unchanged: 1, Total: 4}, diff.Summary)
	assert.Equal(t, 3, diff.ChangeCount())
	assert.True(t, diff.HasChanges())
}

func TestCalculateDifferences_PartitionIsTotalAndDisjoint(t *testing.T) {
	t.Parallel()

	var source, target []record.Record
	for i := 0; i < 120; i++ {
		if i%3 != 0 {
			source = append(source, book(fmt.Sprint(i), "Title", float64(i%100)))
		}
		if i%2 == 0 {
			target = append(target, book(fmt.Sprint(i), "Title", float64((i+i%5)%100)))
		}
	}

	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BatchSize = 7
			cfg.Concurrency = concurrency

			diff, err := newTestEngine(cfg).CalculateDifferences(context.Background(), source, target)
			require.NoError(t, err)

			seen := map[string]int{}
			for _, r := range diff.Added {
				seen[r.ID]++
			}
			for _, m := range diff.Modified {
				seen[m.ID]++
			}
			for _, r := range diff.Deleted {
				seen[r.ID]++
			}
			for _, r := range diff.Unchanged {
				seen[r.ID]++
			}

			all := map[string]bool{}
			for _, r := range source {
				all[r.ID] = true
			}
			for _, r := range target {
				all[r.ID] = true
			}

			assert.Len(t, seen, len(all))
			for id := range all {
				assert.Equal(t, 1, seen[id], "id %s", id)
			}
			assert.Equal(t, len(all), diff.Summary.Total)
		})
	}
}

func TestCalculateDifferences_ConcurrentMatchesSequential(t *testing.T) {
	t.Parallel()

	var source, target []record.Record
	for i := 0; i < 50; i++ {
		source = append(source, book(fmt.Sprint(i), "Title", float64(i)))
		target = append(target, book(fmt.Sprint(i), "Title", float64(i*2%100)))
	}

	seqCfg := DefaultConfig()
	seqCfg.BatchSize = 4
	parCfg := seqCfg
	parCfg.Concurrency = 3

	seq, err := newTestEngine(seqCfg).CalculateDifferences(context.Background(), source, target)
	require.NoError(t, err)
	par, err := newTestEngine(parCfg).CalculateDifferences(context.Background(), source, target)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestCalculateDifferences_SkipsMissingAndDuplicateIDs(t *testing.T) {
	t.Parallel()

	source := []record.Record{
		book("", "No id", 1),
		book("1", "First", 10),
		book("1", "Second copy", 90),
	}
	target := []record.Record{book("1", "First", 10), book("", "Also no id", 2)}

	diff, err := newTestEngine(DefaultConfig()).CalculateDifferences(context.Background(), source, target)
	require.NoError(t, err)

	assert.Len(t, diff.Unchanged, 1)
	assert.Equal(t, 3, diff.Summary.Skipped)
	assert.Equal(t, 1, diff.Summary.Total)
}

func TestCalculateDifferences_EmptyInputs(t *testing.T) {
	t.Parallel()

	diff, err := newTestEngine(DefaultConfig()).CalculateDifferences(context.Background(), nil, []record.Record{})
	require.NoError(t, err)

	assert.NotNil(t, diff.Added)
	assert.Empty(t, diff.Modified)
	assert.Equal(t, 0, diff.Summary.Total)
	assert.False(t, diff.HasChanges())
}

func TestCalculateDifferences_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(DefaultConfig()).CalculateDifferences(ctx, []record.Record{book("1", "x", 1)}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, syncErrors.ErrCodeComparison, syncErrors.CodeOf(err))
}

func TestCompareRecords_Severity(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(DefaultConfig())

	tests := []struct {
		name     string
		mutate   func(r *record.Record)
		field    string
		ct       ChangeType
		severity Severity
	}{
		{"progress gap 60", func(r *record.Record) { r.Progress = 70 }, "progress", ValueChanged, SeverityHigh},
		{"progress gap 50", func(r *record.Record) { r.Progress = 60 }, "progress", ValueChanged, SeverityHigh},
		{"progress gap 25", func(r *record.Record) { r.Progress = 35 }, "progress", ValueChanged, SeverityMedium},
		{"progress gap 5", func(r *record.Record) { r.Progress = 15 }, "progress", ValueChanged, SeverityLow},
		{"title rewritten", func(r *record.Record) { r.Title = "Completely Different" }, "title", ValueChanged, SeverityHigh},
		{"title case only", func(r *record.Record) { r.Title = "the left hand of darkness" }, "title", ValueChanged, SeverityLow},
		{"title missing on target", func(r *record.Record) { r.Title = "" }, "title", Added, SeverityMedium},
		{"timestamp", func(r *record.Record) { r.LastUpdated = base.Add(time.Hour) }, "lastUpdated", ValueChanged, SeverityLow},
		{"authors", func(r *record.Record) { r.Authors = []string{"Someone Else"} }, "authors", ValueChanged, SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := book("1", "The Left Hand of Darkness", 10)
			tgt := src
			tt.mutate(&tgt)

			changes := engine.CompareRecords(src, tgt)
			require.Len(t, changes, 1)
			assert.Equal(t, tt.field, changes[0].Field)
			assert.Equal(t, tt.ct, changes[0].ChangeType)
			assert.Equal(t, tt.severity, changes[0].Severity)
		})
	}
}

func TestCompareRecords_TypeChanged(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Rules["format"] = Rule{Kind: KindString}
	engine := newTestEngine(cfg)

	src := book("1", "Solaris", 10)
	src.Extra = map[string]any{"format": "epub"}
	tgt := book("1", "Solaris", 10)
	tgt.Extra = map[string]any{"format": 3}

	changes := engine.CompareRecords(src, tgt)
	require.Len(t, changes, 1)
	assert.Equal(t, TypeChanged, changes[0].ChangeType)
	assert.Equal(t, SeverityHigh, changes[0].Severity)

	tgt.Extra = nil
	changes = engine.CompareRecords(src, tgt)
	require.Len(t, changes, 1)
	assert.Equal(t, Added, changes[0].ChangeType)
}

func TestHasChanges_AgreesWithDiff(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Rules[record.FieldProgress] = Rule{Kind: KindNumber, Tolerance: 1}
	engine := newTestEngine(cfg)

	pairs := [][2]record.Record{
		{book("1", "A", 10), book("1", "A", 10)},
		{book("1", "A", 10), book("1", "A", 10.5)},
		{book("1", "A", 10), book("1", "A", 12)},
		{book("1", "A", 10), book("1", "a", 10)},
	}

	for i, p := range pairs {
		diff, err := engine.CalculateDifferences(context.Background(), p[:1], p[1:])
		require.NoError(t, err)
		assert.Equal(t, len(diff.Modified) == 1, engine.HasChanges(p[0], p[1]), "pair %d", i)
	}
}

func TestRules_CaseInsensitiveAndTolerance(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Rules[record.FieldTitle] = Rule{Kind: KindString}
	cfg.Rules[record.FieldAuthors] = Rule{Kind: KindList}
	cfg.Rules[record.FieldLastUpdated] = Rule{Kind: KindTime, Tolerance: 30}
	engine := newTestEngine(cfg)

	src := book("1", "DUNE", 10)
	src.Authors = []string{"Frank Herbert", "Brian Herbert"}
	tgt := book("1", "dune", 10)
	tgt.Authors = []string{"brian herbert", "FRANK HERBERT"}
	tgt.LastUpdated = base.Add(20 * time.Second)

	assert.False(t, engine.HasChanges(src, tgt))
	assert.Empty(t, engine.CompareRecords(src, tgt))
}

func TestRules_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultRules().Validate())
	assert.Error(t, Rules{"x": {Kind: "blob"}}.Validate())
	assert.Error(t, Rules{"x": {Kind: KindNumber, Tolerance: -1}}.Validate())
}

func TestEngineStats(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(DefaultConfig())
	_, err := engine.CalculateDifferences(context.Background(),
		[]record.Record{book("1", "A", 1), book("2", "B", 2)},
		[]record.Record{book("2", "B", 3)})
	require.NoError(t, err)

	stats := engine.Stats()
	assert.Equal(t, int64(1), stats.Comparisons)
	assert.Equal(t, int64(2), stats.RecordsCompared)
	assert.Equal(t, int64(1), stats.Added)
	assert.Equal(t, int64(1), stats.Modified)
}

func TestCalculateDifferences_TracesFieldChanges(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewLoggerTo(&buf, logging.Config{Level: "trace", Format: "json"})
	engine := NewEngine(DefaultConfig(), WithLogger(logger.Logger))

	_, err := engine.CalculateDifferences(context.Background(),
		[]record.Record{book("1", "Earthsea", 90)},
		[]record.Record{book("1", "Earthsea", 70)})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"level":"TRACE"`)
	assert.Contains(t, buf.String(), `"msg":"field changed"`)
	assert.Contains(t, buf.String(), `"field":"progress"`)

	buf.Reset()
	quiet := NewEngine(DefaultConfig(), WithLogger(logging.NewLoggerTo(&buf, logging.Config{Level: "debug", Format: "json"}).Logger))
	_, err = quiet.CalculateDifferences(context.Background(),
		[]record.Record{book("1", "Earthsea", 90)},
		[]record.Record{book("1", "Earthsea", 70)})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "field changed")
}
