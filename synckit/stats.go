package synckit

import (
	"context"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/conflict"
	"github.com/c0deZ3R0/readsync/retry"
	"github.com/c0deZ3R0/readsync/strategy"
)

// runStats is owned by the orchestrator and guarded by its mutex.
type runStats struct {
	runs              int64
	successes         int64
	failures          int64
	failuresByStage   map[string]int64
	strategies        map[SyncStrategy]int64
	synchronized      int64
	conflicts         int64
	conflictsResolved int64
	retries           int64
}

func newRunStats() runStats {
	return runStats{
		failuresByStage: make(map[string]int64),
		strategies:      make(map[SyncStrategy]int64),
	}
}

func (s *runStats) record(res *Result) {
	s.runs++
	if !res.Success {
		s.failures++
		s.failuresByStage[string(res.Stage)]++
		return
	}
	s.successes++
	s.strategies[res.Strategy]++
	s.synchronized += int64(res.Synchronized)
	s.conflicts += int64(res.Conflicts)
	s.conflictsResolved += int64(res.ConflictsResolved)
	s.retries += int64(res.RetryCount)
}

// OrchestratorStats summarizes the runs of one orchestrator.
type OrchestratorStats struct {
	Runs              int64                  `json:"runs"`
	Successes         int64                  `json:"successes"`
	Failures          int64                  `json:"failures"`
	FailuresByStage   map[string]int64       `json:"failuresByStage"`
	Strategies        map[SyncStrategy]int64 `json:"strategies"`
	Synchronized      int64                  `json:"synchronized"`
	Conflicts         int64                  `json:"conflicts"`
	ConflictsResolved int64                  `json:"conflictsResolved"`
	Retries           int64                  `json:"retries"`
}

// Statistics merges the counters of every component. Strategy is set only
// when the coordinator reports processor statistics.
type Statistics struct {
	Orchestrator OrchestratorStats `json:"orchestrator"`
	Compare      compare.Stats     `json:"compare"`
	Conflict     conflict.Stats    `json:"conflict"`
	Retry        retry.Stats       `json:"retry"`
	Strategy     *strategy.Stats   `json:"strategy,omitempty"`
	Tuning       Tuning            `json:"tuning"`
}

// ProcessorStatsProvider is implemented by coordinators that apply changes
// through a strategy.Processor.
type ProcessorStatsProvider interface {
	ProcessorStats() strategy.Stats
}

// Stats collects a snapshot from every component on demand.
func (o *Orchestrator) Stats() Statistics {
	o.mu.Lock()
	orch := OrchestratorStats{
		Runs:              o.stats.runs,
		Successes:         o.stats.successes,
		Failures:          o.stats.failures,
		FailuresByStage:   make(map[string]int64, len(o.stats.failuresByStage)),
		Strategies:        make(map[SyncStrategy]int64, len(o.stats.strategies)),
		Synchronized:      o.stats.synchronized,
		Conflicts:         o.stats.conflicts,
		ConflictsResolved: o.stats.conflictsResolved,
		Retries:           o.stats.retries,
	}
	for k, v := range o.stats.failuresByStage {
		orch.FailuresByStage[k] = v
	}
	for k, v := range o.stats.strategies {
		orch.Strategies[k] = v
	}
	tuning := o.tuning
	o.mu.Unlock()

	stats := Statistics{
		Orchestrator: orch,
		Compare:      o.engine.Stats(),
		Conflict:     o.detector.Stats(),
		Retry:        o.retrier.Stats(),
		Tuning:       tuning,
	}
	if p, ok := o.coordinator.(ProcessorStatsProvider); ok {
		ps := p.ProcessorStats()
		stats.Strategy = &ps
	}
	return stats
}

// StatisticsMap flattens Stats together with the coordinator's own
// statistics, for monitoring endpoints.
func (o *Orchestrator) StatisticsMap(ctx context.Context) (map[string]any, error) {
	s := o.Stats()
	out := map[string]any{
		"orchestrator": s.Orchestrator,
		"compare":      s.Compare,
		"conflict":     s.Conflict,
		"retry":        s.Retry,
		"tuning":       s.Tuning,
	}
	if s.Strategy != nil {
		out["strategy"] = *s.Strategy
	}
	coord, err := o.coordinator.GetStatistics(ctx)
	if err != nil {
		return out, err
	}
	out["coordinator"] = coord
	return out, nil
}
