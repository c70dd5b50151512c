package synckit

import (
	"time"
)

// RunSample is the load of one past run.
type RunSample struct {
	Items    int
	Duration time.Duration
}

// Tuning is applied to subsequent runs.
type Tuning struct {
	BatchSize         int
	ConflictDetection string
	Parallel          bool
}

const (
	heavyLoadBatchSize = 50
	lightLoadBatchSize = 200
	defaultBatchSize   = 100
)

func defaultTuning() Tuning {
	return Tuning{BatchSize: defaultBatchSize, ConflictDetection: DetectionStandard}
}

// OptimizeSyncPerformance derives a tuning from history and applies it to
// later runs. A nil history uses the runs recorded by this orchestrator; an
// empty one resets to the defaults. Heavy load means the average items or
// the average duration reached the configured thresholds.
func (o *Orchestrator) OptimizeSyncPerformance(history []RunSample) Tuning {
	o.mu.Lock()
	defer o.mu.Unlock()

	if history == nil {
		history = o.history
	}

	t := defaultTuning()
	if len(history) > 0 {
		var items int
		var total time.Duration
		for _, s := range history {
			items += s.Items
			total += s.Duration
		}
		avgItems := items / len(history)
		avgDuration := total / time.Duration(len(history))

		if avgItems >= o.cfg.HeavyLoadItems || avgDuration >= o.cfg.HeavyLoadDuration {
			t = Tuning{BatchSize: heavyLoadBatchSize, ConflictDetection: DetectionEnhanced, Parallel: false}
		} else {
			t = Tuning{BatchSize: lightLoadBatchSize, ConflictDetection: DetectionStandard, Parallel: true}
		}
	}

	if t != o.tuning {
		o.logger.Info("sync tuning changed",
			"batch_size", t.BatchSize,
			"conflict_detection", t.ConflictDetection,
			"parallel", t.Parallel,
			"samples", len(history))
	}
	o.tuning = t
	return t
}

// Tuning returns the tuning applied to the next run.
func (o *Orchestrator) Tuning() Tuning {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tuning
}

// History returns a copy of the recorded run samples.
func (o *Orchestrator) History() []RunSample {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]RunSample(nil), o.history...)
}
