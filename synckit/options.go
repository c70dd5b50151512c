package synckit

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/conflict"
	"github.com/c0deZ3R0/readsync/retry"
)

// Option is a functional option for configuring an Orchestrator via NewOrchestrator.
type Option func(*Orchestrator) error

// WithLogger sets the structured logger used by the orchestrator and the
// components it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithMetricsCollector installs a metrics collector.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *Orchestrator) error {
		if collector == nil {
			return errors.New("metrics collector must not be nil")
		}
		o.metrics = collector
		return nil
	}
}

// WithTracer enables one span per pipeline stage.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) error {
		o.tracer = tracer
		return nil
	}
}

// WithCompareConfig configures the comparison engine.
func WithCompareConfig(cfg compare.Config) Option {
	return func(o *Orchestrator) error {
		if err := cfg.Rules.Validate(); err != nil {
			return err
		}
		o.cfg.Compare = cfg
		return nil
	}
}

// WithConflictConfig configures the conflict detector.
func WithConflictConfig(cfg conflict.Config) Option {
	return func(o *Orchestrator) error {
		o.cfg.Conflict = cfg
		return nil
	}
}

// WithRetryConfig configures the retry coordinator wrapping the sync stage.
func WithRetryConfig(cfg retry.Config) Option {
	return func(o *Orchestrator) error {
		o.cfg.Retry = cfg
		return nil
	}
}

// WithBatchThreshold sets the change count above which BATCH_SYNC is chosen.
func WithBatchThreshold(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			return errors.New("batch threshold must not be negative")
		}
		o.cfg.BatchThreshold = n
		return nil
	}
}

// WithLoadThresholds sets what OptimizeSyncPerformance treats as heavy load.
func WithLoadThresholds(items int, duration time.Duration) Option {
	return func(o *Orchestrator) error {
		if items <= 0 || duration <= 0 {
			return errors.New("load thresholds must be positive")
		}
		o.cfg.HeavyLoadItems = items
		o.cfg.HeavyLoadDuration = duration
		return nil
	}
}

// WithHistorySize bounds how many past runs feed OptimizeSyncPerformance.
func WithHistorySize(n int) Option {
	return func(o *Orchestrator) error {
		if n <= 0 {
			return errors.New("history size must be positive")
		}
		o.cfg.HistorySize = n
		return nil
	}
}
