package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
)

// State is a job's position in NEW → RETRYING → SUCCESS | EXHAUSTED.
// FAILED marks a job stopped by a non-retryable error.
type State string

const (
	StateNew       State = "NEW"
	StateRetrying  State = "RETRYING"
	StateSuccess   State = "SUCCESS"
	StateExhausted State = "EXHAUSTED"
	StateFailed    State = "FAILED"
)

// Job tracks one failed operation across its retries. Only the coordinator
// mutates RetryCount.
type Job struct {
	ID             string
	RetryCount     int
	Err            error
	OriginalParams map[string]any
	State          State
	LastAttempt    time.Time
}

// NewJob wraps a failure for retrying.
func NewJob(err error, params map[string]any) *Job {
	return &Job{
		ID:             uuid.NewString(),
		Err:            err,
		OriginalParams: params,
		State:          StateNew,
	}
}

// Executor performs one retry attempt of job.
type Executor func(ctx context.Context, job *Job) error

// Outcome describes one ExecuteRetry call.
type Outcome struct {
	Success    bool
	Strategy   Strategy
	RetryCount int
	Delay      time.Duration
	Err        error
}

// Config holds the retry policy.
type Config struct {
	MaxRetryAttempts int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	JitterFactor     float64
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetryAttempts: 3,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		JitterFactor:     0.1,
	}
}

// Stats is a snapshot of a Coordinator's counters.
type Stats struct {
	Attempts     int64         `json:"attempts"`
	Successes    int64         `json:"successes"`
	Failures     int64         `json:"failures"`
	Exhausted    int64         `json:"exhausted"`
	NonRetryable int64         `json:"nonRetryable"`
	TotalDelay   time.Duration `json:"totalDelay"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithJitterSource replaces the random source used for jitter. f must
// return values in [0, 1).
func WithJitterSource(f func() float64) Option {
	return func(c *Coordinator) {
		c.jitter = f
	}
}

// Coordinator applies the retry policy. It is safe for concurrent use, but
// a single Job must not be retried from two goroutines at once.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger
	jitter func() float64

	attempts     atomic.Int64
	successes    atomic.Int64
	failures     atomic.Int64
	exhausted    atomic.Int64
	nonRetryable atomic.Int64
	totalDelay   atomic.Int64
}

// NewCoordinator builds a coordinator. Zero-valued config fields take their
// defaults; a negative MaxRetryAttempts disables retries.
func NewCoordinator(cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.MaxRetryAttempts == 0 {
		cfg.MaxRetryAttempts = def.MaxRetryAttempts
	}
	if cfg.MaxRetryAttempts < 0 {
		cfg.MaxRetryAttempts = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.JitterFactor < 0 {
		cfg.JitterFactor = 0
	}
	if cfg.JitterFactor > 1 {
		cfg.JitterFactor = 1
	}

	c := &Coordinator{cfg: cfg, jitter: rand.Float64}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.ComponentLogger(c.logger, "retry")
	return c
}

// Config returns the effective policy.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// CanRetry reports whether job may be attempted again.
func (c *Coordinator) CanRetry(job *Job) bool {
	if job == nil {
		return false
	}
	if job.RetryCount >= c.cfg.MaxRetryAttempts {
		return false
	}
	return AnalyzeFailureReason(job.Err).Retryable
}

// ExecuteRetry performs one retry of job. It refuses without calling
// executor once the job is exhausted or its error is not retryable. The
// returned error is set only when the attempt was refused or the wait was
// canceled; an executor failure is reported in Outcome.Err.
func (c *Coordinator) ExecuteRetry(ctx context.Context, job *Job, executor Executor) (*Outcome, error) {
	if job == nil {
		return nil, syncErrors.NewInvalidInput(syncErrors.OpRetry, errNilJob)
	}
	if executor == nil {
		return nil, syncErrors.NewInvalidInput(syncErrors.OpRetry, errNilExecutor)
	}

	if !c.CanRetry(job) {
		return c.refuse(ctx, job)
	}

	analysis := AnalyzeFailureReason(job.Err)
	strategy, err := SelectRetryStrategy(analysis)
	if err != nil {
		return c.refuse(ctx, job)
	}

	delay := c.CalculateBackoffDelay(job.RetryCount, strategy)
	c.logger.DebugContext(ctx, "waiting before retry",
		slog.String("job_id", job.ID),
		slog.Int("retry", job.RetryCount+1),
		slog.String("category", string(analysis.Category)),
		slog.String("strategy", string(strategy)),
		slog.Duration("delay", delay))

	if err := wait(ctx, delay); err != nil {
		c.logger.WarnContext(ctx, "retry wait canceled", slog.String("job_id", job.ID), slog.Any("error", err))
		return &Outcome{Strategy: strategy, RetryCount: job.RetryCount, Delay: delay, Err: err}, err
	}

	job.RetryCount++
	job.State = StateRetrying
	job.LastAttempt = time.Now()
	c.attempts.Add(1)
	c.totalDelay.Add(int64(delay))

	out := &Outcome{Strategy: strategy, RetryCount: job.RetryCount, Delay: delay}
	if execErr := executor(ctx, job); execErr != nil {
		job.Err = execErr
		out.Err = execErr
		c.failures.Add(1)
		c.logger.DebugContext(ctx, "retry attempt failed",
			slog.String("job_id", job.ID),
			slog.Int("retry", job.RetryCount),
			slog.Any("error", execErr))
		return out, nil
	}

	job.State = StateSuccess
	job.Err = nil
	out.Success = true
	c.successes.Add(1)
	c.logger.InfoContext(ctx, "retry succeeded", slog.String("job_id", job.ID), slog.Int("retry", job.RetryCount))
	return out, nil
}

// Run retries job until it succeeds, is exhausted or fails permanently.
func (c *Coordinator) Run(ctx context.Context, job *Job, executor Executor) (*Outcome, error) {
	for {
		out, err := c.ExecuteRetry(ctx, job, executor)
		if err != nil {
			return out, err
		}
		if out.Success {
			return out, nil
		}
	}
}

func (c *Coordinator) refuse(ctx context.Context, job *Job) (*Outcome, error) {
	var err error
	if job.RetryCount >= c.cfg.MaxRetryAttempts {
		job.State = StateExhausted
		c.exhausted.Add(1)
		err = syncErrors.NewMaxRetriesExceeded(job.RetryCount, job.Err)
	} else {
		job.State = StateFailed
		c.nonRetryable.Add(1)
		err = syncErrors.NewNonRetryable(syncErrors.OpRetry, job.Err)
	}
	c.logger.WarnContext(ctx, "retry refused",
		slog.String("job_id", job.ID),
		slog.Int("retry_count", job.RetryCount),
		slog.String("state", string(job.State)),
		slog.Any("error", job.Err))
	return &Outcome{RetryCount: job.RetryCount, Err: err}, err
}

// Stats returns a snapshot of the coordinator's counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Attempts:     c.attempts.Load(),
		Successes:    c.successes.Load(),
		Failures:     c.failures.Load(),
		Exhausted:    c.exhausted.Load(),
		NonRetryable: c.nonRetryable.Load(),
		TotalDelay:   time.Duration(c.totalDelay.Load()),
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
