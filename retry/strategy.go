package retry

import (
	"fmt"
	"math"
	"time"

	syncErrors "github.com/c0deZ3R0/readsync/errors"
)

// Strategy names a backoff policy.
type Strategy string

const (
	ExponentialBackoff      Strategy = "EXPONENTIAL_BACKOFF"
	LinearBackoff           Strategy = "LINEAR_BACKOFF"
	ConflictResolutionFirst Strategy = "CONFLICT_RESOLUTION_FIRST"
)

// SelectRetryStrategy maps a retryable category to its backoff policy.
func SelectRetryStrategy(a Analysis) (Strategy, error) {
	if !a.Retryable {
		return "", syncErrors.NewNonRetryable(syncErrors.OpRetry,
			fmt.Errorf("no retry strategy for non-retryable category %s", a.Category))
	}
	switch a.Category {
	case CategoryNetwork:
		return ExponentialBackoff, nil
	case CategoryDataConflict:
		return ConflictResolutionFirst, nil
	default:
		return LinearBackoff, nil
	}
}

// BackoffDelay is base × 2^n capped at MaxDelay. It is non-decreasing in n.
func (c *Coordinator) BackoffDelay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	d := float64(c.cfg.BaseDelay) * math.Pow(2, float64(n))
	return c.capDelay(d)
}

// CalculateBackoffDelay returns the delay before retry n under strategy.
// Jitter of ±JitterFactor is applied except for CONFLICT_RESOLUTION_FIRST,
// whose retries must stay behind conflict handling. The result is always in
// [0, MaxDelay].
func (c *Coordinator) CalculateBackoffDelay(n int, strategy Strategy) time.Duration {
	if n < 0 {
		n = 0
	}

	var d float64
	switch strategy {
	case LinearBackoff:
		d = float64(c.cfg.BaseDelay) * float64(n+1)
	default:
		d = float64(c.BackoffDelay(n))
	}

	if strategy != ConflictResolutionFirst && c.cfg.JitterFactor > 0 {
		d *= 1 + c.cfg.JitterFactor*(2*c.jitter()-1)
	}
	return c.capDelay(d)
}

func (c *Coordinator) capDelay(d float64) time.Duration {
	switch {
	case d <= 0 || math.IsNaN(d):
		return 0
	case d >= float64(c.cfg.MaxDelay) || math.IsInf(d, 1):
		return c.cfg.MaxDelay
	}
	return time.Duration(d)
}
