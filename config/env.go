package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c0deZ3R0/readsync/logging"
)

// Environment variables overriding the file.
const (
	EnvStrategyMode     = "READSYNC_STRATEGY_MODE"
	EnvStrategyBatch    = "READSYNC_STRATEGY_BATCH_SIZE"
	EnvRetryMaxAttempts = "READSYNC_RETRY_MAX_ATTEMPTS"
	EnvRetryBaseDelay   = "READSYNC_RETRY_BASE_DELAY"
	EnvRetryMaxDelay    = "READSYNC_RETRY_MAX_DELAY"
	EnvBatchThreshold   = "READSYNC_BATCH_THRESHOLD"
	EnvCompareWorkers   = "READSYNC_COMPARE_CONCURRENCY"
	EnvStoragePath      = "READSYNC_STORAGE_PATH"
	EnvAutoResolve      = "READSYNC_AUTO_RESOLVE"
)

// ApplyEnv overlays the READSYNC_* variables and the LOG_* variables read by
// the logging package. Unset variables leave the value untouched.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvStrategyMode); v != "" {
		c.Strategy.Mode = strings.ToUpper(v)
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvStrategyBatch, &c.Strategy.BatchSize},
		{EnvRetryMaxAttempts, &c.Retry.MaxAttempts},
		{EnvBatchThreshold, &c.Orchestrator.BatchThreshold},
		{EnvCompareWorkers, &c.Compare.Concurrency},
	}
	for _, e := range ints {
		if err := envInt(e.name, e.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{EnvRetryBaseDelay, &c.Retry.BaseDelay},
		{EnvRetryMaxDelay, &c.Retry.MaxDelay},
	}
	for _, e := range durations {
		if err := envDuration(e.name, e.dst); err != nil {
			return err
		}
	}

	if v := os.Getenv(EnvAutoResolve); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return configError(fmt.Errorf("%s: %w", EnvAutoResolve, err))
		}
		c.Conflict.AutoResolve = b
	}

	c.Logging = logging.ApplyEnv(c.Logging)
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return configError(fmt.Errorf("%s: %w", name, err))
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return configError(fmt.Errorf("%s: %w", name, err))
	}
	*dst = d
	return nil
}
