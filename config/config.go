// Package config loads the readsync configuration file and maps it onto the
// configuration of each component.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c0deZ3R0/readsync/compare"
	"github.com/c0deZ3R0/readsync/conflict"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/retry"
	"github.com/c0deZ3R0/readsync/storage/sqlite"
	"github.com/c0deZ3R0/readsync/strategy"
	"github.com/c0deZ3R0/readsync/synckit"
)

// Config is the root of the configuration file. Every section is optional;
// missing keys keep the values of Default.
type Config struct {
	Compare      CompareConfig      `yaml:"compare" json:"compare"`
	Conflict     ConflictConfig     `yaml:"conflict" json:"conflict"`
	Retry        RetryConfig        `yaml:"retry" json:"retry"`
	Strategy     StrategyConfig     `yaml:"strategy" json:"strategy"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" json:"orchestrator"`
	Storage      StorageConfig      `yaml:"storage" json:"storage"`
	Logging      logging.Config     `yaml:"logging" json:"logging"`
}

// CompareConfig configures the comparison engine.
type CompareConfig struct {
	Rules                    map[string]compare.Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
	BatchSize                int                     `yaml:"batch_size" json:"batch_size"`
	Concurrency              int                     `yaml:"concurrency" json:"concurrency"`
	ProgressHighDelta        float64                 `yaml:"progress_high_delta" json:"progress_high_delta"`
	ProgressMediumDelta      float64                 `yaml:"progress_medium_delta" json:"progress_medium_delta"`
	TitleSimilarityThreshold float64                 `yaml:"title_similarity_threshold" json:"title_similarity_threshold"`
}

// ConflictConfig configures the conflict detector.
type ConflictConfig struct {
	ProgressThreshold        float64       `yaml:"progress_threshold" json:"progress_threshold"`
	ProgressHighGap          float64       `yaml:"progress_high_gap" json:"progress_high_gap"`
	ProgressCriticalGap      float64       `yaml:"progress_critical_gap" json:"progress_critical_gap"`
	TitleSimilarityThreshold float64       `yaml:"title_similarity_threshold" json:"title_similarity_threshold"`
	TimestampWindow          time.Duration `yaml:"timestamp_window" json:"timestamp_window"`
	MaxConflictsPerItem      int           `yaml:"max_conflicts_per_item" json:"max_conflicts_per_item"`
	MaxSubConflicts          int           `yaml:"max_sub_conflicts" json:"max_sub_conflicts"`
	BatchResolutionThreshold int           `yaml:"batch_resolution_threshold" json:"batch_resolution_threshold"`
	AutoResolve              bool          `yaml:"auto_resolve" json:"auto_resolve"`
}

// RetryConfig configures the retry coordinator.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// StrategyConfig configures the strategy processor.
type StrategyConfig struct {
	Mode            string        `yaml:"mode" json:"mode"`
	BatchSize       int           `yaml:"batch_size" json:"batch_size"`
	Concurrency     int           `yaml:"concurrency" json:"concurrency"`
	MaxTries        uint          `yaml:"max_tries" json:"max_tries"`
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval"`
}

// OrchestratorConfig holds the orchestrator thresholds.
type OrchestratorConfig struct {
	BatchThreshold    int           `yaml:"batch_threshold" json:"batch_threshold"`
	HeavyLoadItems    int           `yaml:"heavy_load_items" json:"heavy_load_items"`
	HeavyLoadDuration time.Duration `yaml:"heavy_load_duration" json:"heavy_load_duration"`
	HistorySize       int           `yaml:"history_size" json:"history_size"`
}

// StorageConfig locates the SQLite target.
type StorageConfig struct {
	Path      string `yaml:"path" json:"path"`
	Table     string `yaml:"table" json:"table"`
	EnableWAL bool   `yaml:"enable_wal" json:"enable_wal"`
}

// Default returns the configuration used when no file is given. It matches
// the defaults of every component.
func Default() *Config {
	cmp := compare.DefaultConfig()
	cfl := conflict.DefaultConfig()
	rty := retry.DefaultConfig()
	str := strategy.DefaultConfig()
	orc := synckit.DefaultConfig()

	rules := make(map[string]compare.Rule, len(cmp.Rules))
	for name, rule := range cmp.Rules {
		rules[name] = rule
	}

	return &Config{
		Compare: CompareConfig{
			Rules:                    rules,
			BatchSize:                cmp.BatchSize,
			Concurrency:              cmp.Concurrency,
			ProgressHighDelta:        cmp.ProgressHighDelta,
			ProgressMediumDelta:      cmp.ProgressMediumDelta,
			TitleSimilarityThreshold: cmp.TitleSimilarityThreshold,
		},
		Conflict: ConflictConfig{
			ProgressThreshold:        cfl.ProgressConflictThreshold,
			ProgressHighGap:          cfl.ProgressHighGap,
			ProgressCriticalGap:      cfl.ProgressCriticalGap,
			TitleSimilarityThreshold: cfl.TitleSimilarityThreshold,
			TimestampWindow:          cfl.TimestampConflictWindow,
			MaxConflictsPerItem:      cfl.MaxConflictsPerItem,
			MaxSubConflicts:          cfl.MaxSubConflicts,
			BatchResolutionThreshold: cfl.BatchResolutionThreshold,
			AutoResolve:              cfl.AutoResolve,
		},
		Retry: RetryConfig{
			MaxAttempts:  rty.MaxRetryAttempts,
			BaseDelay:    rty.BaseDelay,
			MaxDelay:     rty.MaxDelay,
			JitterFactor: rty.JitterFactor,
		},
		Strategy: StrategyConfig{
			Mode:            string(strategy.Merge),
			BatchSize:       str.BatchSize,
			Concurrency:     str.Concurrency,
			MaxTries:        str.MaxTries,
			InitialInterval: str.InitialInterval,
			MaxInterval:     str.MaxInterval,
		},
		Orchestrator: OrchestratorConfig{
			BatchThreshold:    orc.BatchThreshold,
			HeavyLoadItems:    orc.HeavyLoadItems,
			HeavyLoadDuration: orc.HeavyLoadDuration,
			HistorySize:       orc.HistorySize,
		},
		Storage: StorageConfig{
			Path:      "readsync.db",
			Table:     "reading_state",
			EnableWAL: true,
		},
		Logging: logging.DefaultConfig,
	}
}

// Load reads a YAML or JSON file on top of Default, then applies the
// READSYNC_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, configError(fmt.Errorf("failed to open config file %s: %w", path, err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, configError(fmt.Errorf("failed to read config file %s: %w", path, err))
	}

	cfg, err := LoadBytes(data, detectFormat(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBytes parses data in format ("yaml", "yml" or "json") on top of
// Default, then applies the environment and validates.
func LoadBytes(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(format) {
	case "yaml", "yml", "json":
		// JSON documents are valid YAML; one decoder keeps duration parsing
		// identical for both formats.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, configError(fmt.Errorf("failed to parse %s config: %w", format, err))
		}
	default:
		return nil, configError(fmt.Errorf("unsupported config format: %s", format))
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func detectFormat(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json"
	case ".yaml", ".yml", "":
		return "yaml"
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error

	if err := compare.Rules(c.Compare.Rules).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("compare.rules: %w", err))
	}
	if c.Compare.BatchSize <= 0 {
		errs = append(errs, errors.New("compare.batch_size must be positive"))
	}
	if c.Compare.TitleSimilarityThreshold < 0 || c.Compare.TitleSimilarityThreshold > 1 {
		errs = append(errs, errors.New("compare.title_similarity_threshold must be within [0, 1]"))
	}
	if c.Compare.ProgressMediumDelta > c.Compare.ProgressHighDelta {
		errs = append(errs, errors.New("compare.progress_medium_delta must not exceed progress_high_delta"))
	}

	if c.Conflict.ProgressThreshold > c.Conflict.ProgressHighGap || c.Conflict.ProgressHighGap > c.Conflict.ProgressCriticalGap {
		errs = append(errs, errors.New("conflict: progress_threshold <= progress_high_gap <= progress_critical_gap must hold"))
	}
	if c.Conflict.TitleSimilarityThreshold < 0 || c.Conflict.TitleSimilarityThreshold > 1 {
		errs = append(errs, errors.New("conflict.title_similarity_threshold must be within [0, 1]"))
	}
	if c.Conflict.MaxConflictsPerItem <= 0 || c.Conflict.MaxSubConflicts <= 0 {
		errs = append(errs, errors.New("conflict.max_conflicts_per_item and max_sub_conflicts must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("retry.max_attempts must not be negative"))
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry: 0 < base_delay <= max_delay must hold"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor >= 1 {
		errs = append(errs, errors.New("retry.jitter_factor must be within [0, 1)"))
	}

	if _, err := strategy.ParseMode(c.Strategy.Mode); err != nil {
		errs = append(errs, fmt.Errorf("strategy.mode: %w", err))
	}
	if c.Strategy.BatchSize <= 0 || c.Strategy.Concurrency <= 0 {
		errs = append(errs, errors.New("strategy.batch_size and concurrency must be positive"))
	}

	if c.Orchestrator.BatchThreshold < 0 {
		errs = append(errs, errors.New("orchestrator.batch_threshold must not be negative"))
	}
	if c.Orchestrator.HeavyLoadItems <= 0 || c.Orchestrator.HeavyLoadDuration <= 0 || c.Orchestrator.HistorySize <= 0 {
		errs = append(errs, errors.New("orchestrator: heavy_load_items, heavy_load_duration and history_size must be positive"))
	}

	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}

	if len(errs) > 0 {
		return configError(errors.Join(errs...))
	}
	return nil
}

func configError(err error) error {
	return syncErrors.E(syncErrors.OpConfig, syncErrors.Component("config"),
		syncErrors.KindInvalid, syncErrors.ErrCodeInvalidInput, err)
}

// CompareEngineConfig converts the compare section.
func (c *Config) CompareEngineConfig() compare.Config {
	rules := make(compare.Rules, len(c.Compare.Rules))
	for name, rule := range c.Compare.Rules {
		rules[name] = rule
	}
	return compare.Config{
		Rules:                    rules,
		BatchSize:                c.Compare.BatchSize,
		Concurrency:              c.Compare.Concurrency,
		ProgressHighDelta:        c.Compare.ProgressHighDelta,
		ProgressMediumDelta:      c.Compare.ProgressMediumDelta,
		TitleSimilarityThreshold: c.Compare.TitleSimilarityThreshold,
	}
}

// ConflictDetectorConfig converts the conflict section.
func (c *Config) ConflictDetectorConfig() conflict.Config {
	return conflict.Config{
		ProgressConflictThreshold: c.Conflict.ProgressThreshold,
		ProgressHighGap:           c.Conflict.ProgressHighGap,
		ProgressCriticalGap:       c.Conflict.ProgressCriticalGap,
		TitleSimilarityThreshold:  c.Conflict.TitleSimilarityThreshold,
		TimestampConflictWindow:   c.Conflict.TimestampWindow,
		MaxConflictsPerItem:       c.Conflict.MaxConflictsPerItem,
		MaxSubConflicts:           c.Conflict.MaxSubConflicts,
		BatchResolutionThreshold:  c.Conflict.BatchResolutionThreshold,
		AutoResolve:               c.Conflict.AutoResolve,
		Compare:                   c.CompareEngineConfig(),
	}
}

// RetryCoordinatorConfig converts the retry section.
func (c *Config) RetryCoordinatorConfig() retry.Config {
	return retry.Config{
		MaxRetryAttempts: c.Retry.MaxAttempts,
		BaseDelay:        c.Retry.BaseDelay,
		MaxDelay:         c.Retry.MaxDelay,
		JitterFactor:     c.Retry.JitterFactor,
	}
}

// ProcessorConfig converts the strategy section.
func (c *Config) ProcessorConfig() strategy.Config {
	return strategy.Config{
		BatchSize:       c.Strategy.BatchSize,
		Concurrency:     c.Strategy.Concurrency,
		MaxTries:        c.Strategy.MaxTries,
		InitialInterval: c.Strategy.InitialInterval,
		MaxInterval:     c.Strategy.MaxInterval,
	}
}

// StoreConfig converts the storage section. Pool settings keep the store
// defaults.
func (c *Config) StoreConfig(logger *slog.Logger) *sqlite.Config {
	config := sqlite.DefaultConfig(c.Storage.Path)
	config.EnableWAL = c.Storage.EnableWAL
	config.TableName = c.Storage.Table
	config.Logger = logger
	return config
}

// OrchestratorOptions converts the component sections and the orchestrator
// thresholds into synckit options.
func (c *Config) OrchestratorOptions() []synckit.Option {
	return []synckit.Option{
		synckit.WithCompareConfig(c.CompareEngineConfig()),
		synckit.WithConflictConfig(c.ConflictDetectorConfig()),
		synckit.WithRetryConfig(c.RetryCoordinatorConfig()),
		synckit.WithBatchThreshold(c.Orchestrator.BatchThreshold),
		synckit.WithLoadThresholds(c.Orchestrator.HeavyLoadItems, c.Orchestrator.HeavyLoadDuration),
		synckit.WithHistorySize(c.Orchestrator.HistorySize),
	}
}
