package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/readsync/compare"
	syncErrors "github.com/c0deZ3R0/readsync/errors"
	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/synckit"
)

func TestDefault_IsValidAndMatchesComponents(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, compare.DefaultConfig(), cfg.CompareEngineConfig())
	assert.Equal(t, 20, cfg.Orchestrator.BatchThreshold)
	assert.Equal(t, 3, cfg.RetryCoordinatorConfig().MaxRetryAttempts)
	assert.Equal(t, "MERGE", cfg.Strategy.Mode)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "readsync.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Compare.BatchSize)
	assert.Equal(t, 4, cfg.Compare.Concurrency)
	assert.Equal(t, compare.Rule{Kind: compare.KindString}, cfg.Compare.Rules[record.FieldTitle])
	assert.Equal(t, compare.Rule{Kind: compare.KindNumber, Tolerance: 0.5}, cfg.Compare.Rules[record.FieldProgress])
	assert.Contains(t, cfg.Compare.Rules, record.FieldAuthors, "rules missing from the file keep their defaults")

	assert.Equal(t, 10.0, cfg.Conflict.ProgressThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Conflict.TimestampWindow)
	assert.False(t, cfg.Conflict.AutoResolve)
	assert.Equal(t, 30.0, cfg.Conflict.ProgressHighGap)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)

	assert.Equal(t, "append", cfg.Strategy.Mode)
	assert.Equal(t, 50, cfg.ProcessorConfig().BatchSize)

	assert.Equal(t, 40, cfg.Orchestrator.BatchThreshold)
	assert.Equal(t, 3*time.Second, cfg.Orchestrator.HeavyLoadDuration)
	assert.Equal(t, 1000, cfg.Orchestrator.HeavyLoadItems)

	assert.Equal(t, "/var/lib/readsync/state.db", cfg.Storage.Path)
	assert.Equal(t, "reading_state", cfg.Storage.Table)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "readsync.json"))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 5, cfg.Orchestrator.BatchThreshold)
	assert.Equal(t, 100, cfg.Strategy.BatchSize)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.yaml")},
		{"unsupported format", write("readsync.toml", "retry = 1")},
		{"malformed yaml", write("broken.yaml", "retry: [1, 2")},
		{"unknown rule kind", write("kind.yaml", "compare:\n  rules:\n    title:\n      kind: fuzzy\n")},
		{"unknown mode", write("mode.yaml", "strategy:\n  mode: mirror\n")},
		{"inverted gaps", write("gaps.yaml", "conflict:\n  progress_high_gap: 80\n")},
		{"negative retries", write("retry.yaml", "retry:\n  max_attempts: -1\n")},
		{"jitter out of range", write("jitter.yaml", "retry:\n  jitter_factor: 1.5\n")},
		{"empty storage path", write("storage.yaml", "storage:\n  path: \"\"\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.Equal(t, syncErrors.ErrCodeInvalidInput, syncErrors.CodeOf(err))
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvStrategyMode, "overwrite")
	t.Setenv(EnvStrategyBatch, "25")
	t.Setenv(EnvRetryMaxAttempts, "7")
	t.Setenv(EnvRetryBaseDelay, "2s")
	t.Setenv(EnvRetryMaxDelay, "1m")
	t.Setenv(EnvBatchThreshold, "0")
	t.Setenv(EnvCompareWorkers, "8")
	t.Setenv(EnvStoragePath, "/tmp/override.db")
	t.Setenv(EnvAutoResolve, "false")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "OVERWRITE", cfg.Strategy.Mode)
	assert.Equal(t, 25, cfg.Strategy.BatchSize)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, time.Minute, cfg.Retry.MaxDelay)
	assert.Equal(t, 0, cfg.Orchestrator.BatchThreshold)
	assert.Equal(t, 8, cfg.Compare.Concurrency)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.Path)
	assert.False(t, cfg.Conflict.AutoResolve)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"int", EnvRetryMaxAttempts, "many"},
		{"duration", EnvRetryBaseDelay, "soon"},
		{"bool", EnvAutoResolve, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := Default().ApplyEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestOrchestratorOptions(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "readsync.yaml"))
	require.NoError(t, err)

	orch, err := synckit.NewOrchestrator(nopCoordinator{}, nil, cfg.OrchestratorOptions()...)
	require.NoError(t, err)

	engineCfg := orch.Engine().Config()
	assert.Equal(t, 250, engineCfg.BatchSize)
	assert.Equal(t, 0.5, engineCfg.Rules[record.FieldProgress].Tolerance)
}

func TestStoreConfig(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = "/tmp/state.db"
	cfg.Storage.EnableWAL = false
	cfg.Storage.Table = "kobo_state"

	store := cfg.StoreConfig(nil)
	assert.Equal(t, "/tmp/state.db", store.DataSourceName)
	assert.False(t, store.EnableWAL)
	assert.Equal(t, "kobo_state", store.TableName)
	assert.Equal(t, 25, store.MaxOpenConns)
}

type nopCoordinator struct{}

func (nopCoordinator) SyncData(context.Context, []record.Record, []record.Record, *synckit.SyncOptions) (*synckit.CoordinatorResult, error) {
	return &synckit.CoordinatorResult{Success: true}, nil
}

func (nopCoordinator) ValidateDataIntegrity(context.Context) error { return nil }

func (nopCoordinator) GetStatistics(context.Context) (map[string]any, error) { return nil, nil }
