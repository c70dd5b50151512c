package synckit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/c0deZ3R0/readsync/record"
	"github.com/c0deZ3R0/readsync/synckit"
	"github.com/c0deZ3R0/readsync/synckit/mocks"
)

func TestStats_MergesComponentCounters(t *testing.T) {
	ctrl := gomock.NewController(t)
	coord := mocks.NewMockSyncCoordinator(ctrl)
	orch := newOrchestrator(t, coord, nil)

	gomock.InOrder(
		coord.EXPECT().SyncData(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&synckit.CoordinatorResult{Success: true, Synced: 3}, nil),
		coord.EXPECT().SyncData(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("permission denied")),
	)

	ok := orch.OrchestrateSync(context.Background(), library(3, 2), library(3, 0), &synckit.SyncOptions{})
	require.True(t, ok.Success)
	failed := orch.OrchestrateSync(context.Background(), library(1, 2), library(1, 0), &synckit.SyncOptions{})
	require.False(t, failed.Success)
	orch.OrchestrateSync(context.Background(), nil, []record.Record{}, &synckit.SyncOptions{})

	stats := orch.Stats()
	assert.EqualValues(t, 3, stats.Orchestrator.Runs)
	assert.EqualValues(t, 1, stats.Orchestrator.Successes)
	assert.EqualValues(t, 2, stats.Orchestrator.Failures)
	assert.EqualValues(t, 1, stats.Orchestrator.FailuresByStage["SYNC"])
	assert.EqualValues(t, 1, stats.Orchestrator.FailuresByStage["VALIDATION"])
	assert.EqualValues(t, 1, stats.Orchestrator.Strategies[synckit.StandardSync])
	assert.EqualValues(t, 3, stats.Orchestrator.Synchronized)

	assert.EqualValues(t, 2, stats.Compare.Comparisons)
	assert.EqualValues(t, 2, stats.Conflict.Detections)
	assert.EqualValues(t, 1, stats.Retry.NonRetryable)
	assert.Nil(t, stats.Strategy, "mock coordinator reports no processor stats")
	assert.Equal(t, 100, stats.Tuning.BatchSize)
}

func TestStatisticsMap(t *testing.T) {
	ctrl := gomock.NewController(t)
	coord := mocks.NewMockSyncCoordinator(ctrl)
	orch := newOrchestrator(t, coord, nil)

	coord.EXPECT().GetStatistics(gomock.Any()).Return(map[string]any{"rows": 7}, nil)

	out, err := orch.StatisticsMap(context.Background())
	require.NoError(t, err)
	for _, key := range []string{"orchestrator", "compare", "conflict", "retry", "tuning", "coordinator"} {
		assert.Contains(t, out, key)
	}
	assert.NotContains(t, out, "strategy")
}
