//go:build integration

package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/mongodb"
	sharedtesting "github.com/wms-platform/slotting-simulator/pkg/testing"
)

func newRepository(t *testing.T) *RunRepository {
	t.Helper()
	ctx, cancel := sharedtesting.CreateTestContext(2 * time.Minute)
	defer cancel()

	container, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	client, err := container.NewClient(ctx, "slotting_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	repo, err := NewRunRepository(ctx, mongodb.NewInstrumentedClient(client, nil, logging.Discard()))
	require.NoError(t, err)
	return repo
}

func TestRunRepository_Lifecycle(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	req := domain.SimulationRequest{
		Strategy:     domain.StrategyCurrent,
		StartDate:    time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC),
		NumberOfDays: 2,
	}
	run := domain.NewSimulationRun("run-1", req)
	require.NoError(t, repo.Save(ctx, run))

	result := domain.SimulationResult{Date: req.StartDate, Length: 12.5, PicklistCount: 2}
	require.NoError(t, repo.AppendResult(ctx, "run-1", result))

	run.Results = append(run.Results, result)
	run.Complete()
	require.NoError(t, repo.Save(ctx, run))

	loaded, err := repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, loaded.Status)
	assert.Equal(t, domain.StrategyCurrent, loaded.Request.Strategy)
	require.Len(t, loaded.Results, 1)
	assert.Equal(t, 12.5, loaded.Results[0].Length)
	assert.NotNil(t, loaded.CompletedAt)
}

func TestRunRepository_NotFound(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	err = repo.AppendResult(ctx, "missing", domain.SimulationResult{})
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunRepository_FindRecent(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := domain.NewSimulationRun(id, domain.SimulationRequest{Strategy: domain.StrategyRandom, NumberOfDays: 1})
		run.StartedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Save(ctx, run))
	}

	runs, err := repo.FindRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}
