package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportRunRepository_CreateAndFinish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewImportRunRepository()
	started := time.Date(2024, time.March, 4, 6, 0, 0, 0, time.UTC)
	run := importrun.Run{
		RunID:     "run-1",
		Mode:      importrun.ModeCurrent,
		Trigger:   "http",
		Status:    importrun.StatusRunning,
		StartedAt: started,
	}
	require.NoError(t, repo.Create(ctx, run))
	require.ErrorIs(t, repo.Create(ctx, run), importrun.ErrDuplicateRun)

	finished := started.Add(time.Minute)
	run.Status = importrun.StatusSucceeded
	run.Inserted = 3
	run.FailedRecords = 1
	run.FinishedAt = &finished
	require.NoError(t, repo.Finish(ctx, run))

	got, ok, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, importrun.StatusSucceeded, got.Status)
	assert.Equal(t, 3, got.Inserted)
	assert.Equal(t, 1, got.FailedRecords)
	assert.Equal(t, "http", got.Trigger)
	require.NotNil(t, got.FinishedAt)

	require.ErrorIs(t, repo.Finish(ctx, run), importrun.ErrNotRunning)
	require.ErrorIs(t, repo.Finish(ctx, importrun.Run{RunID: "missing"}), importrun.ErrNotRunning)
}
