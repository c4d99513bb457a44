package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/volleyball-league/internal/platform/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepository struct {
	teamstanding.Repository
	listCalls atomic.Int32
}

func (r *countingRepository) ListByDay(ctx context.Context, leagueName, subLeague string, day time.Time) ([]teamstanding.Row, error) {
	r.listCalls.Add(1)
	return r.Repository.ListByDay(ctx, leagueName, subLeague, day)
}

func newRow(teamID, name string, position int, day time.Time) teamstanding.Row {
	return teamstanding.NewRow(teamstanding.Record{
		TeamID:    teamID,
		TeamName:  name,
		League:    "Men's Division 2",
		SubLeague: "D2M-A",
		Position:  position,
	}, day, time.UTC)
}

func TestTeamStandingRepository_ListByDayIsCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	next := &countingRepository{Repository: memory.NewTeamStandingRepository(newRow("t1", "Aces", 1, day))}
	repo := NewTeamStandingRepository(next, basecache.NewStore(time.Minute))

	for i := 0; i < 3; i++ {
		rows, err := repo.ListByDay(ctx, "Men's Division 2", "d2m-a", day)
		require.NoError(t, err)
		require.Len(t, rows, 1)
	}
	assert.Equal(t, int32(1), next.listCalls.Load())
}

func TestTeamStandingRepository_UpsertInvalidatesReads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	next := &countingRepository{Repository: memory.NewTeamStandingRepository(newRow("t1", "Aces", 1, day))}
	repo := NewTeamStandingRepository(next, basecache.NewStore(time.Minute))

	rows, err := repo.ListByDay(ctx, "Men's Division 2", "D2M-A", day)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	outcome, err := repo.Upsert(ctx, newRow("t2", "Blockers", 2, day))
	require.NoError(t, err)
	assert.Equal(t, teamstanding.OutcomeInserted, outcome)

	rows, err = repo.ListByDay(ctx, "Men's Division 2", "D2M-A", day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int32(2), next.listCalls.Load())
}

func TestTeamStandingRepository_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	repo := NewTeamStandingRepository(
		memory.NewTeamStandingRepository(newRow("t1", "Aces", 1, day)),
		basecache.NewStore(time.Minute),
	)

	rows, err := repo.ListByDay(ctx, "Men's Division 2", "", day)
	require.NoError(t, err)
	rows[0].TeamName = "mutated"

	rows, err = repo.ListByDay(ctx, "Men's Division 2", "", day)
	require.NoError(t, err)
	assert.Equal(t, "Aces", rows[0].TeamName)
}

func TestTeamStandingRepository_LatestImportDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewTeamStandingRepository(memory.NewTeamStandingRepository(), basecache.NewStore(time.Minute))

	_, exists, err := repo.LatestImportDay(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	_, err = repo.Upsert(ctx, newRow("t1", "Aces", 1, day))
	require.NoError(t, err)

	got, exists, err := repo.LatestImportDay(ctx)
	require.NoError(t, err)
	require.True(t, exists)
	assert.True(t, got.Equal(day))
}

type pausingRepository struct {
	teamstanding.Repository
	paused  atomic.Bool
	entered chan struct{}
	release chan struct{}
}

// ListByDay reads its result first and then, on the first call only, waits
// for release before returning it.
func (r *pausingRepository) ListByDay(ctx context.Context, leagueName, subLeague string, day time.Time) ([]teamstanding.Row, error) {
	rows, err := r.Repository.ListByDay(ctx, leagueName, subLeague, day)
	if r.paused.CompareAndSwap(false, true) {
		close(r.entered)
		<-r.release
	}
	return rows, err
}

func TestTeamStandingRepository_UpsertDuringReadIsNotMasked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	next := &pausingRepository{
		Repository: memory.NewTeamStandingRepository(newRow("t1", "Aces", 1, day)),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	repo := NewTeamStandingRepository(next, basecache.NewStore(time.Minute))

	readDone := make(chan []teamstanding.Row, 1)
	go func() {
		rows, _ := repo.ListByDay(ctx, "Men's Division 2", "D2M-A", day)
		readDone <- rows
	}()

	<-next.entered
	_, err := repo.Upsert(ctx, newRow("t1", "Aces Renamed", 1, day))
	require.NoError(t, err)
	close(next.release)

	stale := <-readDone
	require.Len(t, stale, 1)
	assert.Equal(t, "Aces", stale[0].TeamName)

	rows, err := repo.ListByDay(ctx, "Men's Division 2", "D2M-A", day)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Aces Renamed", rows[0].TeamName)
}
