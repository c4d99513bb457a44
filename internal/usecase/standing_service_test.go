package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/riskibarqy/volleyball-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	importrunmock "github.com/riskibarqy/volleyball-league/internal/mocks/domain/importrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedRow(teamID, name, leagueName, subLeague string, position, points int, day time.Time) teamstanding.Row {
	return teamstanding.NewRow(teamstanding.Record{
		TeamID:        teamID,
		TeamName:      name,
		League:        leagueName,
		SubLeague:     subLeague,
		Position:      position,
		RankingPoints: points,
	}, day, time.UTC)
}

type recordingBackfiller struct {
	mu      sync.Mutex
	leagues []string
	err     error
	onCall  func(leagueName string)
}

func (b *recordingBackfiller) BackfillHistorical(_ context.Context, leagueInput, _ string) (ImportResult, error) {
	b.mu.Lock()
	b.leagues = append(b.leagues, leagueInput)
	b.mu.Unlock()
	if b.onCall != nil {
		b.onCall(leagueInput)
	}
	if b.err != nil {
		return ImportResult{}, b.err
	}
	return ImportResult{RunID: "run-" + leagueInput, Inserted: 1}, nil
}

func (b *recordingBackfiller) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.leagues...)
}

func TestStandingService_RowsFor_FallsBackToLeagueLatestDay(t *testing.T) {
	t.Parallel()

	latest := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)
	older := latest.AddDate(0, 0, -3)
	repo := memory.NewTeamStandingRepository(
		seedRow("2", "Blockers", "Men's Division 2", "D2M-A", 2, 8, older),
		seedRow("1", "Aces", "Men's Division 2", "D2M-A", 1, 12, older),
		seedRow("9", "Spikers", "Men's Premier Division", "", 1, 15, latest),
	)
	service := NewStandingService(repo, nil, nil, StandingServiceConfig{}, logging.NewNop())

	rows, err := service.RowsFor(context.Background(), "Men's Division 2", "D2M-A")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Aces", rows[0].TeamName)
	assert.Equal(t, older, rows[0].ImportDay)

	rows, err = service.RowsFor(context.Background(), "division-2-men", "d2m-a")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = service.RowsFor(context.Background(), "Men's Premier Division", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, latest, rows[0].ImportDay)
}

func TestStandingService_RowsFor_EmptyStoreAndInvalidInput(t *testing.T) {
	t.Parallel()

	service := NewStandingService(memory.NewTeamStandingRepository(), nil, nil, StandingServiceConfig{}, logging.NewNop())

	rows, err := service.RowsFor(context.Background(), "Men's Division 1", "")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = service.RowsFor(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStandingService_Standings_DefaultsToFirstSubLeague(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	repo := memory.NewTeamStandingRepository(
		seedRow("3", "Cats", "Men's Division 3", "D3M-B", 1, 9, day),
		seedRow("1", "Aces", "Men's Division 3", "D3M-A", 1, 12, day),
		seedRow("2", "Bees", "Men's Division 3", "D3M-A", 2, 10, day),
	)
	service := NewStandingService(repo, nil, nil, StandingServiceConfig{}, logging.NewNop())

	view, err := service.Standings(context.Background(), "division-3-men", "")
	require.NoError(t, err)
	assert.Equal(t, "Men's Division 3", view.League)
	assert.Equal(t, "D3M-A", view.SubLeague)
	require.NotNil(t, view.Day)
	assert.Equal(t, day, *view.Day)
	assert.Len(t, view.Rows, 2)

	subs, err := service.ListSubLeagues(context.Background(), "Men's Division 3")
	require.NoError(t, err)
	assert.Equal(t, []string{"D3M-A", "D3M-B"}, subs)
}

func TestStandingService_ListLeagues_MergesCatalog(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	repo := memory.NewTeamStandingRepository(
		seedRow("1", "Aces", "Men's Division 1", "", 1, 12, day),
		seedRow("2", "Bees", "Summer Cup", "", 1, 12, day),
	)
	service := NewStandingService(repo, nil, nil, StandingServiceConfig{}, logging.NewNop())

	items, err := service.ListLeagues(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 9)
	assert.Equal(t, "Men's Premier Division", items[0].League.Name)
	assert.Nil(t, items[0].LatestDay)
	assert.Equal(t, "Men's Division 1", items[2].League.Name)
	assert.Equal(t, 1, items[2].Teams)
	assert.Equal(t, "Summer Cup", items[8].League.Name)
	assert.False(t, items[8].Known)
}

func TestStandingService_Trends_LazyBackfill(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	repo := memory.NewTeamStandingRepository(
		seedRow("1", "Aces", "Men's Division 1", "", 1, 12, recent),
		seedRow("2", "Bees", "Men's Division 1", "", 2, 6, recent),
	)
	backfiller := &recordingBackfiller{onCall: func(leagueName string) {
		_, _ = repo.Upsert(context.Background(), seedRow("1", "Aces", leagueName, "", 3, 3, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)))
	}}
	service := NewStandingService(repo, nil, backfiller, StandingServiceConfig{}, logging.NewNop())
	service.now = func() time.Time { return now }

	got, err := service.Trends(context.Background(), TrendInput{League: "mens-division-1", Metric: "points"})
	require.NoError(t, err)
	assert.True(t, got.Backfilled)
	assert.Equal(t, []string{"Men's Division 1"}, backfiller.calls())
	require.Len(t, got.Points, 2)
	assert.InDelta(t, 3.0, got.Points[0].Value, 0.0001)
	assert.InDelta(t, 9.0, got.Points[1].Value, 0.0001)

	got, err = service.Trends(context.Background(), TrendInput{League: "Men's Division 1", Metric: "position", Range: "2w"})
	require.NoError(t, err)
	assert.False(t, got.Backfilled)
	assert.Len(t, backfiller.calls(), 1)
	require.Len(t, got.Points, 1)
	assert.InDelta(t, 1.5, got.Points[0].Value, 0.0001)
}

func TestStandingService_Trends_BackfillFailureStillAnswers(t *testing.T) {
	t.Parallel()

	repo := memory.NewTeamStandingRepository()
	backfiller := &recordingBackfiller{err: errors.New("github down")}
	service := NewStandingService(repo, nil, backfiller, StandingServiceConfig{BackfillTimeout: time.Second}, logging.NewNop())

	got, err := service.Trends(context.Background(), TrendInput{League: "Men's Division 1"})
	require.NoError(t, err)
	assert.False(t, got.Backfilled)
	assert.Equal(t, teamstanding.MetricPosition, got.Metric)
	assert.Empty(t, got.Points)

	_, err = service.Trends(context.Background(), TrendInput{League: "Men's Division 1", Metric: "wins"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseTrendRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 31, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    *time.Time
		wantErr bool
	}{
		{in: "all"},
		{in: ""},
		{in: "7d", want: ptrTime(time.Date(2024, time.March, 24, 0, 0, 0, 0, time.UTC))},
		{in: "2w", want: ptrTime(time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC))},
		{in: "-1 month", want: ptrTime(time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC))},
		{in: "1y", want: ptrTime(time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC))},
		{in: "0d", wantErr: true},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTrendRange(tt.in, now)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("ParseTrendRange(%q) expected ErrInvalidInput, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTrendRange(%q) unexpected error: %v", tt.in, err)
		}
		if (got == nil) != (tt.want == nil) || (got != nil && !got.Equal(*tt.want)) {
			t.Fatalf("ParseTrendRange(%q)=%v want=%v", tt.in, got, tt.want)
		}
	}
}

func ptrTime(v time.Time) *time.Time {
	return &v
}

func TestStandingService_BackfillAll(t *testing.T) {
	t.Parallel()

	backfiller := &recordingBackfiller{}
	service := NewStandingService(memory.NewTeamStandingRepository(), nil, backfiller, StandingServiceConfig{BackfillWorkers: 3}, logging.NewNop())

	got, err := service.BackfillAll(context.Background(), TriggerJob)
	require.NoError(t, err)
	assert.Equal(t, 8, got.LeagueCount)
	assert.Equal(t, 8, got.SuccessCount)
	assert.Equal(t, 3, got.WorkerCount)
	require.Len(t, got.Leagues, 8)
	assert.Equal(t, "Men's Premier Division", got.Leagues[0].League)
	assert.Equal(t, "run-Men's Premier Division", got.Leagues[0].RunID)
	assert.Equal(t, "Women's Division 3", got.Leagues[7].League)
	assert.Len(t, backfiller.calls(), 8)
}

func TestStandingService_GetRun_UsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runs := importrunmock.NewRepository(t)
	service := NewStandingService(memory.NewTeamStandingRepository(), runs, nil, StandingServiceConfig{}, logging.NewNop())

	runs.On("Get", mock.Anything, "run-1").
		Return(importrun.Run{RunID: "run-1", Status: importrun.StatusSucceeded}, true, nil).
		Once()
	runs.On("Get", mock.Anything, "missing").
		Return(importrun.Run{}, false, nil).
		Once()

	run, err := service.GetRun(ctx, " run-1 ")
	require.NoError(t, err)
	assert.Equal(t, importrun.StatusSucceeded, run.Status)

	_, err = service.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
