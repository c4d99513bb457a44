package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standingRow(teamID, name, leagueName, subLeague string, position, points int, day time.Time) teamstanding.Row {
	return teamstanding.NewRow(teamstanding.Record{
		TeamID:        teamID,
		TeamName:      name,
		League:        leagueName,
		SubLeague:     subLeague,
		Position:      position,
		RankingPoints: points,
	}, day, time.UTC)
}

func TestTeamStandingRepository_UpsertIsKeyedByDayAndSubLeague(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewTeamStandingRepository()
	day := time.Date(2024, time.March, 4, 9, 30, 0, 0, time.UTC)

	outcome, err := repo.Upsert(ctx, standingRow("1", "Aces", "Men's Division 2", "D2M-A", 1, 10, day))
	require.NoError(t, err)
	assert.Equal(t, teamstanding.OutcomeInserted, outcome)

	outcome, err = repo.Upsert(ctx, standingRow("1", "Aces", "Men's Division 2", "d2m-a", 2, 12, day.Add(3*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, teamstanding.OutcomeUpdated, outcome)

	outcome, err = repo.Upsert(ctx, standingRow("1", "Aces", "Men's Division 2", "D2M-A", 2, 12, day.AddDate(0, 0, 7)))
	require.NoError(t, err)
	assert.Equal(t, teamstanding.OutcomeInserted, outcome)

	row, ok, err := repo.FindRow(ctx, teamstanding.Key{TeamID: "1", League: "Men's Division 2", SubLeagueKey: "d2m-a", Day: day})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 12, row.RankingPoints)
	assert.Equal(t, int64(1), row.ID)

	rows, err := repo.ListByDay(ctx, "Men's Division 2", "D2M-A", day)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTeamStandingRepository_ListByDayOrdersByPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	repo := NewTeamStandingRepository(
		standingRow("3", "Cats", "Men's Division 1", "", 3, 4, day),
		standingRow("1", "Aces", "Men's Division 1", "", 1, 9, day),
		standingRow("2", "Bees", "Men's Division 1", "", 1, 9, day),
		standingRow("9", "Other", "Women's Division 1", "", 1, 9, day),
	)

	rows, err := repo.ListByDay(ctx, "Men's Division 1", "", day)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Aces", "Bees", "Cats"}, []string{rows[0].TeamName, rows[1].TeamName, rows[2].TeamName})
}

func TestTeamStandingRepository_LatestDaysAndSummaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d1 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 3)
	repo := NewTeamStandingRepository(
		standingRow("1", "Aces", "Men's Division 2", "D2M-B", 1, 9, d1),
		standingRow("2", "Bees", "Men's Division 2", "D2M-A", 1, 9, d1),
		standingRow("3", "Cats", "Women's Division 1", "", 1, 9, d2),
	)

	latest, ok, err := repo.LatestImportDay(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d2, latest)

	latest, ok, err = repo.LatestImportDayFor(ctx, "Men's Division 2", "d2m-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d1, latest)

	_, ok, err = repo.LatestImportDayFor(ctx, "Men's Division 3", "")
	require.NoError(t, err)
	assert.False(t, ok)

	subs, err := repo.ListSubLeagues(ctx, "Men's Division 2", d1)
	require.NoError(t, err)
	assert.Equal(t, []string{"D2M-A", "D2M-B"}, subs)

	summaries, err := repo.ListLeagues(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, teamstanding.LeagueSummary{Name: "Men's Division 2", LatestDay: d1, Teams: 2}, summaries[0])

	has, err := repo.HasRowsBefore(ctx, "Men's Division 2", d2)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.HasRowsBefore(ctx, "Women's Division 1", d2)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestTeamStandingRepository_TrendSeries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d1 := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)
	repo := NewTeamStandingRepository(
		standingRow("1", "Aces", "Men's Division 1", "", 1, 12, d1),
		standingRow("2", "Bees", "Men's Division 1", "", 2, 6, d1),
		standingRow("1", "Aces", "Men's Division 1", "", 2, 15, d2),
		standingRow("2", "Bees", "Men's Division 1", "", 1, 9, d2),
		standingRow("3", "Cats", "Men's Division 1", "", 3, 3, d2),
	)

	points, err := repo.TrendSeries(ctx, teamstanding.TrendQuery{League: "Men's Division 1", Metric: teamstanding.MetricPoints})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, d1, points[0].Day)
	assert.InDelta(t, 9.0, points[0].Value, 0.0001)
	assert.Equal(t, 3, points[1].Teams)
	assert.InDelta(t, 9.0, points[1].Value, 0.0001)

	since := d2
	points, err = repo.TrendSeries(ctx, teamstanding.TrendQuery{League: "Men's Division 1", Metric: teamstanding.MetricPosition, Since: &since})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 2.0, points[0].Value, 0.0001)
}
