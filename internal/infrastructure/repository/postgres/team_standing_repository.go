package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	qb "github.com/riskibarqy/volleyball-league/internal/platform/querybuilder"
)

var teamStandingColumns = []string{
	"id",
	"team_id",
	"team_name",
	"league",
	"subleague",
	"subleague_key",
	"position",
	"ranking_points",
	"logo_url",
	"match_stats",
	"set_stats",
	"point_stats",
	"result_breakdown",
	"penalty",
	"import_date",
	"import_day",
	"created_at",
	"updated_at",
}

const teamStandingUpsertSuffix = `ON CONFLICT (team_id, league, subleague_key, import_day)
DO UPDATE SET
    team_name = EXCLUDED.team_name,
    subleague = EXCLUDED.subleague,
    position = EXCLUDED.position,
    ranking_points = EXCLUDED.ranking_points,
    logo_url = EXCLUDED.logo_url,
    match_stats = EXCLUDED.match_stats,
    set_stats = EXCLUDED.set_stats,
    point_stats = EXCLUDED.point_stats,
    result_breakdown = EXCLUDED.result_breakdown,
    penalty = EXCLUDED.penalty,
    import_date = EXCLUDED.import_date,
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

const listLeaguesQuery = `SELECT t.league, t.import_day AS latest_day, COUNT(*) AS teams
FROM volleyball_teams t
JOIN (
    SELECT league, MAX(import_day) AS import_day
    FROM volleyball_teams
    GROUP BY league
) latest ON latest.league = t.league AND latest.import_day = t.import_day
GROUP BY t.league, t.import_day
ORDER BY t.league ASC`

type TeamStandingRepository struct {
	db *sqlx.DB
}

var _ teamstanding.Repository = (*TeamStandingRepository)(nil)

func NewTeamStandingRepository(db *sqlx.DB) *TeamStandingRepository {
	return &TeamStandingRepository{db: db}
}

func (r *TeamStandingRepository) FindRow(ctx context.Context, key teamstanding.Key) (teamstanding.Row, bool, error) {
	query, args, err := qb.Select(teamStandingColumns...).
		From(teamStandingTable).
		Where(
			qb.Eq("team_id", key.TeamID),
			qb.Eq("league", key.League),
			qb.Eq("subleague_key", key.SubLeagueKey),
			qb.Eq("import_day", dateParam(key.Day)),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return teamstanding.Row{}, false, fmt.Errorf("build find team standing query: %w", err)
	}

	var row teamStandingTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return teamstanding.Row{}, false, nil
		}
		return teamstanding.Row{}, false, fmt.Errorf("find team standing team=%s league=%s: %w", key.TeamID, key.League, err)
	}
	return teamStandingFromRow(row), true, nil
}

func (r *TeamStandingRepository) Upsert(ctx context.Context, row teamstanding.Row) (teamstanding.UpsertOutcome, error) {
	row.SubLeagueKey = league.SubLeagueKey(row.SubLeague)
	row.ImportDay = teamstanding.DayOf(row.ImportDay)

	query, args, err := qb.InsertModel(teamStandingTable, teamStandingInsertFromRow(row), teamStandingUpsertSuffix)
	if err != nil {
		return 0, fmt.Errorf("build upsert team standing query: %w", err)
	}

	var inserted bool
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&inserted); err != nil {
		return 0, fmt.Errorf("upsert team standing team=%s league=%s day=%s: %w", row.TeamID, row.League, dateParam(row.ImportDay), err)
	}
	if inserted {
		return teamstanding.OutcomeInserted, nil
	}
	return teamstanding.OutcomeUpdated, nil
}

func (r *TeamStandingRepository) LatestImportDay(ctx context.Context) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(import_day)").From(teamStandingTable).ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build latest import day query: %w", err)
	}
	return r.maxDay(ctx, query, args)
}

func (r *TeamStandingRepository) LatestImportDayFor(ctx context.Context, leagueName, subLeague string) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(import_day)").
		From(teamStandingTable).
		Where(leagueConditions(leagueName, subLeague)...).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build latest import day for league query: %w", err)
	}
	return r.maxDay(ctx, query, args)
}

func (r *TeamStandingRepository) maxDay(ctx context.Context, query string, args []any) (time.Time, bool, error) {
	var day sql.NullTime
	if err := r.db.GetContext(ctx, &day, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("query latest import day: %w", err)
	}
	if !day.Valid {
		return time.Time{}, false, nil
	}
	return dayFromColumn(day.Time), true, nil
}

func (r *TeamStandingRepository) ListByDay(ctx context.Context, leagueName, subLeague string, day time.Time) ([]teamstanding.Row, error) {
	conditions := append(leagueConditions(leagueName, subLeague), qb.Eq("import_day", dateParam(day)))
	query, args, err := qb.Select(teamStandingColumns...).
		From(teamStandingTable).
		Where(conditions...).
		OrderBy("position ASC", "team_name ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list team standings query: %w", err)
	}

	var rows []teamStandingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list team standings league=%s day=%s: %w", leagueName, dateParam(day), err)
	}

	out := make([]teamstanding.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamStandingFromRow(row))
	}
	return out, nil
}

func (r *TeamStandingRepository) ListSubLeagues(ctx context.Context, leagueName string, day time.Time) ([]string, error) {
	query, args, err := qb.Select("subleague_key", "MIN(subleague) AS subleague").
		From(teamStandingTable).
		Where(
			qb.Eq("league", leagueName),
			qb.Eq("import_day", dateParam(day)),
			qb.Expr("subleague_key <> ''"),
		).
		GroupBy("subleague_key").
		OrderBy("subleague_key ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list sub leagues query: %w", err)
	}

	var rows []subLeagueModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sub leagues league=%s: %w", leagueName, err)
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.SubLeague)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (r *TeamStandingRepository) ListLeagues(ctx context.Context) ([]teamstanding.LeagueSummary, error) {
	var rows []leagueSummaryModel
	if err := r.db.SelectContext(ctx, &rows, listLeaguesQuery); err != nil {
		return nil, fmt.Errorf("list stored leagues: %w", err)
	}

	out := make([]teamstanding.LeagueSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamstanding.LeagueSummary{
			Name:      row.League,
			LatestDay: dayFromColumn(row.LatestDay),
			Teams:     row.Teams,
		})
	}
	return out, nil
}

func (r *TeamStandingRepository) HasRowsBefore(ctx context.Context, leagueName string, day time.Time) (bool, error) {
	query, args, err := qb.Select("1").
		From(teamStandingTable).
		Where(
			qb.Eq("league", leagueName),
			qb.Lt("import_day", dateParam(day)),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build has rows before query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check rows before league=%s day=%s: %w", leagueName, dateParam(day), err)
	}
	return true, nil
}

func (r *TeamStandingRepository) TrendSeries(ctx context.Context, q teamstanding.TrendQuery) ([]teamstanding.TrendPoint, error) {
	column := "position"
	if q.Metric == teamstanding.MetricPoints {
		column = "ranking_points"
	}

	conditions := leagueConditions(q.League, q.SubLeague)
	if q.Since != nil {
		conditions = append(conditions, qb.Gte("import_day", dateParam(*q.Since)))
	}

	query, args, err := qb.Select(
		"import_day",
		"AVG("+column+")::float8 AS value",
		"COUNT(*) AS teams",
	).
		From(teamStandingTable).
		Where(conditions...).
		GroupBy("import_day").
		OrderBy("import_day ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build trend series query: %w", err)
	}

	var rows []trendPointModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query trend series league=%s metric=%s: %w", q.League, q.Metric, err)
	}

	out := make([]teamstanding.TrendPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamstanding.TrendPoint{
			Day:   dayFromColumn(row.Day),
			Value: row.Value,
			Teams: row.Teams,
		})
	}
	return out, nil
}

// leagueConditions filters by league and, when given, by folded sub-league.
func leagueConditions(leagueName, subLeague string) []qb.Condition {
	conditions := []qb.Condition{qb.Eq("league", leagueName)}
	if key := league.SubLeagueKey(subLeague); key != "" {
		conditions = append(conditions, qb.Eq("subleague_key", key))
	}
	return conditions
}
