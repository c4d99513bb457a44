package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
)

const teamStandingTable = "volleyball_teams"

type teamStandingTableModel struct {
	ID              int64          `db:"id"`
	TeamID          string         `db:"team_id"`
	TeamName        string         `db:"team_name"`
	League          string         `db:"league"`
	SubLeague       sql.NullString `db:"subleague"`
	SubLeagueKey    string         `db:"subleague_key"`
	Position        int            `db:"position"`
	RankingPoints   int            `db:"ranking_points"`
	LogoURL         string         `db:"logo_url"`
	MatchStats      string         `db:"match_stats"`
	SetStats        string         `db:"set_stats"`
	PointStats      string         `db:"point_stats"`
	ResultBreakdown string         `db:"result_breakdown"`
	Penalty         string         `db:"penalty"`
	ImportDate      time.Time      `db:"import_date"`
	ImportDay       time.Time      `db:"import_day"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

type teamStandingInsertModel struct {
	TeamID          string    `db:"team_id"`
	TeamName        string    `db:"team_name"`
	League          string    `db:"league"`
	SubLeague       *string   `db:"subleague"`
	SubLeagueKey    string    `db:"subleague_key"`
	Position        int       `db:"position"`
	RankingPoints   int       `db:"ranking_points"`
	LogoURL         string    `db:"logo_url"`
	MatchStats      string    `db:"match_stats"`
	SetStats        string    `db:"set_stats"`
	PointStats      string    `db:"point_stats"`
	ResultBreakdown string    `db:"result_breakdown"`
	Penalty         string    `db:"penalty"`
	ImportDate      time.Time `db:"import_date"`
	ImportDay       string    `db:"import_day"`
}

type leagueSummaryModel struct {
	League    string    `db:"league"`
	LatestDay time.Time `db:"latest_day"`
	Teams     int       `db:"teams"`
}

type trendPointModel struct {
	Day   time.Time `db:"import_day"`
	Value float64   `db:"value"`
	Teams int       `db:"teams"`
}

type subLeagueModel struct {
	SubLeagueKey string `db:"subleague_key"`
	SubLeague    string `db:"subleague"`
}

func teamStandingFromRow(row teamStandingTableModel) teamstanding.Row {
	return teamstanding.Row{
		Record: teamstanding.Record{
			TeamID:          row.TeamID,
			TeamName:        row.TeamName,
			League:          row.League,
			SubLeague:       nullStringValue(row.SubLeague),
			Position:        row.Position,
			RankingPoints:   row.RankingPoints,
			LogoURL:         row.LogoURL,
			MatchStats:      row.MatchStats,
			SetStats:        row.SetStats,
			PointStats:      row.PointStats,
			ResultBreakdown: row.ResultBreakdown,
			Penalty:         row.Penalty,
		},
		ID:           row.ID,
		SubLeagueKey: row.SubLeagueKey,
		ImportDate:   row.ImportDate,
		ImportDay:    dayFromColumn(row.ImportDay),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func teamStandingInsertFromRow(row teamstanding.Row) teamStandingInsertModel {
	return teamStandingInsertModel{
		TeamID:          row.TeamID,
		TeamName:        row.TeamName,
		League:          row.League,
		SubLeague:       nullableString(row.SubLeague),
		SubLeagueKey:    row.SubLeagueKey,
		Position:        row.Position,
		RankingPoints:   row.RankingPoints,
		LogoURL:         row.LogoURL,
		MatchStats:      row.MatchStats,
		SetStats:        row.SetStats,
		PointStats:      row.PointStats,
		ResultBreakdown: row.ResultBreakdown,
		Penalty:         row.Penalty,
		ImportDate:      row.ImportDate,
		ImportDay:       dateParam(row.ImportDay),
	}
}
