package httpapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
)

const zeroRatio = "0.000"

// teamRowDTO is a stored row with its stats columns decoded.
type teamRowDTO struct {
	ID              int64     `json:"id"`
	TeamID          string    `json:"team_id"`
	TeamName        string    `json:"team_name"`
	League          string    `json:"league"`
	SubLeague       *string   `json:"subleague"`
	Position        int       `json:"position"`
	RankingPoints   int       `json:"ranking_points"`
	LogoURL         string    `json:"logo_url"`
	MatchStats      any       `json:"match_stats"`
	SetStats        any       `json:"set_stats"`
	PointStats      any       `json:"point_stats"`
	ResultBreakdown any       `json:"result_breakdown"`
	Penalty         string    `json:"penalty"`
	ImportDate      time.Time `json:"import_date"`
}

type matchStatsDTO struct {
	Played int `json:"played"`
	Won    int `json:"won"`
	Lost   int `json:"lost"`
}

type ratioStatsDTO struct {
	Won   int    `json:"won"`
	Lost  int    `json:"lost"`
	Ratio string `json:"ratio"`
}

type resultBreakdownDTO struct {
	Wins30   int `json:"wins3_0"`
	Wins31   int `json:"wins3_1"`
	Wins32   int `json:"wins3_2"`
	Losses23 int `json:"losses2_3"`
	Losses13 int `json:"losses1_3"`
	Losses03 int `json:"losses0_3"`
}

// standingRecordDTO is the display form of one team's standing.
type standingRecordDTO struct {
	Position        int                `json:"position"`
	TeamName        string             `json:"team_name"`
	RankingPoints   int                `json:"ranking_points"`
	LogoURL         string             `json:"logo_url"`
	MatchStats      matchStatsDTO      `json:"match_stats"`
	SetStats        ratioStatsDTO      `json:"set_stats"`
	PointStats      ratioStatsDTO      `json:"point_stats"`
	ResultBreakdown resultBreakdownDTO `json:"result_breakdown"`
	Penalty         string             `json:"penalty"`
}

type standingsDTO struct {
	League     string              `json:"league"`
	SubLeague  string              `json:"subleague,omitempty"`
	ImportDay  string              `json:"import_day,omitempty"`
	SubLeagues []string            `json:"subleagues,omitempty"`
	Teams      []standingRecordDTO `json:"teams"`
}

type leagueDTO struct {
	Slug      string `json:"slug,omitempty"`
	Name      string `json:"name"`
	Nested    bool   `json:"nested"`
	Known     bool   `json:"known"`
	LatestDay string `json:"latest_import_day,omitempty"`
	Teams     int    `json:"teams"`
}

type trendPointDTO struct {
	Day   string  `json:"date"`
	Value float64 `json:"value"`
	Teams int     `json:"teams"`
}

type trendDTO struct {
	League     string          `json:"league"`
	SubLeague  string          `json:"subleague,omitempty"`
	Type       string          `json:"type"`
	Range      string          `json:"range"`
	Since      string          `json:"since,omitempty"`
	Backfilled bool            `json:"backfilled"`
	Points     []trendPointDTO `json:"points"`
}

type importRunDTO struct {
	RunID          string     `json:"run_id"`
	Mode           string     `json:"mode"`
	League         string     `json:"league,omitempty"`
	Trigger        string     `json:"trigger"`
	Status         string     `json:"status"`
	Inserted       int        `json:"inserted"`
	Updated        int        `json:"updated"`
	SkippedFiles   int        `json:"skipped_files"`
	DroppedRecords int        `json:"dropped_records"`
	FailedRecords  int        `json:"failed_records"`
	Message        string     `json:"message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	TraceID        string     `json:"trace_id,omitempty"`
}

type importTeamsResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Results []string `json:"results"`
	Count   int      `json:"count"`
	RunID   string   `json:"run_id,omitempty"`
}

type displaySettingsDTO struct {
	PrimaryColor   string            `json:"primary_color"`
	SecondaryColor string            `json:"secondary_color"`
	Source         sourceSettingsDTO `json:"source"`
}

type sourceSettingsDTO struct {
	Owner           string `json:"owner"`
	Repo            string `json:"repo"`
	Branch          string `json:"branch"`
	TokenConfigured bool   `json:"token_configured"`
}

func toTeamRowDTOs(rows []teamstanding.Row) []teamRowDTO {
	out := make([]teamRowDTO, 0, len(rows))
	for _, row := range rows {
		item := teamRowDTO{
			ID:              row.ID,
			TeamID:          row.TeamID,
			TeamName:        row.TeamName,
			League:          row.League,
			Position:        row.Position,
			RankingPoints:   row.RankingPoints,
			LogoURL:         row.LogoURL,
			MatchStats:      decodeStats(row.MatchStats),
			SetStats:        decodeStats(row.SetStats),
			PointStats:      decodeStats(row.PointStats),
			ResultBreakdown: decodeStats(row.ResultBreakdown),
			Penalty:         row.Penalty,
			ImportDate:      row.ImportDate,
		}
		if row.SubLeague != "" {
			sub := row.SubLeague
			item.SubLeague = &sub
		}
		out = append(out, item)
	}
	return out
}

func toStandingRecordDTOs(rows []teamstanding.Row) []standingRecordDTO {
	out := make([]standingRecordDTO, 0, len(rows))
	for _, row := range rows {
		matches := statsObject(row.MatchStats)
		sets := statsObject(row.SetStats)
		points := statsObject(row.PointStats)
		breakdown := statsObject(row.ResultBreakdown)

		out = append(out, standingRecordDTO{
			Position:      row.Position,
			TeamName:      row.TeamName,
			RankingPoints: row.RankingPoints,
			LogoURL:       row.LogoURL,
			MatchStats: matchStatsDTO{
				Played: statInt(matches, "played"),
				Won:    statInt(matches, "won"),
				Lost:   statInt(matches, "lost"),
			},
			SetStats: ratioStatsDTO{
				Won:   statInt(sets, "won"),
				Lost:  statInt(sets, "lost"),
				Ratio: formatRatio(sets["ratio"]),
			},
			PointStats: ratioStatsDTO{
				Won:   statInt(points, "won"),
				Lost:  statInt(points, "lost"),
				Ratio: formatRatio(points["ratio"]),
			},
			ResultBreakdown: resultBreakdownDTO{
				Wins30:   statInt(breakdown, "wins3_0"),
				Wins31:   statInt(breakdown, "wins3_1"),
				Wins32:   statInt(breakdown, "wins3_2"),
				Losses23: statInt(breakdown, "losses2_3"),
				Losses13: statInt(breakdown, "losses1_3"),
				Losses03: statInt(breakdown, "losses0_3"),
			},
			Penalty: row.Penalty,
		})
	}
	return out
}

func toStandingsDTO(view usecase.StandingsView, subLeagues []string) standingsDTO {
	out := standingsDTO{
		League:     view.League,
		SubLeague:  view.SubLeague,
		SubLeagues: subLeagues,
		Teams:      toStandingRecordDTOs(view.Rows),
	}
	if view.Day != nil {
		out.ImportDay = view.Day.Format(time.DateOnly)
	}
	return out
}

func toLeagueDTOs(items []usecase.LeagueOverview) []leagueDTO {
	out := make([]leagueDTO, 0, len(items))
	for _, item := range items {
		dto := leagueDTO{
			Slug:   item.League.Slug,
			Name:   item.League.Name,
			Nested: item.League.Nested,
			Known:  item.Known,
			Teams:  item.Teams,
		}
		if item.LatestDay != nil {
			dto.LatestDay = item.LatestDay.Format(time.DateOnly)
		}
		out = append(out, dto)
	}
	return out
}

func toTrendDTO(result usecase.TrendResult) trendDTO {
	out := trendDTO{
		League:     result.League,
		SubLeague:  result.SubLeague,
		Type:       string(result.Metric),
		Range:      result.Range,
		Backfilled: result.Backfilled,
		Points:     make([]trendPointDTO, 0, len(result.Points)),
	}
	if result.Since != nil {
		out.Since = result.Since.Format(time.DateOnly)
	}
	for _, p := range result.Points {
		out.Points = append(out.Points, trendPointDTO{
			Day:   p.Day.Format(time.DateOnly),
			Value: math.Round(p.Value*100) / 100,
			Teams: p.Teams,
		})
	}
	return out
}

func toImportRunDTO(run importrun.Run) importRunDTO {
	return importRunDTO{
		RunID:          run.RunID,
		Mode:           string(run.Mode),
		League:         run.League,
		Trigger:        run.Trigger,
		Status:         string(run.Status),
		Inserted:       run.Inserted,
		Updated:        run.Updated,
		SkippedFiles:   run.SkippedFiles,
		DroppedRecords: run.DroppedRecords,
		FailedRecords:  run.FailedRecords,
		Message:        run.Message,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		TraceID:        run.TraceID,
	}
}

// decodeStats turns a stored stats column back into JSON. Unreadable
// values decode to an empty array.
func decodeStats(encoded string) any {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return []any{}
	}
	var out any
	if err := sonic.UnmarshalString(encoded, &out); err != nil || out == nil {
		return []any{}
	}
	return out
}

func statsObject(encoded string) map[string]any {
	obj, _ := decodeStats(encoded).(map[string]any)
	return obj
}

func statInt(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

// formatRatio renders a ratio with three decimals.
func formatRatio(v any) string {
	var f float64
	switch typed := v.(type) {
	case float64:
		f = typed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return zeroRatio
		}
		f = parsed
	default:
		return zeroRatio
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return zeroRatio
	}
	return fmt.Sprintf("%.3f", f)
}
