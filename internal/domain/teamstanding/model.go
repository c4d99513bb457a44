package teamstanding

import (
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/league"
)

// EmptyStats is stored when a stats sub-document is absent from the source.
const EmptyStats = "[]"

// Column widths of volleyball_teams; longer values are clipped on normalize.
const (
	MaxTeamIDLen    = 50
	MaxTeamNameLen  = 100
	MaxLeagueLen    = 50
	MaxSubLeagueLen = 50
	MaxLogoURLLen   = 255
	MaxPenaltyLen   = 50
)

// Record is one team's standing as read from a source document.
type Record struct {
	TeamID          string
	TeamName        string
	League          string
	SubLeague       string
	Position        int
	RankingPoints   int
	LogoURL         string
	MatchStats      string
	SetStats        string
	PointStats      string
	ResultBreakdown string
	Penalty         string
}

// Row is a stored Record for one import day.
type Row struct {
	Record
	ID           int64
	SubLeagueKey string
	ImportDate   time.Time
	ImportDay    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key is the uniqueness key of a Row.
type Key struct {
	TeamID       string
	League       string
	SubLeagueKey string
	Day          time.Time
}

// NewRow stamps a record with its import instant. The day is taken in loc.
func NewRow(rec Record, importDate time.Time, loc *time.Location) Row {
	if loc == nil {
		loc = time.UTC
	}
	return Row{
		Record:       rec,
		SubLeagueKey: league.SubLeagueKey(rec.SubLeague),
		ImportDate:   importDate,
		ImportDay:    DayOf(importDate.In(loc)),
	}
}

func (r Row) Key() Key {
	return Key{
		TeamID:       r.TeamID,
		League:       r.League,
		SubLeagueKey: r.SubLeagueKey,
		Day:          DayOf(r.ImportDay),
	}
}

// DayOf returns the calendar date of t (in t's own location) as midnight UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota + 1
	OutcomeUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// LeagueSummary describes what the store holds for one league.
type LeagueSummary struct {
	Name      string
	LatestDay time.Time
	Teams     int
}

type Metric string

const (
	MetricPosition Metric = "position"
	MetricPoints   Metric = "points"
)

func (m Metric) Valid() bool {
	return m == MetricPosition || m == MetricPoints
}

// TrendQuery selects a per-day average of one metric for a league.
type TrendQuery struct {
	League    string
	SubLeague string
	Metric    Metric
	Since     *time.Time
}

type TrendPoint struct {
	Day   time.Time
	Value float64
	Teams int
}
