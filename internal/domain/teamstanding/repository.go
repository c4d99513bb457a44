package teamstanding

import (
	"context"
	"time"
)

// Repository stores one row per team, league, sub-league and import day.
// An empty subLeague argument means "any sub-league" on list methods.
type Repository interface {
	FindRow(ctx context.Context, key Key) (Row, bool, error)
	Upsert(ctx context.Context, row Row) (UpsertOutcome, error)
	LatestImportDay(ctx context.Context) (time.Time, bool, error)
	LatestImportDayFor(ctx context.Context, leagueName, subLeague string) (time.Time, bool, error)
	ListByDay(ctx context.Context, leagueName, subLeague string, day time.Time) ([]Row, error)
	ListSubLeagues(ctx context.Context, leagueName string, day time.Time) ([]string, error)
	ListLeagues(ctx context.Context) ([]LeagueSummary, error)
	HasRowsBefore(ctx context.Context, leagueName string, day time.Time) (bool, error)
	TrendSeries(ctx context.Context, query TrendQuery) ([]TrendPoint, error)
}
