package cache

import (
	"context"
	"strings"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	basecache "github.com/riskibarqy/volleyball-league/internal/platform/cache"
)

const standingsKeyPrefix = "standings"

// TeamStandingRepository caches read paths of a teamstanding.Repository.
// Every successful Upsert drops the whole standings keyspace.
type TeamStandingRepository struct {
	next  teamstanding.Repository
	cache *basecache.Store
}

var _ teamstanding.Repository = (*TeamStandingRepository)(nil)

func NewTeamStandingRepository(next teamstanding.Repository, cache *basecache.Store) *TeamStandingRepository {
	return &TeamStandingRepository{next: next, cache: cache}
}

func (r *TeamStandingRepository) FindRow(ctx context.Context, key teamstanding.Key) (teamstanding.Row, bool, error) {
	return r.next.FindRow(ctx, key)
}

func (r *TeamStandingRepository) Upsert(ctx context.Context, row teamstanding.Row) (teamstanding.UpsertOutcome, error) {
	outcome, err := r.next.Upsert(ctx, row)
	if err != nil {
		return outcome, err
	}
	r.cache.DeletePrefix(ctx, standingsKeyPrefix+":")
	return outcome, nil
}

func (r *TeamStandingRepository) LatestImportDay(ctx context.Context) (time.Time, bool, error) {
	return r.cachedDay(ctx, basecache.Key(standingsKeyPrefix, "latest"), func(ctx context.Context) (time.Time, bool, error) {
		return r.next.LatestImportDay(ctx)
	})
}

func (r *TeamStandingRepository) LatestImportDayFor(ctx context.Context, leagueName, subLeague string) (time.Time, bool, error) {
	key := basecache.Key(standingsKeyPrefix, "latest", leagueName, league.SubLeagueKey(subLeague))
	return r.cachedDay(ctx, key, func(ctx context.Context) (time.Time, bool, error) {
		return r.next.LatestImportDayFor(ctx, leagueName, subLeague)
	})
}

type cachedDay struct {
	day    time.Time
	exists bool
}

func (r *TeamStandingRepository) cachedDay(ctx context.Context, key string, load func(context.Context) (time.Time, bool, error)) (time.Time, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		day, exists, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return cachedDay{day: day, exists: exists}, nil
	})
	if err != nil {
		return time.Time{}, false, err
	}

	cached, _ := v.(cachedDay)
	return cached.day, cached.exists, nil
}

func (r *TeamStandingRepository) ListByDay(ctx context.Context, leagueName, subLeague string, day time.Time) ([]teamstanding.Row, error) {
	key := basecache.Key(standingsKeyPrefix, "rows", leagueName, league.SubLeagueKey(subLeague), day.Format(time.DateOnly))
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByDay(ctx, leagueName, subLeague, day)
		if err != nil {
			return nil, err
		}
		return append([]teamstanding.Row(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]teamstanding.Row)
	return append([]teamstanding.Row(nil), items...), nil
}

func (r *TeamStandingRepository) ListSubLeagues(ctx context.Context, leagueName string, day time.Time) ([]string, error) {
	key := basecache.Key(standingsKeyPrefix, "subleagues", leagueName, day.Format(time.DateOnly))
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListSubLeagues(ctx, leagueName, day)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]string)
	return append([]string(nil), items...), nil
}

func (r *TeamStandingRepository) ListLeagues(ctx context.Context) ([]teamstanding.LeagueSummary, error) {
	v, err := r.cache.GetOrLoad(ctx, basecache.Key(standingsKeyPrefix, "leagues"), func(ctx context.Context) (any, error) {
		items, err := r.next.ListLeagues(ctx)
		if err != nil {
			return nil, err
		}
		return append([]teamstanding.LeagueSummary(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]teamstanding.LeagueSummary)
	return append([]teamstanding.LeagueSummary(nil), items...), nil
}

func (r *TeamStandingRepository) HasRowsBefore(ctx context.Context, leagueName string, day time.Time) (bool, error) {
	key := basecache.Key(standingsKeyPrefix, "before", leagueName, day.Format(time.DateOnly))
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return r.next.HasRowsBefore(ctx, leagueName, day)
	})
	if err != nil {
		return false, err
	}

	found, _ := v.(bool)
	return found, nil
}

func (r *TeamStandingRepository) TrendSeries(ctx context.Context, query teamstanding.TrendQuery) ([]teamstanding.TrendPoint, error) {
	since := "all"
	if query.Since != nil {
		since = query.Since.Format(time.DateOnly)
	}
	key := basecache.Key(
		standingsKeyPrefix,
		"trend",
		query.League,
		league.SubLeagueKey(query.SubLeague),
		strings.ToLower(string(query.Metric)),
		since,
	)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.TrendSeries(ctx, query)
		if err != nil {
			return nil, err
		}
		return append([]teamstanding.TrendPoint(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]teamstanding.TrendPoint)
	return append([]teamstanding.TrendPoint(nil), items...), nil
}
