package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
)

type TeamStandingRepository struct {
	mu     sync.RWMutex
	rows   map[teamstanding.Key]teamstanding.Row
	nextID int64
	now    func() time.Time
}

func NewTeamStandingRepository(rows ...teamstanding.Row) *TeamStandingRepository {
	repo := &TeamStandingRepository{
		rows: make(map[teamstanding.Key]teamstanding.Row, len(rows)),
		now:  time.Now,
	}
	for _, row := range rows {
		_, _ = repo.Upsert(context.Background(), row)
	}
	return repo
}

func (r *TeamStandingRepository) FindRow(_ context.Context, key teamstanding.Key) (teamstanding.Row, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key.Day = teamstanding.DayOf(key.Day)
	row, ok := r.rows[key]
	return row, ok, nil
}

func (r *TeamStandingRepository) Upsert(_ context.Context, row teamstanding.Row) (teamstanding.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row.SubLeagueKey = league.SubLeagueKey(row.SubLeague)
	row.ImportDay = teamstanding.DayOf(row.ImportDay)
	key := row.Key()
	now := r.now()

	if existing, ok := r.rows[key]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.UpdatedAt = now
		r.rows[key] = row
		return teamstanding.OutcomeUpdated, nil
	}

	r.nextID++
	row.ID = r.nextID
	row.CreatedAt = now
	row.UpdatedAt = now
	r.rows[key] = row
	return teamstanding.OutcomeInserted, nil
}

func (r *TeamStandingRepository) LatestImportDay(_ context.Context) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	found := false
	for _, row := range r.rows {
		if !found || row.ImportDay.After(latest) {
			latest = row.ImportDay
			found = true
		}
	}
	return latest, found, nil
}

func (r *TeamStandingRepository) LatestImportDayFor(_ context.Context, leagueName, subLeague string) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subKey := league.SubLeagueKey(subLeague)
	var latest time.Time
	found := false
	for _, row := range r.rows {
		if !matches(row, leagueName, subKey) {
			continue
		}
		if !found || row.ImportDay.After(latest) {
			latest = row.ImportDay
			found = true
		}
	}
	return latest, found, nil
}

func (r *TeamStandingRepository) ListByDay(_ context.Context, leagueName, subLeague string, day time.Time) ([]teamstanding.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subKey := league.SubLeagueKey(subLeague)
	day = teamstanding.DayOf(day)
	out := make([]teamstanding.Row, 0)
	for _, row := range r.rows {
		if matches(row, leagueName, subKey) && row.ImportDay.Equal(day) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].TeamName < out[j].TeamName
	})
	return out, nil
}

func (r *TeamStandingRepository) ListSubLeagues(_ context.Context, leagueName string, day time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day = teamstanding.DayOf(day)
	labels := make(map[string]string)
	for _, row := range r.rows {
		if row.League != leagueName || row.SubLeagueKey == "" || !row.ImportDay.Equal(day) {
			continue
		}
		if current, ok := labels[row.SubLeagueKey]; !ok || row.SubLeague < current {
			labels[row.SubLeagueKey] = row.SubLeague
		}
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, labels[key])
	}
	return out, nil
}

func (r *TeamStandingRepository) ListLeagues(_ context.Context) ([]teamstanding.LeagueSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byLeague := make(map[string]teamstanding.LeagueSummary)
	for _, row := range r.rows {
		summary, ok := byLeague[row.League]
		switch {
		case !ok || row.ImportDay.After(summary.LatestDay):
			summary = teamstanding.LeagueSummary{Name: row.League, LatestDay: row.ImportDay, Teams: 1}
		case row.ImportDay.Equal(summary.LatestDay):
			summary.Teams++
		}
		byLeague[row.League] = summary
	}

	out := make([]teamstanding.LeagueSummary, 0, len(byLeague))
	for _, summary := range byLeague {
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *TeamStandingRepository) HasRowsBefore(_ context.Context, leagueName string, day time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day = teamstanding.DayOf(day)
	for _, row := range r.rows {
		if row.League == leagueName && row.ImportDay.Before(day) {
			return true, nil
		}
	}
	return false, nil
}

func (r *TeamStandingRepository) TrendSeries(_ context.Context, query teamstanding.TrendQuery) ([]teamstanding.TrendPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subKey := league.SubLeagueKey(query.SubLeague)
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, row := range r.rows {
		if !matches(row, query.League, subKey) {
			continue
		}
		if query.Since != nil && row.ImportDay.Before(teamstanding.DayOf(*query.Since)) {
			continue
		}
		b, ok := buckets[row.ImportDay]
		if !ok {
			b = &bucket{}
			buckets[row.ImportDay] = b
		}
		if query.Metric == teamstanding.MetricPoints {
			b.sum += float64(row.RankingPoints)
		} else {
			b.sum += float64(row.Position)
		}
		b.count++
	}

	out := make([]teamstanding.TrendPoint, 0, len(buckets))
	for day, b := range buckets {
		out = append(out, teamstanding.TrendPoint{Day: day, Value: b.sum / float64(b.count), Teams: b.count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out, nil
}

func matches(row teamstanding.Row, leagueName, subKey string) bool {
	if row.League != leagueName {
		return false
	}
	return subKey == "" || row.SubLeagueKey == subKey
}
