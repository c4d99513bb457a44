package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultBackfillTimeout = 2 * time.Minute
	defaultBackfillWorkers = 4
	trendHistoryWindow     = 7 * 24 * time.Hour
)

var trendRangePattern = regexp.MustCompile(`^-?\s*(\d+)\s*(d|days?|w|weeks?|m|months?|y|years?)$`)

// HistoricalBackfiller imports the historical directory for one league.
type HistoricalBackfiller interface {
	BackfillHistorical(ctx context.Context, leagueInput, trigger string) (ImportResult, error)
}

type StandingServiceConfig struct {
	Location        *time.Location
	BackfillTimeout time.Duration
	BackfillWorkers int
}

type LeagueOverview struct {
	League    league.League
	Known     bool
	LatestDay *time.Time
	Teams     int
}

type StandingsView struct {
	League    string
	SubLeague string
	Day       *time.Time
	Rows      []teamstanding.Row
}

type TrendInput struct {
	League    string
	SubLeague string
	Metric    string
	Range     string
}

type TrendResult struct {
	League     string
	SubLeague  string
	Metric     teamstanding.Metric
	Range      string
	Since      *time.Time
	Backfilled bool
	Points     []teamstanding.TrendPoint
}

type BackfillLeagueResult struct {
	League   string `json:"league"`
	RunID    string `json:"run_id,omitempty"`
	Status   string `json:"status"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Message  string `json:"message,omitempty"`
}

type BackfillAllResult struct {
	LeagueCount  int                    `json:"league_count"`
	SuccessCount int                    `json:"success_count"`
	FailedCount  int                    `json:"failed_count"`
	WorkerCount  int                    `json:"worker_count"`
	Leagues      []BackfillLeagueResult `json:"leagues"`
}

type StandingService struct {
	standings  teamstanding.Repository
	runs       importrun.Repository
	backfiller HistoricalBackfiller
	cfg        StandingServiceConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewStandingService(
	standings teamstanding.Repository,
	runs importrun.Repository,
	backfiller HistoricalBackfiller,
	cfg StandingServiceConfig,
	logger *logging.Logger,
) *StandingService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BackfillTimeout <= 0 {
		cfg.BackfillTimeout = defaultBackfillTimeout
	}
	if cfg.BackfillWorkers <= 0 {
		cfg.BackfillWorkers = defaultBackfillWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &StandingService{
		standings:  standings,
		runs:       runs,
		backfiller: backfiller,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// RowsFor returns the rows of the latest import day. When that day holds no
// rows for the pair, the pair's own most recent day is used instead.
func (s *StandingService) RowsFor(ctx context.Context, leagueInput, subLeague string) ([]teamstanding.Row, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.RowsFor")
	defer span.End()

	leagueName, err := resolveLeagueName(leagueInput)
	if err != nil {
		return nil, err
	}
	subLeague = league.CleanLabel(subLeague)
	span.SetAttributes(attribute.String("league", leagueName), attribute.String("subleague", subLeague))

	day, ok, err := s.standings.LatestImportDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest import day: %w", err)
	}
	if !ok {
		return []teamstanding.Row{}, nil
	}

	rows, _, err := s.rowsForDay(ctx, leagueName, subLeague, day)
	return rows, err
}

func (s *StandingService) rowsForDay(ctx context.Context, leagueName, subLeague string, day time.Time) ([]teamstanding.Row, time.Time, error) {
	rows, err := s.standings.ListByDay(ctx, leagueName, subLeague, day)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list rows by day: %w", err)
	}
	if len(rows) > 0 {
		return rows, day, nil
	}

	latest, ok, err := s.standings.LatestImportDayFor(ctx, leagueName, subLeague)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get latest import day for league: %w", err)
	}
	if !ok {
		return []teamstanding.Row{}, time.Time{}, nil
	}

	rows, err = s.standings.ListByDay(ctx, leagueName, subLeague, latest)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list fallback rows: %w", err)
	}
	return rows, latest, nil
}

// Standings resolves a nested league without a sub-league to its first
// sub-league before reading rows.
func (s *StandingService) Standings(ctx context.Context, leagueInput, subLeague string) (StandingsView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.Standings")
	defer span.End()

	leagueName, err := resolveLeagueName(leagueInput)
	if err != nil {
		return StandingsView{}, err
	}
	view := StandingsView{League: leagueName, SubLeague: league.CleanLabel(subLeague)}

	if view.SubLeague == "" && league.IsNestedLeague(leagueName) {
		first, ok, err := s.FirstSubLeague(ctx, leagueName)
		if err != nil {
			return StandingsView{}, err
		}
		if ok {
			view.SubLeague = first
		}
	}

	day, ok, err := s.standings.LatestImportDay(ctx)
	if err != nil {
		return StandingsView{}, fmt.Errorf("get latest import day: %w", err)
	}
	if !ok {
		view.Rows = []teamstanding.Row{}
		return view, nil
	}

	rows, usedDay, err := s.rowsForDay(ctx, leagueName, view.SubLeague, day)
	if err != nil {
		return StandingsView{}, err
	}
	view.Rows = rows
	if !usedDay.IsZero() {
		view.Day = &usedDay
	}
	return view, nil
}

// ListLeagues returns the catalog leagues followed by any other league the
// store holds.
func (s *StandingService) ListLeagues(ctx context.Context) ([]LeagueOverview, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.ListLeagues")
	defer span.End()

	summaries, err := s.standings.ListLeagues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored leagues: %w", err)
	}
	byName := make(map[string]teamstanding.LeagueSummary, len(summaries))
	for _, item := range summaries {
		byName[item.Name] = item
	}

	out := make([]LeagueOverview, 0, len(summaries)+len(league.Leagues()))
	for _, l := range league.Leagues() {
		item := LeagueOverview{League: l, Known: true}
		if summary, ok := byName[l.Name]; ok {
			day := summary.LatestDay
			item.LatestDay = &day
			item.Teams = summary.Teams
			delete(byName, l.Name)
		}
		out = append(out, item)
	}

	extra := make([]LeagueOverview, 0, len(byName))
	for _, summary := range byName {
		day := summary.LatestDay
		extra = append(extra, LeagueOverview{
			League:    league.League{Name: summary.Name},
			LatestDay: &day,
			Teams:     summary.Teams,
		})
	}
	sort.Slice(extra, func(i, j int) bool {
		return extra[i].League.Name < extra[j].League.Name
	})

	return append(out, extra...), nil
}

// ListSubLeagues returns the sub-leagues of the league's most recent day.
func (s *StandingService) ListSubLeagues(ctx context.Context, leagueInput string) ([]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.ListSubLeagues")
	defer span.End()

	leagueName, err := resolveLeagueName(leagueInput)
	if err != nil {
		return nil, err
	}

	day, ok, err := s.standings.LatestImportDayFor(ctx, leagueName, "")
	if err != nil {
		return nil, fmt.Errorf("get latest import day for league: %w", err)
	}
	if !ok {
		return []string{}, nil
	}

	items, err := s.standings.ListSubLeagues(ctx, leagueName, day)
	if err != nil {
		return nil, fmt.Errorf("list sub-leagues: %w", err)
	}
	return items, nil
}

func (s *StandingService) FirstSubLeague(ctx context.Context, leagueInput string) (string, bool, error) {
	items, err := s.ListSubLeagues(ctx, leagueInput)
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return "", false, nil
	}
	return items[0], true, nil
}

// Trends returns the per-day average of a metric. A league with no rows older
// than a week is backfilled from the historical directory first, within the
// configured time budget.
func (s *StandingService) Trends(ctx context.Context, input TrendInput) (TrendResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.Trends")
	defer span.End()

	leagueName, err := resolveLeagueName(input.League)
	if err != nil {
		return TrendResult{}, err
	}
	metric := teamstanding.Metric(strings.ToLower(strings.TrimSpace(input.Metric)))
	if metric == "" {
		metric = teamstanding.MetricPosition
	}
	if !metric.Valid() {
		return TrendResult{}, fmt.Errorf("%w: unsupported trend type %q", ErrInvalidInput, input.Metric)
	}

	now := s.now().In(s.cfg.Location)
	rangeLabel := strings.TrimSpace(input.Range)
	if rangeLabel == "" {
		rangeLabel = "all"
	}
	since, err := ParseTrendRange(rangeLabel, now)
	if err != nil {
		return TrendResult{}, err
	}

	result := TrendResult{
		League:    leagueName,
		SubLeague: league.CleanLabel(input.SubLeague),
		Metric:    metric,
		Range:     rangeLabel,
		Since:     since,
	}

	cutoff := teamstanding.DayOf(now.Add(-trendHistoryWindow))
	hasHistory, err := s.standings.HasRowsBefore(ctx, leagueName, cutoff)
	if err != nil {
		return TrendResult{}, fmt.Errorf("check league history: %w", err)
	}
	if !hasHistory && s.backfiller != nil {
		result.Backfilled = s.lazyBackfill(ctx, leagueName)
	}

	points, err := s.standings.TrendSeries(ctx, teamstanding.TrendQuery{
		League:    leagueName,
		SubLeague: result.SubLeague,
		Metric:    metric,
		Since:     since,
	})
	if err != nil {
		return TrendResult{}, fmt.Errorf("query trend series: %w", err)
	}
	result.Points = points
	return result, nil
}

func (s *StandingService) lazyBackfill(ctx context.Context, leagueName string) bool {
	backfillCtx, cancel := context.WithTimeout(ctx, s.cfg.BackfillTimeout)
	defer cancel()

	res, err := s.backfiller.BackfillHistorical(backfillCtx, leagueName, TriggerLazyRead)
	if err != nil {
		s.logger.WarnContext(ctx, "lazy historical backfill failed",
			"league", leagueName,
			"timeout", s.cfg.BackfillTimeout.String(),
			"error", err,
		)
		return false
	}
	s.logger.InfoContext(ctx, "lazy historical backfill finished",
		"league", leagueName,
		"run_id", res.RunID,
		"inserted", res.Inserted,
		"updated", res.Updated,
	)
	return true
}

// BackfillAll backfills every catalog league on a worker pool.
func (s *StandingService) BackfillAll(ctx context.Context, trigger string) (BackfillAllResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.BackfillAll")
	defer span.End()

	if s.backfiller == nil {
		return BackfillAllResult{}, fmt.Errorf("%w: historical backfill is not configured", ErrDependencyUnavailable)
	}

	leagues := league.Leagues()
	workerCount := min(s.cfg.BackfillWorkers, len(leagues))
	result := BackfillAllResult{
		LeagueCount: len(leagues),
		WorkerCount: workerCount,
		Leagues:     make([]BackfillLeagueResult, 0, len(leagues)),
	}

	p, err := ants.NewPool(workerCount)
	if err != nil {
		return BackfillAllResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer p.Release()

	var (
		mu      sync.Mutex
		workers sync.WaitGroup
	)
	for _, l := range leagues {
		workers.Add(1)
		if err := p.Submit(func() {
			defer workers.Done()

			row := BackfillLeagueResult{League: l.Name, Status: string(importrun.StatusSucceeded)}
			res, err := s.backfiller.BackfillHistorical(ctx, l.Name, trigger)
			row.RunID = res.RunID
			row.Inserted = res.Inserted
			row.Updated = res.Updated
			row.Message = res.Message
			if err != nil {
				row.Status = string(importrun.StatusFailed)
				row.Message = err.Error()
			}

			mu.Lock()
			result.Leagues = append(result.Leagues, row)
			mu.Unlock()
		}); err != nil {
			workers.Done()
			return BackfillAllResult{}, fmt.Errorf("submit backfill to worker pool: %w", err)
		}
	}
	workers.Wait()

	order := make(map[string]int, len(leagues))
	for i, l := range leagues {
		order[l.Name] = i
	}
	sort.SliceStable(result.Leagues, func(i, j int) bool {
		return order[result.Leagues[i].League] < order[result.Leagues[j].League]
	})
	for _, row := range result.Leagues {
		if row.Status == string(importrun.StatusSucceeded) {
			result.SuccessCount++
		} else {
			result.FailedCount++
		}
	}

	return result, nil
}

func (s *StandingService) GetRun(ctx context.Context, runID string) (importrun.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingService.GetRun")
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return importrun.Run{}, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	if s.runs == nil {
		return importrun.Run{}, fmt.Errorf("%w: run=%s", ErrNotFound, runID)
	}

	run, exists, err := s.runs.Get(ctx, runID)
	if err != nil {
		return importrun.Run{}, fmt.Errorf("get import run: %w", err)
	}
	if !exists {
		return importrun.Run{}, fmt.Errorf("%w: run=%s", ErrNotFound, runID)
	}
	return run, nil
}

// ParseTrendRange turns "all", "<n>d|w|m|y" or "<n> days|weeks|months|years"
// into the first day to include. "all" yields nil.
func ParseTrendRange(value string, now time.Time) (*time.Time, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "all" {
		return nil, nil
	}

	match := trendRangePattern.FindStringSubmatch(value)
	if match == nil {
		return nil, fmt.Errorf("%w: unsupported trend range %q", ErrInvalidInput, value)
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: unsupported trend range %q", ErrInvalidInput, value)
	}

	var since time.Time
	switch match[2][0] {
	case 'd':
		since = now.AddDate(0, 0, -n)
	case 'w':
		since = now.AddDate(0, 0, -7*n)
	case 'm':
		since = now.AddDate(0, -n, 0)
	default:
		since = now.AddDate(-n, 0, 0)
	}
	day := teamstanding.DayOf(since)
	return &day, nil
}

func resolveLeagueName(input string) (string, error) {
	cleaned := league.CleanLabel(input)
	if cleaned == "" {
		return "", fmt.Errorf("%w: league is required", ErrInvalidInput)
	}
	if resolved, ok := league.ResolveLeague(cleaned); ok {
		return resolved.Name, nil
	}
	return cleaned, nil
}
