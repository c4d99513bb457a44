package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	"github.com/riskibarqy/volleyball-league/internal/domain/league"
	"github.com/riskibarqy/volleyball-league/internal/domain/rawdata"
	"github.com/riskibarqy/volleyball-league/internal/domain/standingsource"
	"github.com/riskibarqy/volleyball-league/internal/domain/teamstanding"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultCurrentDir       = "current"
	defaultHistoricalDir    = "historical"
	defaultFetchConcurrency = 4

	MessageImportSucceeded     = "Teams imported successfully from GitHub"
	MessageBackfillSucceeded   = "Historical standings imported from GitHub"
	MessageTokenNotConfigured  = "GitHub token not configured"
	MessageInvalidDirectory    = "Invalid GitHub directory response"
	MessageNoValidCurrentData  = "No valid team data found in GitHub /current folder"
	MessageDirectoryFetchError = "Failed to fetch GitHub directory"
	MessageRunInProgress       = "An import is already running"
	MessageStoreFailed         = "Failed to store team standings"
)

// Triggers recorded on import runs.
const (
	TriggerHTTP     = "http"
	TriggerCron     = "cron"
	TriggerJob      = "job"
	TriggerLazyRead = "lazy_read"
)

var historicalFileName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

type ImportConfig struct {
	Source           standingsource.Config
	CurrentDir       string
	HistoricalDir    string
	Location         *time.Location
	FetchConcurrency int
}

// RunLocker serializes import runs sharing a key.
type RunLocker interface {
	TryLock(ctx context.Context, key string) (unlock func(), acquired bool, err error)
}

type noopRunLocker struct{}

func (noopRunLocker) TryLock(_ context.Context, _ string) (func(), bool, error) {
	return func() {}, true, nil
}

func NewNoopRunLocker() RunLocker {
	return noopRunLocker{}
}

// ImportMetrics receives import counters. Implementations must be safe for
// concurrent use.
type ImportMetrics interface {
	RunFinished(mode importrun.Mode, status importrun.Status, elapsed time.Duration)
	RecordUpserted(leagueName string, outcome teamstanding.UpsertOutcome)
	FileSkipped(mode importrun.Mode, reason string)
	RecordsDropped(leagueName string, n int)
	UpsertFailed(leagueName string)
}

type noopImportMetrics struct{}

func (noopImportMetrics) RunFinished(importrun.Mode, importrun.Status, time.Duration) {}
func (noopImportMetrics) RecordUpserted(string, teamstanding.UpsertOutcome)         {}
func (noopImportMetrics) FileSkipped(importrun.Mode, string)                        {}
func (noopImportMetrics) RecordsDropped(string, int)                                {}
func (noopImportMetrics) UpsertFailed(string)                                       {}

type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	RunID        string         `json:"run_id"`
	Mode         importrun.Mode `json:"mode"`
	League       string         `json:"league,omitempty"`
	ImportDate   time.Time      `json:"import_date"`
	Message      string         `json:"message"`
	Results      []string       `json:"results"`
	Inserted     int            `json:"inserted"`
	Updated      int            `json:"updated"`
	Dropped      int            `json:"dropped"`
	Failed       int            `json:"failed"`
	SkippedFiles []SkippedFile  `json:"skipped_files"`
	Diagnostics  []string       `json:"diagnostics,omitempty"`
}

func (r ImportResult) Count() int {
	return len(r.Results)
}

// ImportError carries the partial result of a run that failed.
type ImportError struct {
	Result ImportResult
	Err    error
}

func (e *ImportError) Error() string {
	return e.Err.Error()
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

type ImportService struct {
	cfg        ImportConfig
	fetcher    standingsource.Fetcher
	normalizer *teamstanding.Normalizer
	standings  teamstanding.Repository
	rawData    rawdata.Repository
	runs       importrun.Repository
	locker     RunLocker
	metrics    ImportMetrics
	logger     *logging.Logger
	now        func() time.Time
	newRunID   func() string
}

func NewImportService(
	cfg ImportConfig,
	fetcher standingsource.Fetcher,
	standings teamstanding.Repository,
	rawData rawdata.Repository,
	runs importrun.Repository,
	locker RunLocker,
	metrics ImportMetrics,
	logger *logging.Logger,
) *ImportService {
	if strings.TrimSpace(cfg.CurrentDir) == "" {
		cfg.CurrentDir = defaultCurrentDir
	}
	if strings.TrimSpace(cfg.HistoricalDir) == "" {
		cfg.HistoricalDir = defaultHistoricalDir
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = defaultFetchConcurrency
	}
	if locker == nil {
		locker = NewNoopRunLocker()
	}
	if metrics == nil {
		metrics = noopImportMetrics{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ImportService{
		cfg:        cfg,
		fetcher:    fetcher,
		normalizer: teamstanding.NewNormalizer(),
		standings:  standings,
		rawData:    rawData,
		runs:       runs,
		locker:     locker,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// ImportCurrent imports every league file of the current directory, stamped
// with the invocation time.
func (s *ImportService) ImportCurrent(ctx context.Context, trigger string) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.ImportCurrent")
	defer span.End()

	return s.execute(ctx, span, importrun.ModeCurrent, "", trigger)
}

// BackfillHistorical imports the dated files of the historical directory.
// An empty leagueInput imports every league found there.
func (s *ImportService) BackfillHistorical(ctx context.Context, leagueInput, trigger string) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.BackfillHistorical")
	defer span.End()

	leagueName := ""
	if trimmed := league.CleanLabel(leagueInput); trimmed != "" {
		leagueName = trimmed
		if resolved, ok := league.ResolveLeague(trimmed); ok {
			leagueName = resolved.Name
		}
	}
	return s.execute(ctx, span, importrun.ModeHistorical, leagueName, trigger)
}

type importJob struct {
	index      int
	file       standingsource.File
	leagueName string
	importDate time.Time
}

type importOutcome struct {
	job        importJob
	raw        []byte
	normalized teamstanding.NormalizeResult
	err        error
	reason     string
}

func (s *ImportService) execute(ctx context.Context, span trace.Span, mode importrun.Mode, leagueName, trigger string) (ImportResult, error) {
	span.SetAttributes(
		attribute.String("import.mode", string(mode)),
		attribute.String("import.league", leagueName),
	)

	if !s.cfg.Source.HasToken() {
		return ImportResult{Mode: mode, Message: MessageTokenNotConfigured}, fmt.Errorf("%w: %s", ErrConfig, MessageTokenNotConfigured)
	}

	unlock, acquired, err := s.locker.TryLock(ctx, lockKey(mode, leagueName))
	if err != nil {
		return ImportResult{Mode: mode}, fmt.Errorf("%w: acquire import lock: %v", ErrDependencyUnavailable, err)
	}
	if !acquired {
		return ImportResult{Mode: mode, Message: MessageRunInProgress}, fmt.Errorf("%w: %s mode=%s", ErrConflict, MessageRunInProgress, mode)
	}
	defer unlock()

	startedAt := s.now()
	run := importrun.Run{
		RunID:     s.newRunID(),
		Mode:      mode,
		League:    leagueName,
		Trigger:   strings.TrimSpace(trigger),
		Status:    importrun.StatusRunning,
		StartedAt: startedAt,
	}
	if sc := span.SpanContext(); sc.IsValid() {
		run.TraceID = sc.TraceID().String()
	}
	s.createRun(ctx, run)

	result := ImportResult{
		RunID:        run.RunID,
		Mode:         mode,
		League:       leagueName,
		ImportDate:   startedAt.In(s.cfg.Location),
		Results:      []string{},
		SkippedFiles: []SkippedFile{},
	}

	runErr := s.run(ctx, mode, leagueName, &result)

	status := importrun.StatusSucceeded
	if runErr != nil {
		status = importrun.StatusFailed
		if result.Message == "" {
			result.Message = runErr.Error()
		}
	}
	finishedAt := s.now()
	run.Status = status
	run.Inserted = result.Inserted
	run.Updated = result.Updated
	run.SkippedFiles = len(result.SkippedFiles)
	run.DroppedRecords = result.Dropped
	run.FailedRecords = result.Failed
	run.Message = result.Message
	run.FinishedAt = &finishedAt
	s.finishRun(ctx, run)
	s.metrics.RunFinished(mode, status, finishedAt.Sub(startedAt))

	if runErr != nil {
		span.RecordError(runErr)
		s.logger.WarnContext(ctx, "import run failed",
			"run_id", run.RunID,
			"mode", mode,
			"league", leagueName,
			"error", runErr,
		)
		return result, &ImportError{Result: result, Err: runErr}
	}

	s.logger.InfoContext(ctx, "import run finished",
		"run_id", run.RunID,
		"mode", mode,
		"league", leagueName,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped_files", len(result.SkippedFiles),
		"dropped", result.Dropped,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ImportService) run(ctx context.Context, mode importrun.Mode, leagueName string, result *ImportResult) error {
	dir := s.cfg.CurrentDir
	if mode == importrun.ModeHistorical {
		dir = s.cfg.HistoricalDir
	}

	files, err := s.fetcher.ListDirectory(ctx, dir)
	if err != nil {
		if errors.Is(err, standingsource.ErrMalformedListing) {
			result.Message = MessageInvalidDirectory
			return fmt.Errorf("list %s directory: %w", dir, err)
		}
		result.Message = fmt.Sprintf("%s: %v", MessageDirectoryFetchError, err)
		return fmt.Errorf("list %s directory: %w", dir, err)
	}

	jobs := s.planJobs(mode, leagueName, files, result)
	outcomes := s.fetchAll(ctx, mode, jobs)

	payloads := make([]rawdata.Payload, 0, len(outcomes))
	pending := make([]teamstanding.Row, 0, len(outcomes)*8)
	for _, out := range outcomes {
		if out.err != nil {
			s.skipFile(ctx, mode, result, out.job.file.Name, out.reason, out.err)
			continue
		}

		payloads = append(payloads, rawdata.NewPayload(
			rawdata.SourceGitHub,
			payloadEntity(mode),
			out.job.file.Path,
			out.job.leagueName,
			out.raw,
			nil,
		))

		for _, d := range out.normalized.Diagnostics {
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("%s: %s", out.job.file.Name, d.String()))
			s.logger.WarnContext(ctx, "standings record diagnostic",
				"file", out.job.file.Name,
				"kind", d.Kind,
				"team_id", d.TeamID,
				"error", d.Err,
			)
		}
		if dropped := out.normalized.Dropped(); dropped > 0 {
			result.Dropped += dropped
			s.metrics.RecordsDropped(out.job.leagueName, dropped)
		}
		if len(out.normalized.Records) == 0 {
			s.skipFile(ctx, mode, result, out.job.file.Name, "no teams", nil)
			continue
		}
		for _, rec := range out.normalized.Records {
			pending = append(pending, teamstanding.NewRow(rec, out.job.importDate, s.cfg.Location))
		}
	}

	if len(payloads) > 0 && s.rawData != nil {
		if err := s.rawData.UpsertMany(ctx, payloads); err != nil {
			s.logger.WarnContext(ctx, "store raw standings payloads failed", "count", len(payloads), "error", err)
		}
	}

	if len(pending) == 0 && mode == importrun.ModeCurrent {
		result.Message = MessageNoValidCurrentData
		return fmt.Errorf("%w: %s", ErrNoValidData, MessageNoValidCurrentData)
	}

	var lastErr error
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("upsert standings: %w", err)
		}
		outcome, err := s.standings.Upsert(ctx, row)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("upsert team=%s league=%s: %w", row.TeamID, row.League, ctxErr)
			}
			lastErr = err
			result.Failed++
			result.Results = append(result.Results, fmt.Sprintf("Failed: %s (%s)", row.TeamName, row.League))
			s.metrics.UpsertFailed(row.League)
			s.logger.WarnContext(ctx, "upsert team standing failed",
				"team_id", row.TeamID,
				"league", row.League,
				"error", err,
			)
			continue
		}
		switch outcome {
		case teamstanding.OutcomeInserted:
			result.Inserted++
			result.Results = append(result.Results, fmt.Sprintf("Inserted: %s (%s)", row.TeamName, row.League))
		default:
			result.Updated++
			result.Results = append(result.Results, fmt.Sprintf("Updated: %s (%s)", row.TeamName, row.League))
		}
		s.metrics.RecordUpserted(row.League, outcome)
	}
	if len(pending) > 0 && result.Failed == len(pending) {
		result.Message = fmt.Sprintf("%s: every team upsert failed", MessageStoreFailed)
		return fmt.Errorf("%w: %d team upserts failed: %v", ErrDependencyUnavailable, result.Failed, lastErr)
	}

	if mode == importrun.ModeHistorical {
		result.Message = MessageBackfillSucceeded
	} else {
		result.Message = MessageImportSucceeded
	}
	return nil
}

func (s *ImportService) planJobs(mode importrun.Mode, leagueName string, files []standingsource.File, result *ImportResult) []importJob {
	now := s.now().In(s.cfg.Location)
	jobs := make([]importJob, 0, len(files))
	for _, file := range files {
		if !file.IsJSON() {
			continue
		}
		if mode == importrun.ModeCurrent {
			jobs = append(jobs, importJob{
				index:      len(jobs),
				file:       file,
				leagueName: league.CanonicalLeagueName(file.Stem()),
				importDate: now,
			})
			continue
		}

		match := historicalFileName.FindStringSubmatch(file.Stem())
		if match == nil {
			result.SkippedFiles = append(result.SkippedFiles, SkippedFile{Name: file.Name, Reason: "file name has no date prefix"})
			s.metrics.FileSkipped(mode, "file_name")
			continue
		}
		fileDate, err := time.ParseInLocation(time.DateOnly, match[1], s.cfg.Location)
		if err != nil {
			result.SkippedFiles = append(result.SkippedFiles, SkippedFile{Name: file.Name, Reason: "invalid file date"})
			s.metrics.FileSkipped(mode, "file_name")
			continue
		}
		fileLeague := league.CanonicalLeagueName(match[2])
		if resolved, ok := league.ResolveLeague(match[2]); ok {
			fileLeague = resolved.Name
		}
		if leagueName != "" && !strings.EqualFold(fileLeague, leagueName) {
			continue
		}
		jobs = append(jobs, importJob{
			index:      len(jobs),
			file:       file,
			leagueName: fileLeague,
			importDate: fileDate,
		})
	}
	return jobs
}

// fetchAll downloads and normalizes files concurrently; outcomes keep the
// listing order.
func (s *ImportService) fetchAll(ctx context.Context, mode importrun.Mode, jobs []importJob) []importOutcome {
	if len(jobs) == 0 {
		return nil
	}

	p := pool.NewWithResults[importOutcome]().WithMaxGoroutines(s.cfg.FetchConcurrency)
	for _, job := range jobs {
		p.Go(func() importOutcome {
			return s.fetchOne(ctx, job)
		})
	}
	outcomes := p.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].job.index < outcomes[j].job.index
	})
	return outcomes
}

func (s *ImportService) fetchOne(ctx context.Context, job importJob) importOutcome {
	out := importOutcome{job: job}
	if strings.TrimSpace(job.file.DownloadURL) == "" {
		out.err = fmt.Errorf("file %s has no download url", job.file.Name)
		out.reason = "no download url"
		return out
	}

	raw, err := s.fetcher.FetchFile(ctx, job.file.DownloadURL)
	if err != nil {
		out.err = err
		out.reason = "fetch failed"
		return out
	}
	out.raw = raw

	normalized, err := s.normalizer.Normalize(raw, job.leagueName)
	if err != nil {
		out.err = err
		out.reason = "decode failed"
		if errors.Is(err, teamstanding.ErrShapeUnrecognized) {
			out.reason = "unrecognized shape"
		}
		return out
	}
	out.normalized = normalized
	return out
}

func (s *ImportService) skipFile(ctx context.Context, mode importrun.Mode, result *ImportResult, name, reason string, err error) {
	result.SkippedFiles = append(result.SkippedFiles, SkippedFile{Name: name, Reason: reason})
	s.metrics.FileSkipped(mode, strings.ReplaceAll(reason, " ", "_"))
	if err != nil {
		s.logger.WarnContext(ctx, "skip standings file", "file", name, "reason", reason, "error", err)
		return
	}
	s.logger.WarnContext(ctx, "skip standings file", "file", name, "reason", reason)
}

func (s *ImportService) createRun(ctx context.Context, run importrun.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WarnContext(ctx, "create import run failed", "run_id", run.RunID, "error", err)
	}
}

func (s *ImportService) finishRun(ctx context.Context, run importrun.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WarnContext(ctx, "finish import run failed", "run_id", run.RunID, "status", run.Status, "error", err)
	}
}

func lockKey(mode importrun.Mode, leagueName string) string {
	if mode == importrun.ModeHistorical && leagueName != "" {
		return "import:" + string(mode) + ":" + league.SubLeagueKey(leagueName)
	}
	return "import:" + string(mode)
}

func payloadEntity(mode importrun.Mode) string {
	if mode == importrun.ModeHistorical {
		return rawdata.EntityStandingsHistorical
	}
	return rawdata.EntityStandingsCurrent
}
