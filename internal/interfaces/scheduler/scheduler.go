package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
	"github.com/robfig/cron/v3"
)

// CurrentImporter runs one import of the current standings folder.
type CurrentImporter interface {
	ImportCurrent(ctx context.Context, trigger string) (usecase.ImportResult, error)
}

type Config struct {
	Schedule   string
	Location   *time.Location
	RunTimeout time.Duration
}

// Scheduler triggers the weekly import. Overlapping ticks are skipped.
type Scheduler struct {
	cron     *cron.Cron
	importer CurrentImporter
	schedule string
	timeout  time.Duration
	logger   *logging.Logger
	baseCtx  context.Context
	cancel   context.CancelFunc
}

func New(cfg Config, importer CurrentImporter, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		importer: importer,
		schedule: cfg.Schedule,
		timeout:  timeout,
		logger:   logger.Named("scheduler"),
	}
}

// Start registers the import job and starts the cron loop. The job context
// derives from ctx, so cancelling ctx aborts a run in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseCtx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("schedule weekly import %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("weekly import scheduled", "schedule", s.schedule)
	return nil
}

// RunOnce executes one scheduled import.
func (s *Scheduler) RunOnce() {
	base := s.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	started := time.Now()
	result, err := s.importer.ImportCurrent(ctx, usecase.TriggerCron)
	if err != nil {
		if errors.Is(err, usecase.ErrConflict) {
			s.logger.InfoContext(ctx, "scheduled import skipped, run already in progress")
			return
		}
		s.logger.ErrorContext(ctx, "scheduled import failed",
			"run_id", result.RunID,
			"message", result.Message,
			"error", err,
		)
		return
	}

	s.logger.InfoContext(ctx, "scheduled import finished",
		"run_id", result.RunID,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped_files", len(result.SkippedFiles),
		"duration_ms", time.Since(started).Milliseconds(),
	)
}

// Stop halts the cron loop and waits for a running job up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	if s.cancel != nil {
		defer s.cancel()
	}

	select {
	case <-stopped.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for scheduled import: %w", ctx.Err())
	}
}
