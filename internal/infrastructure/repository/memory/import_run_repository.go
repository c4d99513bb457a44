package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
)

type ImportRunRepository struct {
	mu   sync.RWMutex
	runs map[string]importrun.Run
}

var _ importrun.Repository = (*ImportRunRepository)(nil)

func NewImportRunRepository() *ImportRunRepository {
	return &ImportRunRepository{runs: make(map[string]importrun.Run)}
}

func (r *ImportRunRepository) Create(_ context.Context, run importrun.Run) error {
	id := strings.TrimSpace(run.RunID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; ok {
		return fmt.Errorf("%w: run_id=%s", importrun.ErrDuplicateRun, id)
	}
	r.runs[id] = run
	return nil
}

func (r *ImportRunRepository) Finish(_ context.Context, run importrun.Run) error {
	id := strings.TrimSpace(run.RunID)

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.runs[id]
	if !ok || current.Finished() || current.Status != importrun.StatusRunning {
		return fmt.Errorf("%w: run_id=%s", importrun.ErrNotRunning, id)
	}

	current.Status = run.Status
	current.Inserted = run.Inserted
	current.Updated = run.Updated
	current.SkippedFiles = run.SkippedFiles
	current.DroppedRecords = run.DroppedRecords
	current.FailedRecords = run.FailedRecords
	current.Message = run.Message
	current.FinishedAt = run.FinishedAt
	r.runs[id] = current
	return nil
}

func (r *ImportRunRepository) Get(_ context.Context, runID string) (importrun.Run, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[strings.TrimSpace(runID)]
	return run, ok, nil
}
