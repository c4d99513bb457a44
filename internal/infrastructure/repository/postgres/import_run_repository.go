package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/volleyball-league/internal/domain/importrun"
	qb "github.com/riskibarqy/volleyball-league/internal/platform/querybuilder"
)

const importRunTable = "import_runs"

type importRunModel struct {
	RunID          string         `db:"run_id"`
	Mode           string         `db:"mode"`
	League         sql.NullString `db:"league"`
	Trigger        string         `db:"triggered_by"`
	Status         string         `db:"status"`
	Inserted       int            `db:"inserted"`
	Updated        int            `db:"updated"`
	SkippedFiles   int            `db:"skipped_files"`
	DroppedRecords int            `db:"dropped_records"`
	FailedRecords  int            `db:"failed_records"`
	Message        string         `db:"message"`
	StartedAt      time.Time      `db:"started_at"`
	FinishedAt     sql.NullTime   `db:"finished_at"`
	TraceID        sql.NullString `db:"trace_id"`
}

type importRunInsertModel struct {
	RunID          string     `db:"run_id"`
	Mode           string     `db:"mode"`
	League         *string    `db:"league"`
	Trigger        string     `db:"triggered_by"`
	Status         string     `db:"status"`
	Inserted       int        `db:"inserted"`
	Updated        int        `db:"updated"`
	SkippedFiles   int        `db:"skipped_files"`
	DroppedRecords int        `db:"dropped_records"`
	FailedRecords  int        `db:"failed_records"`
	Message        string     `db:"message"`
	StartedAt      time.Time  `db:"started_at"`
	FinishedAt     *time.Time `db:"finished_at"`
	TraceID        *string    `db:"trace_id"`
}

type ImportRunRepository struct {
	db *sqlx.DB
}

var _ importrun.Repository = (*ImportRunRepository)(nil)

func NewImportRunRepository(db *sqlx.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Create(ctx context.Context, run importrun.Run) error {
	insertModel := importRunInsertModel{
		RunID:          run.RunID,
		Mode:           string(run.Mode),
		League:         nullableString(run.League),
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
		TraceID:        nullableString(run.TraceID),
	}

	query, args, err := qb.InsertModel(importRunTable, insertModel, "")
	if err != nil {
		return fmt.Errorf("build create import run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: run_id=%s", importrun.ErrDuplicateRun, run.RunID)
		}
		return fmt.Errorf("create import run id=%s: %w", run.RunID, err)
	}
	return nil
}

func (r *ImportRunRepository) Finish(ctx context.Context, run importrun.Run) error {
	query, args, err := finishImportRunQuery(run)
	if err != nil {
		return fmt.Errorf("build finish import run query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finish import run id=%s: %w", run.RunID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish import run id=%s rows affected: %w", run.RunID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: run_id=%s", importrun.ErrNotRunning, run.RunID)
	}
	return nil
}

// finishImportRunQuery only matches a run that is still running.
func finishImportRunQuery(run importrun.Run) (string, []any, error) {
	return qb.Update(importRunTable).
		Set("status", string(run.Status)).
		Set("inserted", run.Inserted).
		Set("updated", run.Updated).
		Set("skipped_files", run.SkippedFiles).
		Set("dropped_records", run.DroppedRecords).
		Set("failed_records", run.FailedRecords).
		Set("message", run.Message).
		Set("finished_at", run.FinishedAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("run_id", strings.TrimSpace(run.RunID)),
			qb.EqLiteral("status", string(importrun.StatusRunning)),
			qb.IsNull("finished_at"),
		).
		ToSQL()
}

func (r *ImportRunRepository) Get(ctx context.Context, runID string) (importrun.Run, bool, error) {
	query, args, err := qb.Select(
		"run_id",
		"mode",
		"league",
		"triggered_by",
		"status",
		"inserted",
		"updated",
		"skipped_files",
		"dropped_records",
		"failed_records",
		"message",
		"started_at",
		"finished_at",
		"trace_id",
	).
		From(importRunTable).
		Where(qb.Eq("run_id", strings.TrimSpace(runID))).
		Limit(1).
		ToSQL()
	if err != nil {
		return importrun.Run{}, false, fmt.Errorf("build get import run query: %w", err)
	}

	var row importRunModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return importrun.Run{}, false, nil
		}
		return importrun.Run{}, false, fmt.Errorf("get import run id=%s: %w", runID, err)
	}

	return importrun.Run{
		RunID:          row.RunID,
		Mode:           importrun.Mode(row.Mode),
		League:         nullStringValue(row.League),
		Trigger:        row.Trigger,
		Status:         importrun.Status(row.Status),
		Inserted:       row.Inserted,
		Updated:        row.Updated,
		SkippedFiles:   row.SkippedFiles,
		DroppedRecords: row.DroppedRecords,
		FailedRecords:  row.FailedRecords,
		Message:        row.Message,
		StartedAt:      row.StartedAt,
		FinishedAt:     nullTimeToTimePtr(row.FinishedAt),
		TraceID:        nullStringValue(row.TraceID),
	}, true, nil
}
