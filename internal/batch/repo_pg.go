package batch

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PGRepo stores runs in the analysis_runs table.
type PGRepo struct {
	DB *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: db}
}

const insertRunQuery = `
INSERT INTO analysis_runs (
	run_id, total_records, batch_size, max_parallel, max_retries,
	retry_delay_ms, processed, succeeded, failed, status, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

func (r *PGRepo) Create(ctx context.Context, run Run) error {
	_, err := r.DB.ExecContext(ctx, insertRunQuery,
		run.RunID, run.TotalRecords, run.Config.BatchSize, run.Config.MaxParallel,
		run.Config.MaxRetries, run.Config.RetryDelay.Milliseconds(),
		run.Processed, run.Succeeded, run.Failed, run.Status,
		run.StartedAt, run.FinishedAt,
	)
	return err
}

const updateRunQuery = `
UPDATE analysis_runs
SET total_records = $2, processed = $3, succeeded = $4, failed = $5,
    status = $6, finished_at = $7
WHERE run_id = $1`

func (r *PGRepo) Update(ctx context.Context, run Run) error {
	_, err := r.DB.ExecContext(ctx, updateRunQuery,
		run.RunID, run.TotalRecords, run.Processed, run.Succeeded, run.Failed,
		run.Status, run.FinishedAt,
	)
	return err
}

const getRunQuery = `
SELECT run_id, total_records, batch_size, max_parallel, max_retries,
       retry_delay_ms, processed, succeeded, failed, status, started_at, finished_at
FROM analysis_runs WHERE run_id = $1`

func (r *PGRepo) Get(ctx context.Context, runID uuid.UUID) (Run, error) {
	var (
		run        Run
		delayMs    int64
		finishedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, getRunQuery, runID).Scan(
		&run.RunID, &run.TotalRecords, &run.Config.BatchSize, &run.Config.MaxParallel,
		&run.Config.MaxRetries, &delayMs, &run.Processed, &run.Succeeded,
		&run.Failed, &run.Status, &run.StartedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	run.Config.RetryDelay = time.Duration(delayMs) * time.Millisecond
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

var _ Repo = (*PGRepo)(nil)
