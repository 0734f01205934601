package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

// PGRepo stores audit entries in the analysis_log table.
type PGRepo struct {
	DB *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: db}
}

const insertEntryQuery = `
INSERT INTO analysis_log (
	session_id, patient_id, original_text, analysis_type,
	ai_model, processing_time_ms, results, success, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

func (r *PGRepo) Insert(ctx context.Context, e Entry) error {
	var results any
	if e.Results != nil {
		raw, err := json.Marshal(e.Results)
		if err != nil {
			return err
		}
		results = raw
	}
	_, err := r.DB.ExecContext(ctx, insertEntryQuery,
		e.SessionID, e.PatientID, e.OriginalText, e.AnalysisType,
		e.AIModel, e.ProcessingMs, results, e.Success, e.CreatedAt,
	)
	return err
}

const listBySessionQuery = `
SELECT id, session_id, patient_id, original_text, analysis_type,
       ai_model, processing_time_ms, results, success, created_at
FROM analysis_log
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`

func (r *PGRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, listBySessionQuery, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.PatientID, &e.OriginalText,
			&e.AnalysisType, &e.AIModel, &e.ProcessingMs, &raw, &e.Success, &e.CreatedAt); err != nil {
			return nil, err
		}
		if raw.Valid {
			if err := json.Unmarshal([]byte(raw.String), &e.Results); err != nil {
				e.Results = nil
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
