// Package auditlog records each analysis invocation for later review.
// Writes are best-effort: a failed audit write never fails the analysis
// that produced it.
package auditlog

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"clinical-backend/internal/shared/telemetry"
)

// maxTextChars bounds the stored copy of the analyzed text.
const maxTextChars = 1000

// Entry is one audit row.
type Entry struct {
	ID           int64          `json:"id,omitempty"`
	SessionID    uuid.UUID      `json:"session_id"`
	PatientID    int64          `json:"patient_id"`
	OriginalText string         `json:"original_text"`
	AnalysisType string         `json:"analysis_type"`
	AIModel      string         `json:"ai_model"`
	ProcessingMs int64          `json:"processing_time_ms"`
	Results      map[string]any `json:"results,omitempty"`
	Success      bool           `json:"success"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Repo stores audit entries.
type Repo interface {
	Insert(ctx context.Context, e Entry) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]Entry, error)
}

// Writer truncates and records entries against a Repo.
type Writer struct {
	repo      Repo
	sessionID uuid.UUID
}

func NewWriter(repo Repo) *Writer {
	return &Writer{repo: repo, sessionID: uuid.New()}
}

func (w *Writer) SessionID() uuid.UUID { return w.sessionID }

// Record writes one entry. Failures are logged and swallowed.
func (w *Writer) Record(ctx context.Context, e Entry) {
	if w == nil || w.repo == nil {
		return
	}
	e.SessionID = w.sessionID
	if utf8.RuneCountInString(e.OriginalText) > maxTextChars {
		e.OriginalText = string([]rune(e.OriginalText)[:maxTextChars])
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := w.repo.Insert(ctx, e); err != nil {
		telemetry.Warn("auditlog.insert_failed", map[string]any{
			"patient_id": e.PatientID,
			"error":      err.Error(),
		})
	}
}
