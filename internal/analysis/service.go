package analysis

import (
	"context"
	"fmt"
	"time"

	"clinical-backend/internal/auditlog"
	"clinical-backend/internal/shared/telemetry"
)

// NotesLoader resolves a record's note text.
type NotesLoader interface {
	GetNotes(ctx context.Context, recordID int64) (string, error)
}

// Service is the interactive single-record analysis path: load the note,
// run the pipeline, persist the outcome and leave an audit trail.
type Service struct {
	pipeline     *Pipeline
	notes        NotesLoader
	repo         Repo
	audit        *auditlog.Writer
	analysisType string
}

func NewService(pipeline *Pipeline, notes NotesLoader, repo Repo, audit *auditlog.Writer) *Service {
	return &Service{
		pipeline:     pipeline,
		notes:        notes,
		repo:         repo,
		audit:        audit,
		analysisType: "comprehensive",
	}
}

// AnalyzeRecord analyzes one record and stores the result. An empty model
// selects the pipeline's primary model.
func (s *Service) AnalyzeRecord(ctx context.Context, recordID int64, model string) (Outcome, error) {
	text, err := s.notes.GetNotes(ctx, recordID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load record %d: %w", recordID, err)
	}
	if model == "" {
		model = s.pipeline.PrimaryModel()
	}

	started := time.Now()
	out := s.pipeline.Analyze(ctx, recordID, text, model)
	elapsed := time.Since(started)

	if out.Succeeded {
		if err := s.persist(ctx, out); err != nil {
			telemetry.Error("analysis.persist_failed", map[string]any{
				"record_id": recordID,
				"error":     err.Error(),
			})
			out.Succeeded = false
			out.ErrorKind = ErrKindPersistence
			out.Err = err
		}
	}

	s.audit.Record(ctx, auditlog.Entry{
		PatientID:    recordID,
		OriginalText: text,
		AnalysisType: s.analysisType,
		AIModel:      out.ModelUsed,
		ProcessingMs: elapsed.Milliseconds(),
		Results: map[string]any{
			"succeeded":  out.Succeeded,
			"error_kind": string(out.ErrorKind),
		},
		Success: out.Succeeded,
	})

	if !out.Succeeded && out.Err != nil {
		return out, out.Err
	}
	return out, nil
}

// persist writes the outcome, retrying once on failure.
func (s *Service) persist(ctx context.Context, out Outcome) error {
	if err := s.repo.Upsert(ctx, out); err == nil {
		return nil
	}
	return s.repo.Upsert(ctx, out)
}
