package analysis_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/auditlog"
)

type notesMap map[int64]string

func (n notesMap) GetNotes(ctx context.Context, id int64) (string, error) {
	text, ok := n[id]
	if !ok {
		return "", fmt.Errorf("record %d: %w", id, errNotFoundSentinel)
	}
	return text, nil
}

var errNotFoundSentinel = fmt.Errorf("no such record")

func TestAnalyzeRecordPersistsAndAudits(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{
		"claude-4-sonnet": goodPayload,
	}}
	pipeline := newPipeline(t, client)
	repo := analysis.NewMemoryRepo()
	auditRepo := auditlog.NewMemoryRepo()
	svc := analysis.NewService(pipeline, notesMap{1: "fever, cough, rales"}, repo, auditlog.NewWriter(auditRepo))

	out, err := svc.AnalyzeRecord(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !out.Succeeded {
		t.Fatalf("expected success, got %+v", out)
	}

	stored, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("stored outcome missing: %v", err)
	}
	if stored.ModelUsed != "claude-4-sonnet" {
		t.Fatalf("unexpected stored model: %s", stored.ModelUsed)
	}

	entries := auditRepo.All()
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.PatientID != 1 || !e.Success || e.AIModel != "claude-4-sonnet" {
		t.Fatalf("unexpected audit entry: %+v", e)
	}
	if e.OriginalText != "fever, cough, rales" {
		t.Fatalf("audit text mismatch: %q", e.OriginalText)
	}
}

func TestAnalyzeRecordTruncatesAuditText(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{
		"claude-4-sonnet": goodPayload,
	}}
	pipeline := newPipeline(t, client)
	auditRepo := auditlog.NewMemoryRepo()
	longNotes := strings.Repeat("z", 2500)
	svc := analysis.NewService(pipeline, notesMap{2: longNotes}, analysis.NewMemoryRepo(), auditlog.NewWriter(auditRepo))

	if _, err := svc.AnalyzeRecord(context.Background(), 2, ""); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	entries := auditRepo.All()
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	if got := len(entries[0].OriginalText); got != 1000 {
		t.Fatalf("expected audit text capped at 1000 chars, got %d", got)
	}
}

func TestAnalyzeRecordMissingPatient(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{}}
	pipeline := newPipeline(t, client)
	svc := analysis.NewService(pipeline, notesMap{}, analysis.NewMemoryRepo(), auditlog.NewWriter(auditlog.NewMemoryRepo()))

	if _, err := svc.AnalyzeRecord(context.Background(), 99, ""); err == nil {
		t.Fatalf("expected error for missing record")
	}
}

func TestAnalyzeRecordAuditsFailures(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{
		"claude-4-sonnet": errContains("http status 400"),
	}}
	pipeline := newPipeline(t, client)
	auditRepo := auditlog.NewMemoryRepo()
	svc := analysis.NewService(pipeline, notesMap{3: "notes"}, analysis.NewMemoryRepo(), auditlog.NewWriter(auditRepo))

	out, _ := svc.AnalyzeRecord(context.Background(), 3, "")
	if out.Succeeded {
		t.Fatalf("expected failed outcome")
	}
	entries := auditRepo.All()
	if len(entries) != 1 || entries[0].Success {
		t.Fatalf("expected failed audit entry, got %+v", entries)
	}
}
