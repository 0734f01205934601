package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinical-backend/internal/analysis"
)

func TestMemoryRepoUpsertIsIdempotent(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	ctx := context.Background()

	out := analysis.Outcome{
		RecordID:    1,
		Document:    analysis.Document{ClinicalSummary: &analysis.ClinicalSummary{ClinicalSummary: "stable"}},
		ModelUsed:   "claude-4-sonnet",
		Succeeded:   true,
		ProcessedAt: time.Now().UTC(),
	}
	for i := 0; i < 3; i++ {
		if err := repo.Upsert(ctx, out); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	got, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Document.ClinicalSummary == nil || got.Document.ClinicalSummary.ClinicalSummary != "stable" {
		t.Fatalf("unexpected stored outcome: %+v", got)
	}

	ids, err := repo.ListAnalyzedIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected single analyzed id, got %v", ids)
	}
}

func TestMemoryRepoKeepsSectionsFromOlderWrite(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	ctx := context.Background()
	base := time.Now().UTC()

	first := analysis.Outcome{
		RecordID: 2,
		Document: analysis.Document{
			ClinicalSummary: &analysis.ClinicalSummary{ClinicalSummary: "initial"},
			QualityMetrics:  &analysis.QualityMetrics{CareCoordination: "good"},
		},
		Succeeded:   true,
		ProcessedAt: base,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Later write carries only one section; the other must survive the merge.
	second := analysis.Outcome{
		RecordID: 2,
		Document: analysis.Document{
			ClinicalSummary: &analysis.ClinicalSummary{ClinicalSummary: "updated"},
		},
		Succeeded:   true,
		ProcessedAt: base.Add(time.Second),
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Document.ClinicalSummary.ClinicalSummary != "updated" {
		t.Fatalf("expected updated summary, got %+v", got.Document.ClinicalSummary)
	}
	if got.Document.QualityMetrics == nil || got.Document.QualityMetrics.CareCoordination != "good" {
		t.Fatalf("expected earlier section to survive, got %+v", got.Document.QualityMetrics)
	}
}

func TestMemoryRepoIgnoresStaleWrites(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	ctx := context.Background()
	base := time.Now().UTC()

	current := analysis.Outcome{
		RecordID:    3,
		Document:    analysis.Document{ClinicalSummary: &analysis.ClinicalSummary{ClinicalSummary: "current"}},
		Succeeded:   true,
		ProcessedAt: base,
	}
	if err := repo.Upsert(ctx, current); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stale := analysis.Outcome{
		RecordID:    3,
		Document:    analysis.Document{ClinicalSummary: &analysis.ClinicalSummary{ClinicalSummary: "stale"}},
		Succeeded:   true,
		ProcessedAt: base.Add(-time.Minute),
	}
	if err := repo.Upsert(ctx, stale); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}

	got, err := repo.Get(ctx, 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Document.ClinicalSummary.ClinicalSummary != "current" {
		t.Fatalf("stale write must not win, got %q", got.Document.ClinicalSummary.ClinicalSummary)
	}
}

func TestMemoryRepoGetMissing(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	if _, err := repo.Get(context.Background(), 99); !errors.Is(err, analysis.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
