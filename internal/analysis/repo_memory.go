package analysis

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores outcomes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byRecord map[int64]Outcome
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byRecord: make(map[int64]Outcome)}
}

// Upsert merges the outcome into the stored row, mirroring the section-level
// COALESCE semantics of the Postgres repo.
func (r *MemoryRepo) Upsert(ctx context.Context, outcome Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byRecord[outcome.RecordID]
	if !ok {
		r.byRecord[outcome.RecordID] = outcome
		return nil
	}
	if outcome.ProcessedAt.Before(existing.ProcessedAt) {
		return nil
	}
	merged := outcome
	merged.Document = mergeDocuments(outcome.Document, existing.Document)
	r.byRecord[outcome.RecordID] = merged
	return nil
}

// Get returns the stored outcome for a record id.
func (r *MemoryRepo) Get(ctx context.Context, recordID int64) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	outcome, ok := r.byRecord[recordID]
	if !ok {
		return Outcome{}, ErrNotFound
	}
	return outcome, nil
}

// ListAnalyzedIDs returns every stored record id in ascending order.
func (r *MemoryRepo) ListAnalyzedIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.byRecord))
	for id := range r.byRecord {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func mergeDocuments(next, prev Document) Document {
	if next.ClinicalSummary == nil {
		next.ClinicalSummary = prev.ClinicalSummary
	}
	if next.DifferentialDiagnosis == nil {
		next.DifferentialDiagnosis = prev.DifferentialDiagnosis
	}
	if next.MedicationSafety == nil {
		next.MedicationSafety = prev.MedicationSafety
	}
	if next.TreatmentAnalysis == nil {
		next.TreatmentAnalysis = prev.TreatmentAnalysis
	}
	if next.PatternRecognition == nil {
		next.PatternRecognition = prev.PatternRecognition
	}
	if next.QualityMetrics == nil {
		next.QualityMetrics = prev.QualityMetrics
	}
	if next.CostAnalysis == nil {
		next.CostAnalysis = prev.CostAnalysis
	}
	if next.EducationalValue == nil {
		next.EducationalValue = prev.EducationalValue
	}
	return next
}

var _ Repo = (*MemoryRepo)(nil)
