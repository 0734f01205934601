package analysis

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no analysis exists for a record.
var ErrNotFound = errors.New("analysis not found")

// Repo is the result store: one row per record identifier.
type Repo interface {
	// Upsert merges the outcome into the stored row for its record.
	// Sections absent from the new document keep their stored value;
	// repeated upserts with identical input are idempotent.
	Upsert(ctx context.Context, outcome Outcome) error
	Get(ctx context.Context, recordID int64) (Outcome, error)
	// ListAnalyzedIDs returns every record id with a stored analysis.
	ListAnalyzedIDs(ctx context.Context) ([]int64, error)
}
