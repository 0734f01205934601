package patients

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a patient does not exist.
var ErrNotFound = errors.New("patient not found")

// Repo provides access to the patient row store.
type Repo interface {
	GetByID(ctx context.Context, id int64) (Patient, error)
	// ListIDs returns candidate record ids in ascending order, capped at
	// limit when limit > 0.
	ListIDs(ctx context.Context, limit int) ([]int64, error)
	// ListSample returns preview rows for interactive browsing.
	ListSample(ctx context.Context, limit int) ([]Preview, error)
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, p Patient) error
}
