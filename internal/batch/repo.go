package batch

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("run not found")

// Repo persists run state.
type Repo interface {
	Create(ctx context.Context, run Run) error
	Update(ctx context.Context, run Run) error
	Get(ctx context.Context, runID uuid.UUID) (Run, error)
}
