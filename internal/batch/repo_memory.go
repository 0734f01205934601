package batch

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repo for tests and local development.
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]Run
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: make(map[uuid.UUID]Run)}
}

func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = run
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.RunID]; !ok {
		return ErrNotFound
	}
	r.runs[run.RunID] = run
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, runID uuid.UUID) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

var _ Repo = (*MemoryRepo)(nil)
