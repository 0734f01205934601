package patients

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores patients in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[int64]Patient
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[int64]Patient)}
}

// GetByID returns a patient by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Patient, error) {
	if err := ctx.Err(); err != nil {
		return Patient{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Patient{}, ErrNotFound
	}
	return p, nil
}

// ListIDs returns record ids in ascending order, capped at limit when limit > 0.
func (r *MemoryRepo) ListIDs(ctx context.Context, limit int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// ListSample returns preview rows in id order.
func (r *MemoryRepo) ListSample(ctx context.Context, limit int) ([]Preview, error) {
	ids, err := r.ListIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	previews := make([]Preview, 0, len(ids))
	for _, id := range ids {
		previews = append(previews, previewOf(r.byID[id]))
	}
	return previews, nil
}

// Count returns the number of patients.
func (r *MemoryRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// Insert stores a patient, replacing any existing row with the same id.
func (r *MemoryRepo) Insert(ctx context.Context, p Patient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
