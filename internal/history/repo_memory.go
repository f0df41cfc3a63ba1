package history

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	items []Item // newest first
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Insert prepends item and truncates the list to MaxItems.
func (r *MemoryRepo) Insert(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]Item{item.Clone()}, r.items...)
	if len(r.items) > MaxItems {
		r.items = r.items[:MaxItems]
	}
	return nil
}

// List returns deep copies, newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it.Clone())
	}
	return out, nil
}

// GetByID returns a deep copy of one item.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.ID == id {
			return it.Clone(), nil
		}
	}
	return Item{}, ErrNotFound
}

// Clear wipes the whole list.
func (r *MemoryRepo) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
