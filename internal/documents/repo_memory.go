package documents

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo. Per-session slices keep
// upload order, which downstream ranking relies on for tie-breaking.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // sessionID -> documents in upload order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Document),
	}
}

// Upsert inserts doc, replacing an existing technical spec or a same-named
// proposal in place.
func (r *MemoryRepo) Upsert(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := r.data[doc.SessionID]
	for i := range docs {
		if docs[i].Role != doc.Role {
			continue
		}
		if doc.Role == RoleTechnicalSpec || docs[i].FileName == doc.FileName {
			// Keep the original position and timestamp.
			doc.CreatedAt = docs[i].CreatedAt
			docs[i] = doc
			r.data[doc.SessionID] = docs
			return doc, nil
		}
	}
	r.data[doc.SessionID] = append(docs, doc)
	return doc, nil
}

// Update overwrites the stored document with the same ID.
func (r *MemoryRepo) Update(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := r.data[doc.SessionID]
	for i := range docs {
		if docs[i].ID == doc.ID {
			docs[i] = doc
			r.data[doc.SessionID] = docs
			return nil
		}
	}
	return ErrNotFound
}

// GetByID returns a document by ID within a session.
func (r *MemoryRepo) GetByID(ctx context.Context, sessionID, docID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, doc := range r.data[sessionID] {
		if doc.ID == docID {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// Delete removes a document from its session.
func (r *MemoryRepo) Delete(ctx context.Context, sessionID, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := r.data[sessionID]
	for i := range docs {
		if docs[i].ID == docID {
			r.data[sessionID] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListBySession returns the session's documents in upload order.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := r.data[sessionID]
	out := make([]Document, len(docs))
	copy(out, docs)
	return out, nil
}

// DeleteBySession drops every document belonging to a session.
func (r *MemoryRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
