package documents

import "context"

// Repo defines persistence operations for session documents.
//
// Upsert carries the placement rules: a session holds at most one document
// with the technical-spec role (a new one replaces it), and proposal
// documents are deduplicated by file name, a same-named upload replacing the
// earlier entry at its original position.
type Repo interface {
	Upsert(ctx context.Context, doc Document) (Document, error)
	Update(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, sessionID, docID string) (Document, error)
	Delete(ctx context.Context, sessionID, docID string) error
	ListBySession(ctx context.Context, sessionID string) ([]Document, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}
