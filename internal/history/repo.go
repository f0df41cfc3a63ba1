package history

import "context"

// Repo defines persistence for the history list. Insert prepends and the
// implementation truncates to MaxItems; List returns newest first.
type Repo interface {
	Insert(ctx context.Context, item Item) error
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (Item, error)
	Clear(ctx context.Context) error
}
