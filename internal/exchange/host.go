package exchange

import "context"

// Host is a destination document that applies changes transactionally.
type Host[H any] interface {
	Begin(ctx context.Context) (Tx[H], error)
}

// Tx batches document changes. Nothing is visible to the document until
// Commit; Rollback discards everything since Begin.
type Tx[H any] interface {
	Add(obj H) (id string, err error)
	Replace(id string, obj H) error
	Delete(id string) error
	Commit() error
	Rollback() error
}

// Source yields the host objects a Sender pushes.
type Source[H any] func(ctx context.Context) ([]H, error)
