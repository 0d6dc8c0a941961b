package ports

import (
	"context"

	"github.com/dmaia/remora/internal/core/domain"
)

// Journal is an append-only audit sink for jobs that reached a terminal
// state. The in-memory store stays authoritative; the journal survives the
// store's sweep so consumed history remains queryable.
type Journal interface {
	// Record appends a terminal job snapshot.
	Record(ctx context.Context, job domain.Job) error

	// List returns the most recently recorded entries, newest first.
	List(ctx context.Context, limit int) ([]domain.Job, error)

	Close() error
}

// Notifier delivers a user-facing notification. Delivery failure is the
// caller's to log and swallow; it never feeds back into job state.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}
