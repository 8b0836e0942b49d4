package host

import (
	"context"
	"time"
)

// Store persists pending occurrences.
//
// Implementations return shared.ErrNotFound for missing rows,
// shared.ErrConflict when Insert meets an existing (Hook, Key) pair and
// errors of kind shared.KindDependencyFailure when the backend fails.
type Store interface {
	// Pending returns the pending occurrence for hook and key.
	Pending(ctx context.Context, hook, key string) (Event, error)
	// Insert adds a new occurrence.
	Insert(ctx context.Context, ev Event) error
	// Due returns up to limit occurrences with Timestamp <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Event, error)
	// Reschedule moves an occurrence to next.
	Reschedule(ctx context.Context, id string, next time.Time) error
	// Delete removes an occurrence.
	Delete(ctx context.Context, id string) error
	// List returns every pending occurrence ordered by Timestamp.
	List(ctx context.Context) ([]Event, error)
}

// Maintainer is implemented by stores that support periodic housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context) error
}
