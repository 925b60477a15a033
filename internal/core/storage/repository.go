package storage

import (
	"context"
	"errors"

	v1 "github.com/sorters-club/sorters/internal/api/v1"
)

// ErrDuplicate is returned when an event with the same id already exists.
var ErrDuplicate = errors.New("event already exists")

// EventStore defines the interface for storing and retrieving events.
// Retrieval returns events newest first with the acting user resolved.
type EventStore interface {
	// SaveEvent records the acting user (keeping a known username when the
	// event carries none) and appends the event.
	SaveEvent(ctx context.Context, event *v1.Event) error

	// RecentEvents returns the latest events across all users.
	RecentEvents(ctx context.Context, limit int) ([]*v1.Event, error)

	// UserEvents returns the latest events of one user. limit <= 0 means no limit.
	UserEvents(ctx context.Context, username string, limit int) ([]*v1.Event, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
