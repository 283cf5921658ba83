package eventstore

import (
	"context"
)

// Store persists and retrieves build history events.
type Store interface {
	// Append stores e and sets its ID.
	Append(ctx context.Context, e *Event) error

	// GetByBuildID returns the events of one build in insertion order.
	GetByBuildID(ctx context.Context, buildID string) ([]*Event, error)

	// RecentBuildIDs returns up to limit build IDs, newest first.
	RecentBuildIDs(ctx context.Context, limit int) ([]string, error)

	// Close releases the underlying database.
	Close() error
}
