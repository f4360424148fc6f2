// Package repository defines the event store contract and errors.
package repository

import (
	"context"

	"github.com/okian/tally/internal/domain/model"
)

// Store provides durable access to events, the id sequence cursor, and the
// derived per-user score index. Implementations are write-through: every
// mutating call persists before returning, and rolls its in-memory change
// back when the durable write fails, so acknowledged state survives a crash
// and retries are safe.
type Store interface {
	// NextEventID issues the next event id. The increment and its durable
	// write are one unit; an id is only considered issued once recorded.
	NextEventID(ctx context.Context) (string, error)

	// CreateEvent inserts a new empty-targets event with the given roster.
	// Returns ErrDuplicateEvent if the id already exists.
	CreateEvent(ctx context.Context, id string, players []int64) (*model.Event, error)

	// GetEvent returns a deep copy of the event, or ErrEventNotFound.
	GetEvent(ctx context.Context, id string) (*model.Event, error)

	// AllEvents returns a snapshot copy of every event ordered by ascending
	// numeric id. The snapshot is stable for the duration of one
	// aggregation pass.
	AllEvents(ctx context.Context) ([]*model.Event, error)

	// MutateEvent runs fn on the live event record under the store's write
	// lock and persists on success. If fn returns an error, or the persist
	// fails, the record is restored and nothing is written. This is the
	// serialization point for vote mutations: no reader observes a
	// partially applied write.
	MutateEvent(ctx context.Context, id string, fn func(*model.Event) error) error

	// SetUserScore records a user's per-event average in the derived score
	// index. The index is a cache rebuildable from event data, not a
	// source of truth.
	SetUserScore(ctx context.Context, userID int64, eventID string, average float64) error

	// UserScores returns the user's indexed per-event averages keyed by
	// event id. An unknown user yields an empty map, not an error.
	UserScores(ctx context.Context, userID int64) (map[string]float64, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) int

	// Close releases the underlying storage handle.
	Close() error
}
