// Package eventstore persists the capacity-bounded log of canonical webhook
// events. The log is the single source of truth for history queries.
package eventstore

import (
	"context"

	"git.home.luguber.info/inful/prbridge/internal/event"
)

// DefaultCapacity is the number of most-recent events a store retains.
const DefaultCapacity = 100

// Store defines the interface for persisting and retrieving events.
// Implementations retain at most their configured capacity, evicting the
// oldest events first. Read operations treat a missing or corrupt backing
// medium as an empty log and never fail for that reason.
type Store interface {
	// Append adds a new event to the store, evicting the oldest entries
	// beyond capacity.
	Append(ctx context.Context, ev *event.Event) error

	// List returns the retained log in arrival order, oldest first.
	List(ctx context.Context) ([]event.Event, error)

	// Latest returns the most recently appended event, or nil when the
	// log is empty.
	Latest(ctx context.Context) (*event.Event, error)

	// Close closes the store and releases resources.
	Close() error
}
