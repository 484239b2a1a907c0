// Package history persists raw room events so timelines can be rebuilt
// without a full resync.
package history

import (
	"errors"
	"fmt"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown history backend")

// Store keeps the raw events of each room.
//
// Append is idempotent per event ID. Load returns the events of a room
// ordered by (timestamp, event ID).
type Store interface {
	Append(roomID id.RoomID, events []*event.Event) error
	Load(roomID id.RoomID) ([]*event.Event, error)

	// PaginationToken is the token to continue backwards pagination from,
	// or an empty string if none was saved.
	PaginationToken(roomID id.RoomID) (string, error)
	SetPaginationToken(roomID id.RoomID, token string) error

	Close() error
}

// Open opens the store of the given backend at path. An empty backend
// selects bolt.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendBolt:
		return OpenBolt(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, backend)
	}
}

// storable reports whether evt can be keyed in a store.
func storable(evt *event.Event) bool {
	return evt != nil && evt.ID != ""
}
