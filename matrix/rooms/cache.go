package rooms

import (
	sync "github.com/sasha-s/go-deadlock"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// HistoryLoader provides what a room needs to resume from disk.
type HistoryLoader interface {
	Load(roomID id.RoomID) ([]*event.Event, error)
	PaginationToken(roomID id.RoomID) (string, error)
}

// RoomCache holds the rooms of one session.
type RoomCache struct {
	lock  sync.RWMutex
	rooms map[id.RoomID]*Room

	opts     Options
	history  HistoryLoader
	onCreate []func(*Room)
}

// NewRoomCache creates an empty cache. history may be nil, in which case
// rooms always start empty.
func NewRoomCache(opts Options, history HistoryLoader) *RoomCache {
	return &RoomCache{
		rooms:   make(map[id.RoomID]*Room),
		opts:    opts,
		history: history,
	}
}

// OnCreate registers fn to be called for every room the cache creates from
// now on, before the room is returned to anyone.
func (cache *RoomCache) OnCreate(fn func(*Room)) {
	cache.lock.Lock()
	cache.onCreate = append(cache.onCreate, fn)
	cache.lock.Unlock()
}

// Get returns the room if it's loaded.
func (cache *RoomCache) Get(roomID id.RoomID) *Room {
	cache.lock.RLock()
	defer cache.lock.RUnlock()
	return cache.rooms[roomID]
}

// GetOrCreate returns the loaded room, or loads it from history. Loading
// happens outside the cache lock; if two callers race, the first room stored
// wins and the other copy is dropped.
func (cache *RoomCache) GetOrCreate(roomID id.RoomID) *Room {
	if room := cache.Get(roomID); room != nil {
		return room
	}
	room := cache.load(roomID)

	cache.lock.Lock()
	defer cache.lock.Unlock()
	if existing, ok := cache.rooms[roomID]; ok {
		return existing
	}
	for _, fn := range cache.onCreate {
		fn(room)
	}
	cache.rooms[roomID] = room
	return room
}

func (cache *RoomCache) load(roomID id.RoomID) *Room {
	room := NewRoom(roomID, cache.loadHistory(roomID), cache.opts)
	if cache.history != nil {
		token, err := cache.history.PaginationToken(roomID)
		if err != nil {
			cache.opts.Log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to load pagination token")
		}
		room.PrevBatch = token
	}
	return room
}

func (cache *RoomCache) loadHistory(roomID id.RoomID) []*event.Event {
	if cache.history == nil {
		return nil
	}
	events, err := cache.history.Load(roomID)
	if err != nil {
		cache.opts.Log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to load room history")
	}
	return events
}

// Rooms returns the loaded room IDs.
func (cache *RoomCache) Rooms() []id.RoomID {
	cache.lock.RLock()
	defer cache.lock.RUnlock()
	ids := make([]id.RoomID, 0, len(cache.rooms))
	for roomID := range cache.rooms {
		ids = append(ids, roomID)
	}
	return ids
}

// Unload drops a room from memory. Its history stays on disk.
func (cache *RoomCache) Unload(roomID id.RoomID) {
	cache.lock.Lock()
	delete(cache.rooms, roomID)
	cache.lock.Unlock()
}
