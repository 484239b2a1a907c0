package rooms

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	sync "github.com/sasha-s/go-deadlock"

	"roomline/matrix/mxevents"
	"roomline/matrix/timeline"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Direction tells where a batch of events came from.
type Direction int

const (
	// Forwards batches come from sync and extend the live end.
	Forwards Direction = iota
	// Backwards batches come from pagination and extend into the past.
	Backwards
)

func (d Direction) String() string {
	if d == Backwards {
		return "backwards"
	}
	return "forwards"
}

// Batch is a group of raw events delivered together.
type Batch struct {
	Events    []*event.Event
	Direction Direction
}

// Update is sent to room listeners after a batch changed the timeline.
type Update struct {
	RoomID    id.RoomID
	Direction Direction
	Change    timeline.Change
}

// TimelineReader is the read side of a room's reconciler. Writes go
// through Ingest.
type TimelineReader interface {
	View() *timeline.View
	Items() []timeline.Item
	Stashed() map[id.EventID][]id.EventID
	Status(eventID id.EventID) timeline.Resolution
}

// Options are shared by every room of a cache.
type Options struct {
	Log         zerolog.Logger
	Metrics     *timeline.Metrics
	GroupWindow time.Duration

	// StrictInvariants turns reconciler invariant violations into panics.
	StrictInvariants bool
}

// Room represents a single Matrix room.
type Room struct {
	ID id.RoomID // The room ID.

	HasLeft bool // Whether or not the user has left the room.

	// The first batch of events that has been fetched for this room.
	// Used for fetching additional history.
	PrevBatch string

	// The prev_batch field from the most recent sync.
	LastPrevBatch string

	// Timestamp of previously received actual message.
	LastReceivedMessage time.Time

	timeline *timeline.Reconciler
	strict   bool
	log      zerolog.Logger

	lock      sync.RWMutex // Lock for the exported fields.
	listeners []func(Update)
}

// NewRoom creates a room whose timeline is rebuilt from the given events.
// Invariant violations found during the rebuild are logged.
func NewRoom(roomID id.RoomID, history []*event.Event, opts Options) *Room {
	room := &Room{
		ID:     roomID,
		strict: opts.StrictInvariants,
		log:    opts.Log.With().Str("room_id", roomID.String()).Logger(),
	}
	reconciler, err := timeline.New(mxevents.ClassifyAll(history),
		timeline.WithLogger(room.log),
		timeline.WithMetrics(opts.Metrics),
		timeline.WithGroupWindow(opts.GroupWindow),
	)
	if err != nil {
		room.violation(err)
	}
	room.timeline = reconciler
	room.updateLastReceived(history)
	return room
}

// Timeline returns read access to the room's reconciler.
func (room *Room) Timeline() TimelineReader {
	return room.timeline
}

// OnUpdate registers fn to be called after every batch that changed the
// timeline. It runs on the goroutine that called Ingest.
func (room *Room) OnUpdate(fn func(Update)) {
	room.lock.Lock()
	room.listeners = append(room.listeners, fn)
	room.lock.Unlock()
}

// Ingest classifies and reconciles a batch, event by event in batch order.
// The whole batch is applied atomically, so batches never interleave.
// An invariant violation skips the offending event, or panics when strict
// invariants are enabled.
func (room *Room) Ingest(batch Batch) {
	change, err := room.timeline.AddAll(mxevents.ClassifyAll(batch.Events))
	if err != nil {
		room.violation(err)
	}

	if batch.Direction == Forwards {
		room.updateLastReceived(batch.Events)
	}
	if change.Empty() {
		return
	}
	room.log.Debug().
		Str("direction", batch.Direction.String()).
		Int("created", len(change.Created)).
		Int("edited", len(change.Edited)).
		Int("reacted", len(change.Reacted)).
		Msg("Timeline updated")

	room.lock.RLock()
	listeners := make([]func(Update), len(room.listeners))
	copy(listeners, room.listeners)
	room.lock.RUnlock()
	update := Update{RoomID: room.ID, Direction: batch.Direction, Change: change}
	for _, fn := range listeners {
		fn(update)
	}
}

func (room *Room) violation(err error) {
	if room.strict {
		panic(fmt.Errorf("room %s: %w", room.ID, err))
	}
	room.log.Error().Err(err).Msg("Skipped event that broke a timeline invariant")
}

func (room *Room) updateLastReceived(events []*event.Event) {
	room.lock.Lock()
	defer room.lock.Unlock()
	for _, evt := range events {
		if evt == nil || evt.Type.Type != event.EventMessage.Type {
			continue
		}
		if ts := time.UnixMilli(evt.Timestamp); ts.After(room.LastReceivedMessage) {
			room.LastReceivedMessage = ts
		}
	}
}

// UpdatePrevBatch records the prev_batch of a sync timeline. PrevBatch is
// only taken from sync once, pagination moves it afterwards. Reports whether
// PrevBatch was set.
func (room *Room) UpdatePrevBatch(token string) bool {
	room.lock.Lock()
	defer room.lock.Unlock()
	room.LastPrevBatch = token
	if room.PrevBatch != "" || token == "" {
		return false
	}
	room.PrevBatch = token
	return true
}

// MarkLeft records that the user is no longer in the room.
func (room *Room) MarkLeft() {
	room.lock.Lock()
	room.HasLeft = true
	room.lock.Unlock()
}

// Left reports whether the user has left the room.
func (room *Room) Left() bool {
	room.lock.RLock()
	defer room.lock.RUnlock()
	return room.HasLeft
}

// SetPrevBatch records the token to paginate backwards from.
func (room *Room) SetPrevBatch(token string) {
	room.lock.Lock()
	room.PrevBatch = token
	room.lock.Unlock()
}

// GetPrevBatch returns the token to paginate backwards from.
func (room *Room) GetPrevBatch() string {
	room.lock.RLock()
	defer room.lock.RUnlock()
	return room.PrevBatch
}
