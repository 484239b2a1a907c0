// Based on https://github.com/tulir/gomuks/blob/master/matrix/sync.go

package matrix

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomline/debug"
	"roomline/matrix/history"
	"roomline/matrix/rooms"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Syncer feeds sync responses into the room cache, persisting every
// timeline event before it is reconciled.
type Syncer struct {
	rooms   *rooms.RoomCache
	history history.Store
	log     zerolog.Logger
	limit   int

	FirstSyncDone     bool
	FirstDoneCallback func()
}

// NewSyncer returns an instantiated Syncer. history may be nil.
func NewSyncer(rooms *rooms.RoomCache, history history.Store, log zerolog.Logger, limit int) *Syncer {
	return &Syncer{
		rooms:   rooms,
		history: history,
		log:     log.With().Str("component", "syncer").Logger(),
		limit:   limit,
	}
}

// ProcessResponse processes a Matrix sync response. Rooms are independent,
// so each one is handled on its own goroutine.
func (s *Syncer) ProcessResponse(res *mautrix.RespSync, since string) (err error) {
	s.log.Debug().
		Str("since", since).
		Int("joined", len(res.Rooms.Join)).
		Int("left", len(res.Rooms.Leave)).
		Msg("Received sync response")

	wait := &sync.WaitGroup{}
	wait.Add(len(res.Rooms.Join) + len(res.Rooms.Leave))

	for roomID, roomData := range res.Rooms.Join {
		go s.processJoinedRoom(roomID, roomData, wait.Done)
	}

	for roomID, roomData := range res.Rooms.Leave {
		go s.processLeftRoom(roomID, roomData, wait.Done)
	}

	wait.Wait()

	if !s.FirstSyncDone && s.FirstDoneCallback != nil {
		s.FirstDoneCallback()
	}
	s.FirstSyncDone = true
	return
}

func (s *Syncer) processJoinedRoom(roomID id.RoomID, roomData *mautrix.SyncJoinedRoom, callback func()) {
	defer callback()
	defer debug.Recover(s.log)
	room := s.rooms.GetOrCreate(roomID)
	s.processTimeline(room, roomData.Timeline)
}

func (s *Syncer) processLeftRoom(roomID id.RoomID, roomData *mautrix.SyncLeftRoom, callback func()) {
	defer callback()
	defer debug.Recover(s.log)
	room := s.rooms.GetOrCreate(roomID)
	room.MarkLeft()
	s.processTimeline(room, roomData.Timeline)
}

func (s *Syncer) processTimeline(room *rooms.Room, timeline mautrix.SyncTimeline) {
	events := prepareEvents(room.ID, timeline.Events)
	if s.history != nil && len(events) > 0 {
		if err := s.history.Append(room.ID, events); err != nil {
			s.log.Error().Err(err).Str("room_id", room.ID.String()).Msg("Failed to store timeline events")
		}
	}
	room.Ingest(rooms.Batch{Events: events, Direction: rooms.Forwards})

	if room.UpdatePrevBatch(timeline.PrevBatch) && s.history != nil {
		if err := s.history.SetPaginationToken(room.ID, timeline.PrevBatch); err != nil {
			s.log.Warn().Err(err).Str("room_id", room.ID.String()).Msg("Failed to store pagination token")
		}
	}
}

// prepareEvents drops nil entries and fills in what the server leaves out
// of timeline events.
func prepareEvents(roomID id.RoomID, events []*event.Event) []*event.Event {
	prepared := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		evt.RoomID = roomID
		// Ensure the type class is correct. It's safe to mutate since it's not a pointer.
		if evt.StateKey != nil {
			evt.Type.Class = event.StateEventType
		} else {
			evt.Type.Class = event.MessageEventType
		}
		prepared = append(prepared, evt)
	}
	return prepared
}

// OnFailedSync always returns a 10 second wait period between failed /syncs, never a fatal error.
func (s *Syncer) OnFailedSync(res *mautrix.RespSync, err error) (time.Duration, error) {
	s.log.Warn().Err(err).Msg("Sync failed")
	return 10 * time.Second, nil
}

// GetFilterJSON limits timelines to the events the reconciler understands.
func (s *Syncer) GetFilterJSON(_ id.UserID) *mautrix.Filter {
	return &mautrix.Filter{
		Room: mautrix.RoomFilter{
			IncludeLeave: false,
			State: mautrix.FilterPart{
				LazyLoadMembers: true,
			},
			Timeline: mautrix.FilterPart{
				LazyLoadMembers: true,
				Types:           []event.Type{event.EventMessage, event.EventReaction},
				Limit:           s.limit,
			},
		},
		Presence: mautrix.FilterPart{
			NotTypes: []event.Type{event.NewEventType("*")},
		},
	}
}
