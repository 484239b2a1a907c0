package timeline

import (
	"sort"

	"roomline/matrix/mxevents"

	"maunium.net/go/mautrix/id"
)

// stash holds events whose relationship target has no item yet, keyed by
// the target's event ID.
type stash struct {
	pending map[id.EventID][]mxevents.Event
	// event ID -> number of targets it is stashed under
	waiting map[id.EventID]int
}

func newStash() *stash {
	return &stash{
		pending: make(map[id.EventID][]mxevents.Event),
		waiting: make(map[id.EventID]int),
	}
}

// put stashes evt under target. The same event is only kept once per target;
// put returns false if it was already there.
func (s *stash) put(target id.EventID, evt mxevents.Event) bool {
	for _, held := range s.pending[target] {
		if held.ID == evt.ID {
			return false
		}
	}
	s.pending[target] = append(s.pending[target], evt)
	s.waiting[evt.ID]++
	return true
}

// take removes everything stashed under target and returns it in replay
// order: ascending origin_server_ts, then event ID.
func (s *stash) take(target id.EventID) []mxevents.Event {
	events, ok := s.pending[target]
	if !ok {
		return nil
	}
	delete(s.pending, target)
	for _, evt := range events {
		s.waiting[evt.ID]--
		if s.waiting[evt.ID] <= 0 {
			delete(s.waiting, evt.ID)
		}
	}
	sortReplay(events)
	return events
}

func (s *stash) holds(eventID id.EventID) bool {
	return s.waiting[eventID] > 0
}

// snapshot returns target -> stashed event IDs, each list in replay order.
func (s *stash) snapshot() map[id.EventID][]id.EventID {
	out := make(map[id.EventID][]id.EventID, len(s.pending))
	for target, events := range s.pending {
		sorted := make([]mxevents.Event, len(events))
		copy(sorted, events)
		sortReplay(sorted)
		ids := make([]id.EventID, 0, len(sorted))
		for _, evt := range sorted {
			ids = append(ids, evt.ID)
		}
		out[target] = ids
	}
	return out
}

func sortReplay(events []mxevents.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return keyOf(events[i]).before(keyOf(events[j]))
	})
}

func keyOf(evt mxevents.Event) orderKey {
	return orderKey{evt.Timestamp, evt.ID}
}
