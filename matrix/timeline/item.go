package timeline

import (
	"sort"

	"roomline/matrix/mxevents"

	"maunium.net/go/mautrix/id"
)

// Content is the user-visible part of a message item.
type Content struct {
	Sender id.UserID
	Body   string
}

// Snapshot is a reply's copy of the replied-to item, taken once when the
// reply first resolved. It does not follow later edits of the target.
type Snapshot struct {
	EventID id.EventID
	Content Content
}

// Reference marks an item as referencing another one.
type Reference struct {
	EventID id.EventID
}

// Item is one renderable message in the timeline.
//
// Items handed out through a View are shared between readers and must not be
// modified; the reconciler replaces an item with a modified copy instead of
// changing it.
type Item struct {
	EventID   id.EventID
	Timestamp int64 // origin_server_ts of the originating message
	Content   Content

	// reaction key -> senders. Nil until the first reaction lands.
	Reactions map[string]map[id.UserID]struct{}

	RepliedTo  *Snapshot
	Referenced *Reference

	// The edit currently shown, if any.
	EditedBy id.EventID
	EditedAt int64
}

func newItem(evt mxevents.Event) *Item {
	return &Item{
		EventID:   evt.ID,
		Timestamp: evt.Timestamp,
		Content: Content{
			Sender: evt.Sender,
			Body:   evt.Body,
		},
	}
}

// Edited reports whether the item's content was replaced by an edit.
func (item *Item) Edited() bool {
	return item.EditedBy != ""
}

// HasReaction reports whether sender reacted with key.
func (item *Item) HasReaction(key string, sender id.UserID) bool {
	_, ok := item.Reactions[key][sender]
	return ok
}

// ReactionKeys returns the reaction keys in sorted order.
func (item *Item) ReactionKeys() []string {
	keys := make([]string, 0, len(item.Reactions))
	for key := range item.Reactions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ReactionSenders returns who reacted with key, sorted.
func (item *Item) ReactionSenders(key string) []id.UserID {
	senders := make([]id.UserID, 0, len(item.Reactions[key]))
	for sender := range item.Reactions[key] {
		senders = append(senders, sender)
	}
	sort.Slice(senders, func(i, j int) bool { return senders[i] < senders[j] })
	return senders
}

// newerEdit reports whether the edit should replace what's currently shown.
// Edits are applied last-writer-wins on (origin_server_ts, event_id) so a
// late-arriving old edit can't roll the content back.
func (item *Item) newerEdit(edit mxevents.Event) bool {
	if !item.Edited() {
		return true
	}
	return keyOf(edit).after(orderKey{item.EditedAt, item.EditedBy})
}

// clone copies the item deeply enough that the copy can be mutated without
// affecting views that still hold the original.
func (item *Item) clone() *Item {
	cp := *item
	if item.Reactions != nil {
		cp.Reactions = make(map[string]map[id.UserID]struct{}, len(item.Reactions))
		for key, senders := range item.Reactions {
			set := make(map[id.UserID]struct{}, len(senders))
			for sender := range senders {
				set[sender] = struct{}{}
			}
			cp.Reactions[key] = set
		}
	}
	if item.RepliedTo != nil {
		snapshot := *item.RepliedTo
		cp.RepliedTo = &snapshot
	}
	if item.Referenced != nil {
		ref := *item.Referenced
		cp.Referenced = &ref
	}
	return &cp
}

func (item *Item) addReaction(key string, sender id.UserID) {
	if item.Reactions == nil {
		item.Reactions = make(map[string]map[id.UserID]struct{})
	}
	set, ok := item.Reactions[key]
	if !ok {
		set = make(map[id.UserID]struct{})
		item.Reactions[key] = set
	}
	set[sender] = struct{}{}
}
