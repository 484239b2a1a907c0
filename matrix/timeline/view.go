package timeline

import (
	"time"

	"maunium.net/go/mautrix/id"
)

// DefaultGroupWindow is the largest gap between two messages of the same
// sender that still renders them as one group.
const DefaultGroupWindow = 5 * time.Minute

// GroupFlags says which neighbours an item visually merges with.
type GroupFlags uint8

const (
	// TopEdge means the item is grouped with its predecessor.
	TopEdge GroupFlags = 1 << iota
	// BottomEdge means the item is grouped with its successor.
	BottomEdge
)

func (f GroupFlags) Has(flag GroupFlags) bool {
	return f&flag != 0
}

func (f GroupFlags) String() string {
	switch f {
	case TopEdge:
		return "top"
	case BottomEdge:
		return "bottom"
	case TopEdge | BottomEdge:
		return "top|bottom"
	default:
		return "none"
	}
}

// View is an immutable, chronologically ordered snapshot of a timeline.
// It is safe to use from any goroutine.
type View struct {
	items       []Item
	index       map[id.EventID]int
	groupWindow time.Duration
}

func newView(items []Item, groupWindow time.Duration) *View {
	index := make(map[id.EventID]int, len(items))
	for i := range items {
		index[items[i].EventID] = i
	}
	return &View{items: items, index: index, groupWindow: groupWindow}
}

// Items returns the items in chronological order. The slice is a copy, the
// items' reaction maps are shared and must be treated as read-only.
func (v *View) Items() []Item {
	out := make([]Item, len(v.items))
	copy(out, v.items)
	return out
}

func (v *View) Len() int {
	return len(v.items)
}

// Item looks up a single item by event ID.
func (v *View) Item(eventID id.EventID) (Item, bool) {
	i, ok := v.index[eventID]
	if !ok {
		return Item{}, false
	}
	return v.items[i], true
}

// Grouping reports the adjacency flags of the given item.
func (v *View) Grouping(eventID id.EventID) (GroupFlags, bool) {
	i, ok := v.index[eventID]
	if !ok {
		return 0, false
	}
	return v.groupingAt(i), true
}

// Groupings returns the flags of every item, aligned with Items.
func (v *View) Groupings() []GroupFlags {
	flags := make([]GroupFlags, len(v.items))
	for i := range v.items {
		flags[i] = v.groupingAt(i)
	}
	return flags
}

func (v *View) groupingAt(i int) GroupFlags {
	var flags GroupFlags
	if i > 0 && v.groups(&v.items[i-1], &v.items[i]) {
		flags |= TopEdge
	}
	if i+1 < len(v.items) && v.groups(&v.items[i], &v.items[i+1]) {
		flags |= BottomEdge
	}
	return flags
}

// groups decides whether prev and next, adjacent in that order, render as
// one group. The "edited" marker sits below an edited message, so an edited
// item never merges with what follows it.
func (v *View) groups(prev, next *Item) bool {
	if prev.Content.Sender != next.Content.Sender {
		return false
	}
	if prev.Edited() {
		return false
	}
	gap := time.Duration(next.Timestamp-prev.Timestamp) * time.Millisecond
	return gap < v.groupWindow
}
