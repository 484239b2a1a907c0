package timeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	sync "github.com/sasha-s/go-deadlock"

	"roomline/matrix/mxevents"

	"maunium.net/go/mautrix/id"
)

// Resolution is where an event stands in the reconciler.
type Resolution int

const (
	// Unseen events were never added, or were ignored.
	Unseen Resolution = iota
	// Stashed events wait for at least one relationship target.
	Stashed
	// Resolved events produced an item, or were folded into one.
	Resolved
)

func (r Resolution) String() string {
	switch r {
	case Stashed:
		return "stashed"
	case Resolved:
		return "resolved"
	default:
		return "unseen"
	}
}

// Change lists the items touched by a single Add or AddAll, in the order
// they were touched. Each ID appears at most once per list.
type Change struct {
	Created []id.EventID
	Edited  []id.EventID
	Reacted []id.EventID
	// Items that gained a reply snapshot or reference after creation.
	Linked []id.EventID
}

// Empty reports whether nothing visible changed.
func (c Change) Empty() bool {
	return len(c.Created) == 0 && len(c.Edited) == 0 && len(c.Reacted) == 0 && len(c.Linked) == 0
}

type changeList int

const (
	listCreated changeList = iota
	listEdited
	listReacted
	listLinked
)

type changeEntry struct {
	list    changeList
	eventID id.EventID
}

// changeSet builds a Change across a whole batch without rescanning lists.
type changeSet struct {
	Change
	seen map[changeEntry]struct{}
}

func (s *changeSet) touch(list changeList, eventID id.EventID) {
	entry := changeEntry{list, eventID}
	if _, ok := s.seen[entry]; ok {
		return
	}
	if s.seen == nil {
		s.seen = make(map[changeEntry]struct{})
	}
	s.seen[entry] = struct{}{}
	switch list {
	case listCreated:
		s.Created = append(s.Created, eventID)
	case listEdited:
		s.Edited = append(s.Edited, eventID)
	case listReacted:
		s.Reacted = append(s.Reacted, eventID)
	case listLinked:
		s.Linked = append(s.Linked, eventID)
	}
}

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithLogger(log zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithGroupWindow sets the gap below which messages of one sender group.
func WithGroupWindow(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.groupWindow = d
		}
	}
}

// Reconciler turns classified events of one room into timeline items.
//
// Add calls are serialized internally, but events of a room should still
// come from a single writer so that their arrival order is meaningful.
// Readers use View, which never blocks on writers.
type Reconciler struct {
	lock sync.Mutex

	items    map[id.EventID]*Item
	order    orderIndex
	stash    *stash
	resolved map[id.EventID]struct{} // folded reactions and applied edits

	view      atomic.Pointer[View]
	listeners []func(Change)

	log         zerolog.Logger
	metrics     *Metrics
	groupWindow time.Duration
}

// New creates a reconciler and feeds it the initial events in order, as a
// single AddAll. Errors from individual events don't stop the load; they
// are joined and returned together with the usable reconciler.
func New(initial []mxevents.Event, opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		items:       make(map[id.EventID]*Item),
		stash:       newStash(),
		resolved:    make(map[id.EventID]struct{}),
		log:         zerolog.Nop(),
		groupWindow: DefaultGroupWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.view.Store(newView(nil, r.groupWindow))

	_, err := r.AddAll(initial)
	return r, err
}

// OnChange registers fn to be called after every Add or AddAll that changed
// visible state. It runs on the goroutine that called Add, after the new View has
// been published.
func (r *Reconciler) OnChange(fn func(Change)) {
	r.lock.Lock()
	r.listeners = append(r.listeners, fn)
	r.lock.Unlock()
}

// View returns the latest published snapshot.
func (r *Reconciler) View() *View {
	return r.view.Load()
}

// Items is shorthand for View().Items().
func (r *Reconciler) Items() []Item {
	return r.View().Items()
}

// Stashed returns target -> IDs of the events waiting for it.
func (r *Reconciler) Stashed() map[id.EventID][]id.EventID {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.stash.snapshot()
}

// Status reports the resolution state of an event.
func (r *Reconciler) Status(eventID id.EventID) Resolution {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.items[eventID]; ok {
		return Resolved
	}
	if _, ok := r.resolved[eventID]; ok {
		return Resolved
	}
	if r.stash.holds(eventID) {
		return Stashed
	}
	return Unseen
}

// Add processes one event, then everything its arrival unblocks.
func (r *Reconciler) Add(evt mxevents.Event) error {
	_, err := r.AddAll([]mxevents.Event{evt})
	return err
}

// AddAll processes events in order, each exactly as Add would, but
// publishes a single View and notifies listeners once with the combined
// change. An event that breaks an invariant is skipped and the rest of the
// batch still goes in; the errors are joined.
func (r *Reconciler) AddAll(events []mxevents.Event) (Change, error) {
	r.lock.Lock()
	var change changeSet
	var errs []error
	for _, evt := range events {
		if err := r.add(evt, &change); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if change.Empty() {
		r.lock.Unlock()
		return change.Change, err
	}
	r.publish()
	listeners := make([]func(Change), len(r.listeners))
	copy(listeners, r.listeners)
	r.lock.Unlock()

	for _, fn := range listeners {
		fn(change.Change)
	}
	return change.Change, err
}

// add drains a work stack instead of recursing into replays. Replays are
// pushed in reverse so they pop in timestamp order, right after the item
// that released them, which is the order recursive replay would give.
func (r *Reconciler) add(evt mxevents.Event, change *changeSet) error {
	work := []mxevents.Event{evt}
	for len(work) > 0 {
		next := work[len(work)-1]
		work = work[:len(work)-1]

		replay, err := r.process(next, change)
		if err != nil {
			return err
		}
		r.metrics.replayed(len(replay))
		for i := len(replay) - 1; i >= 0; i-- {
			work = append(work, replay[i])
		}
	}
	return nil
}

func (r *Reconciler) process(evt mxevents.Event, change *changeSet) ([]mxevents.Event, error) {
	kind := evt.Kind.String()
	if !evt.Valid() {
		r.log.Warn().Str("event_id", evt.ID.String()).Str("kind", kind).Msg("Dropping incomplete event")
		r.metrics.observe(kind, outcomeInvalid)
		return nil, nil
	}
	switch evt.Kind {
	case mxevents.KindMessage:
		if evt.IsEdit() {
			r.processEdit(evt, change)
			return nil, nil
		}
		return r.processMessage(evt, change)
	case mxevents.KindReaction:
		r.processReaction(evt, change)
		return nil, nil
	default:
		r.metrics.observe(kind, outcomeIgnored)
		return nil, nil
	}
}

func (r *Reconciler) processMessage(evt mxevents.Event, change *changeSet) ([]mxevents.Event, error) {
	existing := r.items[evt.ID]
	if len(evt.Relationships) == 0 {
		if existing != nil {
			r.redundant(evt)
			return nil, nil
		}
		return r.insert(newItem(evt), change)
	}

	var repliedTo *Snapshot
	var referenced *Reference
	resolved := false
	for _, rel := range evt.Relationships {
		target, ok := r.items[rel.EventID]
		if !ok {
			r.stashUnder(rel.EventID, evt)
			continue
		}
		resolved = true
		switch rel.Type {
		case mxevents.RelationReply:
			if repliedTo == nil {
				repliedTo = &Snapshot{EventID: target.EventID, Content: target.Content}
			}
		case mxevents.RelationReference:
			if referenced == nil {
				referenced = &Reference{EventID: target.EventID}
			}
		}
	}
	if !resolved {
		return nil, nil
	}

	if existing != nil {
		// A replay through a second relationship: fill in what the first
		// resolution couldn't, keep everything else.
		if (existing.RepliedTo != nil || repliedTo == nil) && (existing.Referenced != nil || referenced == nil) {
			r.redundant(evt)
			return nil, nil
		}
		item := existing.clone()
		if item.RepliedTo == nil {
			item.RepliedTo = repliedTo
		}
		if item.Referenced == nil {
			item.Referenced = referenced
		}
		r.items[item.EventID] = item
		change.touch(listLinked, item.EventID)
		r.metrics.observe(evt.Kind.String(), outcomeLinked)
		return nil, nil
	}

	item := newItem(evt)
	item.RepliedTo = repliedTo
	item.Referenced = referenced
	return r.insert(item, change)
}

func (r *Reconciler) processEdit(evt mxevents.Event, change *changeSet) {
	if _, ok := r.items[evt.ID]; ok {
		r.redundant(evt)
		return
	}
	for _, rel := range evt.Relationships {
		if rel.Type != mxevents.RelationReplace {
			continue
		}
		target, ok := r.items[rel.EventID]
		if !ok {
			r.stashUnder(rel.EventID, evt)
			continue
		}
		r.resolved[evt.ID] = struct{}{}
		if !target.newerEdit(evt) {
			r.redundant(evt)
			continue
		}
		item := target.clone()
		item.Content.Body = evt.Body
		item.EditedBy = evt.ID
		item.EditedAt = evt.Timestamp
		r.items[item.EventID] = item
		change.touch(listEdited, item.EventID)
		r.metrics.observe(evt.Kind.String(), outcomeEdited)
		r.log.Debug().
			Str("event_id", evt.ID.String()).
			Str("target", item.EventID.String()).
			Msg("Applied edit")
	}
}

func (r *Reconciler) processReaction(evt mxevents.Event, change *changeSet) {
	target, ok := r.items[evt.Target]
	if !ok {
		r.stashUnder(evt.Target, evt)
		return
	}
	r.resolved[evt.ID] = struct{}{}
	if target.HasReaction(evt.Key, evt.Sender) {
		r.redundant(evt)
		return
	}
	item := target.clone()
	item.addReaction(evt.Key, evt.Sender)
	r.items[item.EventID] = item
	change.touch(listReacted, item.EventID)
	r.metrics.observe(evt.Kind.String(), outcomeReacted)
}

// insert adds a new item and returns the events that were waiting for it.
// Nothing is stored when a check fails.
func (r *Reconciler) insert(item *Item, change *changeSet) ([]mxevents.Event, error) {
	if len(r.items) != r.order.len() {
		return nil, r.violation(item.EventID, "item map and ordering index differ in size")
	}
	if !r.order.insert(orderKey{item.Timestamp, item.EventID}) {
		return nil, r.violation(item.EventID, "ordering key already indexed")
	}
	r.items[item.EventID] = item
	change.touch(listCreated, item.EventID)
	r.metrics.observe(mxevents.KindMessage.String(), outcomeCreated)

	replay := r.stash.take(item.EventID)
	if len(replay) > 0 {
		r.log.Debug().
			Str("event_id", item.EventID.String()).
			Int("count", len(replay)).
			Msg("Replaying stashed events")
	}
	return replay, nil
}

func (r *Reconciler) stashUnder(target id.EventID, evt mxevents.Event) {
	if !r.stash.put(target, evt) {
		return
	}
	r.metrics.observe(evt.Kind.String(), outcomeStashed)
	r.log.Debug().
		Str("event_id", evt.ID.String()).
		Str("target", target.String()).
		Msg("Stashed event until its target arrives")
}

func (r *Reconciler) redundant(evt mxevents.Event) {
	r.metrics.observe(evt.Kind.String(), outcomeRedundant)
	r.log.Trace().Str("event_id", evt.ID.String()).Msg("Ignoring redundant event")
}

func (r *Reconciler) violation(eventID id.EventID, reason string) error {
	err := &ReconcileError{
		EventID: eventID,
		Reason:  reason,
		Items:   len(r.items),
		Indexed: r.order.len(),
	}
	r.metrics.violation()
	r.log.Error().Err(err).Msg("Timeline invariant violated")
	return err
}

// publish builds a new View from the current state. Items are never
// mutated once stored, so the view can share them.
func (r *Reconciler) publish() {
	items := make([]Item, 0, r.order.len())
	for _, key := range r.order.keys {
		if item, ok := r.items[key.id]; ok {
			items = append(items, *item)
		}
	}
	r.view.Store(newView(items, r.groupWindow))
}
