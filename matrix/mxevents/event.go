package mxevents

import (
	"maunium.net/go/mautrix/id"
)

// Kind tells which variant of Event is populated.
type Kind int

const (
	KindIgnored Kind = iota
	KindMessage
	KindReaction
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindReaction:
		return "reaction"
	default:
		return "ignored"
	}
}

// RelationType is the kind of link a message carries to another event.
type RelationType int

const (
	RelationReply RelationType = iota
	RelationReplace
	RelationReference
)

func (rt RelationType) String() string {
	switch rt {
	case RelationReply:
		return "reply"
	case RelationReplace:
		return "replace"
	case RelationReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Relationship points from a message to the event it relates to.
type Relationship struct {
	Type    RelationType
	EventID id.EventID
}

// Event is a classified room event. It is a flat tagged union: Kind selects
// which fields are meaningful.
//
//	KindMessage:  ID, Sender, Timestamp, Body, Relationships
//	KindReaction: ID, Sender, Timestamp, Target, Key
//	KindIgnored:  nothing (ID and Timestamp are kept when known, for logging)
type Event struct {
	Kind      Kind
	ID        id.EventID
	Sender    id.UserID
	Timestamp int64 // origin_server_ts, milliseconds

	Body          string
	Relationships []Relationship

	Target id.EventID // the reacted-to event
	Key    string     // the reaction key, usually an emoji
}

// NewMessage builds a message event. Mostly useful for tests and fixtures
// that don't want to go through raw JSON.
func NewMessage(eventID id.EventID, sender id.UserID, ts int64, body string, rels ...Relationship) Event {
	return Event{
		Kind:          KindMessage,
		ID:            eventID,
		Sender:        sender,
		Timestamp:     ts,
		Body:          body,
		Relationships: rels,
	}
}

// NewReaction builds a reaction event.
func NewReaction(eventID id.EventID, sender id.UserID, ts int64, target id.EventID, key string) Event {
	return Event{
		Kind:      KindReaction,
		ID:        eventID,
		Sender:    sender,
		Timestamp: ts,
		Target:    target,
		Key:       key,
	}
}

func Reply(target id.EventID) Relationship {
	return Relationship{Type: RelationReply, EventID: target}
}

func Replace(target id.EventID) Relationship {
	return Relationship{Type: RelationReplace, EventID: target}
}

func Reference(target id.EventID) Relationship {
	return Relationship{Type: RelationReference, EventID: target}
}

// Valid reports whether the populated variant has everything it needs to be
// keyed and resolved. Classify only produces valid events; hand-built ones
// may not be.
func (evt Event) Valid() bool {
	switch evt.Kind {
	case KindMessage:
		if evt.ID == "" || evt.Sender == "" {
			return false
		}
		for _, rel := range evt.Relationships {
			if rel.EventID == "" {
				return false
			}
		}
		return true
	case KindReaction:
		return evt.ID != "" && evt.Sender != "" && evt.Target != "" && evt.Key != ""
	default:
		return true
	}
}

// IsEdit reports whether the message replaces another event's content.
func (evt Event) IsEdit() bool {
	for _, rel := range evt.Relationships {
		if rel.Type == RelationReplace {
			return true
		}
	}
	return false
}
