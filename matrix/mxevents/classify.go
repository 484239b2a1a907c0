package mxevents

import (
	"github.com/tidwall/gjson"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Classify turns a raw Matrix event into the flat Event the timeline works
// with. It never fails: anything unsupported or structurally broken comes
// back as KindIgnored so one bad event can't hold up the rest of a batch.
func Classify(evt *event.Event) Event {
	if evt == nil {
		return Event{Kind: KindIgnored}
	}
	if evt.ID == "" || evt.Sender == "" || evt.StateKey != nil {
		return ignored(evt)
	}

	raw := rawContent(evt)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ignored(evt)
	}
	content := gjson.ParseBytes(raw)
	if !content.IsObject() {
		return ignored(evt)
	}

	switch evt.Type.Type {
	case event.EventMessage.Type:
		return classifyMessage(evt, content)
	case event.EventReaction.Type:
		return classifyReaction(evt, content)
	default:
		return ignored(evt)
	}
}

// ClassifyAll classifies a batch, keeping its order.
func ClassifyAll(events []*event.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, evt := range events {
		out = append(out, Classify(evt))
	}
	return out
}

func classifyMessage(evt *event.Event, content gjson.Result) Event {
	msg := Event{
		Kind:          KindMessage,
		ID:            evt.ID,
		Sender:        evt.Sender,
		Timestamp:     evt.Timestamp,
		Body:          stringField(content, pathBody),
		Relationships: relationships(content),
	}
	// Edits carry a "* " fallback in body and the real text in m.new_content.
	if msg.IsEdit() {
		if newBody := content.Get(pathNewBody); newBody.Type == gjson.String {
			msg.Body = newBody.Str
		}
	}
	return msg
}

func classifyReaction(evt *event.Event, content gjson.Result) Event {
	relatesTo := content.Get(pathRelatesTo)
	if !relatesTo.IsObject() {
		return ignored(evt)
	}
	if relType := relatesTo.Get(pathRelType); relType.Exists() && !isAnnotation(relType.String()) {
		return ignored(evt)
	}
	target := stringField(relatesTo, pathRelEventID)
	key := stringField(relatesTo, pathRelKey)
	if target == "" || key == "" {
		return ignored(evt)
	}
	return NewReaction(evt.ID, evt.Sender, evt.Timestamp, id.EventID(target), key)
}

func ignored(evt *event.Event) Event {
	return Event{Kind: KindIgnored, ID: evt.ID, Timestamp: evt.Timestamp}
}
