package mxevents

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// gjson paths into event content. Matrix keys contain dots, which gjson
// treats as separators unless escaped.
const (
	pathBody        = "body"
	pathNewBody     = `m\.new_content.body`
	pathRelatesTo   = `m\.relates_to`
	pathRelType     = "rel_type"
	pathRelEventID  = "event_id"
	pathRelKey      = "key"
	pathInReplyTo   = `m\.in_reply_to.event_id`
	pathFallingBack = "is_falling_back"
)

// rawContent returns the JSON bytes of an event's content no matter which
// of the mautrix representations is filled in. Parsed content is only
// consulted when nothing raw is available, e.g. for local echoes.
func rawContent(evt *event.Event) []byte {
	if len(evt.Content.VeryRaw) > 0 {
		return evt.Content.VeryRaw
	}
	var src interface{}
	switch {
	case evt.Content.Raw != nil:
		src = evt.Content.Raw
	case evt.Content.Parsed != nil:
		src = evt.Content.Parsed
	default:
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		return nil
	}
	return data
}

// stringField returns the value at path only if it is a non-empty string.
func stringField(res gjson.Result, path string) string {
	val := res.Get(path)
	if val.Type != gjson.String {
		return ""
	}
	return val.Str
}

// relationships extracts every relation carried by m.relates_to. Replies
// come first, followed by the rel_type relation, if any.
func relationships(content gjson.Result) []Relationship {
	relatesTo := content.Get(pathRelatesTo)
	if !relatesTo.IsObject() {
		return nil
	}

	var rels []Relationship
	relType := event.RelationType(stringField(relatesTo, pathRelType))
	target := stringField(relatesTo, pathRelEventID)

	// A thread reply that is "falling back" only carries m.in_reply_to for
	// clients without thread support; it isn't a real reply.
	fallingBack := relType == event.RelThread && relatesTo.Get(pathFallingBack).Bool()
	if replyTo := stringField(relatesTo, pathInReplyTo); replyTo != "" && !fallingBack {
		rels = append(rels, Reply(id.EventID(replyTo)))
	}

	if target == "" {
		return rels
	}
	switch relType {
	case event.RelReplace, "replace":
		rels = append(rels, Replace(id.EventID(target)))
	case event.RelReference, "reference":
		rels = append(rels, Reference(id.EventID(target)))
	}
	return rels
}

func isAnnotation(relType string) bool {
	switch event.RelationType(relType) {
	case "", event.RelAnnotation, "annotation":
		return true
	default:
		return false
	}
}
