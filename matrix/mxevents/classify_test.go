package mxevents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

func parse(t *testing.T, raw string) *event.Event {
	t.Helper()
	var evt event.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))
	return &evt
}

func TestClassifyPlainMessage(t *testing.T) {
	evt := Classify(parse(t, `{
		"event_id": "$1", "type": "m.room.message", "sender": "@alice:example.org",
		"origin_server_ts": 1000,
		"content": {"msgtype": "m.text", "body": "Holle World!"}
	}`))

	assert.Equal(t, KindMessage, evt.Kind)
	assert.Equal(t, id.EventID("$1"), evt.ID)
	assert.Equal(t, id.UserID("@alice:example.org"), evt.Sender)
	assert.Equal(t, int64(1000), evt.Timestamp)
	assert.Equal(t, "Holle World!", evt.Body)
	assert.Empty(t, evt.Relationships)
	assert.True(t, evt.Valid())
}

func TestClassifyMessageWithoutBody(t *testing.T) {
	evt := Classify(parse(t, `{
		"event_id": "$1", "type": "m.room.message", "sender": "@alice:example.org",
		"content": {"msgtype": "m.text"}
	}`))
	assert.Equal(t, KindMessage, evt.Kind)
	assert.Equal(t, "", evt.Body)

	// A body of the wrong type degrades the same way.
	evt = Classify(parse(t, `{
		"event_id": "$2", "type": "m.room.message", "sender": "@alice:example.org",
		"content": {"body": 42}
	}`))
	assert.Equal(t, KindMessage, evt.Kind)
	assert.Equal(t, "", evt.Body)
}

func TestClassifyRelationships(t *testing.T) {
	tests := []struct {
		name    string
		content string
		body    string
		want    []Relationship
	}{
		{
			name:    "reply",
			content: `{"body": "yes", "m.relates_to": {"m.in_reply_to": {"event_id": "$0"}}}`,
			body:    "yes",
			want:    []Relationship{Reply("$0")},
		},
		{
			name:    "replace prefers new content",
			content: `{"body": "* Hello", "m.new_content": {"body": "Hello"}, "m.relates_to": {"rel_type": "m.replace", "event_id": "$0"}}`,
			body:    "Hello",
			want:    []Relationship{Replace("$0")},
		},
		{
			name:    "replace without new content",
			content: `{"body": "Hello", "m.relates_to": {"rel_type": "replace", "event_id": "$0"}}`,
			body:    "Hello",
			want:    []Relationship{Replace("$0")},
		},
		{
			name:    "reference",
			content: `{"body": "see", "m.relates_to": {"rel_type": "m.reference", "event_id": "$0"}}`,
			body:    "see",
			want:    []Relationship{Reference("$0")},
		},
		{
			name:    "reply and reference together",
			content: `{"body": "both", "m.relates_to": {"rel_type": "reference", "event_id": "$9", "m.in_reply_to": {"event_id": "$0"}}}`,
			body:    "both",
			want:    []Relationship{Reply("$0"), Reference("$9")},
		},
		{
			name:    "falling back thread reply is a plain message",
			content: `{"body": "in thread", "m.relates_to": {"rel_type": "m.thread", "event_id": "$root", "is_falling_back": true, "m.in_reply_to": {"event_id": "$root"}}}`,
			body:    "in thread",
		},
		{
			name:    "real reply inside a thread",
			content: `{"body": "in thread", "m.relates_to": {"rel_type": "m.thread", "event_id": "$root", "m.in_reply_to": {"event_id": "$5"}}}`,
			body:    "in thread",
			want:    []Relationship{Reply("$5")},
		},
		{
			name:    "replace without target",
			content: `{"body": "x", "m.relates_to": {"rel_type": "m.replace"}}`,
			body:    "x",
		},
		{
			name:    "relates_to of the wrong shape",
			content: `{"body": "x", "m.relates_to": "nope"}`,
			body:    "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := Classify(parse(t, `{"event_id": "$1", "type": "m.room.message", "sender": "@a:x", "content": `+tt.content+`}`))
			require.Equal(t, KindMessage, evt.Kind)
			assert.Equal(t, tt.body, evt.Body)
			assert.Equal(t, tt.want, evt.Relationships)
		})
	}
}

func TestClassifyReaction(t *testing.T) {
	evt := Classify(parse(t, `{
		"event_id": "$3", "type": "m.reaction", "sender": "@bob:example.org", "origin_server_ts": 3,
		"content": {"m.relates_to": {"rel_type": "m.annotation", "event_id": "$0", "key": "💔"}}
	}`))
	assert.Equal(t, KindReaction, evt.Kind)
	assert.Equal(t, id.EventID("$0"), evt.Target)
	assert.Equal(t, "💔", evt.Key)
	assert.Equal(t, id.UserID("@bob:example.org"), evt.Sender)
	assert.True(t, evt.Valid())
}

func TestClassifyReactionMissingFields(t *testing.T) {
	for name, content := range map[string]string{
		"no relates_to":  `{}`,
		"no key":         `{"m.relates_to": {"rel_type": "m.annotation", "event_id": "$0"}}`,
		"no target":      `{"m.relates_to": {"rel_type": "m.annotation", "key": "👍"}}`,
		"wrong rel type": `{"m.relates_to": {"rel_type": "m.reference", "event_id": "$0", "key": "👍"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			evt := Classify(parse(t, `{"event_id": "$3", "type": "m.reaction", "sender": "@b:x", "content": `+content+`}`))
			assert.Equal(t, KindIgnored, evt.Kind)
		})
	}
}

func TestClassifyIgnored(t *testing.T) {
	for name, raw := range map[string]string{
		"redaction":    `{"event_id": "$1", "type": "m.room.redaction", "sender": "@a:x", "redacts": "$0", "content": {}}`,
		"encrypted":    `{"event_id": "$1", "type": "m.room.encrypted", "sender": "@a:x", "content": {"algorithm": "m.megolm.v1.aes-sha2"}}`,
		"state":        `{"event_id": "$1", "type": "m.room.message", "state_key": "", "sender": "@a:x", "content": {"body": "hi"}}`,
		"no event id":  `{"type": "m.room.message", "sender": "@a:x", "content": {"body": "hi"}}`,
		"no sender":    `{"event_id": "$1", "type": "m.room.message", "content": {"body": "hi"}}`,
		"content list": `{"event_id": "$1", "type": "m.room.message", "sender": "@a:x", "content": ["hi"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			var evt event.Event
			// Some of these are rejected by mautrix itself; those are
			// ignored by definition.
			if err := json.Unmarshal([]byte(raw), &evt); err != nil {
				return
			}
			assert.Equal(t, KindIgnored, Classify(&evt).Kind)
		})
	}
}

func TestClassifyMalformedContent(t *testing.T) {
	evt := &event.Event{
		ID:      "$1",
		Type:    event.EventMessage,
		Sender:  "@a:x",
		Content: event.Content{VeryRaw: json.RawMessage(`{"body": "unterminated`)},
	}
	assert.Equal(t, KindIgnored, Classify(evt).Kind)
	assert.Equal(t, KindIgnored, Classify(nil).Kind)
}

func TestClassifyParsedContent(t *testing.T) {
	evt := &event.Event{
		ID:     "$1",
		Type:   event.EventMessage,
		Sender: "@a:x",
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    "local echo",
		}},
	}
	classified := Classify(evt)
	assert.Equal(t, KindMessage, classified.Kind)
	assert.Equal(t, "local echo", classified.Body)
}

func TestClassifyAllKeepsOrder(t *testing.T) {
	events := ClassifyAll([]*event.Event{
		parse(t, `{"event_id": "$2", "type": "m.room.message", "sender": "@a:x", "content": {"body": "b"}}`),
		parse(t, `{"event_id": "$1", "type": "m.room.topic", "state_key": "", "sender": "@a:x", "content": {"topic": "t"}}`),
		parse(t, `{"event_id": "$3", "type": "m.reaction", "sender": "@a:x", "content": {"m.relates_to": {"event_id": "$2", "key": "x"}}}`),
	})
	require.Len(t, events, 3)
	assert.Equal(t, []Kind{KindMessage, KindIgnored, KindReaction}, []Kind{events[0].Kind, events[1].Kind, events[2].Kind})
}

func TestValid(t *testing.T) {
	assert.False(t, NewMessage("", "@a:x", 0, "x").Valid())
	assert.False(t, NewMessage("$1", "@a:x", 0, "x", Reply("")).Valid())
	assert.False(t, NewReaction("$1", "@a:x", 0, "$0", "").Valid())
	assert.True(t, Event{Kind: KindIgnored}.Valid())
}
