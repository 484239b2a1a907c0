package timeline

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mxtimeline "roomline/matrix/timeline"
)

const replayFixture = `[
	{"event_id": "$1", "type": "m.room.message", "sender": "@alice:x", "origin_server_ts": 60000,
	 "content": {"msgtype": "m.text", "body": "hello"}},
	{"event_id": "$2", "type": "m.reaction", "sender": "@bob:x", "origin_server_ts": 120000,
	 "content": {"m.relates_to": {"rel_type": "m.annotation", "event_id": "$1", "key": "👍"}}},
	{"event_id": "$3", "type": "m.room.message", "sender": "@alice:x", "origin_server_ts": 180000,
	 "content": {"msgtype": "m.text", "body": "* helo", "m.new_content": {"msgtype": "m.text", "body": "hello!"},
	             "m.relates_to": {"rel_type": "m.replace", "event_id": "$1"}}},
	{"event_id": "$4", "type": "m.room.message", "sender": "@bob:x", "origin_server_ts": 240000,
	 "content": {"msgtype": "m.text", "body": "hi", "m.relates_to": {"m.in_reply_to": {"event_id": "$1"}}}},
	{"event_id": "$5", "type": "m.reaction", "sender": "@bob:x", "origin_server_ts": 300000,
	 "content": {"m.relates_to": {"rel_type": "m.annotation", "event_id": "$missing", "key": "x"}}}
]`

func TestReplay(t *testing.T) {
	var out bytes.Buffer
	now := time.UnixMilli(600000)
	require.NoError(t, replay(strings.NewReader(replayFixture), &out, now, mxtimeline.WithLogger(zerolog.Nop())))

	assert.Equal(t, `@alice:x  9 minutes ago
  hello! (edited)
  [👍 1]

@bob:x  6 minutes ago
  > @alice:x: hello!
  hi

1 waiting for 1 missing:
  $missing <- $5
`, out.String())
}

func TestReplayGroupsMessages(t *testing.T) {
	ndjson := `{"event_id": "$1", "type": "m.room.message", "sender": "@alice:x", "origin_server_ts": 0, "content": {"body": "one"}}
{"event_id": "$2", "type": "m.room.message", "sender": "@alice:x", "origin_server_ts": 1000, "content": {"body": "two"}}
`
	var out bytes.Buffer
	require.NoError(t, replay(strings.NewReader(ndjson), &out, time.UnixMilli(500)))
	assert.Equal(t, "@alice:x  now\n  one\n  two\n", out.String())
}

func TestDecodeEvents(t *testing.T) {
	events, err := decodeEvents(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = decodeEvents(strings.NewReader("\n[]"))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = decodeEvents(strings.NewReader(`{"event_id": "$1"} {"event_id": `))
	assert.Error(t, err)
}
