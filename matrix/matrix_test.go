package matrix

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomline/config"
	"roomline/matrix/rooms"

	"maunium.net/go/mautrix/id"
)

// Backwards pagination returns the newest event first.
const messagesResponse = `{
	"start": "p1",
	"end": "p2",
	"chunk": [
		{"event_id": "$e", "type": "m.room.message", "sender": "@alice:example.org", "origin_server_ts": 3,
		 "content": {"msgtype": "m.text", "body": "* fixed", "m.new_content": {"msgtype": "m.text", "body": "fixed"},
		             "m.relates_to": {"rel_type": "m.replace", "event_id": "$a"}}},
		{"event_id": "$b", "type": "m.room.message", "sender": "@alice:example.org", "origin_server_ts": 2,
		 "content": {"msgtype": "m.text", "body": "second"}},
		{"event_id": "$a", "type": "m.room.message", "sender": "@alice:example.org", "origin_server_ts": 1,
		 "content": {"msgtype": "m.text", "body": "frist"}}
	]
}`

func newTestWrapper(t *testing.T, handler http.HandlerFunc) *ClientWrapper {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewConfig(t.TempDir(), t.TempDir(), t.TempDir())
	cfg.Homeserver = server.URL
	cfg.UserID = "@alice:example.org"
	cfg.AccessToken = "token"
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")

	wrapper := NewWrapper(cfg, zerolog.Nop(), nil)
	require.NoError(t, wrapper.InitClient())
	t.Cleanup(func() { _ = wrapper.Close() })
	return wrapper
}

func TestPaginate(t *testing.T) {
	var froms []string
	wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		froms = append(froms, r.URL.Query().Get("from"))
		assert.Equal(t, "b", r.URL.Query().Get("dir"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesResponse))
	})

	room := wrapper.GetOrCreateRoom(testRoom)
	room.SetPrevBatch("p1")
	var directions []string
	room.OnUpdate(func(update rooms.Update) { directions = append(directions, update.Direction.String()) })

	n, err := wrapper.Paginate(testRoom, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"p1"}, froms)
	assert.Equal(t, []string{"backwards"}, directions)

	items := room.Timeline().Items()
	require.Len(t, items, 2)
	assert.Equal(t, id.EventID("$a"), items[0].EventID)
	assert.Equal(t, "fixed", items[0].Content.Body)
	assert.Equal(t, "p2", room.GetPrevBatch())

	token, err := wrapper.history.PaginationToken(testRoom)
	require.NoError(t, err)
	assert.Equal(t, "p2", token)
	stored, err := wrapper.history.Load(testRoom)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestInitClientNeedsHomeserver(t *testing.T) {
	cfg := config.NewConfig(t.TempDir(), "", t.TempDir())
	wrapper := NewWrapper(cfg, zerolog.Nop(), nil)
	assert.ErrorIs(t, wrapper.InitClient(), ErrNoHomeserver)
}

func TestNotLoggedIn(t *testing.T) {
	wrapper := NewWrapper(config.NewConfig(t.TempDir(), "", t.TempDir()), zerolog.Nop(), nil)
	_, err := wrapper.Paginate(testRoom, 10)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.ErrorIs(t, wrapper.Start(), ErrNotLoggedIn)
}

func TestChronological(t *testing.T) {
	assert.Empty(t, chronological(nil))
}
