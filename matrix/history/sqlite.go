package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	room_id  TEXT    NOT NULL,
	event_id TEXT    NOT NULL,
	ts       INTEGER NOT NULL,
	data     BLOB    NOT NULL,
	PRIMARY KEY (room_id, event_id)
);
CREATE INDEX IF NOT EXISTS events_timeline ON events (room_id, ts, event_id);
CREATE TABLE IF NOT EXISTS pagination (
	room_id TEXT PRIMARY KEY,
	token   TEXT NOT NULL
);
`

// SQLiteStore keeps all rooms in a single events table.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite history: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (store *SQLiteStore) Append(roomID id.RoomID, events []*event.Event) error {
	tx, err := store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO events (room_id, event_id, ts, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		if !storable(evt) {
			continue
		}
		data, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", evt.ID, err)
		}
		if _, err = stmt.Exec(roomID.String(), evt.ID.String(), evt.Timestamp, data); err != nil {
			return fmt.Errorf("insert %s: %w", evt.ID, err)
		}
	}
	return tx.Commit()
}

func (store *SQLiteStore) Load(roomID id.RoomID) ([]*event.Event, error) {
	rows, err := store.db.Query(`SELECT event_id, data FROM events WHERE room_id = ? ORDER BY ts, event_id`, roomID.String())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		var eventID string
		var data []byte
		if err = rows.Scan(&eventID, &data); err != nil {
			return nil, err
		}
		var evt event.Event
		if err = json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", eventID, err)
		}
		events = append(events, &evt)
	}
	return events, rows.Err()
}

func (store *SQLiteStore) PaginationToken(roomID id.RoomID) (string, error) {
	var token string
	err := store.db.QueryRow(`SELECT token FROM pagination WHERE room_id = ?`, roomID.String()).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return token, err
}

func (store *SQLiteStore) SetPaginationToken(roomID id.RoomID, token string) error {
	_, err := store.db.Exec(`
INSERT INTO pagination (room_id, token) VALUES (?, ?)
ON CONFLICT(room_id) DO UPDATE SET token = excluded.token`, roomID.String(), token)
	return err
}

func (store *SQLiteStore) Close() error {
	return store.db.Close()
}
