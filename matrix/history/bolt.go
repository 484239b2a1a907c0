package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

var (
	bucketRooms  = []byte("rooms")
	bucketTokens = []byte("pagination")
	bucketEvents = []byte("events")
	bucketIDs    = []byte("ids")
)

// BoltStore keeps one bucket per room. Inside it, events are keyed by an
// 8 byte big-endian timestamp followed by the event ID, so a cursor walks
// them in timeline order.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt history: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRooms); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketTokens)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt history: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func eventKey(evt *event.Event) []byte {
	key := make([]byte, 8+len(evt.ID))
	binary.BigEndian.PutUint64(key, uint64(evt.Timestamp))
	copy(key[8:], evt.ID)
	return key
}

func (store *BoltStore) Append(roomID id.RoomID, events []*event.Event) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		room, err := tx.Bucket(bucketRooms).CreateBucketIfNotExists([]byte(roomID))
		if err != nil {
			return err
		}
		stream, err := room.CreateBucketIfNotExists(bucketEvents)
		if err != nil {
			return err
		}
		ids, err := room.CreateBucketIfNotExists(bucketIDs)
		if err != nil {
			return err
		}
		for _, evt := range events {
			if !storable(evt) || ids.Get([]byte(evt.ID)) != nil {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", evt.ID, err)
			}
			key := eventKey(evt)
			if err = stream.Put(key, data); err != nil {
				return err
			}
			if err = ids.Put([]byte(evt.ID), key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (store *BoltStore) Load(roomID id.RoomID) ([]*event.Event, error) {
	var events []*event.Event
	err := store.db.View(func(tx *bolt.Tx) error {
		room := tx.Bucket(bucketRooms).Bucket([]byte(roomID))
		if room == nil {
			return nil
		}
		stream := room.Bucket(bucketEvents)
		if stream == nil {
			return nil
		}
		return stream.ForEach(func(key, data []byte) error {
			var evt event.Event
			if err := json.Unmarshal(data, &evt); err != nil {
				return fmt.Errorf("unmarshal %s: %w", key[8:], err)
			}
			events = append(events, &evt)
			return nil
		})
	})
	return events, err
}

func (store *BoltStore) PaginationToken(roomID id.RoomID) (token string, err error) {
	err = store.db.View(func(tx *bolt.Tx) error {
		token = string(tx.Bucket(bucketTokens).Get([]byte(roomID)))
		return nil
	})
	return
}

func (store *BoltStore) SetPaginationToken(roomID id.RoomID, token string) error {
	return store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Put([]byte(roomID), []byte(token))
	})
}

func (store *BoltStore) Close() error {
	return store.db.Close()
}
