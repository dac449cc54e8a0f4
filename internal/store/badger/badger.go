package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/vovakirdan/toychat/internal/store"
	"github.com/vovakirdan/toychat/internal/utils"
)

// Store implements store.Store on top of BadgerDB.
//
// Keys:
//
//	room:{hex(room id)}               -> created_at (RFC3339Nano)
//	msg:{hex(room id)}:{message ulid} -> JSON record
//
// Room ids are hex encoded so that one id can never be a prefix of another's
// message keys. Message ulids sort by creation, so a prefix scan yields
// chronological order.
type Store struct {
	db *badger.DB
}

type record struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// New opens (or creates) a badger database in dir.
func New(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir).WithLogger(nil))
}

// NewInMemory opens a badger database that lives only in memory.
func NewInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func roomKey(id string) []byte {
	return []byte(fmt.Sprintf("room:%x", id))
}

func messagePrefix(roomID string) []byte {
	return []byte(fmt.Sprintf("msg:%x:", roomID))
}

// EnsureRoom creates the room if it does not exist yet.
func (s *Store) EnsureRoom(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(id))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get room: %w", err)
		}
		return txn.Set(roomKey(id), []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
}

// GetRoom retrieves a room by ID.
func (s *Store) GetRoom(_ context.Context, id string) (*store.Room, error) {
	var room *store.Room
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func getRoom(txn *badger.Txn, id string) (*store.Room, error) {
	item, err := txn.Get(roomKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("room %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("read room: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse room created_at: %w", err)
	}
	return &store.Room{ID: id, CreatedAt: createdAt}, nil
}

// SaveMessage persists a message under its room's prefix.
func (s *Store) SaveMessage(_ context.Context, msg *store.Message) error {
	if msg.ID == "" {
		msg.ID = utils.NewMessageID()
	}
	value, err := json.Marshal(record{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Sender:    msg.Sender,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := getRoom(txn, msg.RoomID); err != nil {
			return err
		}
		key := append(messagePrefix(msg.RoomID), msg.ID...)
		return txn.Set(key, value)
	})
}

// ListMessages scans the room's prefix backwards from the newest message,
// stopping at limit, and returns the result oldest first.
func (s *Store) ListMessages(_ context.Context, roomID string, limit int) ([]*store.Message, error) {
	var messages []*store.Message
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getRoom(txn, roomID); err != nil {
			return err
		}

		prefix := messagePrefix(roomID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// "~" sorts after every ulid character.
		seek := append(append([]byte{}, prefix...), '~')
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			var rec record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode message: %w", err)
			}
			messages = append(messages, &store.Message{
				ID:        rec.ID,
				RoomID:    rec.RoomID,
				Sender:    rec.Sender,
				Body:      rec.Body,
				CreatedAt: rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range len(messages) / 2 {
		j := len(messages) - 1 - i
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
