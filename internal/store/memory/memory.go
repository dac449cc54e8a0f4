// Package memory is a process-local store.Store, used by tests and by
// deployments that do not need history to survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vovakirdan/toychat/internal/store"
	"github.com/vovakirdan/toychat/internal/utils"
)

// Store keeps rooms and their messages in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]store.Room
	messages map[string][]store.Message
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rooms:    make(map[string]store.Room),
		messages: make(map[string][]store.Message),
	}
}

func (s *Store) EnsureRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		s.rooms[id] = store.Room{ID: id, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (s *Store) GetRoom(_ context.Context, id string) (*store.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, store.ErrNotFound)
	}
	return &room, nil
}

func (s *Store) SaveMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[msg.RoomID]; !ok {
		return fmt.Errorf("room %s: %w", msg.RoomID, store.ErrNotFound)
	}
	if msg.ID == "" {
		msg.ID = utils.NewMessageID()
	}
	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], *msg)
	return nil
}

func (s *Store) ListMessages(_ context.Context, roomID string, limit int) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
	}
	all := s.messages[roomID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*store.Message, 0, len(all))
	for i := range all {
		msg := all[i]
		out = append(out, &msg)
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
