package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the parent entity of a room does not exist.
var ErrNotFound = errors.New("not found")

// Room is the persisted parent entity a chat room is keyed by.
type Room struct {
	ID        string
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        string
	RoomID    string
	Sender    string
	Body      string
	CreatedAt time.Time
}

// RoomStore handles parent entity persistence.
type RoomStore interface {
	// EnsureRoom creates the room if it does not exist yet.
	EnsureRoom(ctx context.Context, id string) error

	// GetRoom retrieves a room by ID. Returns ErrNotFound if it does not exist.
	GetRoom(ctx context.Context, id string) (*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	// Returns ErrNotFound if the message's room does not exist.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns the room's messages oldest first.
	// A positive limit keeps only the newest limit messages.
	// Returns ErrNotFound if the room does not exist.
	ListMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database.
	Close() error
}
