package core

import (
	"context"

	"github.com/vovakirdan/toychat/internal/utils"
)

// HistoryGateway is the only path from the core to persisted messages.
// Both calls may block on I/O.
type HistoryGateway interface {
	// FetchHistory returns the room's messages oldest first. A room without a
	// persisted parent entity has an empty history.
	FetchHistory(ctx context.Context, roomID string) ([]Message, error)

	// Append persists msg and returns its stored form. Errors wrap
	// ErrPersistenceUnavailable.
	Append(ctx context.Context, roomID string, msg Message) (Message, error)
}

// ephemeralHistory is used when the hub runs without persistence.
type ephemeralHistory struct{}

func (ephemeralHistory) FetchHistory(context.Context, string) ([]Message, error) {
	return nil, nil
}

func (ephemeralHistory) Append(_ context.Context, _ string, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = utils.NewMessageID()
	}
	return msg, nil
}
