// Package history adapts a store.MessageStore to core.HistoryGateway.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/toychat/internal/core"
	"github.com/vovakirdan/toychat/internal/store"
)

// Gateway is the relay's view of the persistence collaborator.
type Gateway struct {
	store store.MessageStore
	limit int
	log   *zerolog.Logger
}

// New builds a gateway. limit caps the history replayed on join; zero or
// less replays everything.
func New(st store.MessageStore, limit int, logger *zerolog.Logger) *Gateway {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gateway{store: st, limit: limit, log: logger}
}

// FetchHistory returns the room's messages oldest first. A room whose parent
// entity does not exist has an empty history.
func (g *Gateway) FetchHistory(ctx context.Context, roomID string) ([]core.Message, error) {
	records, err := g.store.ListMessages(ctx, roomID, g.limit)
	if errors.Is(err, store.ErrNotFound) {
		g.log.Debug().Str("room", roomID).Msg("history requested for unknown room")
		return []core.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w: %w", core.ErrPersistenceUnavailable, err)
	}
	return lo.Map(records, func(rec *store.Message, _ int) core.Message {
		return toCore(rec)
	}), nil
}

// Append stores msg and returns the stored form.
func (g *Gateway) Append(ctx context.Context, roomID string, msg core.Message) (core.Message, error) {
	rec := &store.Message{
		RoomID:    roomID,
		Sender:    msg.From,
		Body:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	if err := g.store.SaveMessage(ctx, rec); err != nil {
		return core.Message{}, fmt.Errorf("append message: %w: %w", core.ErrPersistenceUnavailable, err)
	}
	return toCore(rec), nil
}

func toCore(rec *store.Message) core.Message {
	return core.Message{
		ID:        rec.ID,
		Room:      rec.RoomID,
		From:      rec.Sender,
		Text:      rec.Body,
		CreatedAt: rec.CreatedAt,
	}
}
