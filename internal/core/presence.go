package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/metrics"
)

// Presence relays typing signals. Nothing here is persisted or sequenced.
type Presence struct {
	registry *Registry
	log      *zerolog.Logger
}

// Typing broadcasts that identity is typing in roomID to everyone but s.
// Signals for a room the session is not in are dropped.
func (p *Presence) Typing(s *Session, roomID, identity string) bool {
	if roomID == "" || s.room != roomID {
		p.log.Debug().Err(ErrInvalidRoomState).Str("session_id", s.ID).Str("room", roomID).Msg("typing dropped")
		return false
	}
	metrics.IncTyping()
	p.registry.Broadcast(roomID, &Event{Kind: EventTyping, Room: roomID, User: identity}, s.ID)
	return true
}
