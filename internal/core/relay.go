package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/metrics"
)

// Relay orchestrates joins and chat messages against the history gateway.
// Its methods are called on the hub loop; I/O runs on the room's sequencer
// and the results are applied back on the loop through exec.
type Relay struct {
	registry *Registry
	history  HistoryGateway
	seq      *sequencers
	exec     func(fn func()) bool
	now      func() time.Time
	log      *zerolog.Logger
}

// Join adds the session to roomID and schedules its history delivery behind
// any send already queued for the room. Until the history arrives the
// session receives no live chat messages for the room, so every persisted
// message reaches it exactly once.
func (r *Relay) Join(ctx context.Context, s *Session, roomID string) error {
	if !r.registry.Join(s, roomID) {
		return ErrBadRequest
	}
	seq := s.joinSeq

	r.seq.enqueue(ctx, roomID, func(ctx context.Context) {
		messages, err := r.history.FetchHistory(ctx, roomID)
		r.exec(func() {
			if s.closed || s.room != roomID || s.joinSeq != seq {
				return
			}
			s.state = StateActive
			if err != nil {
				metrics.IncPersistenceFailure("fetch")
				r.log.Error().Err(err).Str("session_id", s.ID).Str("room", roomID).Msg("fetch history")
				s.deliver(errorEvent(roomID, coreError(ErrCodePersistenceUnavailable, "history is unavailable")))
				return
			}
			if !s.deliver(&Event{Kind: EventHistory, Room: roomID, Messages: messages}) {
				r.log.Warn().Err(ErrTransportDelivery).Str("session_id", s.ID).Str("room", roomID).Msg("history dropped")
			}
		})
	})
	return nil
}

// Send queues msg for persistence and broadcast. The createdAt timestamp is
// assigned here, at acceptance time.
func (r *Relay) Send(ctx context.Context, s *Session, roomID string, msg Message) error {
	if roomID == "" || s.room != roomID {
		return ErrNotInRoom
	}
	msg.Room = roomID
	msg.CreatedAt = r.now()

	r.seq.enqueue(ctx, roomID, func(ctx context.Context) {
		stored, err := r.history.Append(ctx, roomID, msg)
		r.exec(func() {
			if err != nil {
				metrics.IncPersistenceFailure("append")
				r.log.Error().Err(err).Str("session_id", s.ID).Str("room", roomID).Msg("append message")
				s.deliver(errorEvent(roomID, coreError(ErrCodePersistenceUnavailable, "message was not saved")))
				return
			}
			delivered, _ := r.registry.Broadcast(roomID, &Event{Kind: EventRoomMessage, Room: roomID, Message: stored}, "")
			r.log.Debug().Str("room", roomID).Str("message_id", stored.ID).Int("delivered", delivered).Msg("message broadcast")
		})
	})
	return nil
}
