package core

import (
	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/metrics"
)

// Registry maps room ids to their members. It is not safe for concurrent
// use; the hub loop is its only caller.
type Registry struct {
	rooms map[string]*Room
	log   *zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		rooms: make(map[string]*Room),
		log:   logger,
	}
}

// Join moves the session into roomID, leaving any other room first.
// Joining the current room again restarts the history handshake.
// An empty room id is rejected.
func (r *Registry) Join(s *Session, roomID string) bool {
	if roomID == "" {
		return false
	}
	if s.room != "" && s.room != roomID {
		r.Leave(s, s.room)
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		r.rooms[roomID] = room
		metrics.SetRooms(len(r.rooms))
	}
	if room.Add(s) {
		r.log.Debug().Str("session_id", s.ID).Str("room", roomID).Int("members", room.Len()).Msg("session joined room")
	}

	s.room = roomID
	s.joinSeq++
	s.state = StateJoining
	return true
}

// Leave removes the session from roomID. Returns false if it was not a member.
func (r *Registry) Leave(s *Session, roomID string) bool {
	room, ok := r.rooms[roomID]
	if !ok || !room.Remove(s) {
		return false
	}
	if room.Empty() {
		delete(r.rooms, roomID)
		metrics.SetRooms(len(r.rooms))
	}
	if s.room == roomID {
		s.room = ""
		s.state = StateIdle
	}
	r.log.Debug().Str("session_id", s.ID).Str("room", roomID).Msg("session left room")
	return true
}

// Broadcast delivers event to the members of roomID except excludeID.
// Failed deliveries are counted and skipped.
func (r *Registry) Broadcast(roomID string, event *Event, excludeID string) (delivered, dropped int) {
	room, ok := r.rooms[roomID]
	if !ok {
		return 0, 0
	}
	delivered, dropped = room.Broadcast(event, excludeID)
	metrics.AddDelivered(event.Kind.String(), delivered)
	if dropped > 0 {
		metrics.AddDropped(dropped)
		r.log.Warn().Err(ErrTransportDelivery).Str("room", roomID).Int("dropped", dropped).Msg("skipped slow members")
	}
	return delivered, dropped
}

// Room returns the room with the given id, if it has members.
func (r *Registry) Room(roomID string) (*Room, bool) {
	room, ok := r.rooms[roomID]
	return room, ok
}

// Len returns the number of non-empty rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}
