package core

// Room groups sessions subscribed to the same parent entity.
type Room struct {
	ID      string
	members map[string]*Session
}

// NewRoom constructs a room with no members.
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		members: make(map[string]*Session),
	}
}

// Add inserts a session into the room. Returns true if newly added.
func (r *Room) Add(s *Session) bool {
	if _, exists := r.members[s.ID]; exists {
		return false
	}
	r.members[s.ID] = s
	return true
}

// Remove deletes a session from the room. Returns true if removed.
func (r *Room) Remove(s *Session) bool {
	if _, exists := r.members[s.ID]; !exists {
		return false
	}
	delete(r.members, s.ID)
	return true
}

// Has reports whether the session is a member.
func (r *Room) Has(id string) bool {
	_, ok := r.members[id]
	return ok
}

// Broadcast sends an event to every member except excludeID.
// Chat messages skip members that are still waiting for their history.
func (r *Room) Broadcast(event *Event, excludeID string) (delivered, dropped int) {
	for id, s := range r.members {
		if id == excludeID {
			continue
		}
		if event.Kind == EventRoomMessage && s.state == StateJoining {
			continue
		}
		if s.deliver(event) {
			delivered++
		} else {
			// Drop if slow consumer.
			dropped++
		}
	}
	return delivered, dropped
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// Empty returns true if no sessions are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}
