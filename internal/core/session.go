package core

const (
	commandBuffer = 8
	eventBuffer   = 32
)

// SessionState tracks where a session is in its current room.
type SessionState int

const (
	// StateIdle means the session is not in any room.
	StateIdle SessionState = iota
	// StateJoining means the session joined a room and waits for its history.
	StateJoining
	// StateActive means history was delivered and live messages flow.
	StateActive
)

// Session is one live connection as seen by the core layer.
// Everything except the channels is owned by the hub loop.
type Session struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	identity string
	room     string
	joinSeq  uint64
	state    SessionState
	closed   bool
	done     chan struct{}
}

// NewSession constructs a session with initialized channels and no room.
func NewSession(id, identity string) *Session {
	return &Session{
		ID:       id,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
		identity: identity,
		done:     make(chan struct{}),
	}
}

// deliver hands ev to the session without blocking. A full or closed
// session drops the event.
func (s *Session) deliver(ev *Event) bool {
	if s.closed {
		return false
	}
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}

// sender picks the identity a message or typing signal is attributed to.
// Authenticated sessions ignore the identity claimed in the payload.
func (s *Session) sender(claimed string) string {
	if s.identity != "" {
		return s.identity
	}
	return claimed
}
