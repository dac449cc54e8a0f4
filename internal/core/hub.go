package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/toychat/internal/metrics"
)

// Hub is the single event loop that owns every session and the registry.
// Transports feed it through Register, Unregister and Session.Commands.
type Hub struct {
	registry *Registry
	relay    *Relay
	presence *Presence
	sessions map[string]*Session

	register   chan *Session
	unregister chan *Session
	commands   chan sessionCommand
	tasks      chan task
	stopped    chan struct{}

	// jobs is the context sequencer jobs run under. It outlives the Run
	// context and is cancelled only when draining times out.
	jobs         context.Context
	cancelJobs   context.CancelFunc
	drainTimeout time.Duration

	log *zerolog.Logger
}

type sessionCommand struct {
	session *Session
	cmd     *Command
}

type task struct {
	fn   func()
	done chan struct{}
}

const defaultDrainTimeout = 5 * time.Second

// Option configures a Hub.
type Option func(*Hub)

// WithClock overrides the clock used to stamp accepted messages.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.relay.now = now
	}
}

// WithDrainTimeout bounds how long Run keeps finishing queued appends after
// its context is cancelled.
func WithDrainTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.drainTimeout = d
		}
	}
}

// NewHub creates a hub. A nil history makes the relay ephemeral: joins get an
// empty history and messages are broadcast without being stored.
func NewHub(history HistoryGateway, logger *zerolog.Logger, opts ...Option) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if history == nil {
		history = ephemeralHistory{}
	}

	registry := NewRegistry(logger)
	jobs, cancelJobs := context.WithCancel(context.Background())
	h := &Hub{
		registry:   registry,
		presence:   &Presence{registry: registry, log: logger},
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		commands:   make(chan sessionCommand),
		tasks:      make(chan task),
		stopped:    make(chan struct{}),

		jobs:         jobs,
		cancelJobs:   cancelJobs,
		drainTimeout: defaultDrainTimeout,

		log: logger,
	}
	h.relay = &Relay{
		registry: registry,
		history:  history,
		seq:      newSequencers(),
		exec:     h.exec,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes hub events until ctx is cancelled. It then stops taking
// commands and keeps the loop alive until every accepted message has been
// appended and broadcast, or the drain timeout expires.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	defer h.cancelJobs()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Int("sessions", len(h.sessions)).Msg("hub stopping")
			h.drain()
			return
		case s := <-h.register:
			h.sessions[s.ID] = s
			metrics.IncConnections()
			go h.pump(s)
			h.log.Debug().Str("session_id", s.ID).Msg("session registered")
		case s := <-h.unregister:
			h.release(s)
		case sc := <-h.commands:
			h.handle(sc.session, sc.cmd)
		case t := <-h.tasks:
			t.fn()
			close(t.done)
		}
	}
}

// drain serves completion tasks and disconnects until the sequencers are
// idle. When the timeout expires, pending jobs are cancelled so their senders
// get an error, and the loop waits one more timeout for them to report.
func (h *Hub) drain() {
	idle := make(chan struct{})
	go func() {
		h.relay.seq.wait()
		close(idle)
	}()

	timer := time.NewTimer(h.drainTimeout)
	defer timer.Stop()
	cancelled := false

	for {
		select {
		case <-idle:
			return
		case t := <-h.tasks:
			t.fn()
			close(t.done)
		case s := <-h.unregister:
			h.release(s)
		case <-timer.C:
			if cancelled {
				h.log.Warn().Msg("sequencers did not finish after cancellation")
				return
			}
			h.log.Warn().Dur("timeout", h.drainTimeout).Msg("drain timed out, cancelling pending appends")
			h.cancelJobs()
			cancelled = true
			timer.Reset(h.drainTimeout)
		}
	}
}

// RegisterSession hands a freshly connected session to the hub.
func (h *Hub) RegisterSession(s *Session) {
	select {
	case h.register <- s:
	case <-h.stopped:
	}
}

// UnregisterSession removes the session from its room and releases it.
// Calling it more than once is harmless.
func (h *Hub) UnregisterSession(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.stopped:
	}
}

// pump forwards one session's commands to the loop in order.
func (h *Hub) pump(s *Session) {
	for {
		select {
		case cmd := <-s.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.commands <- sessionCommand{session: s, cmd: cmd}:
			case <-s.done:
				return
			case <-h.stopped:
				return
			}
		case <-s.done:
			return
		case <-h.stopped:
			return
		}
	}
}

// exec runs fn on the loop and waits for it. It reports false if the hub
// stopped before fn could run.
func (h *Hub) exec(fn func()) bool {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case h.tasks <- t:
	case <-h.stopped:
		return false
	}
	<-t.done
	return true
}

func (h *Hub) release(s *Session) {
	if h.sessions[s.ID] != s {
		return
	}
	if s.room != "" {
		h.registry.Leave(s, s.room)
	}
	delete(h.sessions, s.ID)
	s.closed = true
	close(s.done)
	close(s.Events)
	metrics.DecConnections()
	h.log.Debug().Str("session_id", s.ID).Msg("session released")
}

func (h *Hub) handle(s *Session, cmd *Command) {
	if h.sessions[s.ID] != s {
		return
	}

	switch cmd.Kind {
	case CommandIdentify:
		s.identity = cmd.Identity
	case CommandJoinRoom:
		if err := h.relay.Join(h.jobs, s, cmd.Room); err != nil {
			s.deliver(errorEvent(cmd.Room, coreError(ErrCodeBadRequest, "room is required")))
		}
	case CommandLeaveRoom:
		if !h.registry.Leave(s, cmd.Room) {
			h.log.Debug().Err(ErrInvalidRoomState).Str("session_id", s.ID).Str("room", cmd.Room).Msg("leave ignored")
		}
	case CommandSendRoomMessage:
		msg := cmd.Message
		msg.From = s.sender(msg.From)
		if msg.From == "" {
			s.deliver(errorEvent(cmd.Room, coreError(ErrCodeBadRequest, "sender identity is required")))
			return
		}
		if err := h.relay.Send(h.jobs, s, cmd.Room, msg); err != nil {
			s.deliver(errorEvent(cmd.Room, coreError(ErrCodeNotInRoom, "join the room before sending")))
		}
	case CommandTyping:
		identity := s.sender(cmd.Identity)
		if identity == "" {
			s.deliver(errorEvent(cmd.Room, coreError(ErrCodeBadRequest, "sender identity is required")))
			return
		}
		h.presence.Typing(s, cmd.Room, identity)
	default:
		h.log.Warn().Int("kind", int(cmd.Kind)).Str("session_id", s.ID).Msg("unknown command")
	}
}
