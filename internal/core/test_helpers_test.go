package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of kind shows up on ch within wait.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func startHub(t *testing.T, history HistoryGateway, opts ...Option) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(history, nil, opts...)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func connect(hub *Hub, id, identity string) *Session {
	s := NewSession(id, identity)
	hub.RegisterSession(s)
	return s
}

// joinAndSync joins room and waits for the history that completes the join.
func joinAndSync(t *testing.T, s *Session, room string) *Event {
	t.Helper()
	s.Commands <- &Command{Kind: CommandJoinRoom, Room: room}
	return mustEvent(t, s.Events, EventHistory)
}

// onLoop runs fn on the hub loop, giving tests a consistent view of its state.
func onLoop(t *testing.T, hub *Hub, fn func()) {
	t.Helper()
	if !hub.exec(fn) {
		t.Fatalf("hub stopped")
	}
}

// loopEventually polls cond on the hub loop until it holds.
func loopEventually(t *testing.T, hub *Hub, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		hub.exec(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met on hub loop")
}

// fakeHistory is an in-memory gateway whose appends can be held back per text.
type fakeHistory struct {
	mu       sync.Mutex
	messages map[string][]Message
	gates    map[string]chan struct{}
	fail     bool
	nextID   int
	started  chan string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		messages: make(map[string][]Message),
		gates:    make(map[string]chan struct{}),
		started:  make(chan string, 64),
	}
}

// hold makes the append of text block until the returned func is called.
func (f *fakeHistory) hold(text string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[text] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeHistory) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeHistory) seed(room string, msgs ...Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[room] = append(f.messages[room], msgs...)
}

func (f *fakeHistory) FetchHistory(_ context.Context, roomID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("fetch %s: %w", roomID, ErrPersistenceUnavailable)
	}
	out := make([]Message, len(f.messages[roomID]))
	copy(out, f.messages[roomID])
	return out, nil
}

func (f *fakeHistory) Append(ctx context.Context, roomID string, msg Message) (Message, error) {
	f.started <- msg.Text

	f.mu.Lock()
	gate := f.gates[msg.Text]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return Message{}, fmt.Errorf("append %s: %w", roomID, ErrPersistenceUnavailable)
	}
	f.nextID++
	msg.ID = fmt.Sprintf("m%d", f.nextID)
	f.messages[roomID] = append(f.messages[roomID], msg)
	return msg, nil
}
