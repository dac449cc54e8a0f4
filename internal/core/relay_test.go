package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) Option {
	return WithClock(func() time.Time { return ts })
}

func send(s *Session, room, text string) {
	s.Commands <- &Command{Kind: CommandSendRoomMessage, Room: room, Message: Message{Text: text}}
}

func waitStarted(t *testing.T, f *fakeHistory, text string) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, text, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("append of %q never started", text)
	}
}

func TestRelayExampleScenario(t *testing.T) {
	t1 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	history := newFakeHistory()
	hub := startHub(t, history, fixedClock(t1))

	s1 := connect(hub, "s1", "")
	ev := joinAndSync(t, s1, "R1")
	assert.Empty(t, ev.Messages)

	s1.Commands <- &Command{Kind: CommandSendRoomMessage, Room: "R1", Message: Message{From: "Ann", Text: "hi"}}
	msg := mustEvent(t, s1.Events, EventRoomMessage).Message
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, "Ann", msg.From)
	assert.Equal(t, t1, msg.CreatedAt)

	s2 := connect(hub, "s2", "")
	hist := joinAndSync(t, s2, "R1")
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, "hi", hist.Messages[0].Text)
	assert.Equal(t, "Ann", hist.Messages[0].From)
	assert.Equal(t, t1, hist.Messages[0].CreatedAt)
}

func TestRelayHistoryGoesToJoinerOnly(t *testing.T) {
	history := newFakeHistory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		history.seed("toy", Message{ID: text, Room: "toy", From: "ann", Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	hub := startHub(t, history)

	bob := connect(hub, "b", "bob")
	joinAndSync(t, bob, "toy")

	alice := connect(hub, "a", "alice")
	ev := joinAndSync(t, alice, "toy")
	require.Len(t, ev.Messages, 3)
	for i, text := range []string{"one", "two", "three"} {
		assert.Equal(t, text, ev.Messages[i].Text)
	}

	noEvent(t, bob.Events, EventHistory, 100*time.Millisecond)
}

func TestRelayFailedAppendIsNeverBroadcast(t *testing.T) {
	history := newFakeHistory()
	hub := startHub(t, history)

	alice := connect(hub, "a", "alice")
	bob := connect(hub, "b", "bob")
	joinAndSync(t, alice, "toy")
	joinAndSync(t, bob, "toy")

	history.setFail(true)
	send(alice, "toy", "lost")

	ev := mustEvent(t, alice.Events, EventError)
	require.NotNil(t, ev.Error)
	assert.Equal(t, ErrCodePersistenceUnavailable, ev.Error.Code)

	noEvent(t, alice.Events, EventRoomMessage, 150*time.Millisecond)
	noEvent(t, bob.Events, EventRoomMessage, 150*time.Millisecond)
	noEvent(t, bob.Events, EventError, 10*time.Millisecond)
}

func TestRelayFailedFetchStillActivates(t *testing.T) {
	history := newFakeHistory()
	hub := startHub(t, history)

	alice := connect(hub, "a", "alice")
	history.setFail(true)
	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "toy"}

	ev := mustEvent(t, alice.Events, EventError)
	assert.Equal(t, ErrCodePersistenceUnavailable, ev.Error.Code)
	onLoop(t, hub, func() {
		assert.Equal(t, StateActive, alice.state)
		assert.Equal(t, "toy", alice.room)
	})
}

func TestRelayOrdersSendsWithinRoom(t *testing.T) {
	history := newFakeHistory()
	hub := startHub(t, history)

	alice := connect(hub, "a", "alice")
	joinAndSync(t, alice, "toy")

	releaseA := history.hold("A")
	send(alice, "toy", "A")
	send(alice, "toy", "B")

	waitStarted(t, history, "A")
	select {
	case got := <-history.started:
		t.Fatalf("append of %q started before A was broadcast", got)
	case <-time.After(150 * time.Millisecond):
	}

	releaseA()
	first := mustEvent(t, alice.Events, EventRoomMessage)
	second := mustEvent(t, alice.Events, EventRoomMessage)
	assert.Equal(t, "A", first.Message.Text)
	assert.Equal(t, "B", second.Message.Text)
}

func TestRelayRoomsProceedIndependently(t *testing.T) {
	history := newFakeHistory()
	hub := startHub(t, history)

	alice := connect(hub, "a", "alice")
	bob := connect(hub, "b", "bob")
	joinAndSync(t, alice, "r1")
	joinAndSync(t, bob, "r2")

	release := history.hold("slow")
	defer release()
	send(alice, "r1", "slow")
	waitStarted(t, history, "slow")

	send(bob, "r2", "fast")
	ev := mustEvent(t, bob.Events, EventRoomMessage)
	assert.Equal(t, "fast", ev.Message.Text)

	release()
	ev = mustEvent(t, alice.Events, EventRoomMessage)
	assert.Equal(t, "slow", ev.Message.Text)
}

func TestRelayJoinDuringPendingSendDeliversOnce(t *testing.T) {
	history := newFakeHistory()
	hub := startHub(t, history)

	alice := connect(hub, "a", "alice")
	joinAndSync(t, alice, "toy")

	release := history.hold("pending")
	send(alice, "toy", "pending")
	waitStarted(t, history, "pending")

	carol := connect(hub, "c", "carol")
	carol.Commands <- &Command{Kind: CommandJoinRoom, Room: "toy"}
	loopEventually(t, hub, func() bool {
		return carol.state == StateJoining && hub.relay.seq.pending("toy") == 1
	})
	release()

	hist := mustEvent(t, carol.Events, EventHistory)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, "pending", hist.Messages[0].Text)
	noEvent(t, carol.Events, EventRoomMessage, 150*time.Millisecond)

	// Live traffic resumes once the history is in.
	send(alice, "toy", "after")
	ev := mustEvent(t, carol.Events, EventRoomMessage)
	assert.Equal(t, "after", ev.Message.Text)
}

func TestRelayDisconnectDuringPendingAppend(t *testing.T) {
	history := newFakeHistory()
	hub := startHub(t, history)

	alice := connect(hub, "a", "alice")
	bob := connect(hub, "b", "bob")
	joinAndSync(t, alice, "toy")
	joinAndSync(t, bob, "toy")

	release := history.hold("bye")
	send(alice, "toy", "bye")
	waitStarted(t, history, "bye")

	hub.UnregisterSession(alice)
	onLoop(t, hub, func() {
		room, ok := hub.registry.Room("toy")
		require.True(t, ok)
		assert.False(t, room.Has("a"))
	})
	release()

	ev := mustEvent(t, bob.Events, EventRoomMessage)
	assert.Equal(t, "bye", ev.Message.Text)
	for ev := range alice.Events {
		assert.NotEqual(t, EventRoomMessage, ev.Kind)
	}
}

// runHub starts a hub whose context the test cancels itself.
func runHub(t *testing.T, history HistoryGateway, opts ...Option) (*Hub, context.CancelFunc, <-chan struct{}) {
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
	return hub, cancel, done
}

func texts(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestRelayShutdownFinishesAcceptedSends(t *testing.T) {
	history := newFakeHistory()
	hub, cancel, done := runHub(t, history)

	alice := connect(hub, "a", "alice")
	bob := connect(hub, "b", "bob")
	joinAndSync(t, alice, "toy")
	joinAndSync(t, bob, "toy")

	release := history.hold("A")
	send(alice, "toy", "A")
	waitStarted(t, history, "A")
	send(alice, "toy", "B")
	loopEventually(t, hub, func() bool { return hub.relay.seq.pending("toy") == 1 })

	cancel()
	release()

	for _, want := range []string{"A", "B"} {
		ev := mustEvent(t, bob.Events, EventRoomMessage)
		assert.Equal(t, want, ev.Message.Text)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop after draining")
	}

	stored, err := history.FetchHistory(context.Background(), "toy")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, texts(stored))
}

func TestRelayShutdownReportsAbandonedSends(t *testing.T) {
	history := newFakeHistory()
	hub, cancel, done := runHub(t, history, WithDrainTimeout(50*time.Millisecond))

	alice := connect(hub, "a", "alice")
	bob := connect(hub, "b", "bob")
	joinAndSync(t, alice, "toy")
	joinAndSync(t, bob, "toy")

	release := history.hold("stuck")
	defer release()
	send(alice, "toy", "stuck")
	waitStarted(t, history, "stuck")

	cancel()

	ev := mustEvent(t, alice.Events, EventError)
	require.NotNil(t, ev.Error)
	assert.Equal(t, ErrCodePersistenceUnavailable, ev.Error.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop after the drain timeout")
	}
	noEvent(t, bob.Events, EventRoomMessage, 50*time.Millisecond)

	stored, err := history.FetchHistory(context.Background(), "toy")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestPresenceTyping(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(hub, "a", "alice")
	bob := connect(hub, "b", "bob")
	carol := connect(hub, "c", "carol")
	joinAndSync(t, alice, "toy")
	joinAndSync(t, bob, "toy")
	joinAndSync(t, carol, "other")

	// Carol's session claims a room it is not in.
	carol.Commands <- &Command{Kind: CommandTyping, Room: "toy"}
	noEvent(t, alice.Events, EventTyping, 100*time.Millisecond)
	noEvent(t, bob.Events, EventTyping, 10*time.Millisecond)

	alice.Commands <- &Command{Kind: CommandTyping, Room: "toy", Identity: "someone-else"}
	ev := mustEvent(t, bob.Events, EventTyping)
	assert.Equal(t, "alice", ev.User)
	assert.Equal(t, "toy", ev.Room)
	noEvent(t, alice.Events, EventTyping, 100*time.Millisecond)
}
