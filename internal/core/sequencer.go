package core

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
)

type job func(ctx context.Context)

// sequencers runs jobs one at a time per room. Rooms are independent: each
// busy room has its own drain goroutine, which exits once its queue is empty.
type sequencers struct {
	mu     sync.Mutex
	byRoom map[string]*deque.Deque[job]
	wg     sync.WaitGroup
}

func newSequencers() *sequencers {
	return &sequencers{byRoom: make(map[string]*deque.Deque[job])}
}

// enqueue never blocks, so the hub loop can call it freely.
func (s *sequencers) enqueue(ctx context.Context, room string, j job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, busy := s.byRoom[room]; busy {
		q.PushBack(j)
		return
	}

	q := new(deque.Deque[job])
	q.PushBack(j)
	s.byRoom[room] = q
	s.wg.Add(1)
	go s.drain(ctx, room, q)
}

func (s *sequencers) drain(ctx context.Context, room string, q *deque.Deque[job]) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if q.Len() == 0 {
			delete(s.byRoom, room)
			s.mu.Unlock()
			return
		}
		j := q.PopFront()
		s.mu.Unlock()

		j(ctx)
	}
}

// pending reports the queued (not yet started) jobs for room.
func (s *sequencers) pending(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.byRoom[room]; ok {
		return q.Len()
	}
	return 0
}

func (s *sequencers) wait() {
	s.wg.Wait()
}
