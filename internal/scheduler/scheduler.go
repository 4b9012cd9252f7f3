package scheduler

import (
	"sync"
	"time"
)

// Fired is delivered when a scheduled task's delay has passed. The receiver
// must compare Generation with the generation of its current state and drop
// the task on mismatch.
type Fired struct {
	Key        string
	Generation uint64
	Payload    interface{}
}

type entry struct {
	timer *time.Timer
	token uint64
}

// Scheduler runs delayed tasks keyed by name. Scheduling a key again replaces
// the pending task for that key. Fired tasks are delivered on C() so that a
// single goroutine applies them in order with everything else it processes.
type Scheduler struct {
	mu        sync.Mutex
	pending   map[string]entry
	nextToken uint64
	out       chan Fired
	done      chan struct{}
	stopped   bool
}

func New() *Scheduler {
	return &Scheduler{
		pending: make(map[string]entry),
		out:     make(chan Fired, 16),
		done:    make(chan struct{}),
	}
}

func (s *Scheduler) C() <-chan Fired {
	return s.out
}

func (s *Scheduler) Schedule(key string, generation uint64, delay time.Duration, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
	}

	s.nextToken++
	token := s.nextToken
	fired := Fired{Key: key, Generation: generation, Payload: payload}

	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.pending[key]
		if !ok || current.token != token || s.stopped {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()

		select {
		case s.out <- fired:
		case <-s.done:
		}
	})
	s.pending[key] = entry{timer: timer, token: token}
}

// Cancel drops the pending task for key, if any. A task whose timer already
// fired may still be in flight on C(); the generation check covers it.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.pending[key]; ok {
		e.timer.Stop()
		delete(s.pending, key)
	}
}

func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, key)
	}
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Stop cancels everything and releases timer goroutines blocked on delivery.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	for key, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, key)
	}
	close(s.done)
}
