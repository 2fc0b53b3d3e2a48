// Package schedule runs delayed tasks keyed by entity id. Scheduling a key again
// cancels the pending task for that key.
package schedule

import (
	"sync"
	"time"
)

type Scheduler struct {
	mu      sync.Mutex
	seq     uint64
	pending map[string]entry
	stopped bool
}

type entry struct {
	seq   uint64
	timer *time.Timer
}

func New() *Scheduler { return &Scheduler{pending: map[string]entry{}} }

// Schedule runs fn after delay on its own goroutine unless key is cancelled or
// rescheduled first. It returns false once the scheduler is stopped.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if e, ok := s.pending[key]; ok {
		e.timer.Stop()
	}
	s.seq++
	seq := s.seq
	t := time.AfterFunc(delay, func() {
		s.mu.Lock()
		e, ok := s.pending[key]
		if !ok || e.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()
		fn()
	})
	s.pending[key] = entry{seq: seq, timer: t}
	return true
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, key)
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Stop cancels everything and refuses further tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for k, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, k)
	}
}
