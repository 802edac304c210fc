// Package dispatch implements the speculative dispatch engine: the Pending
// Write state machine (§4.C), the exponential speculative ladder (§4.D),
// and the scheduler both run on.
package dispatch

import (
	"sync"
	"time"

	"github.com/distwrite/mswriter/pkg/clock"
)

// Scheduler runs delayed, cancellable callbacks. The writer facade uses one
// instance for both of its scheduled activities — the periodic flush tick
// and every in-flight Pending Write's speculative ladder — so a single Close
// can guarantee neither leaks past facade shutdown.
type Scheduler struct {
	clock clock.Clock

	mu     sync.Mutex
	stopCh chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewScheduler returns a Scheduler driven by c.
func NewScheduler(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.System{}
	}
	return &Scheduler{clock: c, stopCh: make(chan struct{})}
}

// After arranges for fn to run once after d elapses, unless cancelled first
// or the scheduler is closed first. The returned cancel func is safe to call
// more than once and safe to call after fn has already run.
func (s *Scheduler) After(d time.Duration, fn func()) (cancel func()) {
	timer := s.clock.NewTimer(d)
	cancelCh := make(chan struct{})
	var once sync.Once

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		timer.Stop()
		return func() {}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		select {
		case <-timer.C():
			fn()
		case <-cancelCh:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
		}
	}()

	return func() { once.Do(func() { close(cancelCh) }) }
}

// Close stops accepting new work and blocks until every scheduled goroutine
// has observed cancellation. Safe to call more than once.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}
