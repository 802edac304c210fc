// Package clock provides an injectable notion of time so dispatch timers and
// deadlines can be driven deterministically in tests.
package clock

import "time"

// Clock abstracts time.Now and time.NewTimer so speculative-retry ladders and
// set deadlines can be tested without real sleeps.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer mirrors the subset of time.Timer that callers need: a channel to
// select on and a way to stop it.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// System is the production Clock backed by the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

func (System) NewTimer(d time.Duration) Timer {
	t := time.NewTimer(d)
	return &systemTimer{t: t}
}

type systemTimer struct{ t *time.Timer }

func (s *systemTimer) C() <-chan time.Time { return s.t.C }
func (s *systemTimer) Stop() bool          { return s.t.Stop() }
