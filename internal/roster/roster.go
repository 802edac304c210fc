// Package roster holds the shuffled set of equivalent target streams a
// Pending Write races its attempts across.
package roster

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

// Roster is an ordered, shuffled-once sequence of stream names, plus a
// process-wide counter seeding each new Pending Write's starting index. The
// counter is shared across every Pending Write a Writer creates — it is not
// reset per record set — so concurrently sealed sets fan out across the
// roster even when they seal back to back.
type Roster struct {
	streams       []string
	nextStreamSeq int64
}

// New constructs a Roster from a non-empty list of stream names, shuffling
// the order once using r (or a freshly seeded source if r is nil).
func New(streams []string, r *rand.Rand) (*Roster, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("roster: streams must be non-empty")
	}
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}
	shuffled := append([]string(nil), streams...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return &Roster{streams: shuffled}, nil
}

// Len returns the roster size N.
func (r *Roster) Len() int { return len(r.streams) }

// Get returns the stream name at index i modulo N.
func (r *Roster) Get(i int) string {
	n := len(r.streams)
	return r.streams[((i%n)+n)%n]
}

// NextStartIndex returns the next starting index for a freshly constructed
// Pending Write, drawn from the roster's shared atomic counter.
func (r *Roster) NextStartIndex() int {
	seq := atomic.AddInt64(&r.nextStreamSeq, 1) - 1
	n := int64(len(r.streams))
	idx := seq % n
	if idx < 0 {
		idx += n
	}
	return int(idx)
}

// Streams returns a copy of the shuffled stream order, mainly for tests
// asserting the roster is a permutation of the configured input.
func (r *Roster) Streams() []string {
	return append([]string(nil), r.streams...)
}

// FromOrder constructs a Roster from streams in the given order, without
// shuffling. Used to build the ephemeral, per-write narrowed roster a
// stream affinity filter produces — narrowing must preserve the parent
// roster's shuffle-once order, never re-randomize it.
func FromOrder(streams []string) (*Roster, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("roster: streams must be non-empty")
	}
	return &Roster{streams: append([]string(nil), streams...)}, nil
}
