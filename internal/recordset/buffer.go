// Package recordset implements the record-set buffer: the mutable, framed
// container that packs admitted records and their per-record completion
// handles into one payload, then seals into an immutable handoff object for
// dispatch.
package recordset

import (
	"errors"
	"sync"

	"github.com/distwrite/mswriter/internal/codec"
	"github.com/distwrite/mswriter/internal/werr"
	"github.com/distwrite/mswriter/internal/wire"
)

// CompletionHandle is the per-record future a caller's Write blocks on (or
// polls). It is resolved exactly once, either by the set's own
// CompleteTransmit or AbortTransmit, or synchronously by the facade for
// records that never make it into a buffer at all (RecordTooLong).
type CompletionHandle = *wire.Future[wire.Coordinate]

var (
	errAppendToClosed = errors.New("recordset: append to sealed or aborted buffer")
	errAlreadySealed  = errors.New("recordset: buffer already sealed")
)

// Buffer is the open, append-only record set a Writer admits records into.
// It carries its own mutex so it is safe to seal concurrently with a caller
// racing an Abort, even though in practice every mutation happens while the
// facade already holds its own lock.
type Buffer struct {
	mu sync.Mutex

	framer      Framer
	frames      [][]byte
	completions []CompletionHandle
	bytes       int
	sealed      bool
	aborted     bool
}

// NewBuffer returns an empty, open Buffer using framer to encode records.
func NewBuffer(framer Framer) *Buffer {
	if framer == nil {
		framer = DefaultFramer{}
	}
	return &Buffer{framer: framer}
}

// Append frames payload, stores handle as its completion, and accounts for
// the framed size. It fails only if the buffer is already sealed/aborted, or
// if the framer itself rejects the payload (a FramingError) — in which case
// the caller is responsible for aborting the buffer and replacing it, per
// the writer facade's append-failure semantics.
func (b *Buffer) Append(payload []byte, handle CompletionHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed || b.aborted {
		return errAppendToClosed
	}
	framed, err := b.framer.Frame(payload)
	if err != nil {
		return &werr.FramingError{Cause: err}
	}
	b.frames = append(b.frames, framed)
	b.completions = append(b.completions, handle)
	b.bytes += len(framed)
	return nil
}

// NumBytes returns the cumulative framed (pre-compression) byte count.
func (b *Buffer) NumBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes
}

// NumRecords returns the number of records packed so far.
func (b *Buffer) NumRecords() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completions)
}

// Abort fails every completion handle appended so far with cause and marks
// the buffer closed to further appends or sealing. Used when an append
// fails with a FramingError, and when sealing fails.
func (b *Buffer) Abort(cause error) {
	b.mu.Lock()
	if b.sealed || b.aborted {
		b.mu.Unlock()
		return
	}
	b.aborted = true
	completions := b.completions
	b.mu.Unlock()
	for _, h := range completions {
		h.Reject(cause)
	}
}

// Seal freezes the buffer, compresses its concatenated frames with c, and
// returns a Sealed handoff object ready for dispatch. The buffer is
// append-immutable from this point on. If compression fails the buffer is
// left unsealed, so the caller can still Abort it and fail its handles.
func (b *Buffer) Seal(c codec.Codec) (*Sealed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed || b.aborted {
		return nil, errAlreadySealed
	}
	b.sealed = true

	raw := make([]byte, 0, b.bytes)
	for _, f := range b.frames {
		raw = append(raw, f...)
	}
	payload, err := c.Compress(raw)
	if err != nil {
		b.sealed = false
		return nil, err
	}
	return &Sealed{payload: payload, completions: b.completions}, nil
}

// Sealed is the immutable, dispatch-ready handoff of a sealed Buffer. Its
// completions resolve exactly once: either CompleteTransmit or AbortTransmit,
// whichever settles first, and never both.
type Sealed struct {
	mu          sync.Mutex
	payload     []byte
	completions []CompletionHandle
	resolved    bool
}

// Payload returns the (possibly compressed) bytes to hand to the wire client.
func (s *Sealed) Payload() []byte { return s.payload }

// NumRecords returns the number of records packed into this set.
func (s *Sealed) NumRecords() int { return len(s.completions) }

// CompleteTransmit resolves every completion handle, in append order, with
// a coordinate derived from base by slot offset. A no-op if the set was
// already resolved (by a prior CompleteTransmit or AbortTransmit).
func (s *Sealed) CompleteTransmit(base wire.Coordinate) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	completions := s.completions
	s.mu.Unlock()

	for i, h := range completions {
		h.Resolve(base.WithSlotOffset(i))
	}
}

// AbortTransmit resolves every completion handle as failed with cause. A
// no-op if the set was already resolved.
func (s *Sealed) AbortTransmit(cause error) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	completions := s.completions
	s.mu.Unlock()

	for _, h := range completions {
		h.Reject(cause)
	}
}
