package recordset

import (
	"context"
	"errors"
	"testing"

	"github.com/distwrite/mswriter/internal/codec"
	"github.com/distwrite/mswriter/internal/werr"
	"github.com/distwrite/mswriter/internal/wire"
)

type failingFramer struct{}

func (failingFramer) Frame([]byte) ([]byte, error) { return nil, errors.New("boom") }

func TestAppendAndSealRoundtrip(t *testing.T) {
	buf := NewBuffer(DefaultFramer{})
	var handles []CompletionHandle
	for _, p := range [][]byte{[]byte("hello"), []byte("world"), []byte("!!")} {
		h := wire.NewFuture[wire.Coordinate]()
		if err := buf.Append(p, h); err != nil {
			t.Fatalf("append: %v", err)
		}
		handles = append(handles, h)
	}
	if buf.NumRecords() != 3 {
		t.Fatalf("expected 3 records, got %d", buf.NumRecords())
	}

	sealed, err := buf.Seal(codec.None{})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed.CompleteTransmit(wire.Coordinate{LogSegmentSeq: 7, EntryID: 42, SlotID: 0})

	want := []wire.Coordinate{
		{LogSegmentSeq: 7, EntryID: 42, SlotID: 0},
		{LogSegmentSeq: 7, EntryID: 42, SlotID: 1},
		{LogSegmentSeq: 7, EntryID: 42, SlotID: 2},
	}
	for i, h := range handles {
		got, err := h.Wait(context.Background())
		if err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("handle %d: got %+v want %+v", i, got, want[i])
		}
	}
}

func TestAppendFramingErrorReturnsFramingError(t *testing.T) {
	buf := NewBuffer(DefaultFramer{})
	ok := wire.NewFuture[wire.Coordinate]()
	if err := buf.Append([]byte("ok"), ok); err != nil {
		t.Fatalf("append ok: %v", err)
	}

	buf2 := NewBuffer(failingFramer{})
	bad := wire.NewFuture[wire.Coordinate]()
	err := buf2.Append([]byte("bad"), bad)
	var fe *werr.FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}
}

func TestAbortResolvesAllPendingAsFailed(t *testing.T) {
	buf := NewBuffer(DefaultFramer{})
	h1 := wire.NewFuture[wire.Coordinate]()
	h2 := wire.NewFuture[wire.Coordinate]()
	_ = buf.Append([]byte("a"), h1)
	_ = buf.Append([]byte("b"), h2)

	cause := errors.New("aborted")
	buf.Abort(cause)

	for _, h := range []CompletionHandle{h1, h2} {
		_, err := h.Wait(context.Background())
		if !errors.Is(err, cause) {
			t.Fatalf("expected abort cause, got %v", err)
		}
	}

	if err := buf.Append([]byte("c"), wire.NewFuture[wire.Coordinate]()); err == nil {
		t.Fatalf("expected append-after-abort to fail")
	}
}

func TestCompleteAndAbortAreMutuallyExclusive(t *testing.T) {
	buf := NewBuffer(DefaultFramer{})
	h := wire.NewFuture[wire.Coordinate]()
	_ = buf.Append([]byte("x"), h)
	sealed, err := buf.Seal(codec.None{})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	sealed.CompleteTransmit(wire.Coordinate{LogSegmentSeq: 1, EntryID: 1, SlotID: 0})
	sealed.AbortTransmit(errors.New("too late"))

	got, err := h.Wait(context.Background())
	if err != nil {
		t.Fatalf("expected success to win, got error %v", err)
	}
	if got.EntryID != 1 {
		t.Fatalf("unexpected coordinate: %+v", got)
	}
}
