package dispatch

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/distwrite/mswriter/internal/codec"
	"github.com/distwrite/mswriter/internal/recordset"
	"github.com/distwrite/mswriter/internal/roster"
	"github.com/distwrite/mswriter/internal/werr"
	"github.com/distwrite/mswriter/internal/wire"
	"github.com/distwrite/mswriter/pkg/clock"
)

// stubClient answers WriteRecordSet per stream name via an installed
// responder func. Streams with no responder hang until the test resolves
// their future explicitly (or never, to simulate a dropped attempt).
type stubClient struct {
	mu         sync.Mutex
	calls      []string
	respond    map[string]func(*wire.Future[wire.Coordinate])
	pending    map[string][]*wire.Future[wire.Coordinate]
}

func newStubClient() *stubClient {
	return &stubClient{
		respond: make(map[string]func(*wire.Future[wire.Coordinate])),
		pending: make(map[string][]*wire.Future[wire.Coordinate]),
	}
}

func (c *stubClient) WriteRecordSet(_ context.Context, stream string, _ []byte) *wire.Future[wire.Coordinate] {
	fut := wire.NewFuture[wire.Coordinate]()
	c.mu.Lock()
	c.calls = append(c.calls, stream)
	fn := c.respond[stream]
	c.mu.Unlock()
	if fn != nil {
		fn(fut)
	} else {
		c.mu.Lock()
		c.pending[stream] = append(c.pending[stream], fut)
		c.mu.Unlock()
	}
	return fut
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// resolvePending settles the oldest still-open future issued against stream.
func (c *stubClient) resolvePending(stream string, coord wire.Coordinate) {
	c.mu.Lock()
	q := c.pending[stream]
	if len(q) == 0 {
		c.mu.Unlock()
		return
	}
	fut := q[0]
	c.pending[stream] = q[1:]
	c.mu.Unlock()
	fut.Resolve(coord)
}

func newTestRoster(t *testing.T, n int) *roster.Roster {
	t.Helper()
	streams := make([]string, n)
	for i := range streams {
		streams[i] = "stream-" + string(rune('a'+i))
	}
	r, err := roster.New(streams, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}
	return r
}

func sealedWith(t *testing.T, n int) (*recordset.Sealed, []recordset.CompletionHandle) {
	t.Helper()
	buf := recordset.NewBuffer(recordset.DefaultFramer{})
	handles := make([]recordset.CompletionHandle, n)
	for i := 0; i < n; i++ {
		h := wire.NewFuture[wire.Coordinate]()
		if err := buf.Append([]byte{byte(i)}, h); err != nil {
			t.Fatalf("append: %v", err)
		}
		handles[i] = h
	}
	sealed, err := buf.Seal(codec.None{})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	return sealed, handles
}

// TestHappyPathFirstStreamSucceeds covers S1: a single attempt succeeds and
// every record resolves to its slot-offset coordinate.
func TestHappyPathFirstStreamSucceeds(t *testing.T) {
	r := newTestRoster(t, 3)
	sealed, handles := sealedWith(t, 3)
	client := newStubClient()
	first := r.Get(r.NextStartIndex())
	want := wire.Coordinate{LogSegmentSeq: 7, EntryID: 42, SlotID: 0}
	client.respond[first] = func(f *wire.Future[wire.Coordinate]) { f.Resolve(want) }

	fc := clock.NewFake(time.Unix(0, 0))
	sched := NewScheduler(fc)
	defer sched.Close()

	p := New(context.Background(), sealed, 0, Deps{
		Roster: r, Client: client, RequestTimeout: time.Second, Clock: fc,
	})
	p.Dispatch()

	wantCoords := []wire.Coordinate{
		{LogSegmentSeq: 7, EntryID: 42, SlotID: 0},
		{LogSegmentSeq: 7, EntryID: 42, SlotID: 1},
		{LogSegmentSeq: 7, EntryID: 42, SlotID: 2},
	}
	for i, h := range handles {
		got, err := h.Wait(context.Background())
		if err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
		if got != wantCoords[i] {
			t.Fatalf("handle %d: got %+v want %+v", i, got, wantCoords[i])
		}
	}
}

// TestFirstStreamHangsSecondSucceedsLateAckIgnored covers S2: the first
// attempt never answers, a speculative tick races a second attempt in which
// wins, and the first attempt's late resolution is a no-op.
func TestFirstStreamHangsSecondSucceedsLateAckIgnored(t *testing.T) {
	r := newTestRoster(t, 3)
	sealed, handles := sealedWith(t, 1)
	client := newStubClient()

	fc := clock.NewFake(time.Unix(0, 0))
	sched := NewScheduler(fc)
	defer sched.Close()

	p := New(context.Background(), sealed, 0, Deps{
		Roster: r, Client: client, RequestTimeout: time.Second, Clock: fc,
	})
	policy := NewPolicy(sched, PolicyParams{First: 50 * time.Millisecond, Max: 200 * time.Millisecond, Multiplier: 2})
	p.Dispatch()
	policy.Start(p.IssueSpeculative)

	waitForCalls(t, client, 1)
	fc.Advance(50 * time.Millisecond)
	waitForCalls(t, client, 2)

	firstStream := client.calls[0]
	secondStream := client.calls[1]
	won := wire.Coordinate{LogSegmentSeq: 1, EntryID: 1, SlotID: 0}
	client.resolvePending(secondStream, won)

	got, err := handles[0].Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got != won {
		t.Fatalf("got %+v want %+v", got, won)
	}

	// Late ack from the first (hung) attempt must be discarded.
	client.resolvePending(firstStream, wire.Coordinate{LogSegmentSeq: 9, EntryID: 9, SlotID: 0})
	got2, _ := handles[0].Wait(context.Background())
	if got2 != won {
		t.Fatalf("late ack must not override settled result: got %+v", got2)
	}
}

// TestAllStreamsExhaustedYieldsSetDeadline covers S3: every stream fails and
// the roster is exhausted before the deadline, settling with SetDeadlineError.
func TestAllStreamsExhaustedYieldsSetDeadline(t *testing.T) {
	r := newTestRoster(t, 3)
	sealed, handles := sealedWith(t, 1)
	client := newStubClient()
	for _, s := range r.Streams() {
		client.respond[s] = func(f *wire.Future[wire.Coordinate]) { f.Reject(context.DeadlineExceeded) }
	}

	fc := clock.NewFake(time.Unix(0, 0))
	sched := NewScheduler(fc)
	defer sched.Close()

	p := New(context.Background(), sealed, 0, Deps{
		Roster: r, Client: client, RequestTimeout: time.Second, Clock: fc,
	})
	p.Dispatch()

	_, err := handles[0].Wait(context.Background())
	var sde *werr.SetDeadlineError
	if err == nil {
		t.Fatalf("expected SetDeadlineError, got nil")
	}
	if !asSetDeadline(err, &sde) {
		t.Fatalf("expected SetDeadlineError, got %v", err)
	}
	if sde.Tried != 3 || sde.N != 3 {
		t.Fatalf("unexpected SetDeadlineError: %+v", sde)
	}
}

func asSetDeadline(err error, target **werr.SetDeadlineError) bool {
	if e, ok := err.(*werr.SetDeadlineError); ok {
		*target = e
		return true
	}
	return false
}

func waitForCalls(t *testing.T, c *stubClient, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.callCount() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d calls, got %d", n, c.callCount())
}
