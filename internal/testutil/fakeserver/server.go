// Package fakeserver is an in-process, pebble-backed stand-in for the
// remote distributed log cluster the writer dispatches against. It exists
// only to exercise the wire contract end-to-end in tests (via bufconn); it
// is not the production remote service and carries none of its clustering
// or durability guarantees.
package fakeserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/distwrite/mswriter/internal/eventlog"
	"github.com/distwrite/mswriter/internal/runtime"
	pebblestore "github.com/distwrite/mswriter/internal/storage/pebble"
	"github.com/distwrite/mswriter/internal/wire"
	"github.com/distwrite/mswriter/internal/wire/grpcwire"
)

const (
	fakeNamespace = "fakelog"
	bufSize       = 1 << 20
)

// Server maps each stream name to one append-only eventlog.Log; a
// WriteRecordSet call appends the payload as a single entry and returns
// (logSegmentSeq=epoch, entryId=<appended seq>, slotId=0) — per-record slot
// offsetting is the client record-set buffer's job, not the server's.
type Server struct {
	rt    *runtime.Runtime
	grpc  *grpc.Server
	epoch int64

	mu      sync.Mutex
	logs    map[string]*eventlog.Log
	failN   map[string]int
	hangFor map[string]time.Duration
}

// New opens a fake server backed by a fresh pebble database under dir.
func New(dir string) (*Server, error) {
	rt, err := runtime.Open(runtime.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		return nil, err
	}
	if _, err := rt.EnsureNamespace(fakeNamespace); err != nil {
		_ = rt.Close()
		return nil, err
	}
	s := &Server{
		rt:      rt,
		epoch:   time.Now().UnixMilli(),
		logs:    make(map[string]*eventlog.Log),
		failN:   make(map[string]int),
		hangFor: make(map[string]time.Duration),
	}
	s.grpc = grpc.NewServer()
	s.grpc.RegisterService(grpcwire.NewServiceDesc(s.handleWrite), nil)
	return s, nil
}

// Dial starts serving on an in-memory bufconn listener and returns a dialer
// suitable for grpc.DialContext's grpc.WithContextDialer.
func (s *Server) Dial() func(context.Context, string) (net.Conn, error) {
	lis := bufconn.Listen(bufSize)
	go func() { _ = s.grpc.Serve(lis) }()
	return func(context.Context, string) (net.Conn, error) { return lis.Dial() }
}

// Close stops the gRPC server and the underlying storage.
func (s *Server) Close() error {
	s.grpc.Stop()
	return s.rt.Close()
}

// FailStream arranges for the next n WriteRecordSet calls against stream to
// fail, simulating a flaky or unreachable stream.
func (s *Server) FailStream(stream string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failN[stream] = n
}

// HangStream arranges for the next WriteRecordSet call against stream to
// block for dur (or until the caller's context is cancelled), simulating a
// slow stream a speculative retry should race past.
func (s *Server) HangStream(stream string, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hangFor[stream] = dur
}

func (s *Server) handleWrite(ctx context.Context, stream string, payload []byte) ([]byte, error) {
	if d := s.takeHang(stream); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.takeFailure(stream) {
		return nil, fmt.Errorf("fakeserver: injected failure for stream %q", stream)
	}

	log, err := s.logFor(stream)
	if err != nil {
		return nil, err
	}
	seqs, err := log.Append(ctx, []eventlog.AppendRecord{{Payload: payload}})
	if err != nil {
		return nil, err
	}
	coord := wire.Coordinate{LogSegmentSeq: s.epoch, EntryID: int64(seqs[0]), SlotID: 0}
	return coord.Encode(), nil
}

func (s *Server) logFor(stream string) (*eventlog.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[stream]; ok {
		return l, nil
	}
	l, err := s.rt.OpenLog(fakeNamespace, stream, 0)
	if err != nil {
		return nil, err
	}
	s.logs[stream] = l
	return l, nil
}

func (s *Server) takeFailure(stream string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.failN[stream]; n > 0 {
		s.failN[stream] = n - 1
		return true
	}
	return false
}

func (s *Server) takeHang(stream string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.hangFor[stream]
	delete(s.hangFor, stream)
	return d
}
