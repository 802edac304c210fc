package fakeserver

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/distwrite/mswriter/internal/wire/grpcwire"
)

func dialClient(t *testing.T, srv *Server) *grpcwire.Client {
	t.Helper()
	d := srv.Dial()
	return grpcwire.New(func(ctx context.Context) (*grpc.ClientConn, error) {
		return grpc.DialContext(ctx, "bufnet", grpc.WithContextDialer(d), grpc.WithInsecure())
	})
}

func TestWriteRecordSetRoundtrip(t *testing.T) {
	srv, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	client := dialClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fut := client.WriteRecordSet(ctx, "stream-a", []byte("hello"))
	coord, err := fut.Wait(ctx)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if coord.EntryID != 1 {
		t.Fatalf("expected first entry to be seq 1, got %d", coord.EntryID)
	}

	fut2 := client.WriteRecordSet(ctx, "stream-a", []byte("world"))
	coord2, err := fut2.Wait(ctx)
	if err != nil {
		t.Fatalf("write 2: %v", err)
	}
	if coord2.EntryID != 2 {
		t.Fatalf("expected second entry to be seq 2, got %d", coord2.EntryID)
	}
}

func TestFailStreamInjection(t *testing.T) {
	srv, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	srv.FailStream("stream-a", 1)
	client := dialClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := client.WriteRecordSet(ctx, "stream-a", []byte("x")).Wait(ctx); err == nil {
		t.Fatalf("expected injected failure")
	}
	if _, err := client.WriteRecordSet(ctx, "stream-a", []byte("x")).Wait(ctx); err != nil {
		t.Fatalf("expected second attempt to succeed, got %v", err)
	}
}

func TestHangStreamInjection(t *testing.T) {
	srv, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	srv.HangStream("stream-a", 200*time.Millisecond)
	client := dialClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.WriteRecordSet(ctx, "stream-a", []byte("x")).Wait(ctx); err == nil {
		t.Fatalf("expected context deadline to win the race against the hung stream")
	}
}
