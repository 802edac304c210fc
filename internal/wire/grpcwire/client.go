package grpcwire

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/distwrite/mswriter/internal/wire"
)

// Client is a reference wire.Client implementation submitting record sets
// over a real gRPC connection, dispatching through NewServiceDesc's method
// contract instead of a generated stub.
type Client struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// New returns a Client that dials via dial on every attempt and closes the
// returned connection once that attempt finishes, so dial must hand back a
// connection the Client may close. A fresh dial per attempt is fine for a
// test double dialing bufconn.
func New(dial func(ctx context.Context) (*grpc.ClientConn, error)) *Client {
	return &Client{dial: dial}
}

// WriteRecordSet implements wire.Client.
func (c *Client) WriteRecordSet(ctx context.Context, stream string, payload []byte) *wire.Future[wire.Coordinate] {
	fut := wire.NewFuture[wire.Coordinate]()
	go c.dispatch(ctx, stream, payload, fut)
	return fut
}

func (c *Client) dispatch(ctx context.Context, stream string, payload []byte, fut *wire.Future[wire.Coordinate]) {
	conn, err := c.dial(ctx)
	if err != nil {
		fut.Reject(fmt.Errorf("grpcwire: dial: %w", err))
		return
	}
	defer func() { _ = conn.Close() }()

	ctx = metadata.AppendToOutgoingContext(ctx, streamMetadataKey, stream)
	req := &wrapperspb.BytesValue{Value: payload}
	resp := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, FullMethod, req, resp); err != nil {
		fut.Reject(err)
		return
	}
	coord, ok := wire.DecodeCoordinate(resp.GetValue())
	if !ok {
		fut.Reject(fmt.Errorf("grpcwire: malformed coordinate, got %d bytes", len(resp.GetValue())))
		return
	}
	fut.Resolve(coord)
}
