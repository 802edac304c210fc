// Package grpcwire provides a gRPC transport for the wire.Client contract
// without a generated .proto stub: a fixed method name, a
// wrapperspb.BytesValue request/response, and the record's target stream
// carried as outgoing metadata. Both the client (Client) and the fake
// server's registration (NewServiceDesc) live here so they always agree on
// the wire shape.
package grpcwire

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName           = "mswriter.fakelog.v1.StreamWriter"
	methodWriteRecordSet  = "WriteRecordSet"
	streamMetadataKey     = "x-mswriter-stream"
)

// FullMethod is the fully qualified gRPC method name used in place of a
// generated stub's method constant.
var FullMethod = "/" + serviceName + "/" + methodWriteRecordSet

// StreamHandler is the server-side contract a fake log implementation
// provides: append payload to stream and return the wire-encoded
// Coordinate bytes (see wire.Coordinate.Encode).
type StreamHandler func(ctx context.Context, stream string, payload []byte) ([]byte, error)

var errMissingStream = errors.New("grpcwire: missing " + streamMetadataKey + " metadata")

// streamFromContext extracts the target stream name from incoming gRPC
// metadata, the server-side counterpart to Client's outgoing metadata.
func streamFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errMissingStream
	}
	vals := md.Get(streamMetadataKey)
	if len(vals) == 0 || vals[0] == "" {
		return "", errMissingStream
	}
	return vals[0], nil
}

// NewServiceDesc returns a grpc.ServiceDesc that dispatches WriteRecordSet
// calls to handler — the same registration mechanism generated stubs use
// internally, hand-written because this module ships no .proto/.pb.go pair.
func NewServiceDesc(handler StreamHandler) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: methodWriteRecordSet,
				Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
					req := new(wrapperspb.BytesValue)
					if err := dec(req); err != nil {
						return nil, err
					}
					stream, err := streamFromContext(ctx)
					if err != nil {
						return nil, err
					}
					run := func(ctx context.Context, req interface{}) (interface{}, error) {
						payload := req.(*wrapperspb.BytesValue).GetValue()
						respBytes, err := handler(ctx, stream, payload)
						if err != nil {
							return nil, err
						}
						return &wrapperspb.BytesValue{Value: respBytes}, nil
					}
					if interceptor == nil {
						return run(ctx, req)
					}
					info := &grpc.UnaryServerInfo{FullMethod: FullMethod}
					return interceptor(ctx, req, info, run)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "mswriter/fakelog.proto",
	}
}
