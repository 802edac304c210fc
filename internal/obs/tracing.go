package obs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/distwrite/mswriter"

// Attribute keys attached to record-set spans.
const (
	AttrStreamName   = "mswriter.stream"
	AttrAttempt      = "mswriter.attempt"
	AttrRecordCount  = "mswriter.record_count"
	AttrPayloadBytes = "mswriter.payload_bytes"
)

// Tracer wraps the tracer a caller-supplied TracerProvider produces. A nil
// provider falls back to the no-op implementation so span calls are always
// safe.
type Tracer struct {
	t trace.Tracer
}

// NewTracer returns a Tracer backed by provider, or a no-op tracer if
// provider is nil.
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = noop.NewTracerProvider()
	}
	return &Tracer{t: provider.Tracer(tracerName)}
}

// StartRecordSet opens a span covering one sealed record set's dispatch,
// from seal through settlement.
func (t *Tracer) StartRecordSet(ctx context.Context, recordCount, payloadBytes int) (context.Context, trace.Span) {
	return t.t.Start(ctx, "mswriter.record_set",
		trace.WithAttributes(
			attribute.Int(AttrRecordCount, recordCount),
			attribute.Int(AttrPayloadBytes, payloadBytes),
		),
	)
}

// StartAttempt opens a child span for one dispatch attempt against stream.
func (t *Tracer) StartAttempt(ctx context.Context, stream string, attempt int) (context.Context, trace.Span) {
	return t.t.Start(ctx, "mswriter.attempt",
		trace.WithAttributes(
			attribute.String(AttrStreamName, stream),
			attribute.Int(AttrAttempt, attempt),
		),
	)
}
