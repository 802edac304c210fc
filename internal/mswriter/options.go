// Package mswriter implements the Writer Facade: the public entry point
// that batches admitted records into record sets, seals them on size or
// latency triggers, and hands each sealed set to the speculative dispatch
// engine.
package mswriter

import (
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/distwrite/mswriter/internal/dispatch"
	"github.com/distwrite/mswriter/internal/werr"
	"github.com/distwrite/mswriter/internal/wire"
	"github.com/distwrite/mswriter/pkg/clock"
	"github.com/distwrite/mswriter/pkg/log"
)

// Size ceilings fixed by the wire framing. Callers must not submit records
// or accumulate record sets beyond these.
const (
	MaxRecordSize    = 1 << 20   // 1 MiB
	MaxRecordSetSize = 8 << 20   // 8 MiB
)

// Default tuning values, applied by New when the corresponding Options
// field is left at its zero value. DefaultFlushIntervalMicros is the
// exception: New treats a zero FlushIntervalMicros as "disabled", and only
// config.Load applies this default.
const (
	DefaultBufferSize                    = 16 * 1024
	DefaultFlushIntervalMicros           = 2000
	DefaultRequestTimeoutMs              = 500
	DefaultFirstSpeculativeTimeoutMs     = 50
	DefaultMaxSpeculativeTimeoutMs       = 200
	DefaultSpeculativeBackoffMultiplier  = 2.0
)

// Options configures a Writer. Fields left at their zero value take the
// defaults documented above, except Streams and Client, which are required,
// and FlushIntervalMicros, whose zero value disables the periodic flush.
type Options struct {
	// Streams is the non-empty list of equivalent target streams; it
	// becomes the dispatch roster after a one-time shuffle.
	Streams []string

	// Client is the wire client every Pending Write dispatches attempts
	// through. Required; the Writer neither owns nor closes it.
	Client wire.Client

	// BufferSize is the seal-and-flush threshold in post-framing payload
	// bytes. Default 16 KiB, capped at MaxRecordSetSize.
	BufferSize int

	// FlushIntervalMicros is the periodic flush tick; 0 disables it. New
	// applies no default here; config.Load defaults it to 2000.
	FlushIntervalMicros int

	// CompressionCodec names the codec sealed sets are compressed with:
	// "", "none", "lz4", "snappy", or "s2".
	CompressionCodec string

	// RequestTimeoutMs is the hard per-set deadline. Default 500.
	RequestTimeoutMs int

	// FirstSpeculativeTimeoutMs is the initial speculative tick. Default 50.
	FirstSpeculativeTimeoutMs int

	// MaxSpeculativeTimeoutMs ceilings the speculative tick. Default 200.
	MaxSpeculativeTimeoutMs int

	// SpeculativeBackoffMultiplier scales each successive tick. Default 2.
	SpeculativeBackoffMultiplier float64

	// Clock is the injectable monotonic clock driving both deadlines and
	// the speculative ladder. Defaults to the real wall clock.
	Clock clock.Clock

	// Scheduler is an injectable scheduler for the periodic flush tick and
	// every Pending Write's speculative ladder. If nil, the Writer
	// constructs and owns one, shutting it down on Close.
	Scheduler *dispatch.Scheduler

	// Rand seeds the roster's one-time shuffle. Nil uses a freshly seeded
	// source.
	Rand *rand.Rand

	// FilterExpr is an optional CEL expression narrowing the roster to
	// streams eligible for a record's headers. Empty disables filtering.
	FilterExpr string

	// MetricsRegisterer is where Prometheus metrics are registered. Nil
	// disables external scraping (metrics are still collected, just on a
	// private registry).
	MetricsRegisterer prometheus.Registerer

	// TracerProvider supplies the tracer wrapping each Pending Write's
	// span. Nil installs a no-op tracer.
	TracerProvider trace.TracerProvider

	// Logger is the structured logger components log through. Defaults to
	// log.NewLogger().
	Logger log.Logger
}

func (o Options) requestTimeout() time.Duration {
	ms := o.RequestTimeoutMs
	if ms <= 0 {
		ms = DefaultRequestTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (o Options) policyParams() dispatch.PolicyParams {
	first := o.FirstSpeculativeTimeoutMs
	if first <= 0 {
		first = DefaultFirstSpeculativeTimeoutMs
	}
	max := o.MaxSpeculativeTimeoutMs
	if max <= 0 {
		max = DefaultMaxSpeculativeTimeoutMs
	}
	mult := o.SpeculativeBackoffMultiplier
	if mult <= 0 {
		mult = DefaultSpeculativeBackoffMultiplier
	}
	return dispatch.PolicyParams{
		First:      time.Duration(first) * time.Millisecond,
		Max:        time.Duration(max) * time.Millisecond,
		Multiplier: mult,
	}
}

func (o Options) bufferSize() int {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	if size > MaxRecordSetSize {
		size = MaxRecordSetSize
	}
	return size
}

// flushInterval honors FlushIntervalMicros literally: 0 (Go's zero value,
// indistinguishable here from an explicit "disable") turns the periodic
// flush off. The documented default of 2000 is applied one layer up, by
// config.Load's viper defaults, before an Options value ever reaches New —
// constructing Options directly always means what it says.
func (o Options) flushInterval() time.Duration {
	if o.FlushIntervalMicros <= 0 {
		return 0
	}
	return time.Duration(o.FlushIntervalMicros) * time.Microsecond
}

// validate enforces the construction-time constraints named in the
// configuration table: non-empty streams, a non-nil client, and a sane
// speculative ladder. The codec name is resolved (and rejected if unknown)
// by New right after validate. Called before any field default above is
// baked into a Writer.
func (o Options) validate() error {
	if len(o.Streams) == 0 {
		return &werr.ConfigurationError{Field: "streams", Reason: "must be non-empty"}
	}
	if o.Client == nil {
		return &werr.ConfigurationError{Field: "client", Reason: "must not be nil"}
	}
	if err := dispatch.ValidatePolicyParams(o.policyParams(), o.requestTimeout()); err != nil {
		return err
	}
	return nil
}
