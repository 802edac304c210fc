package mswriter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/distwrite/mswriter/internal/codec"
	"github.com/distwrite/mswriter/internal/dispatch"
	"github.com/distwrite/mswriter/internal/filter"
	"github.com/distwrite/mswriter/internal/obs"
	"github.com/distwrite/mswriter/internal/recordset"
	"github.com/distwrite/mswriter/internal/roster"
	"github.com/distwrite/mswriter/internal/werr"
	"github.com/distwrite/mswriter/internal/wire"
	"github.com/distwrite/mswriter/pkg/clock"
	"github.com/distwrite/mswriter/pkg/id"
	"github.com/distwrite/mswriter/pkg/log"
)

// Writer is the public multi-stream speculative writer. A Writer owns one
// open record-set Buffer (cur) behind a single mutex, and hands sealed sets
// off to the dispatch package's Pending Write / speculative Policy pair.
// Construction validates Options; every other method is safe for
// concurrent use by multiple goroutines.
type Writer struct {
	mu         sync.Mutex
	cur        *recordset.Buffer
	curHeaders map[string]string
	closed     bool

	id                  id.ID
	streams             *roster.Roster
	codec               codec.Codec
	client              wire.Client
	bufferSize          int
	policyParams        dispatch.PolicyParams
	requestTimeoutValue time.Duration
	clockImpl           clock.Clock
	scheduler           *dispatch.Scheduler
	ownsScheduler       bool
	filter              *filter.StreamFilter
	metrics             *obs.Metrics
	tracer              *obs.Tracer
	logger              log.Logger
	flushCancel         func()
}

// New validates opts and constructs a ready-to-use Writer. The Streams
// roster is shuffled once, here; the returned Writer owns no resources
// beyond an internally constructed scheduler (when Options.Scheduler is
// nil) — the wire client is never owned or closed by the Writer.
func New(opts Options) (*Writer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	c, err := codec.ByName(opts.CompressionCodec)
	if err != nil {
		return nil, &werr.ConfigurationError{Field: "compressionCodec", Reason: err.Error()}
	}
	rst, err := roster.New(opts.Streams, opts.Rand)
	if err != nil {
		return nil, &werr.ConfigurationError{Field: "streams", Reason: err.Error()}
	}
	f, err := filter.New(opts.FilterExpr)
	if err != nil {
		return nil, &werr.ConfigurationError{Field: "filterExpr", Reason: err.Error()}
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	sched := opts.Scheduler
	owns := false
	if sched == nil {
		sched = dispatch.NewScheduler(clk)
		owns = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	writerID := id.NewGenerator().Next()
	logger = logger.WithComponent("mswriter").With(log.Str("writerId", writerID.String()))

	w := &Writer{
		cur:            recordset.NewBuffer(nil),
		id:             writerID,
		streams:        rst,
		codec:          c,
		client:         opts.Client,
		bufferSize:     opts.bufferSize(),
		policyParams:   opts.policyParams(),
		clockImpl:      clk,
		scheduler:      sched,
		ownsScheduler:  owns,
		filter:         f,
		metrics:        obs.NewMetrics(opts.MetricsRegisterer),
		tracer:         obs.NewTracer(opts.TracerProvider),
		logger:         logger,
	}
	w.requestTimeoutValue = opts.requestTimeout()

	if interval := opts.flushInterval(); interval > 0 {
		w.armFlushTick(interval)
	}

	return w, nil
}

// Write admits payload into the currently open record set, implementing the
// five-step algorithm verbatim: a too-long record fails synchronously; an
// oversize-avoiding seal or a bufferSize-triggered seal dispatches the
// outgoing set under the same lock that guards cur; the caller always gets
// back a single-assignment future for its own record.
func (w *Writer) Write(payload []byte) *wire.Future[wire.Coordinate] {
	return w.WriteWithHeaders(payload, nil)
}

// WriteWithHeaders is Write plus an optional headers map consulted by the
// stream affinity filter (§4.J) when the set containing this record is
// dispatched. Headers from every record merged into one open buffer are
// folded together (last write wins per key); the filter's CEL expression
// sees the union when the set seals. Callers that never configure a filter
// expression can ignore this and call Write.
func (w *Writer) WriteWithHeaders(payload []byte, headers map[string]string) *wire.Future[wire.Coordinate] {
	if len(payload) > MaxRecordSize {
		fut := wire.NewFuture[wire.Coordinate]()
		fut.Reject(&werr.RecordTooLongError{Size: len(payload), Max: MaxRecordSize})
		return fut
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		fut := wire.NewFuture[wire.Coordinate]()
		fut.Reject(werr.ErrWriterClosed)
		return fut
	}

	if w.cur.NumBytes()+len(payload) > MaxRecordSetSize {
		w.sealCurLocked("size")
	}

	for k, v := range headers {
		if w.curHeaders == nil {
			w.curHeaders = make(map[string]string, len(headers))
		}
		w.curHeaders[k] = v
	}

	handle := wire.NewFuture[wire.Coordinate]()
	if err := w.cur.Append(payload, handle); err != nil {
		var framingErr *werr.FramingError
		if errors.As(err, &framingErr) {
			w.cur.Abort(framingErr)
			w.cur = recordset.NewBuffer(nil)
			handle.Reject(framingErr)
			return handle
		}
		// The buffer was already sealed or aborted underneath us, which
		// cannot happen while every mutation holds w.mu — surfaced only as
		// a defensive fallback.
		handle.Reject(err)
		return handle
	}

	w.metrics.Records.Inc()

	if w.cur.NumBytes() >= w.bufferSize {
		w.sealCurLocked("size")
	}

	return handle
}

// flush implements §4.E's flush(): steal the open buffer under the lock,
// replace it with a fresh one, then dispatch the stolen set outside the
// lock. A no-op when the open buffer holds no records. reason labels the
// writer_buffer_flush_reason_total metric ("flush" for the periodic tick,
// "close" for the final drain on Close).
func (w *Writer) flush(reason string) {
	w.mu.Lock()
	if w.cur.NumRecords() == 0 {
		w.mu.Unlock()
		return
	}
	stolen := w.cur
	headers := w.curHeaders
	w.cur = recordset.NewBuffer(nil)
	w.curHeaders = nil
	w.mu.Unlock()

	w.metrics.BufferFlushReason.WithLabelValues(reason).Inc()
	w.sealAndDispatch(stolen, headers)
}

// sealCurLocked seals w.cur in place (caller already holds w.mu) and
// replaces it with a fresh buffer before dispatching the sealed set. Used
// by the two in-Write seal triggers, where the facade lock is already held
// and dispatch does not block on any remote call.
func (w *Writer) sealCurLocked(reason string) {
	stolen := w.cur
	headers := w.curHeaders
	w.cur = recordset.NewBuffer(nil)
	w.curHeaders = nil

	w.metrics.BufferFlushReason.WithLabelValues(reason).Inc()
	w.sealAndDispatch(stolen, headers)
}

func (w *Writer) sealAndDispatch(buf *recordset.Buffer, headers map[string]string) {
	sealed, err := buf.Seal(w.codec)
	if err != nil {
		buf.Abort(err)
		w.logger.Error("seal failed", log.Err(err))
		return
	}

	candidateRoster := w.streams
	startIdx := w.streams.NextStartIndex()
	if candidates := w.filter.Candidates(w.streams.Streams(), headers); len(candidates) != w.streams.Len() {
		if len(candidates) == 0 {
			sealed.AbortTransmit(&werr.ConfigurationError{Field: "filterExpr", Reason: "no eligible streams for record headers"})
			return
		}
		narrowed, err := roster.FromOrder(candidates)
		if err != nil {
			sealed.AbortTransmit(err)
			return
		}
		candidateRoster = narrowed
		startIdx = 0
	}

	ctx := context.Background()
	p := dispatch.New(ctx, sealed, startIdx, dispatch.Deps{
		Roster:         candidateRoster,
		Client:         w.client,
		RequestTimeout: w.requestTimeoutValue,
		Clock:          w.clockImpl,
		Logger:         w.logger,
		Metrics:        w.metrics,
		Tracer:         w.tracer,
	})
	policy := dispatch.NewPolicy(w.scheduler, w.policyParams)
	p.Dispatch()
	policy.Start(p.IssueSpeculative)
}

// armFlushTick arms a self-rearming periodic tick on the Writer's
// scheduler, mirroring the speculative Policy's own rearm pattern — the
// Scheduler only exposes one-shot After, so periodic behavior is built by
// re-arming from within the fired callback.
func (w *Writer) armFlushTick(interval time.Duration) {
	w.flushCancel = w.scheduler.After(interval, func() {
		w.flush("flush")
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.armFlushTick(interval)
	})
}

// Close performs one final synchronous flush, then — only if the Writer
// constructed its own scheduler — shuts that scheduler down. In-flight
// Pending Writes dispatched before Close are left to race to their own
// deadline; Close does not abort them. Subsequent Write calls return
// ErrWriterClosed. Safe to call more than once.
func (w *Writer) Close() error {
	w.flush("close")

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if w.flushCancel != nil {
		w.flushCancel()
	}
	if w.ownsScheduler {
		w.scheduler.Close()
	}
	return nil
}
