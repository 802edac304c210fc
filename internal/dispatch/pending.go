package dispatch

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/distwrite/mswriter/internal/obs"
	"github.com/distwrite/mswriter/internal/recordset"
	"github.com/distwrite/mswriter/internal/roster"
	"github.com/distwrite/mswriter/internal/werr"
	"github.com/distwrite/mswriter/internal/wire"
	"github.com/distwrite/mswriter/pkg/clock"
	"github.com/distwrite/mswriter/pkg/log"
)

// Pending tracks one sealed record set's life across speculative attempts.
// It owns a mutex guarding nextStreamIdx/triedCount/settled — the same
// fields sendNextAttempt, onSuccess, and onFailure all read and mutate — so
// no two of those three ever race on which one gets to settle the set.
type Pending struct {
	mu            sync.Mutex
	startedAt     time.Time
	nextStreamIdx int
	triedCount    int
	settled       bool

	n              int
	ctx            context.Context
	buf            *recordset.Sealed
	roster         *roster.Roster
	client         wire.Client
	requestTimeout time.Duration
	clock          clock.Clock
	logger         log.Logger
	metrics        *obs.Metrics
	tracer         *obs.Tracer
	span           trace.Span
}

// Deps bundles a Pending's collaborators so New's parameter list stays
// readable.
type Deps struct {
	Roster         *roster.Roster
	Client         wire.Client
	RequestTimeout time.Duration
	Clock          clock.Clock
	Logger         log.Logger
	Metrics        *obs.Metrics
	Tracer         *obs.Tracer
}

// New constructs a Pending for an already-sealed buffer, seeded with
// startIndex (drawn from the roster's shared counter by the caller).
func New(ctx context.Context, buf *recordset.Sealed, startIndex int, deps Deps) *Pending {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = obs.NewMetrics(nil)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = obs.NewTracer(nil)
	}
	return &Pending{
		startedAt:      deps.Clock.Now(),
		nextStreamIdx:  startIndex,
		n:              deps.Roster.Len(),
		ctx:            ctx,
		buf:            buf,
		roster:         deps.Roster,
		client:         deps.Client,
		requestTimeout: deps.RequestTimeout,
		clock:          deps.Clock,
		logger:         logger.WithComponent("dispatch"),
		metrics:        metrics,
		tracer:         tracer,
	}
}

// Dispatch issues the first attempt. Callers should arm the speculative
// ladder (Policy.Start) immediately afterward so that IssueSpeculative can
// race additional attempts in.
func (p *Pending) Dispatch() {
	p.ctx, p.span = p.tracer.StartRecordSet(p.ctx, p.buf.NumRecords(), len(p.buf.Payload()))
	p.sendNextAttempt()
}

// IssueSpeculative is the entry point the speculative Policy calls on every
// tick. It reports whether another attempt was actually issued — a false
// return (set already settled, deadline reached, or roster exhausted) tells
// the policy to stop arming further ticks.
func (p *Pending) IssueSpeculative() bool {
	return p.sendNextAttempt()
}

// sendNextAttempt implements §4.C verbatim: check the deadline and attempt
// budget under the lock; if both still allow it, claim the next roster slot
// and fire the attempt outside the lock. Returns whether an attempt was
// issued.
func (p *Pending) sendNextAttempt() bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}

	elapsed := p.clock.Now().Sub(p.startedAt)
	if elapsed > p.requestTimeout || p.triedCount >= p.n {
		p.settled = true
		tried, n := p.triedCount, p.n
		p.mu.Unlock()

		cause := &werr.SetDeadlineError{Elapsed: elapsed, Tried: tried, N: n}
		p.buf.AbortTransmit(cause)
		p.metrics.RecordSetsFailed.Inc()
		p.metrics.ObserveDispatchLatency(elapsed)
		p.logger.Error("record set abandoned",
			log.Duration("elapsed", elapsed),
			log.Int("tried", tried),
			log.Int("n", n),
		)
		if p.span != nil {
			p.span.SetStatus(codes.Error, cause.Error())
			p.span.End()
		}
		return false
	}

	streamIdx := p.nextStreamIdx
	p.nextStreamIdx = (p.nextStreamIdx + 1) % p.n
	p.triedCount++
	attempt := p.triedCount
	p.mu.Unlock()

	streamName := p.roster.Get(streamIdx)
	p.metrics.DispatchAttempts.Inc()
	p.logger.Debug("dispatch attempt",
		log.Str("stream", streamName),
		log.Int("attempt", attempt),
	)

	attemptCtx, attemptSpan := p.tracer.StartAttempt(p.ctx, streamName, attempt)
	fut := p.client.WriteRecordSet(attemptCtx, streamName, p.buf.Payload())
	go p.awaitAttempt(fut, attemptSpan)
	return true
}

// awaitAttempt stands in for the wire client's callback executor: a
// dedicated goroutine per attempt waits on that attempt's own future and
// routes its outcome to onSuccess/onFailure.
func (p *Pending) awaitAttempt(fut *wire.Future[wire.Coordinate], span trace.Span) {
	coord, err := fut.Wait(p.ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		p.onFailure(err)
		return
	}
	span.End()
	p.onSuccess(coord)
}

// onSuccess settles the set on the first winning attempt; every later
// success is discarded.
func (p *Pending) onSuccess(coord wire.Coordinate) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.mu.Unlock()

	p.metrics.RecordSetsSealed.Inc()
	p.metrics.ObserveDispatchLatency(p.clock.Now().Sub(p.startedAt))
	if p.span != nil {
		p.span.SetStatus(codes.Ok, "")
		p.span.End()
	}
	p.buf.CompleteTransmit(coord)
}

// onFailure never settles the set by itself: a single-attempt failure
// (including a per-request timeout from the wire client) always triggers an
// immediate extra attempt, identical to a speculative tick.
func (p *Pending) onFailure(cause error) {
	p.logger.Warn("attempt failed", log.Err(cause))

	p.mu.Lock()
	settled := p.settled
	p.mu.Unlock()
	if settled {
		return
	}
	p.sendNextAttempt()
}
