package dispatch

import (
	"time"

	"github.com/distwrite/mswriter/internal/werr"
)

// PolicyParams are the speculative ladder's tuning knobs. Validated at
// Options-construction time by the caller, not here, so the
// ConfigurationError can name the owning option.
type PolicyParams struct {
	First      time.Duration
	Max        time.Duration
	Multiplier float64
}

// ValidatePolicyParams enforces 0 < first ≤ max < requestTimeout and
// multiplier > 0.
func ValidatePolicyParams(p PolicyParams, requestTimeout time.Duration) error {
	if p.First <= 0 {
		return &werr.ConfigurationError{Field: "firstSpeculativeTimeoutMs", Reason: "must be > 0"}
	}
	if p.Max < p.First {
		return &werr.ConfigurationError{Field: "maxSpeculativeTimeoutMs", Reason: "must be >= firstSpeculativeTimeoutMs"}
	}
	if p.Max >= requestTimeout {
		return &werr.ConfigurationError{Field: "maxSpeculativeTimeoutMs", Reason: "must be < requestTimeoutMs"}
	}
	if p.Multiplier <= 0 {
		return &werr.ConfigurationError{Field: "speculativeBackoffMultiplier", Reason: "must be > 0"}
	}
	return nil
}

// Policy arms a Scheduler with the exponential speculative ladder described
// in §4.D: a first tick at First, then tᵢ₊₁ = min(tᵢ × Multiplier, Max),
// stopping whenever issueSpeculative reports no further attempt was issued.
type Policy struct {
	sched  *Scheduler
	params PolicyParams
}

// NewPolicy returns a Policy that will arm ticks on sched.
func NewPolicy(sched *Scheduler, params PolicyParams) *Policy {
	return &Policy{sched: sched, params: params}
}

// Start arms the first tick. issueSpeculative is called on every tick and
// must report whether it actually issued a new attempt and the set remains
// open — a false return stops the ladder.
func (p *Policy) Start(issueSpeculative func() bool) (cancel func()) {
	return p.arm(p.params.First, issueSpeculative)
}

func (p *Policy) arm(interval time.Duration, issueSpeculative func() bool) (cancel func()) {
	return p.sched.After(interval, func() {
		if !issueSpeculative() {
			return
		}
		next := time.Duration(float64(interval) * p.params.Multiplier)
		if next > p.params.Max {
			next = p.params.Max
		}
		p.arm(next, issueSpeculative)
	})
}
