// Package circuitbreaker tracks per-provider health so the router can skip
// backends that are repeatedly failing instead of burning a fallback attempt
// on them every request.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the current state of one provider's circuit.
type State int

// Circuit states
const (
	StateClosed   State = iota // normal operation
	StateOpen                  // tripped, provider skipped
	StateHalfOpen              // cooling down, probe attempts allowed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Options configures the breaker thresholds.
type Options struct {
	// FailureThreshold is the number of consecutive failures that opens a
	// provider's circuit
	FailureThreshold int

	// CooldownPeriod is how long an open circuit stays open before probe
	// attempts are allowed again
	CooldownPeriod time.Duration

	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the circuit
	SuccessThreshold int

	// OnTrip is called when a provider's circuit opens
	OnTrip func(provider, reason string)
}

// DefaultOptions returns sensible thresholds for swap backends.
func DefaultOptions() Options {
	return Options{
		FailureThreshold: 3,
		CooldownPeriod:   2 * time.Minute,
		SuccessThreshold: 2,
	}
}

type providerState struct {
	state       State
	failures    int
	successes   int
	lastTrip    time.Time
	lastFailure string
}

// Breaker holds one circuit per provider name. All methods are safe for
// concurrent use.
type Breaker struct {
	opts   Options
	mu     sync.Mutex
	states map[string]*providerState
}

// New creates a breaker with the given options.
func New(opts Options) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	if opts.SuccessThreshold <= 0 {
		opts.SuccessThreshold = 2
	}
	if opts.CooldownPeriod <= 0 {
		opts.CooldownPeriod = 2 * time.Minute
	}
	return &Breaker{
		opts:   opts,
		states: map[string]*providerState{},
	}
}

// Allow reports whether the provider may be attempted. An open circuit whose
// cooldown has elapsed transitions to half-open and allows a probe.
func (b *Breaker) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.states[provider]
	if ps == nil {
		return true
	}

	if ps.state == StateOpen {
		if time.Since(ps.lastTrip) < b.opts.CooldownPeriod {
			return false
		}
		ps.state = StateHalfOpen
		ps.successes = 0
		logrus.WithField("provider", provider).Info("Circuit half-open: probing provider recovery")
	}
	return true
}

// RecordSuccess notes a successful provider call.
func (b *Breaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.states[provider]
	if ps == nil {
		return
	}

	ps.failures = 0
	if ps.state == StateHalfOpen {
		ps.successes++
		if ps.successes >= b.opts.SuccessThreshold {
			ps.state = StateClosed
			ps.successes = 0
			logrus.WithField("provider", provider).Info("Circuit closed: provider recovered")
		}
	}
}

// RecordFailure notes a failed provider call and trips the circuit once the
// failure threshold is reached. Half-open failures trip immediately.
func (b *Breaker) RecordFailure(provider, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.states[provider]
	if ps == nil {
		ps = &providerState{}
		b.states[provider] = ps
	}

	ps.failures++
	ps.lastFailure = reason

	if ps.state == StateHalfOpen || ps.failures >= b.opts.FailureThreshold {
		b.trip(provider, ps, reason)
	}
}

// State returns the provider's current circuit state.
func (b *Breaker) State(provider string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.states[provider]
	if ps == nil {
		return StateClosed
	}
	return ps.state
}

// Reset forcibly closes the provider's circuit.
func (b *Breaker) Reset(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.states, provider)
	logrus.WithField("provider", provider).Info("Circuit manually reset")
}

func (b *Breaker) trip(provider string, ps *providerState, reason string) {
	if ps.state != StateOpen {
		logrus.WithFields(logrus.Fields{
			"provider": provider,
			"reason":   reason,
		}).Warn("Circuit opened for provider")
		if b.opts.OnTrip != nil {
			go b.opts.OnTrip(provider, reason)
		}
	}
	ps.state = StateOpen
	ps.failures = 0
	ps.successes = 0
	ps.lastTrip = time.Now()
}
