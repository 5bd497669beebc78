// Package breaker implements a per-dependency circuit breaker. Each external
// API (search, generation, posting) gets its own instance; failure domains
// are independent so instances are never shared.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when a call is refused because the circuit is open.
// Callers should treat it as "temporarily unavailable", not as a failure of
// the item being processed.
var ErrOpen = errors.New("circuit open")

// State of the breaker state machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker is a three-state circuit breaker. All state lives behind one mutex
// so concurrent callers observe a consistent machine.
type Breaker struct {
	name      string
	mu        sync.Mutex
	state     State
	failures  int
	threshold int
	recovery  time.Duration
	openedAt  time.Time
	probing   bool

	now func() time.Time
}

// New creates a closed breaker. threshold is the number of consecutive
// failures that trips it; recovery is how long it stays open before admitting
// a single half-open probe.
func New(name string, threshold int, recovery time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if recovery <= 0 {
		recovery = time.Minute
	}
	return &Breaker{
		name:      name,
		state:     StateClosed,
		threshold: threshold,
		recovery:  recovery,
		now:       time.Now,
	}
}

// Name returns the dependency name the breaker protects.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. While open it returns false until
// the recovery timeout elapses; the first Allow after that moves to half-open
// and admits exactly one probe. Further calls are gated until the probe
// reports its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.recovery {
			return false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess reports a successful call. From half-open it closes the
// breaker and resets the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.state = StateClosed
}

// RecordFailure reports a failed call. Reaching the threshold while closed
// opens the breaker; any failure while half-open reopens it and restarts the
// recovery clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
		b.probing = false
	case StateOpen:
		// already open; keep the original clock
	}
}

// Do wraps fn with the check/record protocol. It fails fast with ErrOpen
// without invoking fn when the circuit refuses the call.
func (b *Breaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}
