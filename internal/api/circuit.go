package api

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and has not yet
// reached the half-open recovery window.
var ErrCircuitOpen = errors.New("circuit breaker open: catalog API is unavailable, backing off")

type circuitState int

const (
	circuitClosed   circuitState = iota // requests flow through
	circuitOpen                         // all requests rejected immediately
	circuitHalfOpen                     // one probe allowed through
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker trips open after threshold consecutive server-side failures
// (HTTP 429 or 5xx), stays open for resetTimeout, then lets one probe through.
// It never retries; a rejected request surfaces ErrCircuitOpen to the caller.
type circuitBreaker struct {
	mu           sync.Mutex
	state        circuitState
	consecutive  int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	now          func() time.Time
}

func newCircuitBreaker(threshold int, resetTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:        circuitClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Allow returns the current state and whether the request may proceed.
func (cb *circuitBreaker) Allow() (circuitState, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
			cb.state = circuitHalfOpen
			return circuitHalfOpen, true
		}
		return circuitOpen, false
	default:
		return cb.state, true
	}
}

// Record feeds the outcome of one response into the breaker and returns the
// previous and the new state.
func (cb *circuitBreaker) Record(serverFailure bool) (prev, next circuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	prev = cb.state
	if !serverFailure {
		cb.consecutive = 0
		cb.state = circuitClosed
		return prev, cb.state
	}
	cb.consecutive++
	if cb.state == circuitHalfOpen || cb.consecutive >= cb.threshold {
		cb.state = circuitOpen
		cb.openedAt = cb.now()
	}
	return prev, cb.state
}
