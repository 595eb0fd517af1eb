// Package circuitbreaker implements a three-state breaker protecting
// outbound API calls from a failing upstream.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the breaker's current disposition.
type State int

const (
	// StateClosed passes requests through and counts failures.
	StateClosed State = iota
	// StateOpen rejects requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen admits probe requests after the cooldown.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	return [...]string{"CLOSED", "OPEN", "HALF_OPEN"}[s]
}

// Config holds breaker thresholds.
type Config struct {
	// FailThreshold is the number of consecutive failures that opens the
	// breaker.
	FailThreshold int
	// SuccessThreshold is the number of consecutive half-open successes
	// that closes it again.
	SuccessThreshold int
	// Timeout is the cooldown before an open breaker admits probes.
	Timeout time.Duration
}

// Breaker tracks upstream health. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	config    Config
}

// New creates a closed Breaker with the given thresholds.
func New(config Config) *Breaker {
	return &Breaker{config: config}
}

// Allow reports whether a request may proceed, transitioning an expired
// open breaker to half-open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.config.Timeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	}
	return false
}

// Record feeds a request outcome into the breaker.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.FailThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}

	case StateHalfOpen:
		if !success {
			b.state = StateOpen
			b.openedAt = time.Now()
			b.successes = 0
			return
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}

	case StateOpen:
		if !success {
			b.openedAt = time.Now()
		}
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset returns the breaker to closed with cleared counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
