// Package backoff implements capped exponential backoff with full jitter
// for reconnect scheduling.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Policy computes retry delays. The zero value is not usable; construct
// with Default or fill every field.
type Policy struct {
	// Base is the exponential base wait. The cap for attempt N is
	// Base * 2^N, bounded by Max.
	Base time.Duration
	// Max bounds the exponential cap.
	Max time.Duration
	// Floor is the minimum delay returned regardless of jitter.
	Floor time.Duration
}

// Default returns the policy used for broker feed reconnects.
func Default() Policy {
	return Policy{
		Base:  1 * time.Second,
		Max:   30 * time.Second,
		Floor: 500 * time.Millisecond,
	}
}

// Delay returns the wait before reconnect attempt N (N >= 1). The delay is
// drawn uniformly from [0, min(Base*2^N, Max)) and clamped to at least
// Floor, so concurrent clients do not retry in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	// Base<<attempt overflows int64 well before attempt reaches 63, so
	// compare against Max>>attempt instead of shifting left.
	ceiling := p.Max
	if p.Base < p.Max>>uint(attempt) {
		ceiling = p.Base << uint(attempt)
	}

	delay := time.Duration(rand.Int64N(int64(ceiling)))
	return max(p.Floor, delay)
}
