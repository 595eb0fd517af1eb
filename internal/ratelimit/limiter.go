// Package ratelimit provides a token-bucket limiter for outbound API
// requests, with optional per-endpoint buckets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a global request budget plus independent budgets for
// named endpoint classes. Buckets are created on demand with the global
// rate.
type Limiter struct {
	global   *rate.Limiter
	requests int
	period   time.Duration

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a Limiter allowing requests per period, with a burst equal
// to the full budget.
func New(requests int, period time.Duration) *Limiter {
	return &Limiter{
		global:   rate.NewLimiter(perSecond(requests, period), requests),
		requests: requests,
		period:   period,
		buckets:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the global budget allows a request or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.global.Wait(ctx)
}

// WaitBucket blocks until both the named bucket and the global budget
// allow a request.
func (l *Limiter) WaitBucket(ctx context.Context, bucket string) error {
	if err := l.bucket(bucket).Wait(ctx); err != nil {
		return err
	}
	return l.global.Wait(ctx)
}

// Allow reports whether the global budget permits a request right now.
func (l *Limiter) Allow() bool {
	return l.global.Allow()
}

// SetBucketLimit overrides the rate and burst for a named bucket,
// creating it if needed.
func (l *Limiter) SetBucketLimit(bucket string, requests int, period time.Duration) {
	lim := l.bucket(bucket)
	lim.SetLimit(perSecond(requests, period))
	lim.SetBurst(requests)
}

func (l *Limiter) bucket(name string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.buckets[name]; ok {
		return lim
	}
	lim := rate.NewLimiter(perSecond(l.requests, l.period), l.requests)
	l.buckets[name] = lim
	return lim
}

func perSecond(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}
