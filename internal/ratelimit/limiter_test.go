package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowWithinBudget(t *testing.T) {
	limiter := New(10, time.Second)

	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow(), "request %d", i)
	}
	assert.False(t, limiter.Allow())
}

func TestLimiter_Wait(t *testing.T) {
	limiter := New(100, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, limiter.Wait(ctx))
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := New(1, time.Hour)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.Error(t, err)
}

func TestLimiter_BucketIndependent(t *testing.T) {
	limiter := New(100, time.Second)
	limiter.SetBucketLimit("bars", 1, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, limiter.WaitBucket(ctx, "bars"))
	assert.Error(t, limiter.WaitBucket(ctx, "bars"))

	// Other buckets are unaffected.
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	assert.NoError(t, limiter.WaitBucket(ctx2, "latest"))
}
