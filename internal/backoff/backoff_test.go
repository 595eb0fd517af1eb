package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_DelayBounds(t *testing.T) {
	p := Default()

	for attempt := 1; attempt <= 10; attempt++ {
		cap := min(p.Base<<uint(attempt), p.Max)
		for i := 0; i < 200; i++ {
			d := p.Delay(attempt)
			assert.GreaterOrEqual(t, d, p.Floor, "attempt %d", attempt)
			assert.LessOrEqual(t, d, cap, "attempt %d", attempt)
		}
	}
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Default()

	// Past the point where base*2^N exceeds the ceiling, the draw is
	// bounded by the ceiling alone.
	for i := 0; i < 100; i++ {
		d := p.Delay(40)
		assert.LessOrEqual(t, d, p.Max)
	}
}

func TestPolicy_DelayLargeAttempts(t *testing.T) {
	p := Default()

	// Attempts past the shift width must still honor the bounds, not
	// overflow into a negative draw.
	for _, attempt := range []int{33, 34, 40, 62, 63, 64, 1 << 20} {
		for i := 0; i < 20; i++ {
			d := p.Delay(attempt)
			assert.GreaterOrEqual(t, d, p.Floor, "attempt %d", attempt)
			assert.LessOrEqual(t, d, p.Max, "attempt %d", attempt)
		}
	}
}

func TestPolicy_DelayFloorClamp(t *testing.T) {
	p := Policy{
		Base:  1 * time.Millisecond,
		Max:   2 * time.Millisecond,
		Floor: 500 * time.Millisecond,
	}

	// Cap below the floor: every draw is clamped up.
	for i := 0; i < 50; i++ {
		assert.Equal(t, 500*time.Millisecond, p.Delay(1))
	}
}

func TestPolicy_DelayAttemptClamped(t *testing.T) {
	p := Default()

	d := p.Delay(0)
	assert.GreaterOrEqual(t, d, p.Floor)
	assert.LessOrEqual(t, d, 2*time.Second)
}
