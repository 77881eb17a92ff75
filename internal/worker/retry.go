package worker

import (
	"math"
	"time"
)

// RetryPolicy controls how failed sync tasks are re-attempted: up to
// MaxRetries tries, waiting InitialDelay after the first failure and
// multiplying by BackoffFactor after each subsequent one, never past
// MaxDelay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay computes the wait before the given attempt. Attempts count from
// one; out-of-range inputs and a zero-valued policy fall back to a one-second
// base with a factor of two.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		// float overflow on a huge attempt number wraps negative
		d = time.Second
	}
	return d
}
