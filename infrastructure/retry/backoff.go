package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Exponential returns base*multiplier^(attempt-1), capped at maxDelay.
// attempt is 1-based; values below 1 are treated as 1.
func Exponential(attempt int, base, maxDelay time.Duration, multiplier float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if multiplier <= 0 {
		multiplier = defaultMultiplier
	}

	d := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if d > float64(maxDelay) || math.IsInf(d, 0) {
		return maxDelay
	}
	return time.Duration(d)
}

// Backoff returns a doubling delay with equal jitter: a value drawn from
// [d/2, d] where d = Exponential(attempt, base, maxDelay, 2). The lower bound
// of attempt n+1 equals the upper bound of attempt n, so successive delays
// never shrink until the cap is reached.
func Backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := Exponential(attempt, base, maxDelay, defaultMultiplier)
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half+1)
}
