package link

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Delay is the wait before reconnect attempt n (1-based). Jitter scales the
// delay by a factor in [0.5, 1.5).
func (b BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if n <= 1 || b.InitialDelay <= 0 {
		return max(b.InitialDelay, 0)
	}
	growth := math.Max(b.Multiplier, 1.0)
	d := float64(b.InitialDelay) * math.Pow(growth, float64(n-1))
	if b.MaxDelay > 0 {
		d = math.Min(d, float64(b.MaxDelay))
	}
	if b.Jitter {
		scale := 0.5
		if rng != nil {
			scale += rng.Float64()
		}
		d *= scale
	}
	return time.Duration(d)
}

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
