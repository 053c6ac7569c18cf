package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps throughput to bytesPerSec.
// The burst is set to 1 MiB to allow natural copy-sized chunks through
// without unnecessary blocking on small copies.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MiB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// throttle returns a callback that blocks until limiter admits n bytes.
// Requests larger than the burst are admitted in burst-sized steps, since
// WaitN rejects anything bigger outright.
func throttle(ctx context.Context, limiter *rate.Limiter) func(n int64) error {
	return func(n int64) error {
		burst := int64(limiter.Burst())
		for n > 0 {
			step := min(n, burst)
			if err := limiter.WaitN(ctx, int(step)); err != nil {
				return err
			}
			n -= step
		}
		return nil
	}
}
