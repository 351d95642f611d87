// SPDX-License-Identifier: MIT
package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// FrameLimiter caps how often the processing loop iterates. Each Wait
// sleeps whatever remains of the per-iteration budget, so fast iterations
// are spread out and slow ones pass straight through.
type FrameLimiter struct {
	limiter *rate.Limiter
}

// NewFrameLimiter allows fps iterations per second. fps <= 0 disables limiting.
func NewFrameLimiter(fps int) *FrameLimiter {
	limit := rate.Inf
	if fps > 0 {
		limit = rate.Limit(fps)
	}
	// Burst 1: no catching up after a stall.
	return &FrameLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next iteration may start or ctx is done.
func (f *FrameLimiter) Wait(ctx context.Context) error {
	return f.limiter.Wait(ctx)
}

// FPS returns the configured cap, or 0 when unlimited.
func (f *FrameLimiter) FPS() float64 {
	if f.limiter.Limit() == rate.Inf {
		return 0
	}
	return float64(f.limiter.Limit())
}
