package api

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket. It allows up to burst requests immediately,
// then refills at ratePerSec tokens per second. A nil limiter never waits.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	ratePerSec float64
	lastRefill time.Time
}

func newRateLimiter(ratePerSec float64, burst int) *rateLimiter {
	if ratePerSec <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		ratePerSec: ratePerSec,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *rateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	if rl == nil {
		return 0, ctx.Err()
	}
	start := time.Now()
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens = min(rl.maxTokens, rl.tokens+now.Sub(rl.lastRefill).Seconds()*rl.ratePerSec)
		rl.lastRefill = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return time.Since(start), nil
		}

		wait := time.Duration((1.0 - rl.tokens) / rl.ratePerSec * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-time.After(wait):
		}
	}
}
