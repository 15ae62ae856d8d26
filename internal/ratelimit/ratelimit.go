// Package ratelimit provides a token bucket used to pace calls against the
// external APIs: page fetches and sequential chunk posts.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket. A nil *Limiter is valid and never waits.
type Limiter struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
}

// New creates a limiter allowing maxBurst immediate calls and ratePerMinute
// sustained calls per minute.
func New(maxBurst int, ratePerMinute float64) *Limiter {
	if maxBurst <= 0 {
		maxBurst = 1
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	return &Limiter{
		tokens:   float64(maxBurst),
		max:      float64(maxBurst),
		rate:     ratePerMinute / 60.0,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		l.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(l.lastTime).Seconds()
		l.tokens += elapsed * l.rate
		if l.tokens > l.max {
			l.tokens = l.max
		}
		l.lastTime = now

		if l.tokens >= 1.0 {
			l.tokens -= 1.0
			l.mu.Unlock()
			return nil
		}

		waitSec := (1.0 - l.tokens) / l.rate
		l.mu.Unlock()

		timer := time.NewTimer(time.Duration(waitSec * float64(time.Second)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
