// Package ratelimit throttles outbound provider calls with per-key token buckets.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter holds one token bucket per key. All buckets share capacity and
// refill rate.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*Limiter)

// WithClock replaces time.Now and the sleep used by Wait.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// New creates a limiter allowing perMinute requests with the given burst.
func New(perMinute, burst float64, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		m:          make(map[string]*bucket),
		capacity:   burst,
		refillRate: perMinute / 60,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.reserve(key) == 0
}

// Wait blocks until a token for key is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		d := l.reserve(key)
		if d == 0 {
			return nil
		}
		if err := l.sleep(ctx, d); err != nil {
			return err
		}
	}
}

// reserve consumes a token and returns 0, or returns how long until one is available.
func (l *Limiter) reserve(key string) time.Duration {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	if l.refillRate <= 0 {
		return time.Hour
	}
	return time.Duration((1 - b.tokens) / l.refillRate * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
