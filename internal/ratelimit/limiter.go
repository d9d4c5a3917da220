// Package ratelimit throttles calls to external APIs with a per-minute cap and
// a minimum gap between consecutive requests.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const window = time.Minute

// Limiter is safe for concurrent use. Callers queue on a single slot so a
// waiting caller can still give up when its context is cancelled.
type Limiter struct {
	requestsPerMinute int
	cooldown          time.Duration

	slot        chan struct{}
	windowStart time.Time
	count       int
	last        time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source and sleep function (useful for tests).
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// New builds a limiter. A non-positive requestsPerMinute disables the window
// cap; a non-positive cooldown disables the minimum gap.
func New(requestsPerMinute int, cooldown time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		requestsPerMinute: requestsPerMinute,
		cooldown:          cooldown,
		slot:              make(chan struct{}, 1),
		now:               time.Now,
		sleep:             sleepWithContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Throttle blocks until a request may be issued under both the per-minute cap
// and the cooldown, then records the request.
func (l *Limiter) Throttle(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.slot }()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= window {
		l.windowStart = now
		l.count = 0
	}

	if l.requestsPerMinute > 0 && l.count >= l.requestsPerMinute {
		if err := l.sleep(ctx, window-now.Sub(l.windowStart)); err != nil {
			return err
		}
		now = l.now()
		l.windowStart = now
		l.count = 0
	}

	if l.cooldown > 0 && !l.last.IsZero() {
		if gap := now.Sub(l.last); gap < l.cooldown {
			if err := l.sleep(ctx, l.cooldown-gap); err != nil {
				return err
			}
			now = l.now()
		}
	}

	l.count++
	l.last = now
	return nil
}

// Registry hands out one shared limiter per API name.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	factory  func(name string) *Limiter
}

// NewRegistry builds a registry whose limiters are created lazily by factory.
func NewRegistry(factory func(name string) *Limiter) *Registry {
	return &Registry{limiters: make(map[string]*Limiter), factory: factory}
}

// Get returns the limiter for name, creating it on first use.
func (r *Registry) Get(name string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	var l *Limiter
	if r.factory != nil {
		l = r.factory(name)
	}
	if l == nil {
		l = New(0, 0)
	}
	r.limiters[name] = l
	return l
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
