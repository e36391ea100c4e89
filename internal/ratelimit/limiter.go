// Package ratelimit implements a fixed-window, in-process rate limiter.
// State is process-local: counts are lost on restart and are not shared
// across instances.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidConfig indicates a non-positive limit or window.
var ErrInvalidConfig = errors.New("ratelimit: max requests and window must be positive")

// Config describes one fixed window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

func (c Config) validate() error {
	if c.MaxRequests <= 0 || c.Window <= 0 {
		return fmt.Errorf("%w: max=%d window=%s", ErrInvalidConfig, c.MaxRequests, c.Window)
	}
	return nil
}

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed-window counters keyed by identifier. Construct one
// per process and share it by reference.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLimiter constructs an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Check consumes one request from the identifier's window and reports
// whether it was within the limit. Buckets are created lazily and reset when
// their window has elapsed.
func (l *Limiter) Check(identifier string, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[identifier]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(cfg.Window)}
		l.buckets[identifier] = b
	}
	b.count++

	res := Result{
		Allowed:   b.count <= cfg.MaxRequests,
		Remaining: cfg.MaxRequests - b.count,
		ResetAt:   b.resetAt,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = b.resetAt.Sub(now)
	}
	return res, nil
}

// Status reports the identifier's standing without consuming a request,
// suitable for emitting rate-limit headers without charging the caller.
func (l *Limiter) Status(identifier string, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[identifier]
	if !ok || !now.Before(b.resetAt) {
		return Result{
			Allowed:   true,
			Remaining: cfg.MaxRequests,
			ResetAt:   now.Add(cfg.Window),
		}, nil
	}

	res := Result{
		Allowed:   b.count < cfg.MaxRequests,
		Remaining: cfg.MaxRequests - b.count,
		ResetAt:   b.resetAt,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = b.resetAt.Sub(now)
	}
	return res, nil
}

// Reset drops the identifier's bucket unconditionally.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	delete(l.buckets, identifier)
	l.mu.Unlock()
}
