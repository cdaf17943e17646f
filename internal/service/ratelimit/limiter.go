package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 2 * time.Minute
)

// Limiter paces calls to one upstream. A 429 pauses every caller for the
// current backoff (or the server's Retry-After), doubling on repeats.
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu          sync.Mutex
	backoff     time.Duration
	pausedUntil time.Time
	now         func() time.Time
}

// NewLimiter allows perMinute requests with a burst of a tenth of that,
// clamped to 1..5.
func NewLimiter(name string, perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		name:    name,
		backoff: baseBackoff,
		now:     time.Now,
	}
}

// Wait blocks until the pause window has passed and a token is available.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.pauseRemaining(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return l.limiter.Wait(ctx)
}

func (l *Limiter) Allow() bool {
	return l.pauseRemaining() <= 0 && l.limiter.Allow()
}

// SignalRateLimited records a 429. retryAfter overrides the computed
// backoff when the server sent one.
func (l *Limiter) SignalRateLimited(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	wait := l.backoff
	if retryAfter > 0 {
		wait = retryAfter
	}
	l.pausedUntil = l.now().Add(wait)
	l.backoff *= 2
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
}

// ResetBackoff resets the backoff duration after a successful request.
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = baseBackoff
}

func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

func (l *Limiter) Name() string { return l.name }

func (l *Limiter) pauseRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pausedUntil.Sub(l.now())
}
