package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyedEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Keyed holds one token bucket per key (client address, API key). Idle
// buckets are dropped after idleTTL.
type Keyed struct {
	mu      sync.Mutex
	m       map[string]*keyedEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

func NewKeyed(perSecond float64, burst int, idleTTL time.Duration) *Keyed {
	if burst < 1 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Keyed{m: make(map[string]*keyedEntry), rps: rate.Limit(perSecond), burst: burst, idleTTL: idleTTL, now: time.Now}
}

// Allow returns true if one token can be consumed for key.
func (k *Keyed) Allow(key string) bool {
	now := k.now()
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		if len(k.m) > 4096 {
			k.sweepLocked(now)
		}
		e = &keyedEntry{lim: rate.NewLimiter(k.rps, k.burst)}
		k.m[key] = e
	}
	e.seen = now
	k.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

func (k *Keyed) sweepLocked(now time.Time) {
	for key, e := range k.m {
		if now.Sub(e.seen) > k.idleTTL {
			delete(k.m, key)
		}
	}
}
