package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter *rate.Limiter
	timer   *time.Timer
}

// UserRateLimiter keeps one token bucket per identity. Buckets idle for
// longer than expirationTime are dropped.
type UserRateLimiter struct {
	limiters       map[string]*entry
	mu             sync.Mutex
	rate           rate.Limit
	burst          int
	expirationTime time.Duration
}

// New creates a limiter refilling rps tokens per second up to burst.
func New(rps float64, burst int, expirationTime time.Duration) *UserRateLimiter {
	return &UserRateLimiter{
		limiters:       make(map[string]*entry),
		rate:           rate.Limit(rps),
		burst:          burst,
		expirationTime: expirationTime,
	}
}

func (u *UserRateLimiter) getLimiter(identity string) *rate.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()

	e, exists := u.limiters[identity]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(u.rate, u.burst)}
		u.limiters[identity] = e
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(u.expirationTime, func() {
		u.cleanup(identity, e)
	})
	return e.limiter
}

func (u *UserRateLimiter) cleanup(identity string, e *entry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	// entry may have been replaced after the timer fired
	if current, ok := u.limiters[identity]; ok && current == e {
		delete(u.limiters, identity)
	}
}

// Allow checks if a request should be allowed for a given identity
func (u *UserRateLimiter) Allow(identity string) bool {
	return u.getLimiter(identity).Allow()
}

// Size is the number of live buckets.
func (u *UserRateLimiter) Size() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.limiters)
}

// Stop cancels all expiration timers
func (u *UserRateLimiter) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, e := range u.limiters {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}
