package command

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client slot.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int]*clientLimit
	rate     rate.Limit
	burst    int
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perSecond commands per client with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[int]*clientLimit),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether client may run another command now.
func (rl *RateLimiter) Allow(client int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[client]
	if !ok {
		cl = &clientLimit{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// Forget drops a client's bucket, typically on disconnect.
func (rl *RateLimiter) Forget(client int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, client)
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for client, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, client)
			removed++
		}
	}
	return removed
}
