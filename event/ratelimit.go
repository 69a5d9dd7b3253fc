package event

import (
	"sync"
	"time"
)

/* RateLimiter bounds accepted webhook deliveries per trailing window
 * Sliding window: timestamps older than the window are discarded on every
 * check. Process-local state, resets on restart; with multiple replicas the
 * ceiling degrades to per-replica best effort
 */
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	accepts []time.Time
	now     func() time.Time
}

// NewRateLimiter creates a sliding-window limiter for the given ceiling.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether another delivery may be accepted right now.
// If it returns true the delivery has been counted against the window.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	// Discard timestamps that slid out of the window
	kept := rl.accepts[:0]
	for _, t := range rl.accepts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rl.accepts = kept

	if len(rl.accepts) >= rl.limit {
		return false
	}

	rl.accepts = append(rl.accepts, now)
	return true
}

// Size returns the number of accepts currently inside the window.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.accepts)
}
