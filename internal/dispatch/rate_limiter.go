// rate_limiter.go carries forward the teacher's sliding-window limiter
// type for a per-connection message budget. The Dispatcher does not
// construct or consult it, so no router-wide rate limit is applied.
// The two-way StudentRequest limiter lives in internal/handlers
// (limiter.go) and uses golang.org/x/time/rate for its token-bucket
// burst semantics on the tighter 3-per-2s window.
package dispatch

import (
	"sync"
	"time"
)

// SlidingWindowLimiter enforces N events per rolling window per key,
// grounded on the teacher's internal/router/rate_limiter.go.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	events   map[string][]time.Time
}

// NewSlidingWindowLimiter builds a limiter allowing limit events per
// window, per key.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		window: window,
		limit:  limit,
		events: make(map[string][]time.Time),
	}
}

// Allow reports whether key may perform another event right now,
// recording the event if so.
func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)
	events := l.events[key]

	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.limit {
		l.events[key] = kept
		return false
	}
	kept = append(kept, now)
	l.events[key] = kept
	return true
}

// Forget drops all recorded events for key, called on disconnect to
// bound memory.
func (l *SlidingWindowLimiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, key)
}
