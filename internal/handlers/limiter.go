// limiter.go provides the two-way StudentRequest rate limiter, built
// on golang.org/x/time/rate for its well-tested token-bucket burst
// semantics — a tighter precision tool than the teacher's sliding
// window, justified here because the 3-per-2s window is small enough
// that burst/refill edge cases matter to students.
package handlers

import (
	"sync"

	"golang.org/x/time/rate"
)

// TwoWayLimiter enforces a per-connection token bucket for
// StudentRequest/StudentAudio frames (spec.md §4.5.9, default 3
// messages / 2s window).
type TwoWayLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewTwoWayLimiter builds a limiter allowing up to burst events at once
// per connection, refilled at r = burst/window tokens per second,
// e.g. burst=3, window=2s → r = 1.5/s.
func NewTwoWayLimiter(burst int, window float64) *TwoWayLimiter {
	return &TwoWayLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(float64(burst) / window),
		burst:    burst,
	}
}

// Allow reports whether connID may send another two-way message now.
func (l *TwoWayLimiter) Allow(connID string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[connID]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[connID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Forget drops a connection's bucket on disconnect.
func (l *TwoWayLimiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, connID)
}
