// Package ratelimit throttles login attempts per client IP using a fixed
// window, the counterpart of the shop's old 20-attempts-per-15-minutes
// rule. It is a component with its own lifecycle: construct it, schedule
// Sweep, done.
package ratelimit

import (
	"sync"
	"time"

	"github.com/sesamoshop/tienda/pkg/logger"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts attempts per key within a fixed window.
type Limiter struct {
	max    int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a limiter allowing max attempts per period for each key.
func New(max int, period time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}

	w.count++
	return w.count <= l.max
}

// Sweep drops windows whose period has elapsed. Scheduled once per minute
// so the map does not grow with every IP that ever tried to log in.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	l.mu.Unlock()

	if removed > 0 {
		logger.Debug("ratelimit: swept stale windows", "count", removed)
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
