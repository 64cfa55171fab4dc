package middlewarectx

import "time"

// SetClock подменяет часы ограничителя.
func SetClock(l *RateLimiter, now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.lastSweep = now()
}
