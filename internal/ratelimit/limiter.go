package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces sliding-window request ceilings over the trailing minute
// and trailing hour. A denied check never consumes budget.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	perHour   int
	window    []time.Time
	now       func() time.Time
}

// New creates a limiter with the given minute and hour ceilings
func New(perMinute, perHour int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
	}
}

// NewWithClock creates a limiter with an injected clock, used by tests
func NewWithClock(perMinute, perHour int, now func() time.Time) *Limiter {
	l := New(perMinute, perHour)
	l.now = now
	return l
}

// Allow reports whether a request may proceed right now. The instant is
// recorded only when the request is allowed, so repeated denied checks do
// not push the window forward.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.window) >= l.perHour {
		return false
	}
	if l.countSince(now.Add(-time.Minute)) >= l.perMinute {
		return false
	}

	l.window = append(l.window, now)
	return true
}

// Stats returns the current request counts in the trailing minute and hour
func (l *Limiter) Stats() (minute, hour int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	return l.countSince(now.Add(-time.Minute)), len(l.window)
}

// prune drops instants older than the one-hour horizon. The window is
// append-only and ordered, so a single scan from the front suffices.
func (l *Limiter) prune(now time.Time) {
	horizon := now.Add(-time.Hour)

	i := 0
	for i < len(l.window) && !l.window[i].After(horizon) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

func (l *Limiter) countSince(cutoff time.Time) int {
	count := 0
	for i := len(l.window) - 1; i >= 0; i-- {
		if !l.window[i].After(cutoff) {
			break
		}
		count++
	}
	return count
}
