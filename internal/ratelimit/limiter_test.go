package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_MinuteCeiling(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(3, 100, clock.Now)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	if l.Allow() {
		t.Error("4th request within a minute should be denied")
	}

	clock.Advance(61 * time.Second)

	if !l.Allow() {
		t.Error("request should be allowed after the minute window slides")
	}
}

func TestLimiter_HourCeiling(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(100, 5, clock.Now)

	// Spread 5 requests across minutes so only the hour ceiling binds
	for i := 0; i < 5; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
		clock.Advance(2 * time.Minute)
	}

	if l.Allow() {
		t.Error("6th request within the hour should be denied")
	}

	// The first request falls off the hour horizon after ~50 more minutes
	clock.Advance(51 * time.Minute)

	if !l.Allow() {
		t.Error("request should be allowed after the hour window slides")
	}
}

func TestLimiter_DenyDoesNotConsumeBudget(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(2, 100, clock.Now)

	if !l.Allow() || !l.Allow() {
		t.Fatal("first two requests should be allowed")
	}

	// Hammer the denied limiter; none of these may consume budget
	for i := 0; i < 50; i++ {
		if l.Allow() {
			t.Fatal("request over the ceiling should be denied")
		}
		clock.Advance(time.Second)
	}

	// 50s of denials later the original two requests age out at +60s
	clock.Advance(11 * time.Second)

	if !l.Allow() {
		t.Error("first request after the window slides should be allowed")
	}
	if !l.Allow() {
		t.Error("second request after the window slides should be allowed")
	}
}

func TestLimiter_Stats(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(10, 100, clock.Now)

	l.Allow()
	l.Allow()
	clock.Advance(2 * time.Minute)
	l.Allow()

	minute, hour := l.Stats()
	if minute != 1 {
		t.Errorf("expected 1 request in trailing minute, got %d", minute)
	}
	if hour != 3 {
		t.Errorf("expected 3 requests in trailing hour, got %d", hour)
	}
}

func TestLimiter_ConcurrentCallers(t *testing.T) {
	l := New(50, 50)

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow()
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Errorf("expected exactly 50 allowed under contention, got %d", count)
	}
}
