package ratelimit

import (
	"sync"
	"time"
)

// OperationClass groups external calls that share a rate-limit budget.
type OperationClass string

const (
	OpOCR            OperationClass = "ocr"
	OpClassification OperationClass = "classification"
	OpGeneral        OperationClass = "general"
)

// Rule caps how many calls an identity may make per rolling window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter is a process-wide, constructor-injected rate limiter keyed by
// caller identity and operation class. Stale windows are swept periodically
// to bound memory; Stop ends the sweep goroutine.
type Limiter struct {
	mu       sync.Mutex
	rules    map[OperationClass]Rule
	counters map[string]*window
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	count int
}

// NewLimiter creates a limiter with the given per-class rules. A nil now
// function defaults to time.Now. Sweeping runs every sweepInterval;
// a non-positive interval disables the sweep goroutine (useful in tests).
func NewLimiter(rules map[OperationClass]Rule, sweepInterval time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	l := &Limiter{
		rules:    rules,
		counters: make(map[string]*window),
		now:      now,
		stop:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// Check reports whether the identity may issue another call of the given
// class, and if not, how long until the window resets.
func (l *Limiter) Check(identity string, class OperationClass) (bool, time.Duration) {
	rule, ok := l.rules[class]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 {
		return true, 0
	}

	now := l.now()
	key := identity + "|" + string(class)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.counters[key]
	if !exists || now.Sub(w.start) >= rule.Window {
		l.counters[key] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count < rule.Limit {
		w.count++
		return true, 0
	}

	return false, w.start.Add(rule.Window).Sub(now)
}

// Stop ends the sweep goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Size returns the number of tracked windows (for tests/monitoring).
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops windows older than the largest configured rule window.
func (l *Limiter) sweep() {
	maxWindow := time.Duration(0)
	for _, rule := range l.rules {
		if rule.Window > maxWindow {
			maxWindow = rule.Window
		}
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.counters {
		if now.Sub(w.start) >= maxWindow {
			delete(l.counters, key)
		}
	}
}
