// Package ratelimit enforces an hourly message budget per conversational
// scope. Budgets are fixed hour buckets: the bucket id is floor(unix/3600)
// and a stale bucket is reset lazily on the next check, so no background
// sweeping is needed.
package ratelimit

import (
	"sync"
	"time"
)

const bucketSeconds = 3600

// Decision is the outcome of one rate check.
type Decision struct {
	Allowed   bool
	Remaining int // -1 when the scope is unlimited
	ResetAt   time.Time
}

type window struct {
	bucket int64
	count  int
}

// Limiter tracks one counting window per scope key. Check-then-increment is
// atomic per key, so two near-simultaneous messages cannot both consume the
// last slot.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New returns a limiter using the wall clock.
func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock returns a limiter with an injected clock for tests.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{windows: make(map[string]*window), now: now}
}

// Check consumes one message slot for scopeKey against limitPerHour.
// limitPerHour <= 0 means unlimited. The counter only advances when the
// message is admitted.
func (l *Limiter) Check(scopeKey string, limitPerHour int) Decision {
	now := l.now()
	bucket := now.Unix() / bucketSeconds
	resetAt := time.Unix((bucket+1)*bucketSeconds, 0)

	if limitPerHour <= 0 {
		return Decision{Allowed: true, Remaining: -1, ResetAt: resetAt}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[scopeKey]
	if w == nil || w.bucket != bucket {
		w = &window{bucket: bucket}
		l.windows[scopeKey] = w
	}
	if w.count >= limitPerHour {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	w.count++
	return Decision{Allowed: true, Remaining: limitPerHour - w.count, ResetAt: resetAt}
}

// Remaining reports the unused budget for scopeKey without consuming a slot.
func (l *Limiter) Remaining(scopeKey string, limitPerHour int) int {
	if limitPerHour <= 0 {
		return -1
	}
	bucket := l.now().Unix() / bucketSeconds

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[scopeKey]
	if w == nil || w.bucket != bucket {
		return limitPerHour
	}
	if w.count >= limitPerHour {
		return 0
	}
	return limitPerHour - w.count
}

// Reset clears every window, restoring the full budget everywhere.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}
