package ratelimit

import (
	"sync"
	"time"
)

// Budget is a fixed-window call counter shared by all outbound requests.
// It never blocks: when the window is exhausted, Allow returns false and the
// caller resolves via cache or fallback instead.
type Budget struct {
	mu          sync.Mutex
	windowStart time.Time
	calls       int
	maxCalls    int
	window      time.Duration
	now         func() time.Time
}

// NewBudget creates a budget of maxCalls per rolling window.
func NewBudget(maxCalls int, window time.Duration) *Budget {
	return &Budget{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
	}
}

// Allow consumes one call from the current window if any remain.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.calls = 0
	}
	if b.calls >= b.maxCalls {
		return false
	}
	b.calls++
	return true
}

// Usage reports consumption of the current window.
func (b *Budget) Usage() (calls, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.windowStart.IsZero() && b.now().Sub(b.windowStart) >= b.window {
		return 0, b.maxCalls
	}
	return b.calls, b.maxCalls
}
