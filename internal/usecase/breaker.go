package usecase

import (
	"sync"
	"time"
)

// Breaker states. The manager starts closed; repeated transport failures
// within the window open it, and live calls are skipped until the cooldown
// elapses.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
)

func (s breakerState) String() string {
	if s == breakerOpen {
		return "open"
	}
	return "closed"
}

// Breaker is the explicit circuit-breaker state machine guarding the live
// tier. Transitions:
//
//	closed --[maxFailures consecutive failures within window]--> open
//	closed --[auth or rate-limit failure]--> open (immediate)
//	open   --[cooldown elapsed]--> closed
//	closed --[success]--> closed (counters reset)
type Breaker struct {
	mu           sync.Mutex
	state        breakerState
	failures     int
	firstFailure time.Time
	openedAt     time.Time

	maxFailures int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(maxFailures int, window, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Allow reports whether a live call may proceed, closing the breaker first
// if the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen {
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.state = breakerClosed
			b.failures = 0
			return true
		}
		return false
	}
	return true
}

// Success resets the failure counters.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Failure records one transport failure; the breaker opens when maxFailures
// accumulate within the window.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if b.failures == 0 || now.Sub(b.firstFailure) > b.window {
		b.failures = 0
		b.firstFailure = now
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = breakerOpen
		b.openedAt = now
	}
}

// Trip opens the breaker immediately, used for auth and server-reported
// rate-limit failures where continuing to hammer the endpoint is doomed.
func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerOpen
	b.openedAt = b.now()
	b.failures = b.maxFailures
}

// State renders the current state for status reporting.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return breakerClosed.String()
	}
	return b.state.String()
}
