package ratelimit

import (
	"testing"
	"time"
)

func TestBudgetExhaustion(t *testing.T) {
	b := NewBudget(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if b.Allow() {
		t.Fatalf("fourth call should be denied")
	}
	calls, max := b.Usage()
	if calls != 3 || max != 3 {
		t.Fatalf("usage = %d/%d, want 3/3", calls, max)
	}
}

func TestBudgetWindowReset(t *testing.T) {
	clock := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	b := NewBudget(1, time.Minute)
	b.now = func() time.Time { return clock }

	if !b.Allow() {
		t.Fatalf("first call should be allowed")
	}
	if b.Allow() {
		t.Fatalf("budget exhausted, call should be denied")
	}

	clock = clock.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatalf("window elapsed, call should be allowed again")
	}
}

func TestBudgetNeverExceedsMax(t *testing.T) {
	b := NewBudget(10, time.Minute)
	allowed := 0
	for i := 0; i < 100; i++ {
		if b.Allow() {
			allowed++
		}
	}
	if allowed != 10 {
		t.Fatalf("allowed = %d, want 10", allowed)
	}
}
