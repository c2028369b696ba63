package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache()
	if err := c.SetBytes("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(b, []byte("v")) {
		t.Fatalf("got %q", b)
	}
}

func TestTTLCacheMiss(t *testing.T) {
	c := NewTTLCache()
	if _, ok, _ := c.GetBytes("absent"); ok {
		t.Fatalf("expected miss")
	}
}

func TestTTLCacheLazyExpiry(t *testing.T) {
	clock := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return clock }

	_ = c.SetBytes("k", []byte("v"), 30*time.Second)

	clock = clock.Add(29 * time.Second)
	if _, ok, _ := c.GetBytes("k"); !ok {
		t.Fatalf("entry should still be fresh")
	}

	clock = clock.Add(2 * time.Second)
	if _, ok, _ := c.GetBytes("k"); ok {
		t.Fatalf("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped at read")
	}
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache()
	_ = c.SetBytes("k", []byte("old"), time.Minute)
	_ = c.SetBytes("k", []byte("new"), time.Minute)
	b, _, _ := c.GetBytes("k")
	if string(b) != "new" {
		t.Fatalf("got %q, want new", b)
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	clock := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return clock }

	_ = c.SetBytes("k", []byte("v"), 0)
	clock = clock.Add(240 * time.Hour)
	if _, ok, _ := c.GetBytes("k"); !ok {
		t.Fatalf("zero-ttl entry should not expire")
	}
}
