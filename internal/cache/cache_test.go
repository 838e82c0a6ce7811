package cache

import (
	"testing"
	"time"
)

func TestCache_SetGetExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(time.Minute).WithClock(func() time.Time { return now })

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v.(int) != 1 {
		t.Fatalf("expected a=1, got %v ok=%v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be expired")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, len=%d", c.Len())
	}
}

func TestCache_SetUntilAndSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(time.Hour).WithClock(func() time.Time { return now })

	c.SetUntil("short", true, now.Add(time.Second))
	c.SetUntil("long", true, now.Add(time.Hour))

	now = now.Add(2 * time.Second)

	if n := c.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept entry, got %d", n)
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatalf("expected long to survive the sweep")
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear")
	}
}

func TestCache_ExpiredReadDoesNotDropFreshWrite(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(time.Hour).WithClock(func() time.Time { return now })

	for i := 0; i < 1000; i++ {
		c.SetUntil("k", i, now.Add(-time.Second))

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Get("k")
		}()
		c.SetUntil("k", i, now.Add(time.Hour))
		<-done

		if _, ok := c.Get("k"); !ok {
			t.Fatalf("iteration %d: fresh entry was deleted by a concurrent expired read", i)
		}
	}
}
