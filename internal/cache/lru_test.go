package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4") // evicts key1

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCacheRecentlyUsedSurvives(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3) // evicts b, the least recently used

	if _, found := c.Get("b"); found {
		t.Error("b should have been evicted")
	}
	if v, found := c.Get("a"); !found || v != 1 {
		t.Errorf("a = %v, %v; want 1, true", v, found)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[float64](4, time.Minute).WithClock(func() time.Time { return now })
	c.Set("USD", 1.08)

	if v, found := c.Get("USD"); !found || v != 1.08 {
		t.Fatalf("fresh Get = %v, %v", v, found)
	}

	now = now.Add(2 * time.Minute)
	if _, found := c.Get("USD"); found {
		t.Error("expired entry must not be returned by Get")
	}
	if v, found := c.GetStale("USD"); !found || v != 1.08 {
		t.Errorf("GetStale = %v, %v; want 1.08, true", v, found)
	}

	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if _, found := c.GetStale("USD"); found {
		t.Error("cleaned entry must be gone")
	}
}

func TestManagerCleanNow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](4, time.Second).WithClock(func() time.Time { return now })
	c.Set("a", "x")
	c.Set("b", "y")

	m := NewManager(nil)
	m.Register(c)
	m.Stop() // not started: no-op

	now = now.Add(time.Minute)
	if n := m.CleanNow(); n != 2 {
		t.Errorf("CleanNow() = %d, want 2", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
}
