package cache

import (
	"testing"
	"time"

	"budgetcal/internal/core"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache returned a hit")
	}

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}

	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("overwrite: Get(a) = %q, want 2", v)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d after overwrite, want 1", c.Size())
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a, making b the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned a hit")
	}
	if got := c.Size(); got != 0 {
		t.Errorf("size = %d after expired read, want 0", got)
	}
}

func TestLRUCacheDeleteFunc(t *testing.T) {
	c := NewLRUCache[int](8, time.Minute)

	c.Set(MonthKey("o1", core.NewYearMonth(2024, 5)), 1)
	c.Set(MonthKey("o1", core.NewYearMonth(2024, 6)), 2)
	c.Set(MonthKey("o2", core.NewYearMonth(2024, 5)), 3)

	removed := c.DeleteFunc(OwnerPrefix("o1"))
	if removed != 2 {
		t.Errorf("removed %d entries, want 2", removed)
	}
	if _, ok := c.Get(MonthKey("o2", core.NewYearMonth(2024, 5))); !ok {
		t.Error("other owner's entry was dropped")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](8, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after cleanup, want 0", c.Size())
	}
}
