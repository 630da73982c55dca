package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCacheExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewLRUCache(10, time.Minute,
		WithClock[int](clk.now),
		WithEvictHook(func(key string, _ int, reason EvictReason) { evicted = append(evicted, key+":"+reason.String()) }),
	)

	c.Set("a", 1)
	clk.advance(50 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get() lost a live entry")
	}

	// The read extended the entry's life.
	clk.advance(50 * time.Second)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get() = %d, %v; want 1, true", v, ok)
	}

	clk.advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get() returned an expired entry")
	}
	if len(evicted) != 1 || evicted[0] != "a:expired" {
		t.Errorf("evicted = %v", evicted)
	}
}

func TestLRUCacheCapacity(t *testing.T) {
	var evicted []string
	c := NewLRUCache(2, time.Hour, WithEvictHook(func(key string, _ string, reason EvictReason) {
		evicted = append(evicted, key+":"+reason.String())
	}))

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
	if len(evicted) != 1 || evicted[0] != "b:capacity" {
		t.Errorf("evicted = %v", evicted)
	}
}

func TestLRUCacheCleanAndClear(t *testing.T) {
	clk := &clock{t: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(10, time.Minute, WithClock[int](clk.now))

	c.Set("old", 1)
	clk.advance(30 * time.Second)
	c.Set("new", 2)
	clk.advance(45 * time.Second)

	if got := c.CleanExpired(); got != 1 {
		t.Errorf("CleanExpired() = %d, want 1", got)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("live entry removed by CleanExpired()")
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear() = %d", c.Size())
	}
}
