package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[[]domain.Category](5 * time.Minute)
	defer c.Close()

	c.Set("categories", []domain.Category{{ID: "1", Name: "Food"}})
	val, ok := c.Get("categories")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(val) != 1 || val[0].Name != "Food" {
		t.Errorf("unexpected cached value %+v", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string](time.Minute, cache.WithClock(clock.Now))
	defer c.Close()

	c.Set("key1", "value1")
	clock.Advance(59 * time.Second)
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected entry before ttl")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_Purge(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Purge()

	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Millisecond)
	c.Close()
	c.Close()
}
