package cache

import (
	"testing"
	"time"

	"line-recipe-bot/internal/infrastructure/config"
)

func newTestManager(t *testing.T, size int, ttl time.Duration) *CacheManager {
	t.Helper()
	m := NewManager(config.CacheConfig{Enabled: true, MaxSize: size, TTL: ttl, CleanupInterval: time.Hour})
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewManagerDisabled(t *testing.T) {
	if m := NewManager(config.CacheConfig{Enabled: false}); m != nil {
		t.Fatalf("expected nil manager when disabled")
	}
}

func TestGetSet(t *testing.T) {
	m := newTestManager(t, 10, time.Hour)
	key := Key("system", "tomato, egg")

	if _, ok := m.Get(key); ok {
		t.Fatalf("expected miss")
	}
	m.Set(key, "番茄、雞蛋")
	v, ok := m.Get(key)
	if !ok || v != "番茄、雞蛋" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	stats := m.GetStats()
	if stats["hits"].(int64) != 1 || stats["misses"].(int64) != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestExpiredEntryMisses(t *testing.T) {
	m := newTestManager(t, 10, time.Millisecond)
	m.Set("k", "v")
	time.Sleep(5 * time.Millisecond)
	if _, ok := m.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestEvictsLeastUsedWhenFull(t *testing.T) {
	m := newTestManager(t, 2, time.Hour)
	m.Set("a", "1")
	m.Set("b", "2")
	m.Get("a")
	m.Set("c", "3")

	if _, ok := m.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := m.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
	if _, ok := m.Get("c"); !ok {
		t.Fatalf("expected c to be stored")
	}
}

func TestKeySeparatesParts(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatalf("keys should differ when parts differ")
	}
}
