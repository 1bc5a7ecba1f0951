// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	cache.Add("ev-a")
	cache.Add("ev-b")
	cache.Add("ev-c")

	if _, found := cache.Get("ev-a"); !found {
		t.Error("Expected to find key 'ev-a'")
	}
	if _, found := cache.Get("ev-b"); !found {
		t.Error("Expected to find key 'ev-b'")
	}
	if !cache.Contains("ev-c") {
		t.Error("Expected Contains to report 'ev-c'")
	}

	if cache.Len() != 3 {
		t.Errorf("Expected len 3, got %d", cache.Len())
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	cache.Add("ev-a")
	cache.Add("ev-b")
	cache.Add("ev-c")

	// Access 'ev-a' to make it most recently used.
	cache.Get("ev-a")

	// Adding a fourth key should evict 'ev-b', the least recently used.
	cache.Add("ev-d")

	if _, found := cache.Get("ev-b"); found {
		t.Error("Expected 'ev-b' to be evicted")
	}

	for _, key := range []string{"ev-a", "ev-c", "ev-d"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("Expected %q to be present", key)
		}
	}
}

func TestLRUCache_TTLExpiration(t *testing.T) {
	cache := NewLRUCache(10, 50*time.Millisecond)

	cache.Add("ev-a")

	if _, found := cache.Get("ev-a"); !found {
		t.Error("Expected to find key 'ev-a' immediately")
	}

	time.Sleep(60 * time.Millisecond)

	if _, found := cache.Get("ev-a"); found {
		t.Error("Expected key 'ev-a' to be expired")
	}
	if cache.Contains("ev-a") {
		t.Error("Expected Contains to report expiry")
	}
}

func TestLRUCache_IsDuplicate(t *testing.T) {
	cache := NewLRUCache(100, time.Minute)

	if cache.IsDuplicate("ev-1") {
		t.Error("First occurrence should not be duplicate")
	}
	if !cache.IsDuplicate("ev-1") {
		t.Error("Second occurrence should be duplicate")
	}
	if cache.IsDuplicate("ev-2") {
		t.Error("Different key should not be duplicate")
	}
}

func TestLRUCache_IsDuplicateAfterExpiry(t *testing.T) {
	cache := NewLRUCache(100, 50*time.Millisecond)

	if cache.IsDuplicate("ev-1") {
		t.Fatal("First occurrence should not be duplicate")
	}

	time.Sleep(60 * time.Millisecond)

	// The window only suppresses replays inside the TTL. An expired key
	// counts as a fresh sighting and the store-level check takes over.
	if cache.IsDuplicate("ev-1") {
		t.Error("Expired key should count as a fresh sighting")
	}
}

func TestLRUCache_Remove(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Add("ev-a")
	cache.Add("ev-b")

	if !cache.Remove("ev-a") {
		t.Error("Expected Remove to return true for existing key")
	}
	if cache.Remove("ev-a") {
		t.Error("Expected Remove to return false for non-existing key")
	}

	if _, found := cache.Get("ev-a"); found {
		t.Error("Expected key 'ev-a' to be removed")
	}
	if _, found := cache.Get("ev-b"); !found {
		t.Error("Expected key 'ev-b' to still be present")
	}
}

func TestLRUCache_Clear(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Add("ev-a")
	cache.Add("ev-b")
	cache.Add("ev-c")

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got len %d", cache.Len())
	}
	if _, found := cache.Get("ev-a"); found {
		t.Error("Expected no items after Clear")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Add("ev-a")
	cache.Get("ev-a")     // hit
	cache.Get("ev-a")     // hit
	cache.Get("nonexist") // miss

	hits, misses, size := cache.Stats()
	if hits != 2 {
		t.Errorf("Expected 2 hits, got %d", hits)
	}
	if misses != 1 {
		t.Errorf("Expected 1 miss, got %d", misses)
	}
	if size != 1 {
		t.Errorf("Expected size 1, got %d", size)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRUCache(1000, time.Minute)

	var wg sync.WaitGroup
	numGoroutines := 50
	numOperations := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("ev-%d", (id+j)%200)
				cache.Add(key)
				cache.Get(key)
				cache.Contains(key)
				cache.IsDuplicate(key)
			}
		}(i)
	}

	wg.Wait()

	// Cache should still be functional.
	cache.Add("test")
	if _, found := cache.Get("test"); !found {
		t.Error("Cache should still work after concurrent access")
	}
}

func TestLRUCache_ReAddRefreshes(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	cache.Add("ev-a")
	first, _ := cache.Get("ev-a")

	time.Sleep(5 * time.Millisecond)
	cache.Add("ev-a")

	if cache.Len() != 1 {
		t.Errorf("Expected len 1 after re-add, got %d", cache.Len())
	}

	second, found := cache.Get("ev-a")
	if !found || !second.After(first) {
		t.Error("Expected re-add to refresh the sighting time")
	}
}

func BenchmarkLRUCache_Add(b *testing.B) {
	cache := NewLRUCache(10000, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Add(fmt.Sprintf("ev-%d", i%5000))
	}
}

func BenchmarkLRUCache_IsDuplicate(b *testing.B) {
	cache := NewLRUCache(10000, time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.IsDuplicate(fmt.Sprintf("ev-%d", i%5000))
	}
}

func BenchmarkLRUCache_Eviction(b *testing.B) {
	cache := NewLRUCache(100, time.Minute)

	for i := 0; i < 100; i++ {
		cache.Add(fmt.Sprintf("ev-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Add(fmt.Sprintf("ev-%d", 1000+i))
	}
}
