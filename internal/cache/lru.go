// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package cache

import (
	"sync"
	"time"
)

// lruEntry is a node of the dedupe cache's recency list.
type lruEntry struct {
	key       string
	seenAt    time.Time
	prev      *lruEntry
	next      *lruEntry
	expiresAt time.Time
}

// LRUCache is a thread-safe LRU with TTL, used by the Ingest
// Normalizer to answer "have I seen this eventId recently" without a
// store query. A miss here is not authoritative; the store's unique
// index remains the arbiter.
//
// Operations are O(1): a doubly-linked recency list over a map, with
// lazy TTL expiration.
type LRUCache struct {
	mu sync.RWMutex

	capacity int
	ttl      time.Duration

	// items maps keys to list nodes; head.next is most recently
	// used, tail.prev least.
	items map[string]*lruEntry
	head  *lruEntry
	tail  *lruEntry

	hits   int64
	misses int64
}

// NewLRUCache creates a cache with the given capacity and entry TTL.
// Non-positive arguments fall back to 10000 entries and 5 minutes.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns when the key was first seen and whether it is present
// and unexpired. Found entries become most recently used.
func (c *LRUCache) Get(key string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.misses++
		return time.Time{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return time.Time{}, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.seenAt, true
}

// Contains checks presence without touching recency order.
func (c *LRUCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, exists := c.items[key]; exists {
		return !time.Now().After(entry.expiresAt)
	}
	return false
}

// Add records a key, refreshing its TTL and recency if already
// present. The least recently used entry is evicted at capacity.
func (c *LRUCache) Add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key, time.Now())
}

// IsDuplicate reports whether the key was seen within the TTL and, if
// not, records it. This is the dedupe fast path: one lock hold for
// check-and-set.
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, exists := c.items[key]; exists {
		if !now.After(entry.expiresAt) {
			c.moveToFront(entry)
			c.hits++
			return true
		}
		c.removeEntry(entry)
	}

	c.insert(key, now)
	c.misses++
	return false
}

// Remove deletes a key, reporting whether it was present.
func (c *LRUCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the current number of entries.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns hit/miss counters and the current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}

// insert adds or refreshes a key (lock held).
func (c *LRUCache) insert(key string, now time.Time) {
	if entry, exists := c.items[key]; exists {
		entry.seenAt = now
		entry.expiresAt = now.Add(c.ttl)
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry{key: key, seenAt: now, expiresAt: now.Add(c.ttl)}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// addToFront links an entry as most recently used (lock held).
func (c *LRUCache) addToFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

// moveToFront relinks an existing entry as most recently used (lock held).
func (c *LRUCache) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

// removeEntry unlinks an entry from list and map (lock held).
func (c *LRUCache) removeEntry(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

// evictOldest drops the least recently used entry (lock held).
func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
