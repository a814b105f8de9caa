// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package cache provides an in-memory hot layer in front of the durable
// DuckDB item cache. Resolution bursts within one recommendation run (and
// across runs of users with overlapping taste) hit the same items
// repeatedly; the LRU absorbs those hits without a database round trip.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/reelsense/internal/models"
)

// lruEntry is a node of the doubly-linked recency list.
type lruEntry struct {
	key       string
	item      models.ResolvedItem
	prev      *lruEntry
	next      *lruEntry
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used item cache with TTL support.
// Get, Add, and eviction are all O(1): a hashmap provides lookup and a
// doubly-linked list tracks recency. Expired entries are removed lazily on
// access.
type LRU struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	items map[string]*lruEntry

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry
	tail *lruEntry

	hits   int64
	misses int64
}

// NewLRU creates an LRU item cache with the given capacity and TTL.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 4096
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRU{
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

// itemKey builds the cache key for one item.
func itemKey(id int64, mediaType models.MediaType) string {
	return fmt.Sprintf("%s:%d", mediaType, id)
}

// Get retrieves an item, refreshing its recency. Expired entries count as
// misses and are removed.
func (c *LRU) Get(id int64, mediaType models.MediaType) (models.ResolvedItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[itemKey(id, mediaType)]
	if !exists {
		c.misses++
		return models.ResolvedItem{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return models.ResolvedItem{}, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.item, true
}

// Add inserts or refreshes an item. At capacity, the least recently used
// entry is evicted.
func (c *LRU) Add(item models.ResolvedItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := itemKey(item.ItemID, item.MediaType)
	if entry, exists := c.items[key]; exists {
		entry.item = item
		entry.expiresAt = time.Now().Add(c.ttl)
		c.moveToFront(entry)
		return
	}

	if len(c.items) >= c.capacity {
		c.removeEntry(c.tail.prev)
	}

	entry := &lruEntry{
		key:       key,
		item:      item,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = entry
	c.insertAtFront(entry)
}

// Len returns the number of live entries, including any not yet lazily
// expired.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cumulative hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU) insertAtFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.insertAtFront(entry)
}

func (c *LRU) removeEntry(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
