// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package cache provides high-performance data structures for bounding
// resource usage. These implementations are optimized for the challenge
// lifecycle access patterns used in TrustGate.
package cache

import (
	"sync"
	"time"
)

// ttlEntry represents an entry in the TTL index.
type ttlEntry struct {
	key       string
	prev      *ttlEntry
	next      *ttlEntry
	expiresAt time.Time
}

// TTLIndex implements a thread-safe Least Recently Used index with per-entry
// TTL support. It tracks live keys so that a bounded store can evict the
// least recently touched entries in O(1) and reclaim expired ones in bulk.
//
// Key features:
//   - O(1) Touch, Add, Remove operations
//   - O(1) LRU eviction when capacity is reached
//   - Per-entry expiry with lazy expiration
//   - Eviction reporting so the owning store can delete backing records
//
// This implementation uses a doubly-linked list for ordering and a hashmap
// for lookups.
type TTLIndex struct {
	mu sync.RWMutex

	// capacity is the maximum number of entries
	capacity int

	// items maps keys to linked list nodes for O(1) lookup
	items map[string]*ttlEntry

	// head and tail are sentinel nodes for the doubly-linked list
	// head.next is the most recently used, tail.prev is the least recently used
	head *ttlEntry
	tail *ttlEntry
}

// NewTTLIndex creates a new TTL index with the specified capacity.
func NewTTLIndex(capacity int) *TTLIndex {
	if capacity <= 0 {
		capacity = 10000 // Default capacity
	}

	c := &TTLIndex{
		capacity: capacity,
		items:    make(map[string]*ttlEntry, capacity),
		head:     &ttlEntry{},
		tail:     &ttlEntry{},
	}

	// Initialize linked list sentinels
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Add registers a key with its expiry time. If the index is at capacity the
// least recently used entries are evicted; their keys are returned so the
// caller can delete the backing records.
func (c *TTLIndex) Add(key string, expiresAt time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return nil
	}

	entry := &ttlEntry{
		key:       key,
		expiresAt: expiresAt,
	}

	c.addToFront(entry)
	c.items[key] = entry

	var evicted []string
	for len(c.items) > c.capacity {
		if key, ok := c.evictOldest(); ok {
			evicted = append(evicted, key)
		}
	}
	return evicted
}

// Touch marks a key as recently used.
// Returns false if the key is absent or expired; expired entries are removed.
func (c *TTLIndex) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeEntry(entry)
		return false
	}

	c.moveToFront(entry)
	return true
}

// Contains checks if a key exists and is not expired without updating
// access order.
func (c *TTLIndex) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, exists := c.items[key]; exists {
		return !time.Now().After(entry.expiresAt)
	}
	return false
}

// Remove removes a key from the index.
// Returns true if the key was found and removed.
func (c *TTLIndex) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the current number of entries in the index.
func (c *TTLIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries from the index.
func (c *TTLIndex) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*ttlEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes all expired entries and returns their keys so the
// caller can delete the backing records.
func (c *TTLIndex) CleanupExpired() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var removed []string

	// Walk from tail (oldest) to head (newest)
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed = append(removed, entry.key)
		}
		entry = prev
	}

	return removed
}

// Internal methods (must be called with lock held)

// addToFront adds an entry to the front of the list (most recently used).
func (c *TTLIndex) addToFront(entry *ttlEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

// moveToFront moves an existing entry to the front of the list.
func (c *TTLIndex) moveToFront(entry *ttlEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev

	c.addToFront(entry)
}

// removeEntry removes an entry from both the list and the map.
func (c *TTLIndex) removeEntry(entry *ttlEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev

	delete(c.items, entry.key)
}

// evictOldest removes the least recently used entry.
func (c *TTLIndex) evictOldest() (string, bool) {
	oldest := c.tail.prev
	if oldest == c.head {
		return "", false // List is empty
	}
	c.removeEntry(oldest)
	return oldest.key, true
}
