package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
)

// MemoryLRU is a byte-budgeted, least-recently-used in-memory store.
//
// A single mutex guards the index, the recency list and the byte counter.
// Get reorders the list, so it is exclusive like every other operation.
type MemoryLRU struct {
	mu        sync.Mutex
	capacity  int64
	used      int64
	evictions uint64
	items     map[CacheKey]*list.Element
	lru       *list.List // front = most recently used
}

// lruItem is the value of each list element.
type lruItem struct {
	key   CacheKey
	entry CachedEntry
	size  int64
}

// StoreStats is a point-in-time view of a MemoryLRU.
type StoreStats struct {
	Entries       int    `json:"entries"`
	UsedBytes     int64  `json:"used_bytes"`
	CapacityBytes int64  `json:"capacity_bytes"`
	Evictions     uint64 `json:"evictions"`
}

var _ Store = (*MemoryLRU)(nil)

// NewMemoryLRU creates a store holding at most capacityBytes of entries.
func NewMemoryLRU(capacityBytes int64) *MemoryLRU {
	if capacityBytes < 0 {
		capacityBytes = 0
	}
	return &MemoryLRU{
		capacity: capacityBytes,
		items:    make(map[CacheKey]*list.Element),
		lru:      list.New(),
	}
}

// Get returns a copy of the entry and marks it most recently used.
func (m *MemoryLRU) Get(ctx context.Context, key CacheKey) (*CachedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	m.lru.MoveToFront(el)
	entry := el.Value.(*lruItem).entry.Clone()
	return &entry, nil
}

// Set inserts or replaces the entry, then evicts from the cold end
// until the store is back within capacity.
func (m *MemoryLRU) Set(ctx context.Context, key CacheKey, entry CachedEntry) error {
	size := entry.Bytes()

	m.mu.Lock()
	defer m.mu.Unlock()

	if size > m.capacity {
		return nil
	}

	stored := entry.Clone()
	if el, ok := m.items[key]; ok {
		item := el.Value.(*lruItem)
		m.used += size - item.size
		item.entry = stored
		item.size = size
		m.lru.MoveToFront(el)
	} else {
		m.items[key] = m.lru.PushFront(&lruItem{key: key, entry: stored, size: size})
		m.used += size
	}

	m.evictLocked()
	CacheSize.WithLabelValues("memory").Set(float64(m.used))
	return nil
}

// Delete removes the entry if present.
func (m *MemoryLRU) Delete(ctx context.Context, key CacheKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.removeLocked(el)
		CacheSize.WithLabelValues("memory").Set(float64(m.used))
	}
	return nil
}

// PurgePrefix removes every entry whose PathAndQuery starts with prefix.
func (m *MemoryLRU) PurgePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for el := m.lru.Front(); el != nil; {
		next := el.Next()
		if strings.HasPrefix(el.Value.(*lruItem).key.PathAndQuery, prefix) {
			m.removeLocked(el)
		}
		el = next
	}
	CacheSize.WithLabelValues("memory").Set(float64(m.used))
	return nil
}

// Stats returns the current entry count, byte usage and eviction count.
func (m *MemoryLRU) Stats() StoreStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return StoreStats{
		Entries:       len(m.items),
		UsedBytes:     m.used,
		CapacityBytes: m.capacity,
		Evictions:     m.evictions,
	}
}

// Len returns the index size and the recency list length.
// They are equal whenever no operation is in progress.
func (m *MemoryLRU) Len() (indexed, listed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), m.lru.Len()
}

// evictLocked drops least recently used entries until used <= capacity.
// Each removal strictly lowers used, so the loop terminates.
func (m *MemoryLRU) evictLocked() {
	for m.used > m.capacity {
		el := m.lru.Back()
		if el == nil {
			return
		}
		m.removeLocked(el)
		m.evictions++
		CacheEvictions.Inc()
	}
}

// removeLocked must be called with m.mu held.
func (m *MemoryLRU) removeLocked(el *list.Element) {
	item := el.Value.(*lruItem)
	delete(m.items, item.key)
	m.lru.Remove(el)
	m.used -= item.size
}
