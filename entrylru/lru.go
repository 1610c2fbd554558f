// Package entrylru is the bounded LRU container spec §4.1 describes at
// its interface: a size-bounded ordered mapping from cache-key to
// value, with O(1) get/set/delete, recency promotion on access, and a
// dispose callback fired synchronously on eviction (by Delete or the
// size-bound sweep).
//
// Rather than hand-rolling the doubly-linked-list + map the spec
// sketches, this is a thin adapter over
// github.com/hashicorp/golang-lru/v2/simplelru, which already provides
// exactly that contract (NewLRU(size, onEvict), Add/Get/Remove/Purge,
// synchronous eviction callback fired before the key is fully detached
// from the map). Cross-pack grounding: the retrieved pack carries this
// same dependency as an indirect of
// on-the-ground-effect_ive_go/examples/cached_database/go.mod; see
// DESIGN.md.
//
// The underlying simplelru.LRU is constructed with an effectively
// unbounded capacity and never asked to enforce `max` itself: Add would
// otherwise evict the oldest entry synchronously on every insert past
// capacity, which could fire mid-recomputation and evict an entry still
// live on the call stack. SPEC_FULL.md §5's "Shared-resource policy"
// requires eviction to wait for a quiescent point; only Clean trims
// down to max, and Wrapper only calls Clean once the parent slot is
// empty.
package entrylru

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// unboundedCapacity is handed to simplelru so Add never auto-evicts;
// only Clean enforces max.
const unboundedCapacity = math.MaxInt32

// DisposeFunc is called exactly once per entry removed from the cache,
// whether by Delete or Clean.
type DisposeFunc[K comparable, V any] func(key K, value V)

// Cache is a size-bounded, MRU-promoting map from K to V. Size is only
// ever enforced by Clean, never by Set.
type Cache[K comparable, V any] struct {
	lru *simplelru.LRU[K, V]
	max int
}

// New constructs a Cache capped at max entries. dispose may be nil.
func New[K comparable, V any](max int, dispose DisposeFunc[K, V]) *Cache[K, V] {
	if max <= 0 {
		max = 1
	}
	var onEvict simplelru.EvictCallback[K, V]
	if dispose != nil {
		onEvict = func(key K, value V) { dispose(key, value) }
	}
	lru, err := simplelru.NewLRU[K, V](unboundedCapacity, onEvict)
	if err != nil {
		// Only returns an error for size <= 0, already guarded above.
		panic(err)
	}
	return &Cache[K, V]{lru: lru, max: max}
}

// Has reports whether key is present, without promoting it.
func (c *Cache[K, V]) Has(key K) bool {
	return c.lru.Contains(key)
}

// Get returns key's value and promotes it to MRU.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Peek returns key's value without promoting it.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	return c.lru.Peek(key)
}

// Set inserts or overwrites key's value, promoting it to MRU. The
// underlying store is unbounded, so this never evicts; a cache that
// has grown past max only shrinks back down on the next Clean.
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Delete removes key, firing dispose for it if present. Reports
// whether key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

// Clean evicts the least-recently-used entries, firing dispose for
// each, until the cache size is at or below its configured max. This
// is the only path that ever evicts; Wrapper calls it at a quiescent
// point (parent slot empty) per spec §4.5/§5, so eviction never lands
// on an entry still live on the recomputation stack.
func (c *Cache[K, V]) Clean() {
	for c.lru.Len() > c.max {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			return
		}
	}
}

// Len reports the current number of entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Max reports the configured capacity.
func (c *Cache[K, V]) Max() int {
	return c.max
}

// Resize changes the capacity max enforces. It does not itself evict —
// a shrink only takes effect on the next Clean, consistent with Set's
// deferred-eviction contract.
func (c *Cache[K, V]) Resize(max int) {
	if max <= 0 {
		max = 1
	}
	c.max = max
}

// Keys returns the cache's keys from oldest to newest.
func (c *Cache[K, V]) Keys() []K {
	return c.lru.Keys()
}
