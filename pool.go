package entrygraph

import mapset "github.com/deckarep/golang-set/v2"

// setPoolCap bounds how many emptied dirtyChildren sets a setPool keeps
// around for reuse, per spec §5/§9: "a small object pool (cap ~100
// sets); pool is process-local" (here: one pool per Wrapper cache,
// since each Wrapper owns an independent population of entries).
const setPoolCap = 100

// setPool recycles the mapset.Set[*Entry] instances used for an
// Entry's dirtyChildren field. Allocating a new set on every transition
// into "might be dirty" would churn the allocator in hot graphs where
// entries flip dirty/clean constantly; pooling emptied sets avoids
// that at the cost of a small, bounded free list. Grounded on
// pumped-fn-pumped-go/pool_manager.go's sync.Pool-with-metrics idiom
// (read for this spec, not the teacher; see DESIGN.md), adapted here to
// a plain capped slice since a single Graph is single-threaded and a
// sync.Pool's cross-goroutine machinery would buy nothing.
type setPool struct {
	free []mapset.Set[*Entry]
	hits int
	miss int
}

func newSetPool() *setPool {
	return &setPool{}
}

// get returns an empty, ready-to-use dirtyChildren set, recycling one
// from the free list when available.
func (p *setPool) get() mapset.Set[*Entry] {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		p.hits++
		return s
	}
	p.miss++
	return mapset.NewThreadUnsafeSet[*Entry]()
}

// put returns a set to the free list, up to setPoolCap. put clears the
// set itself, so callers may hand back a set that still has members.
func (p *setPool) put(s mapset.Set[*Entry]) {
	if s == nil || len(p.free) >= setPoolCap {
		return
	}
	s.Clear()
	p.free = append(p.free, s)
}

// PoolStats reports set-pool hit/miss counters for a Wrapper's
// dirtyChildren allocations, per SPEC_FULL.md §9's supplemented
// "pool metrics" feature.
type PoolStats struct {
	Hits   int
	Misses int
}

func (p *setPool) stats() PoolStats {
	return PoolStats{Hits: p.hits, Misses: p.miss}
}
