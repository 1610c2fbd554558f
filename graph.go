package entrygraph

// Graph is the ambient container spec §4.3 calls the "parent slot":
// a single dynamically-scoped cell holding whichever Entry is
// currently recomputing, so that any Entry.Recompute or Dep.Touch
// called during that recomputation can register itself as a child of
// the right parent without either side passing a context argument.
// Grounded on reactively.ReactiveContext and pkg/flimsy's
// wrap()/ReactiveContext pair: both retrieved teacher variants keep
// exactly one mutable "current" cell per independent reactive system,
// swapped via save/restore around each computation rather than a bare
// global, which is why this is a value attached to Wrap/NewDep rather
// than a package-level variable holding the slot data itself.
type Graph struct {
	current *Entry

	// gen is the monotonic slot-id spec §4.3/§5 require: withValue
	// bumps it before installing next, and its deferred restore panics
	// if gen no longer matches the value it bumped to. Two goroutines
	// racing withValue on the same Graph will always disagree about
	// gen by the time the first one's defer runs, since the second
	// one's own withValue bumps it again first; this turns that race
	// into a loud panic instead of one goroutine's defer silently
	// restoring current out from under the other.
	gen uint64

	// dirtyCaches tracks every cleaner (Wrapper) that has served a Call,
	// and so written to its cache, since the last quiescent point, so cleanIfQuiescent can call Clean on all of them, not
	// just the caller's own cache, matching spec §4.5's "every cache
	// that has seen a write since the last quiescent point."
	dirtyCaches map[cleaner]struct{}
}

// cleaner is implemented by Wrapper so Graph can fan out the
// quiescent-point cleanup spec §4.5 describes across every cache
// sharing this Graph.
type cleaner interface {
	Clean()
}

// NewGraph constructs an independent ambient parent slot. Tests that
// want isolation from DefaultGraph construct their own via
// WithGraph/WithDepGraph.
func NewGraph() *Graph {
	return &Graph{dirtyCaches: make(map[cleaner]struct{})}
}

// DefaultGraph is the ambient slot Wrap and NewDep attach to unless an
// explicit WithGraph/WithDepGraph option says otherwise. It lets
// independent Wrapper instances observe each other's registrations,
// matching the spec's two-layer scenarios where separate top-level
// wraps must still see dependencies tracked through one shared
// ambient cell.
var DefaultGraph = NewGraph()

// parent returns the Entry currently recomputing on this Graph, or
// nil if none is (i.e. we are at a quiescent point).
func (g *Graph) parent() *Entry {
	return g.current
}

// GetValue implements spec §4.3's ParentSlot.get_value: the installed
// Entry, or (nil, false) if the slot is empty.
func (g *Graph) GetValue() (*Entry, bool) {
	if g.current == nil {
		return nil, false
	}
	return g.current, true
}

// HasValue implements ParentSlot.has_value: a boolean test without
// constructing an Option.
func (g *Graph) HasValue() bool {
	return g.current != nil
}

// WithValue implements ParentSlot.with_value: install next for the
// duration of fn, restoring the prior value on every exit path
// (including panics), matching pkg/flimsy's wrap() save/restore idiom.
func (g *Graph) WithValue(next *Entry, fn func()) {
	g.withValue(next, fn)
}

// ParentSlot exposes a Graph's ambient parent cell through the narrow
// get/has/with interface named in spec §6 ("a parentEntrySlot-shaped
// slot primitive, exposed by some implementations"), for callers that
// want to inspect or drive the slot directly rather than going through
// Wrap/Dep.
type ParentSlot struct{ g *Graph }

// Slot returns the ParentSlot view of g.
func (g *Graph) Slot() ParentSlot { return ParentSlot{g: g} }

func (s ParentSlot) GetValue() (*Entry, bool) { return s.g.GetValue() }
func (s ParentSlot) HasValue() bool           { return s.g.HasValue() }
func (s ParentSlot) WithValue(next *Entry, fn func()) {
	s.g.WithValue(next, fn)
}

// DefaultParentSlot is the ParentSlot view of DefaultGraph.
var DefaultParentSlot = DefaultGraph.Slot()

// withValue saves the current parent slot value, installs next for
// the duration of fn, and restores the saved value afterward even if
// fn panics, matching flimsy's wrap() save/restore-under-defer idiom
// in flimsy/root.go. It also bumps Graph.gen around the call and
// checks it on the way back out: the parent slot is only ever meant
// to be driven by one goroutine's call stack at a time (spec §4.3/§5),
// and a second goroutine calling withValue concurrently on the same
// Graph would otherwise corrupt current silently rather than fail
// loudly.
func (g *Graph) withValue(next *Entry, fn func()) {
	saved := g.current
	savedGen := g.gen
	g.gen++
	myGen := g.gen
	g.current = next
	defer func() {
		if g.gen != myGen {
			panic("entrygraph: parent slot mutated by another goroutine while in use; Graph is not safe for concurrent recomputation")
		}
		g.current = saved
		g.gen = savedGen
	}()
	fn()
}

// noContext runs fn with the parent slot cleared, so that any
// Recompute/Touch called inside fn is untracked: it registers no
// dependency edge against whatever entry was previously recomputing.
// Grounded on pkg/flimsy's Untrack.
func (g *Graph) noContext(fn func()) {
	g.withValue(nil, fn)
}

// markCacheDirty records that c produced a write since the last
// quiescent point, so the next cleanIfQuiescent call sweeps it.
func (g *Graph) markCacheDirty(c cleaner) {
	g.dirtyCaches[c] = struct{}{}
}

// cleanIfQuiescent sweeps every dirty cache once the parent slot is
// empty (no recomputation in progress anywhere on this Graph),
// matching spec §4.5's definition of a quiescent point.
func (g *Graph) cleanIfQuiescent() {
	if g.current != nil {
		return
	}
	if len(g.dirtyCaches) == 0 {
		return
	}
	caches := g.dirtyCaches
	g.dirtyCaches = make(map[cleaner]struct{})
	for c := range caches {
		c.Clean()
	}
}
