package entrygraph

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// entryFunc is the type-erased user computation an Entry owns. Wrapper
// closes over the caller's func(Args) (T, error) and adapts it to this
// shape so a single Graph can hold Entry values from differently
// instantiated Wrapper[Args, T] generics side by side (DESIGN.md
// "Dynamic dispatch of user function").
type entryFunc func(args any) (any, error)

// subscribeFunc is the type-erased per-entry subscription factory: it
// receives the entry's current args and returns a disposer, or an
// error if the subscription could not be established.
type subscribeFunc func(args any) (func(), error)

// Entry is the graph node described in spec §3/§4.4: it owns its
// function, its last arguments, its cached value (or error), its
// parent set, its child→last-observed-value map, its dirty-child set,
// and its optional subscription. Grounded on reactively.Reactive[T]'s
// state machine (CacheClean/CacheCheck/CacheDirty collapses onto
// dirty+dirtyChildren here) and alien's propagate/checkDirty pooled
// dirty-set walk for the upward notification machinery.
type Entry struct {
	graph *Graph
	name  string
	pool  *setPool

	fn        entryFunc
	args      any
	value     entryValue
	dirty     bool
	recomputing bool
	disposed  bool

	// disposable marks an entry the owner doesn't care to retain once
	// nothing depends on it any more (spec §4.4.7 "orphan reporting");
	// onOrphaned is only ever invoked automatically, the moment the
	// entry's parent set becomes empty.
	disposable bool
	onOrphaned func(*Entry)

	// forgetSelf, when the entry is owned by a Wrapper, evicts it from
	// that Wrapper's LRU (triggering Dispose). Unlike onOrphaned, this
	// is set on every Wrapper-owned entry regardless of the Disposable
	// option, so that Dep.Dirty's DirtyMethodForget (spec §4.6: "invoke
	// one of setDirty (default), dispose, or forget") works uniformly
	// rather than only on entries that opted into automatic orphan
	// eviction.
	forgetSelf func(*Entry)

	parents       mapset.Set[*Entry]
	childValues   map[*Entry]entryValue
	dirtyChildren mapset.Set[*Entry]

	subscribe   subscribeFunc
	unsubscribe func()
}

// newEntry constructs a fresh, never-computed Entry bound to g. fn may
// be nil for a Dep's key-node, which never recomputes itself but
// otherwise participates in the same parent/child edge machinery
// (spec §4.6 "the set is treated as a degenerate entry").
func newEntry(g *Graph, name string, fn entryFunc, sub subscribeFunc, pool *setPool) *Entry {
	return &Entry{
		graph:       g,
		name:        name,
		pool:        pool,
		fn:          fn,
		subscribe:   sub,
		dirty:       fn != nil, // freshly created computed entries start dirty; Dep nodes start clean
		parents:     mapset.NewThreadUnsafeSet[*Entry](),
		childValues: make(map[*Entry]entryValue),
	}
}

// mightBeDirty implements the glossary term: explicitly dirty, or
// having at least one child that is might-be-dirty (tracked via
// dirtyChildren, which only ever holds might-be-dirty children).
func (e *Entry) mightBeDirty() bool {
	return e.dirty || (e.dirtyChildren != nil && e.dirtyChildren.Cardinality() > 0)
}

// Recompute is the Entry half of Wrapper.Call / the transparent
// dirty-child walk: it updates args, registers this entry as a child
// of whatever entry is the current parent, then resolves and returns a
// value per the decision procedure in §4.4.4.
func (e *Entry) Recompute(args any) (any, error) {
	// A disposed entry (evicted or explicitly forgotten) must never be
	// recomputed back to life through a stale reference — callers that
	// still hold one get a typed error instead of silently reanimating
	// graph state that the cache no longer tracks.
	if e.disposed {
		return nil, &DisposedError{Name: e.name}
	}
	// Checked first, before touching args/registration: a reentrant
	// call (direct self-recursion, or an indirect cycle closing back
	// through this entry while it is still on the stack) must not
	// register a self-referential parent/child edge, which would make
	// the upward clean/dirty propagation walks in registerParent loop
	// forever. Catching it here, ahead of any graph mutation, is what
	// keeps the guard in realRecompute (§4.4.5 step 1) reachable only
	// for entries that are not already on the call stack.
	if e.recomputing {
		return nil, &RecursiveDependencyError{Name: e.name}
	}
	e.args = args
	if p := e.graph.parent(); p != nil {
		e.registerParent(p)
	}
	return e.pull()
}

// registerParent implements spec §4.4.2: insert e into p.childValues
// (Unknown if new), add p to e.parents, then notify p with whichever
// of reportDirtyChild/reportCleanChild matches e's current state. This
// runs BEFORE e's own decision procedure, so the notification reflects
// e's state as of the previous quiescent point; e's own recomputation
// (if any) corrects that notification via setClean's reportCleanChild
// call once it finishes.
func (e *Entry) registerParent(p *Entry) {
	if _, exists := p.childValues[e]; !exists {
		p.childValues[e] = entryValue{}
	}
	e.parents.Add(p)
	if e.mightBeDirty() {
		reportDirtyChild(p, e)
	} else {
		reportCleanChild(p, e)
	}
}

// reportDirtyChild adds c to p.dirtyChildren and, only on c's first
// appearance there, recurses upward to every one of p's own parents
// (spec §4.4.2/§4.4.3: "a node becoming might-be-dirty for the first
// time pushes one notification; subsequent dirtifications of the same
// node do not re-notify").
func reportDirtyChild(p, c *Entry) {
	if p.dirtyChildren == nil {
		p.dirtyChildren = p.pool.get()
	}
	if p.dirtyChildren.Contains(c) {
		return
	}
	p.dirtyChildren.Add(c)
	p.parents.Each(func(p2 *Entry) bool {
		reportDirtyChild(p2, p)
		return false
	})
}

// reportCleanChild implements spec §4.4.2's clean-propagation half.
// Precondition: c is not might-be-dirty.
func reportCleanChild(p, c *Entry) {
	cv, seen := p.childValues[c]
	switch {
	case !seen || !cv.isKnown():
		p.childValues[c] = c.value
	case !cv.equals(c.value):
		p.childValues[c] = c.value
		p.setDirty()
	}

	if p.dirtyChildren != nil {
		p.dirtyChildren.Remove(c)
	}

	if p.mightBeDirty() {
		return
	}
	if p.dirtyChildren != nil && p.dirtyChildren.Cardinality() == 0 {
		p.pool.put(p.dirtyChildren)
		p.dirtyChildren = nil
	}
	p.parents.Each(func(p2 *Entry) bool {
		reportCleanChild(p2, p)
		return false
	})
}

// pull implements the decision procedure of spec §4.4.4 without
// registering any parent edge: it is used both by the public Recompute
// (after registration has already happened) and by the transparent
// dirty-child walk, which must not attribute a new parent to children
// that are already linked to this entry.
func (e *Entry) pull() (any, error) {
	// The recursion guard is checked here, not only inside
	// realRecompute: realRecompute clears dirty before invoking fn (see
	// below) precisely so a reentrant SetDirty during fn is observable,
	// which means a self-referential call reaching pull() while this
	// entry is on the stack would otherwise see dirty=false and silently
	// return the stale cached value instead of detecting the cycle.
	if e.recomputing {
		return nil, &RecursiveDependencyError{Name: e.name}
	}
	if e.dirty {
		return e.realRecompute()
	}
	if e.dirtyChildren != nil && e.dirtyChildren.Cardinality() > 0 {
		for _, c := range e.dirtyChildren.ToSlice() {
			if _, err := c.pull(); err != nil {
				e.dirty = true
			}
		}
		if e.dirty {
			return e.realRecompute()
		}
	}
	return e.value.ok, e.value.err
}

// realRecompute implements spec §4.4.5.
func (e *Entry) realRecompute() (any, error) {
	if e.recomputing {
		return nil, &RecursiveDependencyError{Name: e.name}
	}
	e.recomputing = true
	defer func() { e.recomputing = false }()

	former := e.forgetChildren()
	e.dirty = false

	var result any
	var ferr error
	e.graph.withValue(e, func() {
		result, ferr = e.fn(e.args)
	})

	if ferr != nil {
		e.value = entryValue{state: valueErr, err: ferr}
	} else {
		e.value = entryValue{state: valueOk, ok: result}
	}

	if subErr := e.runSubscribe(); subErr != nil {
		e.dirty = true
	} else if !e.mightBeDirty() {
		e.setClean()
	}

	e.reportOrphans(former)

	return result, ferr
}

// setClean fires the upward "clean child" notification to every
// current parent. Callers must already have established that e itself
// is not might-be-dirty.
func (e *Entry) setClean() {
	e.parents.Each(func(p *Entry) bool {
		reportCleanChild(p, e)
		return false
	})
}

// forgetChildren severs this entry from every child it currently
// observes (step 2 of §4.4.5: "during recomputation the user function
// may consult a different set of dependencies; old ones must not
// persist"), returning the former children for orphan reporting.
func (e *Entry) forgetChildren() []*Entry {
	former := make([]*Entry, 0, len(e.childValues))
	for c := range e.childValues {
		former = append(former, c)
		c.parents.Remove(e)
	}
	e.childValues = make(map[*Entry]entryValue)
	if e.dirtyChildren != nil {
		e.pool.put(e.dirtyChildren)
		e.dirtyChildren = nil
	}
	return former
}

// reportOrphans implements spec §4.4.7: a disposable child whose
// parent set just became empty is forgotten immediately rather than
// waiting for LRU pressure.
func (e *Entry) reportOrphans(former []*Entry) {
	for _, c := range former {
		if c.disposable && c.parents.Cardinality() == 0 && c.onOrphaned != nil {
			c.onOrphaned(c)
		}
	}
}

// runSubscribe implements spec §4.4.6: fire the previous unsubscribe
// first, then call subscribe(args); a panic or error from either is
// recovered and reported as "subscribe failed" rather than allowed to
// escape Recompute, matching §7's "subscription failure ... no error
// is surfaced" to the caller.
func (e *Entry) runSubscribe() (err error) {
	if e.subscribe == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entrygraph: subscribe panicked: %v", r)
		}
	}()

	if e.unsubscribe != nil {
		u := e.unsubscribe
		e.unsubscribe = nil
		u()
	}

	disposer, serr := e.subscribe(e.args)
	if serr != nil {
		return serr
	}
	e.unsubscribe = disposer
	return nil
}

// setDirty implements spec §4.4.1's SetDirty: a no-op if already
// dirty, otherwise marks dirty, clears the cached value, propagates
// "maybe dirty" upward to every current parent, and fires any pending
// unsubscribe (invariant I5).
func (e *Entry) setDirty() {
	if e.dirty {
		return
	}
	e.dirty = true
	e.value = entryValue{}
	e.parents.Each(func(p *Entry) bool {
		reportDirtyChild(p, e)
		return false
	})
	e.fireUnsubscribe()
}

// SetDirty is the exported form of setDirty, used directly by Dep and
// by Wrapper.Dirty/DirtyKey.
func (e *Entry) SetDirty() { e.setDirty() }

func (e *Entry) fireUnsubscribe() {
	if e.unsubscribe == nil {
		return
	}
	u := e.unsubscribe
	e.unsubscribe = nil
	u()
}

// Peek returns the currently cached value without recomputing and
// without registering a parent dependency edge. It reports (nil,
// false) for a disposed, unknown, dirty, or might-be-dirty entry, and
// for one whose cached value is an error (spec §4.4.1: "returns the
// currently cached value if clean and known"). Peek's signature has no
// error arm, so unlike Recompute it cannot surface a DisposedError; the
// disposed case is folded into the same ok=false result as "unknown".
func (e *Entry) Peek() (any, bool) {
	if e.disposed || e.mightBeDirty() || !e.value.isKnown() || e.value.state == valueErr {
		return nil, false
	}
	return e.value.ok, true
}

// Dispose severs all parent and child links, fires unsubscribe, and
// marks each former parent dirty (spec §4.4.1/§3 "Lifecycle"). Per
// DESIGN.md's Open Question 1 decision, disposing an entry that is
// currently mid-recomputation is forbidden outright rather than
// reasoned about for safety.
func (e *Entry) Dispose() {
	if e.recomputing {
		panic("entrygraph: cannot dispose an entry while it is recomputing")
	}
	if e.disposed {
		return
	}
	e.disposed = true

	e.forgetChildren()
	e.fireUnsubscribe()

	parents := e.parents.ToSlice()
	e.parents.Clear()
	for _, p := range parents {
		delete(p.childValues, e)
		if p.dirtyChildren != nil {
			p.dirtyChildren.Remove(e)
		}
		p.setDirty()
	}
}
