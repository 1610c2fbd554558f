package entrygraph

import (
	"fmt"
)

// DirtyMethod selects how Dep.Dirty propagates to each member entry,
// per spec §4.6: "invoke one of setDirty (default), dispose, or
// forget".
type DirtyMethod int

const (
	// DirtyMethodSetDirty marks the member entry dirty (the default).
	DirtyMethodSetDirty DirtyMethod = iota
	// DirtyMethodDispose disposes the member entry outright.
	DirtyMethodDispose
	// DirtyMethodForget evicts the member entry from its owning
	// Wrapper's cache outright (working on any Wrapper-owned entry,
	// not only ones built WithDisposable), falling back to
	// DirtyMethodSetDirty for entries with no owning Wrapper.
	DirtyMethodForget
)

// depSubscribeFunc is a per-key subscription factory for a Dep.
type depSubscribeFunc[K comparable] func(key K) (func(), error)

// Dep is the keyed dependency leaf of spec §3/§4.6: a mapping from key
// to the set of entries that consulted "the thing identified by this
// key" during their own recomputation, without there being a wrapped
// computation behind the key itself. Grounded on pkg/flimsy's
// Context[T] ambient keyed value combined with Entry's own
// parent-registration machinery, since a Dep key's member set is
// literally "treated as a degenerate entry" per spec.
type Dep[K comparable] struct {
	graph     *Graph
	pool      *setPool
	name      string
	subscribe depSubscribeFunc[K]
	nodes     map[K]*Entry
}

// DepOption configures a Dep at construction time.
type DepOption[K comparable] func(*Dep[K])

// WithDepGraph binds the Dep to a non-default Graph, so its member
// registrations only interact with Wrappers sharing that same Graph.
func WithDepGraph[K comparable](g *Graph) DepOption[K] {
	return func(d *Dep[K]) { d.graph = g }
}

// WithDepName attaches a diagnostic name, used as the prefix of the
// names given to the Dep's per-key nodes.
func WithDepName[K comparable](name string) DepOption[K] {
	return func(d *Dep[K]) { d.name = name }
}

// WithDepSubscribe installs a per-key subscription factory, called
// once when a key's member set transitions from empty to active (its
// first Touch since the last Dirty), per spec §4.6.
func WithDepSubscribe[K comparable](fn func(key K) (func(), error)) DepOption[K] {
	return func(d *Dep[K]) { d.subscribe = fn }
}

// NewDep constructs a Dep bound to DefaultGraph unless WithDepGraph
// says otherwise.
func NewDep[K comparable](opts ...DepOption[K]) *Dep[K] {
	d := &Dep[K]{
		graph: DefaultGraph,
		pool:  newSetPool(),
		nodes: make(map[K]*Entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Touch registers the current parent entry (if any) as depending on
// key. A Touch made outside any Wrapper/recompute call (no current
// parent) is a no-op: there is nothing to register membership for.
func (d *Dep[K]) Touch(key K) {
	parent, ok := d.graph.GetValue()
	if !ok {
		return
	}

	node, existed := d.nodes[key]
	justActivated := false
	if !existed {
		node = newEntry(d.graph, fmt.Sprintf("%sdep(%v)", d.namePrefix(), key), nil, nil, d.pool)
		d.nodes[key] = node
		justActivated = true
	}

	node.registerParent(parent)

	if justActivated && d.subscribe != nil {
		disposer, err := d.callSubscribe(key)
		if err == nil {
			node.unsubscribe = disposer
		}
	}
}

func (d *Dep[K]) callSubscribe(key K) (disposer func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entrygraph: dep subscribe panicked: %v", r)
		}
	}()
	return d.subscribe(key)
}

func (d *Dep[K]) namePrefix() string {
	if d.name == "" {
		return ""
	}
	return d.name + ":"
}

// Dirty propagates a change for key to every entry that has Touch-ed
// it since the last Dirty, using method (defaulting to
// DirtyMethodSetDirty), then discards the key's member set and fires
// its unsubscribe — so the next Touch for key starts a fresh set,
// matching spec §4.6/§3: "removes the set (so subsequent reads
// re-register freshly)".
func (d *Dep[K]) Dirty(key K, method ...DirtyMethod) {
	node, ok := d.nodes[key]
	if !ok {
		return
	}
	delete(d.nodes, key)

	m := DirtyMethodSetDirty
	if len(method) > 0 {
		m = method[0]
	}

	for _, p := range node.parents.ToSlice() {
		switch m {
		case DirtyMethodDispose:
			p.Dispose()
		case DirtyMethodForget:
			if p.forgetSelf != nil {
				p.forgetSelf(p)
			} else {
				p.setDirty()
			}
		default:
			p.setDirty()
		}
	}

	node.fireUnsubscribe()
}

// KeyCount reports the number of currently active keys (those with at
// least one Touch since construction or the last Dirty), a testing aid
// per spec §4.6.
func (d *Dep[K]) KeyCount() int {
	return len(d.nodes)
}
