package entrygraph

import (
	"github.com/delaneyj/entrygraph/entrylru"
	"github.com/delaneyj/entrygraph/keytrie"
)

// DefaultMax is the LRU capacity a Wrapper uses unless WithMax says
// otherwise, per spec §4.5's option table ("max: LRU capacity; default
// 2^16").
const DefaultMax = 1 << 16

// WrapOptions is the frozen snapshot of a Wrapper's configuration,
// returned by Wrapper.Options per spec §6.
type WrapOptions[Args, T any] struct {
	Max          int
	KeyArgs      func(Args) []any
	MakeCacheKey func(keyArgs []any) any
	Subscribe    func(Args) (func(), error)
	UseWeakKeys  bool
	Graph        *Graph
	Name         string
	Disposable   bool
}

// WrapOption configures a Wrapper at construction time, following the
// functional-options idiom SPEC_FULL.md §4.5 names explicitly
// (WithMax, WithKeyArgs, WithMakeCacheKey, WithSubscribe,
// WithWeakKeys).
type WrapOption[Args, T any] func(*WrapOptions[Args, T])

// WithMax overrides the LRU capacity.
func WithMax[Args, T any](max int) WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.Max = max }
}

// WithKeyArgs overrides how call arguments are transformed into key
// arguments before MakeCacheKey sees them; default is identity
// (the whole Args value as the sole key argument).
func WithKeyArgs[Args, T any](fn func(Args) []any) WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.KeyArgs = fn }
}

// WithMakeCacheKey overrides key derivation; default is a shared
// keytrie.Trie lookup over the key arguments. Returning nil from fn
// opts a particular call out of caching entirely (spec §4.5: "if key
// is undefined, skip caching entirely and just call fn").
func WithMakeCacheKey[Args, T any](fn func(keyArgs []any) any) WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.MakeCacheKey = fn }
}

// WithSubscribe installs a per-entry subscription factory (spec
// §4.4.6): called after each successful recomputation, it returns a
// disposer invoked before the next subscribe attempt, on Dirty, or on
// disposal.
func WithSubscribe[Args, T any](fn func(Args) (func(), error)) WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.Subscribe = fn }
}

// WithWeakKeys requests weak key retention for pointer/interface-kind
// key arguments, per spec §4.2/§9.
func WithWeakKeys[Args, T any]() WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.UseWeakKeys = true }
}

// WithGraph binds the Wrapper to a non-default Graph, so its entries
// only ever attach to parents recomputing on that same Graph.
func WithGraph[Args, T any](g *Graph) WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.Graph = g }
}

// WithName attaches a diagnostic name, surfaced in
// RecursiveDependencyError.
func WithName[Args, T any](name string) WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.Name = name }
}

// WithDisposable marks every entry this Wrapper creates as disposable:
// once an entry's parent set becomes empty after a recomputation, it
// is forgotten immediately rather than waiting for LRU pressure (spec
// §4.4.7).
func WithDisposable[Args, T any]() WrapOption[Args, T] {
	return func(o *WrapOptions[Args, T]) { o.Disposable = true }
}

// Wrapper is the façade spec §4.5 describes: given a function and
// options, a callable wrapper plus control methods. It owns the entry
// cache (an entrylru.Cache keyed by whatever MakeCacheKey produces)
// and the dirtyChildren set pool shared by every entry it creates.
type Wrapper[Args, T any] struct {
	opts  WrapOptions[Args, T]
	graph *Graph
	fn    func(Args) (T, error)
	cache *entrylru.Cache[any, *Entry]
	pool  *setPool
}

// Wrap wraps fn in a memoizing, dependency-tracking cache.
func Wrap[Args, T any](fn func(Args) (T, error), opts ...WrapOption[Args, T]) *Wrapper[Args, T] {
	o := WrapOptions[Args, T]{
		Max: DefaultMax,
		KeyArgs: func(a Args) []any {
			return []any{a}
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Graph == nil {
		o.Graph = DefaultGraph
	}
	if o.MakeCacheKey == nil {
		trie := keytrie.New(o.UseWeakKeys)
		o.MakeCacheKey = func(keyArgs []any) any { return trie.LookupArray(keyArgs) }
	}

	w := &Wrapper[Args, T]{
		opts:  o,
		graph: o.Graph,
		fn:    fn,
		pool:  newSetPool(),
	}
	w.cache = entrylru.New[any, *Entry](o.Max, func(_ any, e *Entry) {
		e.Dispose()
	})
	return w
}

// Call invokes the wrapper: compute the key, look up or create an
// entry, recompute it per spec §4.4.4, and sweep every cache that has
// seen a write since the last quiescent point once the parent slot
// empties back out (spec §4.5).
func (w *Wrapper[Args, T]) Call(args Args) (T, error) {
	keyArgs := w.opts.KeyArgs(args)
	key := w.opts.MakeCacheKey(keyArgs)
	if key == nil {
		return w.fn(args)
	}

	entry, existed := w.cache.Get(key)
	// A disposed entry still in the cache (Dep.Dirty with
	// DirtyMethodDispose) is replaced by a fresh one, so the next Call
	// recomputes instead of returning DisposedError.
	if !existed || entry.disposed {
		entry = newEntry(w.graph, w.opts.Name, w.erasedFn(), w.erasedSubscribe(), w.pool)
		// forgetSelf is wired unconditionally so Dep.Dirty's
		// DirtyMethodForget (spec §4.6) can forget any Wrapper-owned
		// entry; disposable/onOrphaned stays opt-in, since that pair
		// controls the automatic §4.4.7 eviction-on-orphan behavior,
		// a separate concern from forced forgetting on demand.
		entry.forgetSelf = func(*Entry) { w.cache.Delete(key) }
		if w.opts.Disposable {
			entry.disposable = true
			entry.onOrphaned = entry.forgetSelf
		}
		w.cache.Set(key, entry)
	}

	val, err := entry.Recompute(args)

	// Re-promote to MRU: the entry may have just spent a long time
	// recomputing, during which other entries could have been touched.
	w.cache.Set(key, entry)
	w.graph.markCacheDirty(w)

	if !w.graph.HasValue() {
		w.graph.cleanIfQuiescent()
	}

	return w.assertResult(val, err)
}

// Dirty marks the entry for args dirty, per spec §4.5.
func (w *Wrapper[Args, T]) Dirty(args Args) {
	w.DirtyKey(w.GetKey(args))
}

// DirtyKey is Dirty with key derivation already done.
func (w *Wrapper[Args, T]) DirtyKey(key any) {
	if e, ok := w.cache.Peek(key); ok {
		e.SetDirty()
	}
}

// Peek returns the entry's cached value for args without recomputing
// and without registering a parent edge.
func (w *Wrapper[Args, T]) Peek(args Args) (T, bool) {
	return w.PeekKey(w.GetKey(args))
}

// PeekKey is Peek with key derivation already done.
func (w *Wrapper[Args, T]) PeekKey(key any) (T, bool) {
	e, ok := w.cache.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	v, known := e.Peek()
	if !known {
		var zero T
		return zero, false
	}
	t, _ := v.(T)
	return t, true
}

// Forget evicts the entry for args (triggering disposal).
func (w *Wrapper[Args, T]) Forget(args Args) {
	w.ForgetKey(w.GetKey(args))
}

// ForgetKey is Forget with key derivation already done.
func (w *Wrapper[Args, T]) ForgetKey(key any) {
	w.cache.Delete(key)
}

// GetKey derives the cache key for args without touching the cache.
func (w *Wrapper[Args, T]) GetKey(args Args) any {
	return w.opts.MakeCacheKey(w.opts.KeyArgs(args))
}

// MakeCacheKey exposes the configured key-derivation function directly
// (spec §6's default_make_cache_key / .make_cache_key).
func (w *Wrapper[Args, T]) MakeCacheKey(keyArgs []any) any {
	return w.opts.MakeCacheKey(keyArgs)
}

// Size reports the current entry count.
func (w *Wrapper[Args, T]) Size() int {
	return w.cache.Len()
}

// Options returns a copy of the Wrapper's configuration.
func (w *Wrapper[Args, T]) Options() WrapOptions[Args, T] {
	return w.opts
}

// PoolStats reports the Wrapper's private dirtyChildren set-pool
// hit/miss counters (SPEC_FULL.md §9's pool-metrics supplement).
func (w *Wrapper[Args, T]) PoolStats() PoolStats {
	return w.pool.stats()
}

// Clean evicts down to Max entries, matching the entrylru.Cache
// contract. Exported so Wrapper satisfies Graph's cleaner interface
// (quiescent-point sweeping, spec §4.5).
func (w *Wrapper[Args, T]) Clean() {
	w.cache.Clean()
}

func (w *Wrapper[Args, T]) erasedFn() entryFunc {
	return func(args any) (any, error) {
		return w.fn(args.(Args))
	}
}

func (w *Wrapper[Args, T]) erasedSubscribe() subscribeFunc {
	if w.opts.Subscribe == nil {
		return nil
	}
	return func(args any) (func(), error) {
		return w.opts.Subscribe(args.(Args))
	}
}

func (w *Wrapper[Args, T]) assertResult(val any, err error) (T, error) {
	if val == nil {
		var zero T
		return zero, err
	}
	t, _ := val.(T)
	return t, err
}

// DefaultMakeCacheKey derives a cache key from args using a
// process-wide default trie shared by any caller that wants the same
// tuple-identity semantics Wrap itself defaults to, without
// constructing a Wrapper (spec §6).
func DefaultMakeCacheKey(args ...any) any {
	return defaultTrie.Lookup(args...)
}

var defaultTrie = keytrie.New(false)
