package entrygraph

import "time"

// BindContext captures the current parent slot on g and returns a
// wrapper that reinstates it before invoking fn, whenever that wrapper
// is eventually called. Grounded on pkg/flimsy's wrap(), which saves
// observer/tracking state and restores it around a deferred callback;
// here the "deferred callback" is whatever async boundary the caller
// is crossing (a goroutine, a time.AfterFunc, a generator resume step)
// rather than a synchronous defer.
func (g *Graph) BindContext(fn func()) func() {
	captured, ok := g.GetValue()
	return func() {
		if !ok {
			g.noContext(fn)
			return
		}
		g.withValue(captured, fn)
	}
}

// BindContext captures DefaultGraph's current parent slot.
func BindContext(fn func()) func() {
	return DefaultGraph.BindContext(fn)
}

// NoContext runs fn with DefaultGraph's parent slot cleared, so that
// any Recompute/Touch called inside fn registers no dependency edge.
// This is the non-reactive read helper spec §4.7/§9 Open Question 2
// adopts verbatim: "prevents registering dependencies", nothing more —
// it does not dirty or evict anything.
func NoContext(fn func()) {
	DefaultGraph.noContext(fn)
}

// SetTimeout schedules cb to run after delay, wrapped by BindContext
// so that if cb itself reads a Wrapper, the dependency is attributed
// to whatever entry was recomputing when SetTimeout was called rather
// than to nothing. Grounded on spec §4.7's "time.AfterFunc-based timer
// whose callback is wrapped by BindContext" (SPEC_FULL.md §2).
func (g *Graph) SetTimeout(cb func(), delay time.Duration) *time.Timer {
	return time.AfterFunc(delay, g.BindContext(cb))
}

// SetTimeout schedules cb on DefaultGraph.
func SetTimeout(cb func(), delay time.Duration) *time.Timer {
	return DefaultGraph.SetTimeout(cb, delay)
}

// Yield is the value a generator passed to AsyncFromGen produces at
// each suspension point: either a value to hand back to the driver, or
// a function to run (typically one that blocks or waits) before the
// generator is resumed. Go has no native generator/coroutine syntax, so
// a "generator" here is modeled the way the spec's design notes
// describe: a plain function that is called repeatedly, once per step,
// until it reports it is done.
type Yield[T any] struct {
	Done  bool
	Value T
	// Await, if non-nil, is run (synchronously, from the driver's
	// goroutine) before the generator is asked for its next step; this
	// is the suspension point the parent slot must survive.
	Await func()
}

// Gen is a resumable step function: called with the previous step's
// result (zero value on the first call), it returns the next Yield.
type Gen[T any] func(prev T) Yield[T]

// AsyncFromGen drives gen to completion, reinstating g's captured
// parent slot with WithValue around every resume step, so that a
// Wrapper invocation made from inside gen is attributed to the entry
// that was recomputing when AsyncFromGen was first called — exactly as
// if the suspension boundary had never happened. Grounded on spec
// §4.7's async-generator bridge and flimsy's wrap()-around-resume
// idiom, reshaped for Go's lack of generator syntax (SPEC_FULL.md
// §4.7 "AsyncFromGen").
func (g *Graph) AsyncFromGen(gen Gen[any]) any {
	captured, hasParent := g.GetValue()
	var parent *Entry
	if hasParent {
		parent = captured
	}

	var prev any
	for {
		var y Yield[any]
		g.withValue(parent, func() {
			y = gen(prev)
		})
		if y.Done {
			return y.Value
		}
		if y.Await != nil {
			y.Await()
		}
		prev = y.Value
	}
}

// AsyncFromGen drives gen to completion against DefaultGraph.
func AsyncFromGen(gen Gen[any]) any {
	return DefaultGraph.AsyncFromGen(gen)
}
