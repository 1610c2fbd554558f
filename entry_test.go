package entrygraph

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

// newComputed is a small entry_test-only helper that mirrors what
// Wrapper.Call does internally, without going through a Wrapper, so
// these tests can exercise Entry directly.
func newComputed(g *Graph, name string, fn func(any) (any, error)) *Entry {
	return newEntry(g, name, fn, nil, newSetPool())
}

func TestEntryStartsDirtyAndRecomputesOnce(t *testing.T) {
	g := NewGraph()
	calls := 0
	e := newComputed(g, "e", func(any) (any, error) {
		calls++
		return calls, nil
	})

	v, err := e.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = e.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, v, "a clean entry must return its cached value, not recompute")
}

// TestEntryDiamondPropagation builds:
//
//	    root
//	    /  \
//	   a    b
//	    \  /
//	    leaf
//
// dirtying leaf must mark both a and b might-be-dirty, and root
// recomputes exactly once even though it sees leaf through two paths.
func TestEntryDiamondPropagation(t *testing.T) {
	g := NewGraph()
	leafVal := 1
	leaf := newComputed(g, "leaf", func(any) (any, error) { return leafVal, nil })

	a := newComputed(g, "a", func(any) (any, error) {
		return leaf.Recompute(nil)
	})
	b := newComputed(g, "b", func(any) (any, error) {
		return leaf.Recompute(nil)
	})

	rootCalls := 0
	root := newComputed(g, "root", func(any) (any, error) {
		rootCalls++
		av, aerr := a.Recompute(nil)
		if aerr != nil {
			return nil, aerr
		}
		bv, berr := b.Recompute(nil)
		if berr != nil {
			return nil, berr
		}
		return av.(int) + bv.(int), nil
	})

	v, err := root.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, rootCalls)

	v, err = root.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, rootCalls, "re-reading a quiescent graph must not recompute anything")

	leafVal = 10
	leaf.setDirty()

	v, err = root.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, rootCalls)
}

func TestEntryDirectSelfRecursionDetected(t *testing.T) {
	g := NewGraph()
	var self *Entry
	self = newComputed(g, "self", func(any) (any, error) {
		return self.Recompute(nil)
	})

	_, err := self.Recompute(nil)
	assert.Error(t, err)
	var recErr *RecursiveDependencyError
	assert.ErrorAs(t, err, &recErr)
	assert.Equal(t, "already recomputing", err.Error())
}

func TestEntryIndirectCycleDetected(t *testing.T) {
	g := NewGraph()
	var x, y *Entry
	x = newComputed(g, "x", func(any) (any, error) {
		return y.Recompute(nil)
	})
	y = newComputed(g, "y", func(any) (any, error) {
		return x.Recompute(nil)
	})

	_, err := x.Recompute(nil)
	assert.Error(t, err)
	var recErr *RecursiveDependencyError
	assert.ErrorAs(t, err, &recErr)
}

func TestEntryPeekAndDispose(t *testing.T) {
	g := NewGraph()
	e := newComputed(g, "e", func(any) (any, error) { return 5, nil })

	_, ok := e.Peek()
	assert.False(t, ok, "unrecomputed entry must not be peekable")

	_, err := e.Recompute(nil)
	assert.NoError(t, err)

	v, ok := e.Peek()
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	e.Dispose()
	assert.True(t, e.disposed)

	e.recomputing = true
	assert.Panics(t, func() { e.Dispose() })
	e.recomputing = false
}

func TestEntrySubscribeLifecycleDirect(t *testing.T) {
	g := NewGraph()
	subscribes, unsubscribes := 0, 0

	e := &Entry{
		graph: g,
		name:  "sub",
		pool:  newSetPool(),
		fn: func(any) (any, error) {
			return 1, nil
		},
		subscribe: func(any) (func(), error) {
			subscribes++
			return func() { unsubscribes++ }, nil
		},
		parents:     mapset.NewThreadUnsafeSet[*Entry](),
		childValues: map[*Entry]entryValue{},
		dirty:       true,
	}

	_, err := e.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, subscribes)
	assert.Equal(t, 0, unsubscribes)

	e.setDirty()
	_, err = e.Recompute(nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, subscribes)
	assert.Equal(t, 1, unsubscribes, "setDirty fires the prior unsubscribe; recomputation does not fire it again")

	e.Dispose()
	assert.Equal(t, 2, unsubscribes)
}
