package entrygraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepTouchAndDirty(t *testing.T) {
	g := NewGraph()
	d := NewDep[string](WithDepGraph[string](g))

	calls := 0
	reader := Wrap(func(key string) (int, error) {
		calls++
		d.Touch(key)
		return calls, nil
	}, WithGraph[string, int](g), WithKeyArgs[string, int](identityString))

	first, err := reader.Call("topic")
	assert.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, d.KeyCount())

	// a second read with nothing dirtied is a cache hit
	second, err := reader.Call("topic")
	assert.NoError(t, err)
	assert.Equal(t, 1, second)

	d.Dirty("topic")
	assert.Equal(t, 0, d.KeyCount(), "Dirty discards the key's member set")

	third, err := reader.Call("topic")
	assert.NoError(t, err)
	assert.Equal(t, 2, third, "dirtying the dep must force a recompute")
}

func TestDepSubscribeLifecycle(t *testing.T) {
	g := NewGraph()
	subscribes, unsubscribes := 0, 0

	d := NewDep[string](
		WithDepGraph[string](g),
		WithDepSubscribe(func(key string) (func(), error) {
			subscribes++
			return func() { unsubscribes++ }, nil
		}),
	)

	reader := Wrap(func(key string) (int, error) {
		d.Touch(key)
		return 0, nil
	}, WithGraph[string, int](g), WithKeyArgs[string, int](identityString))

	_, err := reader.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, 1, subscribes)

	// a cached read while the set is still active must not resubscribe
	_, err = reader.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, 1, subscribes)

	d.Dirty("a")
	assert.Equal(t, 1, unsubscribes)

	_, err = reader.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, 2, subscribes, "touching after Dirty reactivates the key")
}

func TestDepDirtyMethods(t *testing.T) {
	g := NewGraph()
	d := NewDep[int](WithDepGraph[int](g))

	reader := Wrap(func(key int) (int, error) {
		d.Touch(key)
		return key, nil
	}, WithGraph[int, int](g), WithKeyArgs[int, int](func(k int) []any { return []any{k} }))

	_, err := reader.Call(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, reader.Size())

	// DirtyMethodForget must evict the entry outright through the
	// ordinary public API, with no WithDisposable option involved.
	d.Dirty(1, DirtyMethodForget)
	assert.Equal(t, 0, reader.Size(), "forget must evict the entry from its Wrapper's cache")
	_, ok := reader.Peek(1)
	assert.False(t, ok)
}

func TestDepDirtyMethodDispose(t *testing.T) {
	g := NewGraph()
	d := NewDep[int](WithDepGraph[int](g))

	reader := Wrap(func(key int) (int, error) {
		d.Touch(key)
		return key, nil
	}, WithGraph[int, int](g), WithKeyArgs[int, int](func(k int) []any { return []any{k} }))

	_, err := reader.Call(2)
	assert.NoError(t, err)
	assert.Equal(t, 1, reader.Size())

	// DirtyMethodDispose disposes the entry in place without evicting
	// it from the Wrapper's cache.
	d.Dirty(2, DirtyMethodDispose)
	assert.Equal(t, 1, reader.Size(), "dispose leaves the disposed entry in the cache")
	_, ok := reader.Peek(2)
	assert.False(t, ok, "a disposed entry has no known cached value")
}
