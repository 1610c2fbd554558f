package entrygraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoContextSkipsRegistration(t *testing.T) {
	g := NewGraph()
	childReads := 0
	child := Wrap(func(struct{}) (int, error) {
		childReads++
		return 1, nil
	}, WithGraph[struct{}, int](g))

	parentReads := 0
	parent := Wrap(func(struct{}) (int, error) {
		parentReads++
		var v int
		g.noContext(func() {
			var err error
			v, err = child.Call(struct{}{})
			assert.NoError(t, err)
		})
		return v, nil
	}, WithGraph[struct{}, int](g))

	_, err := parent.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, 1, parentReads)
	assert.Equal(t, 1, childReads)

	// child changing must not dirty parent, since the read was untracked
	child.Dirty(struct{}{})
	_, err = parent.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, 1, parentReads, "untracked read must not create a dependency edge")
}

func TestBindContextReinstatesParentAcrossAsyncBoundary(t *testing.T) {
	g := NewGraph()
	child := Wrap(func(struct{}) (int, error) {
		return 7, nil
	}, WithGraph[struct{}, int](g))

	var captured func()
	var result int
	parent := Wrap(func(struct{}) (int, error) {
		captured = g.BindContext(func() {
			v, _ := child.Call(struct{}{})
			result = v
		})
		return 0, nil
	}, WithGraph[struct{}, int](g))

	_, err := parent.Call(struct{}{})
	assert.NoError(t, err)
	assert.NotNil(t, captured)

	captured()
	assert.Equal(t, 7, result)

	parentEntry, ok := parent.cache.Peek(parent.GetKey(struct{}{}))
	assert.True(t, ok)
	assert.Contains(t, parentEntry.childValues, mustPeekEntry(t, child))
}

func mustPeekEntry(t *testing.T, w *Wrapper[struct{}, int]) *Entry {
	t.Helper()
	e, ok := w.cache.Peek(w.GetKey(struct{}{}))
	assert.True(t, ok)
	return e
}

func TestSetTimeoutRunsBoundCallback(t *testing.T) {
	g := NewGraph()
	done := make(chan struct{})
	var fired bool

	g.SetTimeout(func() {
		fired = true
		close(done)
	}, time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer callback never fired")
	}
	assert.True(t, fired)
}

func TestAsyncFromGenDrivesToCompletion(t *testing.T) {
	g := NewGraph()
	steps := 0

	result := g.AsyncFromGen(func(prev any) Yield[any] {
		steps++
		if steps >= 3 {
			return Yield[any]{Done: true, Value: steps}
		}
		return Yield[any]{Value: steps}
	})

	assert.Equal(t, 3, steps)
	assert.Equal(t, 3, result)
}
