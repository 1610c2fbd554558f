package keytrie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupScalarIdentity(t *testing.T) {
	tr := New(false)

	a := tr.Lookup("x", 1)
	b := tr.Lookup("x", 1)
	c := tr.Lookup("x", 2)

	assert.Same(t, a, b, "element-wise identical sequences share an identity")
	assert.NotSame(t, a, c)
}

func TestLookupSliceArgDoesNotPanic(t *testing.T) {
	tr := New(false)

	paths := []string{"a.js", "b.js"}

	assert.NotPanics(t, func() {
		tr.Lookup(paths)
	})

	first := tr.Lookup(paths)
	second := tr.Lookup(paths)
	assert.Same(t, first, second, "the same slice value must branch to the same identity")

	other := []string{"a.js", "b.js"}
	third := tr.Lookup(other)
	assert.NotSame(t, first, third, "a distinct backing array is a distinct identity")
}

func TestLookupSliceArgWeak(t *testing.T) {
	tr := New(true)

	paths := []string{"a.js", "b.js"}

	assert.NotPanics(t, func() {
		tr.Lookup(paths)
	})

	first := tr.Lookup(paths)
	second := tr.Lookup(paths)
	assert.Same(t, first, second)
}

func TestLookupMapAndFuncArgsDoNotPanic(t *testing.T) {
	tr := New(false)

	m := map[string]int{"a": 1}
	var fn func()

	assert.NotPanics(t, func() {
		tr.Lookup(m)
		tr.Lookup(fn)
	})
}
