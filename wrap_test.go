package entrygraph

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// identityString passes the string through as the sole key argument;
// the default MakeCacheKey trie then maps each distinct string to its
// own key.
func identityString(s string) []any { return []any{s} }

func TestWrapSaltedIdentity(t *testing.T) {
	g := NewGraph()
	salt := "salt"

	f := Wrap(func(x string) (string, error) {
		return x + salt, nil
	}, WithGraph[string, string](g), WithKeyArgs[string, string](identityString))

	a, err := f.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, "asalt", a)

	salt = "NaCl"
	b, err := f.Call("b")
	assert.NoError(t, err)
	assert.Equal(t, "bNaCl", b)

	// cache hit for "a" still returns the stale salted value
	again, err := f.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, "asalt", again)

	f.Dirty("a")
	fresh, err := f.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, "aNaCl", fresh)
}

func TestWrapTwoLayerHash(t *testing.T) {
	g := NewGraph()
	files := map[string]string{"a.js": "alpha", "b.js": "beta"}

	read := Wrap(func(path string) (string, error) {
		return files[path], nil
	}, WithGraph[string, string](g), WithKeyArgs[string, string](identityString))

	digest := func(paths []string) string {
		var sb strings.Builder
		for _, p := range paths {
			v, err := read.Call(p)
			assert.NoError(t, err)
			sb.WriteString(v)
		}
		return sb.String()
	}

	type pathsArgs struct{ paths []string }
	hash := Wrap(func(a pathsArgs) (string, error) {
		return digest(a.paths), nil
	}, WithGraph[pathsArgs, string](g), WithKeyArgs[pathsArgs, string](func(a pathsArgs) []any {
		out := make([]any, len(a.paths))
		for i, p := range a.paths {
			out[i] = p
		}
		return out
	}))

	args := pathsArgs{paths: []string{"a.js", "b.js"}}
	first, err := hash.Call(args)
	assert.NoError(t, err)

	// mutating files without dirtying read leaves hash unchanged
	files["a.js"] = "ALPHA-MUTATED"
	second, err := hash.Call(args)
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	read.Dirty("a.js")
	third, err := hash.Call(args)
	assert.NoError(t, err)
	assert.NotEqual(t, first, third)

	read.Dirty("b.js")
	files["b.js"] = "BETA-MUTATED"
	fourth, err := hash.Call(args)
	assert.NoError(t, err)
	assert.NotEqual(t, third, fourth)
}

func TestWrapDefaultKeyArgsAcceptsSlice(t *testing.T) {
	g := NewGraph()
	calls := 0

	// No WithKeyArgs here: the default KeyArgs wraps the whole []string
	// argument as a single key argument, which used to panic inside
	// keytrie's strong map (slices aren't comparable) the moment
	// useWeak was false.
	hash := Wrap(func(paths []string) (string, error) {
		calls++
		return strings.Join(paths, "+"), nil
	}, WithGraph[[]string, string](g))

	a := []string{"a.js", "b.js"}
	first, err := hash.Call(a)
	assert.NoError(t, err)
	assert.Equal(t, "a.js+b.js", first)
	assert.Equal(t, 1, calls)

	// calling again with the very same slice value (same backing
	// array) is a cache hit: a slice isn't comparable, so the trie can
	// only branch it by pointer identity, not by deep content equality.
	again, err := hash.Call(a)
	assert.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, calls, "the same slice value must not recompute")

	// a distinct slice with element-wise identical contents has a
	// different backing array, hence a different identity, and must
	// recompute rather than panic.
	b := []string{"a.js", "b.js"}
	second, err := hash.Call(b)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, calls, "a distinct slice value recomputes even with identical contents")

	c := []string{"c.js"}
	third, err := hash.Call(c)
	assert.NoError(t, err)
	assert.Equal(t, "c.js", third)
	assert.Equal(t, 3, calls)
}

func TestWrapSubscriptionLifecycle(t *testing.T) {
	g := NewGraph()
	sep := ","
	unsubscribeCount := 0
	var lastDirty func()
	var test *Wrapper[string, string]

	test = Wrap(func(x string) (string, error) {
		return strings.Join([]string{x, x, x}, sep), nil
	},
		WithGraph[string, string](g),
		WithKeyArgs[string, string](identityString),
		WithMax[string, string](1),
		WithSubscribe[string, string](func(x string) (func(), error) {
			lastDirty = func() { test.Dirty(x) }
			return func() { unsubscribeCount++ }, nil
		}),
	)

	a, err := test.Call("a")
	assert.NoError(t, err)
	assert.Equal(t, "a,a,a", a)

	b, err := test.Call("b")
	assert.NoError(t, err)
	assert.Equal(t, "b,b,b", b)
	assert.Equal(t, 1, unsubscribeCount, "caching \"b\" should have evicted \"a\"")

	c, err := test.Call("c")
	assert.NoError(t, err)
	assert.Equal(t, "c,c,c", c)
	assert.Equal(t, 2, unsubscribeCount, "caching \"c\" should have evicted \"b\"")

	sep = ":"
	again, err := test.Call("c")
	assert.NoError(t, err)
	assert.Equal(t, "c,c,c", again, "sep change without a dirty must not alter the cached result")

	lastDirty()
	changed, err := test.Call("c")
	assert.NoError(t, err)
	assert.Equal(t, "c:c:c", changed)
}

func TestWrapCycleDetection(t *testing.T) {
	g := NewGraph()
	var self *Wrapper[struct{}, int]
	recursive := true

	self = Wrap(func(struct{}) (int, error) {
		if recursive {
			v, err := self.Call(struct{}{})
			return v + 1, err
		}
		return 42, nil
	}, WithGraph[struct{}, int](g), WithName[struct{}, int]("self"))

	_, err := self.Call(struct{}{})
	assert.Error(t, err)
	var recErr *RecursiveDependencyError
	assert.True(t, errors.As(err, &recErr))
	assert.Equal(t, "already recomputing", err.Error())

	self.Dirty(struct{}{})

	recursive = false
	v, err := self.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWrapEvictedChildDirty(t *testing.T) {
	g := NewGraph()
	childSalt := "c1"
	parentSalt := "p1"

	child := Wrap(func(x string) (string, error) {
		return x + childSalt, nil
	}, WithGraph[string, string](g), WithKeyArgs[string, string](identityString), WithMax[string, string](1))

	parent := Wrap(func(x string) (string, error) {
		v, err := child.Call(x)
		if err != nil {
			return "", err
		}
		return v + parentSalt, nil
	}, WithGraph[string, string](g), WithKeyArgs[string, string](identityString))

	first, err := parent.Call("asdf")
	assert.NoError(t, err)
	assert.Equal(t, "asdfc1p1", first)

	// evicts child("asdf") since child's max is 1
	_, err = child.Call("zxcv")
	assert.NoError(t, err)

	childSalt = "c2"
	parentSalt = "p2"

	second, err := parent.Call("asdf")
	assert.NoError(t, err)
	assert.Equal(t, "asdfc2p2", second, "eviction of a dependency must force the parent to recompute")
}

func TestWrapExceptionCache(t *testing.T) {
	g := NewGraph()
	sentinel := errors.New("boom")
	calls := 0

	child := Wrap(func(struct{}) (string, error) {
		calls++
		return "", sentinel
	}, WithGraph[struct{}, string](g))

	parent := Wrap(func(struct{}) (error, error) {
		_, err := child.Call(struct{}{})
		if err != nil {
			return err, nil
		}
		return nil, nil
	}, WithGraph[struct{}, error](g))

	v, err := parent.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, sentinel, v)
	assert.Equal(t, 1, calls)

	parent.Dirty(struct{}{})
	v, err = parent.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, sentinel, v)

	child.Dirty(struct{}{})
	v, err = parent.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, sentinel, v)
	assert.Equal(t, 2, calls)
}

func TestWrapPeekNeverRecomputes(t *testing.T) {
	g := NewGraph()
	reads := 0
	x := Wrap(func(struct{}) (int, error) {
		reads++
		return 5, nil
	}, WithGraph[struct{}, int](g))

	_, ok := x.Peek(struct{}{})
	assert.False(t, ok, "peek before any Call must report unknown")
	assert.Equal(t, 0, reads)

	v, err := x.Call(struct{}{})
	assert.NoError(t, err)
	assert.Equal(t, 5, v)

	peeked, ok := x.Peek(struct{}{})
	assert.True(t, ok)
	assert.Equal(t, 5, peeked)
	assert.Equal(t, 1, reads)
}

func TestWrapLRUCapNeverExceeded(t *testing.T) {
	g := NewGraph()
	double := Wrap(func(x int) (int, error) {
		return x * 2, nil
	}, WithGraph[int, int](g), WithKeyArgs[int, int](func(x int) []any { return []any{x} }), WithMax[int, int](3))

	for i := 0; i < 10; i++ {
		_, err := double.Call(i)
		assert.NoError(t, err)
		assert.LessOrEqual(t, double.Size(), 3)
	}
}

func TestWrapDeterminismUnderStability(t *testing.T) {
	g := NewGraph()
	calls := 0
	f := Wrap(func(struct{}) (*int, error) {
		calls++
		v := 9
		return &v, nil
	}, WithGraph[struct{}, *int](g))

	first, err := f.Call(struct{}{})
	assert.NoError(t, err)
	second, err := f.Call(struct{}{})
	assert.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}
