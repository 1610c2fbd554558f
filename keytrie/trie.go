// Package keytrie is the tuple-argument canonicalization trie spec
// §4.2 describes: it converts a variadic argument sequence into a
// single canonical key identity, so that any two sequences comparing
// element-wise identical produce the same identity object, and (when
// weak keys are requested) pointer/interface-valued elements can be
// collected once every reference to them — including the trie's own —
// is gone.
//
// Grounded on on-the-ground-effect_ive_go/pure/trie.go's generational
// double-buffered canonicalization trie (cross-pack; signalparty, the
// teacher, has no analogous component), adapted from a single
// flattened key to per-argument branching so each level of the
// sequence gets its own strong/weak split, matching spec §4.2's "a
// trie node holds at most two children maps" literally. xxhash folding
// of pointer identity into a bucket index continues pkg/flimsy's own
// use of github.com/cespare/xxhash/v2 (pkg/flimsy/types.go).
//
// Slice-kind arguments are pointer-identity branched alongside
// ptr/map/chan/func/unsafe.Pointer ones rather than falling into the
// strong map: a slice isn't comparable, so using it directly as an
// `any` map key panics at runtime on the first lookup or insert. When
// useWeak is false this still needs a
// pointer-identity branch rather than a strong map entry, it just
// retains the argument strongly instead of through weak.Pointer.
package keytrie

import (
	"reflect"
	"runtime"
	"unsafe"
	"weak"

	"github.com/cespare/xxhash/v2"
)

// Trie is a tuple-argument canonicalization trie. The zero value is
// not usable; construct with New.
type Trie struct {
	useWeak bool
	root    *node
}

// node holds at most two children maps, per spec §4.2: a strong map
// keyed by comparable, non-pointer-like values, and a weak map (when
// useWeak is set) keyed by a hash of pointer-like values' identity.
// strongPtr is a third, narrower map: it only ever holds branches for
// argument kinds (slice, map, func) that cannot be used as a Go map
// key at all — not even in the strong map above — so useWeak=false
// callers still get a working, if permanently-retaining, identity
// branch for them instead of a runtime panic.
type node struct {
	strong    map[any]*node
	weak      map[uint64][]*weakBranch
	strongPtr map[uint64][]*strongPtrBranch
	key       any
	hasKey    bool
}

// weakBranch is one entry of a weak bucket: the argument's identity,
// tracked without pinning it alive, and the subtrie reached through it.
type weakBranch struct {
	ptr  weak.Pointer[byte]
	next *node
}

// strongPtrBranch is one entry of a strongPtr bucket: the argument's
// identity plus a strong reference to the argument itself, so the
// pointer it was taken from cannot be reused by the allocator for a
// different value while this branch is still live.
type strongPtrBranch struct {
	ptr  unsafe.Pointer
	keep any
	next *node
}

// New constructs a Trie. When useWeak is true, pointer/interface-kind
// arguments are held via weak.Pointer rather than strong map keys, so
// a caller that stops referencing its key argument elsewhere lets the
// trie's branch for it become collectible too. Go's weak package
// (runtime.AddCleanup/weak.Pointer) is available from the toolchain
// version this module targets (1.24+); when useWeak is false this
// degrades to plain strong retention for every argument kind.
func New(useWeak bool) *Trie {
	return &Trie{useWeak: useWeak, root: &node{}}
}

// Lookup is LookupArray for a variadic call site.
func (t *Trie) Lookup(args ...any) any {
	return t.LookupArray(args)
}

// LookupArray descends one level per argument, creating empty nodes as
// needed, and returns the identity object stored at the terminal node —
// freshly minted on first visit, the same pointer on every later visit
// with an element-wise identical sequence.
func (t *Trie) LookupArray(seq []any) any {
	n := t.root
	for _, arg := range seq {
		n = t.descend(n, arg)
	}
	if !n.hasKey {
		n.key = new(struct{ _ byte })
		n.hasKey = true
	}
	return n.key
}

func (t *Trie) descend(n *node, arg any) *node {
	if t.useWeak && isWeakable(arg) {
		return t.descendWeak(n, arg)
	}
	// Slice/map/func-kind arguments are not comparable, so storing arg
	// directly as an `any` map key below would panic at runtime ("hash
	// of unhashable type") as soon as the map hashed it. Route them through strongPtr instead, keyed by
	// pointer identity like the weak path, but retaining a strong
	// reference rather than a weak.Pointer since useWeak is false here.
	if isPointerIdentity(arg) {
		return t.descendStrongPtr(n, arg)
	}
	if n.strong == nil {
		n.strong = make(map[any]*node)
	}
	if child, ok := n.strong[arg]; ok {
		return child
	}
	child := &node{}
	n.strong[arg] = child
	return child
}

func (t *Trie) descendStrongPtr(n *node, arg any) *node {
	if n.strongPtr == nil {
		n.strongPtr = make(map[uint64][]*strongPtrBranch)
	}

	v := reflect.ValueOf(arg)
	ptr := v.UnsafePointer()
	h := hashPtr(ptr)
	bucket := n.strongPtr[h]

	for _, b := range bucket {
		if b.ptr == ptr {
			return b.next
		}
	}

	branch := &strongPtrBranch{ptr: ptr, keep: arg, next: &node{}}
	n.strongPtr[h] = append(bucket, branch)
	return branch.next
}

func (t *Trie) descendWeak(n *node, arg any) *node {
	if n.weak == nil {
		n.weak = make(map[uint64][]*weakBranch)
	}

	v := reflect.ValueOf(arg)
	ptr := v.UnsafePointer()
	h := hashPtr(ptr)
	bucket := n.weak[h]

	live := bucket[:0]
	var found *weakBranch
	for _, b := range bucket {
		if p := b.ptr.Value(); p != nil {
			if p == (*byte)(ptr) {
				found = b
			}
			live = append(live, b)
		}
		// dead branches are dropped here: this is the "swept lazily on
		// next descent through a node" behavior spec §4.2/§9 calls for,
		// rather than a background collector goroutine.
	}
	n.weak[h] = live

	if found != nil {
		return found.next
	}

	wp := weak.Make((*byte)(ptr))
	branch := &weakBranch{ptr: wp, next: &node{}}
	n.weak[h] = append(n.weak[h], branch)

	runtime.AddCleanup((*byte)(ptr), func(bucketHash uint64) {
		removeBranch(n, bucketHash, wp)
	}, h)

	return branch.next
}

func removeBranch(n *node, h uint64, target weak.Pointer[byte]) {
	bucket := n.weak[h]
	if len(bucket) == 0 {
		return
	}
	kept := bucket[:0]
	for _, b := range bucket {
		if b.ptr != target {
			kept = append(kept, b)
		}
	}
	n.weak[h] = kept
}

func isWeakable(arg any) bool {
	if arg == nil {
		return false
	}
	switch reflect.ValueOf(arg).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return true
	default:
		return false
	}
}

// isPointerIdentity reports whether arg's dynamic kind cannot be used
// as a Go map key at all (slice, map, func) — the kinds that must be
// routed around the strong map by pointer identity rather than stored
// in it directly, regardless of useWeak.
func isPointerIdentity(arg any) bool {
	if arg == nil {
		return false
	}
	switch reflect.ValueOf(arg).Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return true
	default:
		return false
	}
}

// hashPtr folds a pointer-like argument's identity into a bucket
// index. Collisions are resolved by the linear scan in descendWeak, so
// this only needs to distribute well, not be collision-free.
func hashPtr(ptr unsafe.Pointer) uint64 {
	addr := uintptr(ptr)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(addr >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}
