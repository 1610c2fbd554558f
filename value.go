package entrygraph

import "reflect"

// valueState tags what an entryValue currently holds, mirroring the
// spec's Option<Result<T>>: an entry is either never-computed, holding
// a successful result, or holding a captured error.
type valueState uint8

const (
	valueUnknown valueState = iota
	valueOk
	valueErr
)

// entryValue is the cached payload of an Entry. Entries are shared
// across differently-typed Wrapper[Args, T] instantiations that touch
// the same Graph, so the payload is erased to any here; Wrapper
// re-asserts it back to T at the façade boundary (see wrap.go).
//
// Only one of ok/err is meaningful, selected by state.
type entryValue struct {
	state valueState
	ok    any
	err   error
}

func (v entryValue) isKnown() bool { return v.state != valueUnknown }

// equals reports whether two entryValues represent the same observable
// result, using referential identity rather than deep equality: two Ok
// values are equal only if they are the same pointer-like value (or the
// same plain comparable value), and two Err values are equal only if
// they are the same error value. This is a deliberate departure from
// pkg/flimsy's reflect.DeepEqual-based signal comparison: that package
// compares arbitrary signal payloads for its own change detection, but
// this cache wants "did recomputation actually produce a new object"
// semantics, which identity captures and deep-equality does not (a
// freshly built slice with identical contents is still a new object
// worth notifying dependents about).
func (v entryValue) equals(other entryValue) bool {
	if v.state != other.state {
		return false
	}
	switch v.state {
	case valueOk:
		return identicalAny(v.ok, other.ok)
	case valueErr:
		return identicalErr(v.err, other.err)
	default:
		return false
	}
}

// identicalErr compares two errors for referential identity: the same
// underlying error value (by == when comparable, by pointer otherwise).
func identicalErr(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return identicalAny(a, b)
}

// identicalAny compares two values of the same static type for
// referential identity: pointer-like kinds, including slices, maps and
// funcs, compare by address; other comparable kinds compare with ==.
// Any other non-comparable type (e.g. a struct holding a slice) falls
// back to "never equal", forcing a downstream notification rather than
// panicking on ==.
func identicalAny(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return va.Pointer() == vb.Pointer()
	default:
		if !va.Type().Comparable() {
			return false
		}
		return a == b
	}
}
