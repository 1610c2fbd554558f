package entrygraph

import "fmt"

// RecursiveDependencyError is returned when an entry's function calls
// back into its own Recompute while it is already recomputing,
// matching spec §4.4.5's recursion guard. Error() deliberately returns
// the literal string "already recomputing" (spec §8 scenario 4,
// SPEC_FULL.md §10 scenario 4): callers match on that text, not on a
// wrapped/decorated message.
type RecursiveDependencyError struct {
	Name string
}

func (e *RecursiveDependencyError) Error() string {
	return "already recomputing"
}

// Is lets errors.Is(err, new(RecursiveDependencyError)) succeed
// regardless of Name, since the Name field only carries diagnostic
// context and is not part of the error's identity.
func (e *RecursiveDependencyError) Is(target error) bool {
	_, ok := target.(*RecursiveDependencyError)
	return ok
}

// DisposedError is returned by Recompute on an entry that has already
// been evicted or explicitly disposed. Peek reports the same condition
// through its plain ok=false result instead, since its signature
// carries no error arm.
type DisposedError struct {
	Name string
}

func (e *DisposedError) Error() string {
	if e.Name == "" {
		return "entrygraph: entry is disposed"
	}
	return fmt.Sprintf("entrygraph: entry %q is disposed", e.Name)
}

// Is lets errors.Is(err, new(DisposedError)) succeed regardless of
// Name, for the same reason as RecursiveDependencyError.Is.
func (e *DisposedError) Is(target error) bool {
	_, ok := target.(*DisposedError)
	return ok
}
