package templates

import (
	"fmt"
	"strconv"
	"strings"
)

// WrapNGen emits wrapn_generated.go: fixed-arity ArgsN tuples and WrapN
// constructors for arity 2..count, so callers of the core Wrap[Args, T]
// don't need to hand-write an Args struct for the common small-arity case.
// This continues signalparty's own codegen-for-arity idiom (previously used
// to emit rocket/dumbdumb's Computed1..N from cmd/codegen).
func WrapNGen(count int) (string, error) {
	if count < 2 {
		return "", fmt.Errorf("count must be >= 2, got %d", count)
	}

	var sb strings.Builder
	sb.WriteString("// Code generated by cmd/codegen; DO NOT EDIT.\n\n")
	sb.WriteString("package entrygraph\n")

	for n := 2; n <= count; n++ {
		writeArity(&sb, n)
	}

	return sb.String(), nil
}

func writeArity(sb *strings.Builder, n int) {
	typeParams := prefixedStrings("A", n)
	fieldAccess := prefixedFieldAccess(n)
	argsType := fmt.Sprintf("Args%d[%s]", n, typeParams)

	fmt.Fprintf(sb, "\n// %s is a fixed-arity argument tuple for Wrap%d.\n", argsTypeName(n), n)
	fmt.Fprintf(sb, "type Args%d[%s any] struct {\n", n, typeParams)
	for i := 0; i < n; i++ {
		fmt.Fprintf(sb, "\tA%d A%d\n", i, i)
	}
	sb.WriteString("}\n")

	fmt.Fprintf(sb, "\n// Wrap%d wraps a %d-argument function, deriving KeyArgs from the tuple's\n", n, n)
	sb.WriteString("// fields so callers get Wrap's default tuple-trie keying for free.\n")
	fmt.Fprintf(sb, "func Wrap%d[%s, T any](fn func(%s) (T, error), opts ...WrapOption[%s, T]) *Wrapper[%s, T] {\n",
		n, typeParams, typeParams, argsType, argsType)
	fmt.Fprintf(sb, "\to := append([]WrapOption[%s, T]{\n", argsType)
	fmt.Fprintf(sb, "\t\tWithKeyArgs[%s, T](func(a %s) []any {\n", argsType, argsType)
	fmt.Fprintf(sb, "\t\t\treturn []any{%s}\n", fieldAccess)
	sb.WriteString("\t\t}),\n")
	sb.WriteString("\t}, opts...)\n")
	fmt.Fprintf(sb, "\treturn Wrap(func(a %s) (T, error) {\n", argsType)
	fmt.Fprintf(sb, "\t\treturn fn(%s)\n", fieldAccess)
	sb.WriteString("\t}, o...)\n")
	sb.WriteString("}\n")
}

func argsTypeName(n int) string {
	return "Args" + strconv.Itoa(n)
}

func prefixedFieldAccess(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("a.A")
		sb.WriteString(strconv.Itoa(i))
		if i < n-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}
