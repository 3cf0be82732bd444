package builtins

import (
	"github.com/rlangvm/core/rtvalue"
)

// numArg reports v's value as a float64 for a scalar Int/Real, the shape
// every arithmetic/comparison builtin here requires of both operands
// (spec.md's supported subset has no vector recycling).
func numArg(v rtvalue.Value) (float64, bool) {
	switch t := v.(type) {
	case *rtvalue.Int:
		return float64(t.Value), true
	case *rtvalue.Real:
		return t.Value, true
	default:
		return 0, false
	}
}

func bothInt(a, b rtvalue.Value) bool {
	_, aInt := a.(*rtvalue.Int)
	_, bInt := b.(*rtvalue.Int)
	return aInt && bInt
}

func numResult(a, b rtvalue.Value, f float64) rtvalue.Value {
	if bothInt(a, b) {
		return &rtvalue.Int{Value: int64(f)}
	}
	return &rtvalue.Real{Value: f}
}

func binaryNum(name string, fn func(a, b float64) float64) *rtvalue.Builtin {
	return &rtvalue.Builtin{
		Name:    name,
		Visible: true,
		Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
			if len(args) != 2 {
				return nil, newError("%s: expected 2 arguments, got %d", name, len(args))
			}
			a, aok := numArg(args[0])
			b, bok := numArg(args[1])
			if !aok || !bok {
				return nil, newError("%s: non-numeric argument", name)
			}
			return numResult(args[0], args[1], fn(a, b)), nil
		},
	}
}

func binaryCompare(name string, fn func(a, b float64) bool) *rtvalue.Builtin {
	return &rtvalue.Builtin{
		Name:    name,
		Visible: true,
		Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
			if len(args) != 2 {
				return nil, newError("%s: expected 2 arguments, got %d", name, len(args))
			}
			a, aok := numArg(args[0])
			b, bok := numArg(args[1])
			if !aok || !bok {
				return nil, newError("%s: non-numeric argument", name)
			}
			return &rtvalue.Bool{Value: fn(a, b)}, nil
		},
	}
}

// arithBuiltins are the ordinary eager arithmetic/comparison primitives:
// bound as plain [rtvalue.Builtin]s rather than [rtvalue.Special]s, matching
// how arithmetic primitives are actually evaluated (both operands always
// forced) rather than the lazy control-flow forms in control.go. add_/
// sub_/lt_'s own scalar fast path (interp's arith) falls back to calling
// "+"/"-"/"<" by this exact name whenever an operand isn't a bare scalar.
func arithBuiltins() []builtinDef {
	defs := []struct {
		name string
		b    *rtvalue.Builtin
	}{
		{"+", binaryNum("+", func(a, b float64) float64 { return a + b })},
		{"-", binaryNum("-", func(a, b float64) float64 { return a - b })},
		{"*", binaryNum("*", func(a, b float64) float64 { return a * b })},
		{"/", binaryNum("/", func(a, b float64) float64 { return a / b })},
		{"<", binaryCompare("<", func(a, b float64) bool { return a < b })},
		{">", binaryCompare(">", func(a, b float64) bool { return a > b })},
		{"<=", binaryCompare("<=", func(a, b float64) bool { return a <= b })},
		{">=", binaryCompare(">=", func(a, b float64) bool { return a >= b })},
		{"==", binaryCompare("==", func(a, b float64) bool { return a == b })},
		{"!=", binaryCompare("!=", func(a, b float64) bool { return a != b })},
	}
	out := make([]builtinDef, len(defs))
	for i, d := range defs {
		out[i] = builtinDef{Name: d.name, Builtin: d.b}
	}
	return out
}
