// Package builtins supplies the base/global environment: the host-runtime
// stand-in spec.md §6 calls out ("value construction, environment ops,
// frame primitives, formal matching, eager applyClosure, method dispatch,
// builtin table") as consumed but not itself part of the core.
//
// Grounded on object/builtins.go's table-of-{Name, definition} convention
// plus GetBuiltinByName, generalized from a flat len/first/rest/last/push
// set to the primitives the compiler's inlined special forms (spec.md
// §4.2.1) and arithmetic/subscript fast paths (§4.1) fall back to when
// their isspecial_ guard fails or their operand shapes miss the fast path.
// Every inlined form the compiler treats as requiring its raw, unevaluated
// call arguments (&&, ||, if, quote, <-, <<-, while, repeat, for), plus
// list (for its name preservation) and [[/[ (so isspecial_ succeeds at
// their inlined call sites), is bound here as a [rtvalue.Special] that
// re-enters the interpreter via EvalExpr to evaluate each operand itself,
// mirroring spec.md §5's "re-entrancy occurs whenever a builtin or special
// calls back into the interpreter." Everything else (arithmetic, type
// predicates, $, [[<-/[<-, length, c, class, next/break/return) is bound
// as an eager [rtvalue.Builtin], matching the teacher's own all-eager
// builtin convention.
package builtins

import (
	"fmt"

	"github.com/rlangvm/core/interp"
	"github.com/rlangvm/core/rtvalue"
)

type builtinDef struct {
	Name    string
	Builtin *rtvalue.Builtin
}

type specialDef struct {
	Name    string
	Special *rtvalue.Special
}

// NewGlobalEnv builds the base/global environment (no parent) that every
// top-level evaluation and closure ultimately chains to. i is the
// interpreter these bindings re-enter to evaluate their own unevaluated
// operands; it need not have run anything yet, only share the same
// constant/source pools the code being evaluated was compiled against.
func NewGlobalEnv(i *interp.Interp) *rtvalue.Environment {
	env := rtvalue.NewEnvironment(nil)
	for _, b := range builtinTable() {
		env.DefineVar(rtvalue.Intern(b.Name), b.Builtin)
	}
	for _, s := range specialTable(i) {
		env.DefineVar(rtvalue.Intern(s.Name), s.Special)
	}
	return env
}

func builtinTable() []builtinDef {
	var out []builtinDef
	out = append(out, arithBuiltins()...)
	out = append(out, dataBuiltins()...)
	out = append(out, printBuiltins()...)
	out = append(out, controlBuiltins()...)
	return out
}

func specialTable(i *interp.Interp) []specialDef {
	var out []specialDef
	out = append(out, controlSpecials(i)...)
	out = append(out, dataSpecials(i)...)
	return out
}

// argsOf walks a raw, unevaluated argument pairlist (the `args` a
// [rtvalue.SpecialFunc] receives, i.e. a call's CDR) into a slice of
// cells, the same shape [rtvalue.CallArgs] produces from a whole call node.
func argsOf(args rtvalue.Value) []*rtvalue.Pair {
	var out []*rtvalue.Pair
	cur := args
	for {
		p, ok := cur.(*rtvalue.Pair)
		if !ok {
			break
		}
		out = append(out, p)
		cur = p.Cdr
	}
	return out
}

func newError(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}
