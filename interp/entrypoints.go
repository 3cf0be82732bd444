package interp

import (
	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/compiler"
	"github.com/rlangvm/core/frame"
	"github.com/rlangvm/core/pool"
	"github.com/rlangvm/core/rtvalue"
)

// Compile turns ast into a FunctionObject with no formals, its entry code
// ready to run via EvalFunction (spec.md §6's compile(ast)).
func Compile(consts *pool.ConstantPool, srcs *pool.SourcePool, ast rtvalue.Value) (*bytecode.FunctionObject, error) {
	return compiler.CompileTopLevel(consts, srcs, ast)
}

// EvalFunction evaluates fn's entry code in env (spec.md §6's
// eval_function(fn, env)).
func (i *Interp) EvalFunction(fn *bytecode.FunctionObject, env *rtvalue.Environment) (rtvalue.Value, error) {
	return i.runCode(fn.Entry(), fn, env, frame.TopLevel)
}

// selfEvaluating reports whether ast needs no compile/run round-trip at
// all: scalars, Nil/NA/missing, already-evaluated environments and
// closures appearing as quoted literals. Marking one "fully named" before
// return matches eval_expr's documented contract that a self-evaluating
// result is never handed back still flagged as an unshared, mutable
// fast-path value.
func selfEvaluating(ast rtvalue.Value) bool {
	switch ast.(type) {
	case *rtvalue.Symbol, *rtvalue.Pair:
		return false
	default:
		return true
	}
}

func markNamed(v rtvalue.Value) rtvalue.Value {
	switch t := v.(type) {
	case *rtvalue.Int:
		return &rtvalue.Int{Value: t.Value, Named: true}
	case *rtvalue.Real:
		return &rtvalue.Real{Value: t.Value, Named: true}
	case *rtvalue.Bool:
		return &rtvalue.Bool{Value: t.Value, Named: true}
	case *rtvalue.Str:
		return &rtvalue.Str{Value: t.Value, Named: true}
	default:
		return v
	}
}

// EvalExpr compiles ast and evaluates it in env, short-circuiting
// self-evaluating ASTs without a compile/run round-trip (spec.md §6's
// eval_expr(ast, env)).
func (i *Interp) EvalExpr(ast rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if selfEvaluating(ast) {
		i.visible = true
		return markNamed(ast), nil
	}
	fn, err := Compile(i.consts, i.srcs, ast)
	if err != nil {
		return nil, err
	}
	return i.EvalFunction(fn, env)
}

// EvalPromise forces a fresh promise wrapping the already-compiled code in
// env (spec.md §6's eval_promise(code, env)), without binding it to any
// variable first.
func (i *Interp) EvalPromise(code *bytecode.CodeObject, owner *bytecode.FunctionObject, env *rtvalue.Environment) (rtvalue.Value, error) {
	p := rtvalue.NewCodePromise(code, owner, env)
	return i.force(p)
}
