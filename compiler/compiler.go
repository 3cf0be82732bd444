// Package compiler turns a host-supplied AST (rtvalue.Value's Symbol/Pair/
// scalar shapes) into bytecode.FunctionObject, one CodeObject per closure
// entry point and per argument promise body.
//
// Grounded on compiler/compiler.go's Compiler/New/enterScope/leaveScope/
// Bytecode() shape, generalized from Monkey's fixed node-kind switch (one
// case per concrete *ast.XxxExpression type) to dispatch over call-shaped
// AST nodes keyed by callee symbol name, since the host language represents
// every construct -- including `if`, `{`, `while`, `<-` -- as an ordinary
// call node (spec.md §2's "AST" glossary entry). Unlike the teacher, this
// compiler never resolves a variable to a compile-time slot: spec.md §4.1's
// ldvar_/stvar_ always walk the live environment chain at runtime, so there
// is no symbol-table/free-variable-promotion machinery to carry over --
// closures capture their defining environment directly (rtvalue.Closure.Env)
// the way the teacher's own evaluator (not its VM) does it.
package compiler

import (
	"fmt"

	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/emit"
	"github.com/rlangvm/core/pool"
	"github.com/rlangvm/core/rtvalue"
)

// Compiler compiles one FunctionObject at a time. It is not safe for
// concurrent use by multiple goroutines; callers compiling on demand from
// multiple interpreter instances each get their own Compiler, sharing only
// the process-wide pools (which are themselves safe for concurrent use).
type Compiler struct {
	consts *pool.ConstantPool
	srcs   *pool.SourcePool

	fn     *bytecode.FunctionObject
	scopes []*emit.Builder

	// forCounter generates unique hidden-variable name suffixes for nested
	// for-loops compiled within the same Compiler instance, so an inner
	// loop's sequence/index bindings never collide with an outer one's in
	// a shared environment (spec.md's for-loops do not open a new scope).
	forCounter int
}

// New creates a Compiler that adds constants and source entries to consts
// and srcs.
func New(consts *pool.ConstantPool, srcs *pool.SourcePool) *Compiler {
	return &Compiler{consts: consts, srcs: srcs}
}

func (c *Compiler) current() *emit.Builder { return c.scopes[len(c.scopes)-1] }

func (c *Compiler) enterScope() { c.scopes = append(c.scopes, emit.New()) }

// leaveScope finalizes the innermost scope's CodeObject against src and
// appends it to the FunctionObject being built, returning its local index.
func (c *Compiler) leaveScope(src int) int {
	n := len(c.scopes) - 1
	b := c.scopes[n]
	c.scopes = c.scopes[:n]
	return c.fn.AddCode(b.Finalize(src))
}

// CompileClosure compiles formals and body into a FunctionObject, per
// spec.md §3's "closures are compiled on demand" contract. formals with
// rtvalue.IsDots true are recorded as HasDots rather than counted among
// NumFormals/FormalNames.
func CompileClosure(consts *pool.ConstantPool, srcs *pool.SourcePool, formals []rtvalue.Formal, body rtvalue.Value) (*bytecode.FunctionObject, error) {
	c := New(consts, srcs)
	fn := &bytecode.FunctionObject{}
	for _, f := range formals {
		if rtvalue.IsDots(f.Name) {
			fn.HasDots = true
			continue
		}
		fn.FormalNames = append(fn.FormalNames, f.Name.Name())
		fn.NumFormals++
	}
	c.fn = fn
	if err := c.compileEntry(body); err != nil {
		return nil, err
	}
	return fn, nil
}

// CompileTopLevel compiles a bare top-level expression (spec.md §6's
// eval_expr) into a single-entry FunctionObject with no formals.
func CompileTopLevel(consts *pool.ConstantPool, srcs *pool.SourcePool, expr rtvalue.Value) (*bytecode.FunctionObject, error) {
	return CompileClosure(consts, srcs, nil, expr)
}

// compileEntry compiles body as the function's entry CodeObject (index 0):
// the body's value is left on the stack and ret_ issued, rather than popped
// the way a non-tail statement's value would be.
func (c *Compiler) compileEntry(body rtvalue.Value) error {
	srcKey := c.srcs.Add(body)
	c.enterScope()
	if err := c.compileExpr(body); err != nil {
		return err
	}
	c.current().Emit(bytecode.OpRet, srcKey)
	idx := c.leaveScope(srcKey)
	if idx != 0 {
		return fmt.Errorf("internal bug: entry CodeObject got index %d, want 0", idx)
	}
	return nil
}

// compilePromiseBody compiles expr as a new, separate CodeObject (a
// promise's unevaluated argument expression, per spec.md §3's Promise
// entry) and returns its local code index for a promise_/push_code_
// instruction to reference.
func (c *Compiler) compilePromiseBody(expr rtvalue.Value) (int, error) {
	srcKey := c.srcs.Add(expr)
	c.enterScope()
	if err := c.compileExpr(expr); err != nil {
		return 0, err
	}
	c.current().Emit(bytecode.OpRet, srcKey)
	return c.leaveScope(srcKey), nil
}

// compileExpr compiles v so that exactly one value is left on the stack.
func (c *Compiler) compileExpr(v rtvalue.Value) error {
	b := c.current()
	srcKey := c.srcs.Add(v)

	switch t := v.(type) {
	case nil:
		return fmt.Errorf("internal bug: nil AST node")

	case *rtvalue.Symbol:
		idx := c.consts.Add(t)
		if _, ok := rtvalue.DDNum(t); ok {
			b.Emit(bytecode.OpLdDDVar, srcKey, idx)
			return nil
		}
		b.Emit(bytecode.OpLdVar, srcKey, idx)
		return nil

	case *rtvalue.Pair:
		return c.compileCall(t)

	default:
		// Every other Value (scalars, Nil, NA, Missing, already-evaluated
		// closures/environments appearing as quoted literals) is
		// self-evaluating: push it as a constant.
		idx := c.consts.Add(v)
		b.Emit(bytecode.OpPushConst, srcKey, idx)
		return nil
	}
}

// compileCall compiles a call node, dispatching to an inlined special form
// when call.Car names one, and to an ordinary dynamic call otherwise.
func (c *Compiler) compileCall(call *rtvalue.Pair) error {
	if sym, ok := call.Car.(*rtvalue.Symbol); ok {
		if handler, ok := specialForms[sym.Name()]; ok {
			return handler(c, call)
		}
	}
	return c.compileOrdinaryCall(call)
}

// compileOrdinaryCall compiles the general call protocol: resolve the
// callee, compile every actual argument as its own promise, and emit call_
// with the args-index and names vectors packed as constant-pool entries,
// per spec.md §4.1's call_ definition.
func (c *Compiler) compileOrdinaryCall(call *rtvalue.Pair) error {
	b := c.current()
	srcKey := c.srcs.Add(call)

	if err := c.compileCallee(call.Car, srcKey); err != nil {
		return err
	}

	args := rtvalue.CallArgs(call)
	argIdx := make([]rtvalue.Value, len(args))
	var names []rtvalue.Value
	anyNamed := false
	for i, a := range args {
		if a.Tag != nil {
			anyNamed = true
			names = append(names, &rtvalue.Str{Value: a.Tag.Name()})
		} else {
			names = append(names, rtvalue.NilValue)
		}

		if sym, ok := a.Car.(*rtvalue.Symbol); ok && rtvalue.IsDots(sym) {
			argIdx[i] = &rtvalue.Int{Value: bytecode.DotsArgIdx}
			continue
		}
		if rtvalue.IsMissing(a.Car) {
			argIdx[i] = &rtvalue.Int{Value: bytecode.MissingArgIdx}
			continue
		}

		codeIdx, err := c.compileArgument(a)
		if err != nil {
			return err
		}
		argIdx[i] = &rtvalue.Int{Value: int64(codeIdx)}
	}

	kArgs := c.consts.Add(&rtvalue.List{Elems: argIdx})
	kNames := -1
	if anyNamed {
		kNames = c.consts.Add(&rtvalue.List{Elems: names})
	}

	b.EmitStack(bytecode.OpCall, srcKey, 1, 1, kArgs, kNames)
	return nil
}

// compileCallee resolves a call's callee expression: a bare symbol resolves
// directly via ldfun_ (compile-on-demand lookup skipping non-function
// bindings); any other expression (a nested call producing a callable
// value) is compiled as an ordinary expression and asserted callable with
// isfun_.
func (c *Compiler) compileCallee(callee rtvalue.Value, srcKey int) error {
	b := c.current()
	if sym, ok := callee.(*rtvalue.Symbol); ok {
		idx := c.consts.Add(sym)
		b.Emit(bytecode.OpLdFun, srcKey, idx)
		return nil
	}
	if err := c.compileExpr(callee); err != nil {
		return err
	}
	b.Emit(bytecode.OpIsFun, srcKey)
	return nil
}

// compileArgument compiles one actual argument as a promise body: a
// nested CodeObject capturing the unevaluated expression, pushed as a
// promise_ value at the call site (call-by-need, spec.md §3).
// compileOrdinaryCall does not pass "..." itself or a bare missing-argument
// placeholder here: it encodes them as the DotsArgIdx/MissingArgIdx
// sentinels, which the interpreter's call protocol expands when it builds
// the callee's argument list.
func (c *Compiler) compileArgument(a *rtvalue.Pair) (int, error) {
	return c.compilePromiseBody(a.Car)
}
