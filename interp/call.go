package interp

import (
	"fmt"

	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/compiler"
	"github.com/rlangvm/core/frame"
	"github.com/rlangvm/core/rtvalue"
)

// actual is one already-resolved call-site argument: an optional tag (name)
// and a value that may itself still be an unforced promise or the missing
// singleton, exactly as bindFormals and the builtin/special call paths
// expect to receive it.
type actual struct {
	tag   *rtvalue.Symbol
	value rtvalue.Value
}

// dotsElements walks a "..." binding -- a tagged Pair chain built by
// rtvalue.ArgList the same way an ordinary call's argument list is -- into
// a flat slice of actuals, for `...` expansion at a call site and for
// ldddvar_'s positional "..N" access.
func dotsElements(v rtvalue.Value) []actual {
	var out []actual
	for {
		p, ok := v.(*rtvalue.Pair)
		if !ok {
			break
		}
		out = append(out, actual{tag: p.Tag, value: p.Car})
		v = p.Cdr
	}
	return out
}

// forcePromiseBody is the Promise.Force callback: it compiles p's body on
// demand if needed (the same compile-on-demand contract closures get) and
// runs it in p.Env.
func (i *Interp) forcePromiseBody(p *rtvalue.Promise) (rtvalue.Value, error) {
	if p.Code == nil {
		fn, err := compiler.CompileTopLevel(i.consts, i.srcs, p.Expr)
		if err != nil {
			return nil, err
		}
		p.Code = fn.Entry()
		p.Owner = fn
	}
	co := p.Code.(*bytecode.CodeObject)
	owner, _ := p.Owner.(*bytecode.FunctionObject)
	return i.runCode(co, owner, p.Env, frame.Builtin)
}

// buildActuals decodes a call_/dispatch_-style args-index vector (plus its
// parallel names vector, or nil for "no names") into actuals, expanding
// DotsArgIdx positions into the caller's current "..." binding and turning
// MissingArgIdx positions into the missing singleton.
func (i *Interp) buildActuals(argsList, namesList []rtvalue.Value, fn *bytecode.FunctionObject, env *rtvalue.Environment) []actual {
	var out []actual
	for pos, av := range argsList {
		codeIdx := int(av.(*rtvalue.Int).Value)
		var tag *rtvalue.Symbol
		if namesList != nil {
			if s, ok := namesList[pos].(*rtvalue.Str); ok {
				tag = rtvalue.Intern(s.Value)
			}
		}
		switch codeIdx {
		case bytecode.DotsArgIdx:
			if dv, ok := env.FindVar(rtvalue.SymDots); ok {
				out = append(out, dotsElements(dv)...)
			}
		case bytecode.MissingArgIdx:
			out = append(out, actual{tag: tag, value: rtvalue.MissingValue})
		default:
			out = append(out, actual{tag: tag, value: rtvalue.NewCodePromise(fn.Code(codeIdx), fn, env)})
		}
	}
	return out
}

// execCall implements call_: pop the callee, decode its argument list from
// the constant pool, and invoke it.
func (i *Interp) execCall(kArgsIdx, kNamesIdx int, fn *bytecode.FunctionObject, env *rtvalue.Environment, callAST rtvalue.Value) error {
	callee := i.stack.Pop()
	argsList := i.consts.Get(kArgsIdx).(*rtvalue.List).Elems
	var namesList []rtvalue.Value
	if kNamesIdx >= 0 {
		namesList = i.consts.Get(kNamesIdx).(*rtvalue.List).Elems
	}
	actuals := i.buildActuals(argsList, namesList, fn, env)

	result, err := i.invoke(callee, actuals, env, callAST)
	if err != nil {
		return err
	}
	i.stack.Push(result)
	return nil
}

// execCallStack implements call_stack_: n already-evaluated arguments sit
// on the stack above the callee, rather than being built from a local
// code-index vector. Not reachable from this compiler's own output (every
// argument it compiles is a promise, via call_), but kept as a real calling
// convention a host-embedding builtin could drive directly.
func (i *Interp) execCallStack(n, kNamesIdx int, env *rtvalue.Environment, callAST rtvalue.Value) error {
	argVals := i.stack.PopN(n)
	callee := i.stack.Pop()
	var namesList []rtvalue.Value
	if kNamesIdx >= 0 {
		namesList = i.consts.Get(kNamesIdx).(*rtvalue.List).Elems
	}
	actuals := make([]actual, n)
	for k, v := range argVals {
		var tag *rtvalue.Symbol
		if namesList != nil {
			if s, ok := namesList[k].(*rtvalue.Str); ok {
				tag = rtvalue.Intern(s.Value)
			}
		}
		actuals[k] = actual{tag: tag, value: v}
	}
	result, err := i.invoke(callee, actuals, env, callAST)
	if err != nil {
		return err
	}
	i.stack.Push(result)
	return nil
}

// execDispatch implements dispatch_: S4-then-S3-then-call resolution on the
// receiver's class vector (spec.md §4.2's dispatch_ entry). This core does
// not distinguish S4's formal multi-argument dispatch from S3's
// single-dispatch-by-class -- both resolve against the receiver's Class
// list in order, most-specific first -- a simplification rather than an
// implementation of S4's full multiple-dispatch generic function tables.
func (i *Interp) execDispatch(kArgsIdx, kNamesIdx, kSelIdx int, fn *bytecode.FunctionObject, env *rtvalue.Environment) error {
	recv := i.stack.Pop()
	selSym := i.consts.Get(kSelIdx).(*rtvalue.Symbol)
	name := selSym.Name()

	argsList := i.consts.Get(kArgsIdx).(*rtvalue.List).Elems
	var namesList []rtvalue.Value
	if kNamesIdx >= 0 {
		namesList = i.consts.Get(kNamesIdx).(*rtvalue.List).Elems
	}
	actuals := append([]actual{{value: recv}}, i.buildActuals(argsList, namesList, fn, env)...)

	method, ok := resolveMethod(env, name, rtvalue.ClassOf(recv))
	if !ok {
		return rtvalue.NonFunctionError(name)
	}
	result, err := i.invoke(method, actuals, env, nil)
	if err != nil {
		return err
	}
	i.stack.Push(result)
	return nil
}

// resolveMethod walks classes most-specific first looking for
// "<name>.<class>", then "<name>.default", then the plain symbol name
// itself (an ordinary, non-generic function).
func resolveMethod(env *rtvalue.Environment, name string, classes []string) (rtvalue.Value, bool) {
	for _, cls := range classes {
		if m, ok := env.FindCallable(rtvalue.Intern(name + "." + cls)); ok {
			return m, true
		}
	}
	if m, ok := env.FindCallable(rtvalue.Intern(name + ".default")); ok {
		return m, true
	}
	return env.FindCallable(rtvalue.Intern(name))
}

// invoke dispatches a resolved callee value against actuals, per each
// callable kind's own calling convention (spec.md §4.3): builtins force
// every argument eagerly, specials receive the unevaluated call AST,
// closures bind formals and run their compiled body in a fresh frame.
func (i *Interp) invoke(callee rtvalue.Value, actuals []actual, env *rtvalue.Environment, callAST rtvalue.Value) (rtvalue.Value, error) {
	switch fn := callee.(type) {
	case *rtvalue.Builtin:
		args := make([]rtvalue.Value, len(actuals))
		for idx, a := range actuals {
			v, err := i.resolveArg(a.value, fn.Name)
			if err != nil {
				return nil, err
			}
			args[idx] = v
		}
		result, err := fn.Fn(args, env)
		if err != nil {
			return nil, err
		}
		i.visible = fn.Visible
		return result, nil

	case *rtvalue.Special:
		call, ok := callAST.(*rtvalue.Pair)
		if !ok {
			return nil, rtvalue.InternalBugError("special %q invoked with no source call", fn.Name)
		}
		result, err := fn.Fn(call, callee, call.Cdr, env)
		if err != nil {
			return nil, err
		}
		i.visible = fn.Visible
		return result, nil

	case *rtvalue.Closure:
		return i.invokeClosure(fn, actuals, callAST)

	default:
		return nil, rtvalue.NonFunctionError(describeCallee(callAST))
	}
}

func describeCallee(callAST rtvalue.Value) string {
	if p, ok := callAST.(*rtvalue.Pair); ok {
		if sym, ok := p.Car.(*rtvalue.Symbol); ok {
			return sym.Name()
		}
	}
	return "value"
}

func (i *Interp) invokeClosure(cl *rtvalue.Closure, actuals []actual, callAST rtvalue.Value) (rtvalue.Value, error) {
	newEnv := rtvalue.NewEnvironment(cl.Env)
	if err := bindFormals(cl, actuals, newEnv); err != nil {
		return nil, err
	}

	fn, ok := cl.Compiled.(*bytecode.FunctionObject)
	if !ok {
		compiled, err := compiler.CompileClosure(i.consts, i.srcs, cl.Formals, cl.Body)
		if err != nil {
			return nil, err
		}
		cl.Compiled = compiled
		fn = compiled
	}

	fr := frame.New(i.top, frame.FunctionReturn, newEnv, i.stack.Len())
	fr.Closure = cl
	fr.CallExpr = callAST
	if cl.Name != "" {
		fr = fr.WithName(cl.Name)
	}
	return i.execFrame(fr, fn.Entry(), fn)
}

// bindFormals implements the closure argument adaptor: exact-name matches
// first, then positional fill of the remaining formals in declared order,
// with any leftover actuals collected into "..." (or rejected as unused
// arguments if the closure has none). Formals left unmatched bind their
// default expression as a promise over newEnv, or the missing singleton if
// they have none. Partial (prefix) name matching, which R also supports, is
// not implemented -- a simplification recorded in DESIGN.md.
func bindFormals(cl *rtvalue.Closure, actuals []actual, newEnv *rtvalue.Environment) error {
	matched := make([]bool, len(cl.Formals))
	used := make([]bool, len(actuals))
	hasDots := false
	for _, f := range cl.Formals {
		if rtvalue.IsDots(f.Name) {
			hasDots = true
		}
	}

	for ai, a := range actuals {
		if a.tag == nil {
			continue
		}
		for fi, f := range cl.Formals {
			if matched[fi] || rtvalue.IsDots(f.Name) {
				continue
			}
			if f.Name.Name() == a.tag.Name() {
				newEnv.DefineVar(f.Name, a.value)
				matched[fi] = true
				used[ai] = true
				break
			}
		}
	}

	fi := 0
	for ai, a := range actuals {
		if used[ai] || a.tag != nil {
			continue
		}
		for fi < len(cl.Formals) && (matched[fi] || rtvalue.IsDots(cl.Formals[fi].Name)) {
			fi++
		}
		if fi >= len(cl.Formals) {
			break
		}
		newEnv.DefineVar(cl.Formals[fi].Name, a.value)
		matched[fi] = true
		used[ai] = true
		fi++
	}

	var leftover []*rtvalue.Pair
	for ai, a := range actuals {
		if used[ai] {
			continue
		}
		leftover = append(leftover, rtvalue.Arg(a.tag, a.value))
	}
	if len(leftover) > 0 {
		if !hasDots {
			return fmt.Errorf("unused argument(s) in call to %s", closureLabel(cl))
		}
		newEnv.DefineVar(rtvalue.SymDots, rtvalue.ArgList(leftover...))
	}

	for fi, f := range cl.Formals {
		if matched[fi] || rtvalue.IsDots(f.Name) {
			continue
		}
		if f.Default != nil {
			newEnv.DefineVar(f.Name, rtvalue.NewPromise(f.Default, newEnv))
		} else {
			newEnv.DefineVar(f.Name, rtvalue.MissingValue)
		}
	}
	return nil
}

func closureLabel(cl *rtvalue.Closure) string {
	if cl.Name != "" {
		return cl.Name
	}
	return "function"
}
