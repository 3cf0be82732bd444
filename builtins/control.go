package builtins

import (
	"github.com/rlangvm/core/frame"
	"github.com/rlangvm/core/interp"
	"github.com/rlangvm/core/rtvalue"
)

// controlSpecials are the lazy, control-flow-shaped forms: &&/|| must not
// evaluate their right operand unless needed, quote must not evaluate its
// operand at all, <-/<<- must not evaluate a bare-symbol target as a
// variable reference, and while/repeat/for must re-evaluate their body
// repeatedly. None of that is expressible as an eager [rtvalue.Builtin], so
// each is bound as a [rtvalue.Special] that re-enters i to evaluate
// whichever operands it actually needs, exactly the way the compiler's own
// inlined fast path for the same form behaves (spec.md §4.2.1). The
// compiler's isspecial_ guard passes while a name is bound to one of these
// Specials, so the inlined bytecode runs instead; these bodies run only
// when a form is reached through an ordinary call -- e.g. invoked
// indirectly as a function value -- so they favor a straightforward
// tree-walking implementation over raw performance.
func controlSpecials(i *interp.Interp) []specialDef {
	return []specialDef{
		{"&&", &rtvalue.Special{Name: "&&", Visible: true, Fn: specialAnd(i)}},
		{"||", &rtvalue.Special{Name: "||", Visible: true, Fn: specialOr(i)}},
		{"if", &rtvalue.Special{Name: "if", Visible: true, Fn: specialIf(i)}},
		{"quote", &rtvalue.Special{Name: "quote", Visible: true, Fn: specialQuote()}},
		{"<-", &rtvalue.Special{Name: "<-", Visible: false, Fn: specialAssign(i, false)}},
		{"<<-", &rtvalue.Special{Name: "<<-", Visible: false, Fn: specialAssign(i, true)}},
		{"while", &rtvalue.Special{Name: "while", Visible: false, Fn: specialWhile(i)}},
		{"repeat", &rtvalue.Special{Name: "repeat", Visible: false, Fn: specialRepeat(i)}},
		{"for", &rtvalue.Special{Name: "for", Visible: false, Fn: specialFor(i)}},
	}
}

// controlBuiltins are next/break/return: ordinary calls (per
// compiler.compileNext/compileBreak, and return's own plain call shape --
// it was never a special form, since its argument is evaluated eagerly like
// any other function argument) whose entire effect is raising a
// frame.Transfer. next/break unwind to the nearest enclosing Loop frame;
// return unwinds to the nearest enclosing FunctionReturn frame carrying its
// (optional) value, per spec.md §5's non-local transfer and interp.go's
// matchKind/interceptTransfer, which already handle TransferReturn but had
// nothing in the tree to ever construct one.
func controlBuiltins() []builtinDef {
	return []builtinDef{
		{"break", &rtvalue.Builtin{Name: "break", Visible: false, Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
			return nil, &frame.Transfer{Kind: frame.TransferBreak}
		}}},
		{"next", &rtvalue.Builtin{Name: "next", Visible: false, Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
			return nil, &frame.Transfer{Kind: frame.TransferNext}
		}}},
		{"return", &rtvalue.Builtin{Name: "return", Visible: false, Fn: returnBuiltin}},
	}
}

func returnBuiltin(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	var v rtvalue.Value = rtvalue.NilValue
	switch len(args) {
	case 0:
	case 1:
		v = args[0]
	default:
		return nil, newError("return: expected 0 or 1 arguments, got %d", len(args))
	}
	return nil, &frame.Transfer{Kind: frame.TransferReturn, Value: v}
}

func specialAnd(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 2 {
			return nil, newError("&&: expected 2 arguments, got %d", len(a))
		}
		lv, err := i.EvalExpr(a[0].Car, env)
		if err != nil {
			return nil, err
		}
		lb, err := interp.ToBool(lv)
		if err != nil {
			return nil, err
		}
		if !lb {
			return &rtvalue.Bool{Value: false}, nil
		}
		rv, err := i.EvalExpr(a[1].Car, env)
		if err != nil {
			return nil, err
		}
		rb, err := interp.ToBool(rv)
		if err != nil {
			return nil, err
		}
		return &rtvalue.Bool{Value: rb}, nil
	}
}

func specialOr(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 2 {
			return nil, newError("||: expected 2 arguments, got %d", len(a))
		}
		lv, err := i.EvalExpr(a[0].Car, env)
		if err != nil {
			return nil, err
		}
		lb, err := interp.ToBool(lv)
		if err != nil {
			return nil, err
		}
		if lb {
			return &rtvalue.Bool{Value: true}, nil
		}
		rv, err := i.EvalExpr(a[1].Car, env)
		if err != nil {
			return nil, err
		}
		rb, err := interp.ToBool(rv)
		if err != nil {
			return nil, err
		}
		return &rtvalue.Bool{Value: rb}, nil
	}
}

// specialIf mirrors compileIf's branch exactly: evaluate the condition,
// then only the taken arm, defaulting a missing else to Nil.
func specialIf(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 2 && len(a) != 3 {
			return nil, newError("if: expected 2 or 3 arguments, got %d", len(a))
		}
		cv, err := i.EvalExpr(a[0].Car, env)
		if err != nil {
			return nil, err
		}
		cb, err := interp.ToBool(cv)
		if err != nil {
			return nil, err
		}
		if cb {
			return i.EvalExpr(a[1].Car, env)
		}
		if len(a) == 3 {
			return i.EvalExpr(a[2].Car, env)
		}
		return rtvalue.NilValue, nil
	}
}

func specialQuote() rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 1 {
			return nil, newError("quote: expected 1 argument, got %d", len(a))
		}
		return a[0].Car, nil
	}
}

// specialAssign implements <-/<<- for the two target shapes it can handle
// without the compiler's own static AST rewrite: a bare symbol or a string
// naming one. A call-shaped (complex-assignment) target is rejected with an
// error here; only the compiler's inlined path (compileComplexAssign)
// rewrites such targets into getter/setter calls.
func specialAssign(i *interp.Interp, super bool) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 2 {
			return nil, newError("assignment: expected 2 arguments, got %d", len(a))
		}
		var sym *rtvalue.Symbol
		switch t := a[0].Car.(type) {
		case *rtvalue.Symbol:
			sym = t
		case *rtvalue.Str:
			sym = rtvalue.Intern(t.Value)
		default:
			return nil, newError("invalid assignment target %T", a[0].Car)
		}
		v, err := i.EvalExpr(a[1].Car, env)
		if err != nil {
			return nil, err
		}
		if super {
			env.SetOrDefineGlobal(sym, v)
		} else {
			env.DefineVar(sym, v)
		}
		return v, nil
	}
}

func specialWhile(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 2 {
			return nil, newError("while: expected 2 arguments, got %d", len(a))
		}
		for {
			cv, err := i.EvalExpr(a[0].Car, env)
			if err != nil {
				return nil, err
			}
			cb, err := interp.ToBool(cv)
			if err != nil {
				return nil, err
			}
			if !cb {
				break
			}
			if _, err := i.EvalExpr(a[1].Car, env); err != nil {
				if t, ok := frame.AsTransfer(err); ok {
					if t.Kind == frame.TransferBreak {
						break
					}
					if t.Kind == frame.TransferNext {
						continue
					}
				}
				return nil, err
			}
		}
		return rtvalue.NilValue, nil
	}
}

func specialRepeat(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 1 {
			return nil, newError("repeat: expected 1 argument, got %d", len(a))
		}
		for {
			if _, err := i.EvalExpr(a[0].Car, env); err != nil {
				if t, ok := frame.AsTransfer(err); ok {
					if t.Kind == frame.TransferBreak {
						break
					}
					if t.Kind == frame.TransferNext {
						continue
					}
				}
				return nil, err
			}
		}
		return rtvalue.NilValue, nil
	}
}

// specialFor binds the loop variable to each element of seq in order,
// taking the elements from sequenceElements directly rather than through
// the length and "[" calls compiler.compileFor emits. For an unclassed seq
// both visit the same elements in the same order; a classed seq's "["
// method is not consulted here.
func specialFor(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 3 {
			return nil, newError("for: expected 3 arguments, got %d", len(a))
		}
		loopVar, ok := a[0].Car.(*rtvalue.Symbol)
		if !ok {
			return nil, newError("for: loop variable must be a symbol, got %T", a[0].Car)
		}
		seq, err := i.EvalExpr(a[1].Car, env)
		if err != nil {
			return nil, err
		}
		elems := sequenceElements(seq)
		for _, elem := range elems {
			env.DefineVar(loopVar, elem)
			if _, err := i.EvalExpr(a[2].Car, env); err != nil {
				if t, ok := frame.AsTransfer(err); ok {
					if t.Kind == frame.TransferBreak {
						break
					}
					if t.Kind == frame.TransferNext {
						continue
					}
				}
				return nil, err
			}
		}
		return rtvalue.NilValue, nil
	}
}
