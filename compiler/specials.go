package compiler

import (
	"fmt"

	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/rtvalue"
)

// specialForms maps a callee's symbol name to the handler that inlines it.
// It is filled in by init rather than by a package-level initializer,
// because the handlers call back into compileCall, which reads this map.
// Every handler except compileBlock, compileNext and compileBreak guards its
// fast path with an isspecial_ check (see guarded): when the name does not
// resolve to a Special at run time -- because it has been shadowed, or
// because it is bound as a Builtin -- control falls back to
// compileOrdinaryCall's call of whatever the name is bound to, per spec.md
// §9's recommended dynamic fallback (the Open Question this core resolves in
// favor of, rather than raising InternalBug on a stale compile-time
// assumption).
var specialForms map[string]func(*Compiler, *rtvalue.Pair) error

func init() {
	specialForms = map[string]func(*Compiler, *rtvalue.Pair) error{
		"&&":          compileAnd,
		"||":          compileOr,
		"quote":       compileQuote,
		"<-":          compileAssign,
		"<<-":         compileSuperAssign,
		"is.null":     compileIsType(bytecode.TagNil),
		"is.list":     compileIsType(bytecode.TagList),
		"is.pairlist": compileIsType(bytecode.TagPairlist),
		"[[":          compileExtract1,
		"[":           compileSubset1,
		"if":          compileIf,
		"while":       compileWhile,
		"repeat":      compileRepeat,
		"next":        compileNext,
		"break":       compileBreak,
		"for":         compileFor,
		"{":           compileBlock,

		"+": compileArith(bytecode.OpAdd),
		"-": compileArith(bytecode.OpSub),
		"<": compileArith(bytecode.OpLt),
	}
}

// compileArith lowers a binary `+`/`-`/`<` call to its scalar fast-path
// opcode, guarded the same as every other inlined form; the interpreter's
// opcode handler falls back to calling the ordinary builtin itself when the
// operands aren't both scalar reals (spec.md §4.1's add_/sub_/lt_ entries),
// so the compiler need not inspect operand shapes at all.
func compileArith(op bytecode.Opcode) func(*Compiler, *rtvalue.Pair) error {
	return func(c *Compiler, call *rtvalue.Pair) error {
		name := c.mustSelf(call)
		args, err := wantArgs(call, name, 2)
		if err != nil {
			return err
		}
		return guarded(c, call, name, func() error {
			b := c.current()
			srcKey := c.srcs.Add(call)
			if err := c.compileExpr(args[0].Car); err != nil {
				return err
			}
			if err := c.compileExpr(args[1].Car); err != nil {
				return err
			}
			b.Emit(op, srcKey)
			return nil
		})
	}
}

// guarded wraps an inlined special form's fast path with an isspecial_
// check: the symbol named name is resolved at runtime and, if it is no
// longer bound as the ordinary special the compiler assumed, control falls
// through to fallback's generically-compiled call instead of running
// inline's bytecode.
func guarded(c *Compiler, call *rtvalue.Pair, name string, inline func() error) error {
	b := c.current()
	srcKey := c.srcs.Add(call)
	symIdx := c.consts.Add(rtvalue.Intern(name))

	fallback := b.NewLabel(name + "$fallback")
	end := b.NewLabel(name + "$end")

	b.EmitIsSpecial(srcKey, symIdx, fallback)
	if err := inline(); err != nil {
		return err
	}
	b.EmitJump(bytecode.OpBr, srcKey, end)

	b.BindLabel(fallback)
	if err := c.compileOrdinaryCall(call); err != nil {
		return err
	}
	b.BindLabel(end)
	return nil
}

func wantArgs(call *rtvalue.Pair, name string, n int) ([]*rtvalue.Pair, error) {
	args := rtvalue.CallArgs(call)
	if len(args) != n {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", name, n, len(args))
	}
	return args, nil
}

// compileAnd lowers `&&` to a strict, short-circuit-evaluated conjunction:
// the right operand is compiled only when the left is true (spec.md §4.2.1).
func compileAnd(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "&&", 2)
	if err != nil {
		return err
	}
	return guarded(c, call, "&&", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)
		end := b.NewLabel("&&$short")

		if err := c.compileExpr(args[0].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpAsBool, srcKey)
		b.Emit(bytecode.OpDup, srcKey)
		b.EmitJump(bytecode.OpBrFalse, srcKey, end)
		b.Emit(bytecode.OpPop, srcKey)
		if err := c.compileExpr(args[1].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpAsBool, srcKey)
		b.BindLabel(end)
		return nil
	})
}

// compileOr lowers `||` symmetrically to compileAnd: the right operand is
// compiled only when the left is false.
func compileOr(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "||", 2)
	if err != nil {
		return err
	}
	return guarded(c, call, "||", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)
		end := b.NewLabel("||$short")

		if err := c.compileExpr(args[0].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpAsBool, srcKey)
		b.Emit(bytecode.OpDup, srcKey)
		b.EmitJump(bytecode.OpBrTrue, srcKey, end)
		b.Emit(bytecode.OpPop, srcKey)
		if err := c.compileExpr(args[1].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpAsBool, srcKey)
		b.BindLabel(end)
		return nil
	})
}

// compileIf lowers `if(cond) conseq` and `if(cond) conseq else alt` to a
// brfalse_ branch over the compiled condition; a missing alt pushes Nil,
// same as every other branch that must leave exactly one value on the
// stack (spec.md §4.2.1's documented "every construct, including if, {,
// while, <-, is an ordinary call node" claim -- this is the one of those
// the compiler had never actually inlined).
func compileIf(c *Compiler, call *rtvalue.Pair) error {
	args := rtvalue.CallArgs(call)
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("if: expected 2 or 3 arguments, got %d", len(args))
	}
	return guarded(c, call, "if", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)
		elseLabel := b.NewLabel("if$else")
		end := b.NewLabel("if$end")

		if err := c.compileExpr(args[0].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpAsBool, srcKey)
		b.EmitJump(bytecode.OpBrFalse, srcKey, elseLabel)

		if err := c.compileExpr(args[1].Car); err != nil {
			return err
		}
		b.EmitJump(bytecode.OpBr, srcKey, end)

		b.BindLabel(elseLabel)
		if len(args) == 3 {
			if err := c.compileExpr(args[2].Car); err != nil {
				return err
			}
		} else {
			idx := c.consts.Add(rtvalue.NilValue)
			b.Emit(bytecode.OpPushConst, srcKey, idx)
		}
		b.BindLabel(end)
		return nil
	})
}

// compileQuote lowers `quote(x)` to pushing x's unevaluated AST as a
// constant, never compiling x as an expression.
func compileQuote(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "quote", 1)
	if err != nil {
		return err
	}
	return guarded(c, call, "quote", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)
		idx := c.consts.Add(args[0].Car)
		b.Emit(bytecode.OpPushConst, srcKey, idx)
		return nil
	})
}

// compileIsType lowers the is.null/is.list/is.pairlist family to is_ with
// the matching TypeTag.
func compileIsType(tag bytecode.TypeTag) func(*Compiler, *rtvalue.Pair) error {
	return func(c *Compiler, call *rtvalue.Pair) error {
		name := c.mustSelf(call)
		args, err := wantArgs(call, name, 1)
		if err != nil {
			return err
		}
		return guarded(c, call, name, func() error {
			b := c.current()
			srcKey := c.srcs.Add(call)
			if err := c.compileExpr(args[0].Car); err != nil {
				return err
			}
			b.Emit(bytecode.OpIs, srcKey, int(tag))
			return nil
		})
	}
}

// mustSelf recovers the callee's name for use in error messages; safe since
// specialForms only ever dispatches here from compileCall's symbol check.
func (c *Compiler) mustSelf(call *rtvalue.Pair) string {
	return call.Car.(*rtvalue.Symbol).Name()
}

// compileExtract1 lowers `x[[i]]` to the attribute-free scalar fast path,
// side-exiting to S3/S4 dispatch via brobj_ when x carries a class
// attribute (spec.md §4.1's extract1_ entry).
func compileExtract1(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "[[", 2)
	if err != nil {
		return err
	}
	return compileSubscript(c, call, "[[", args, bytecode.OpExtract1)
}

// compileSubset1 lowers `x[i]` the same way as compileExtract1, using the
// subset1_ fast path instead.
func compileSubset1(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "[", 2)
	if err != nil {
		return err
	}
	return compileSubscript(c, call, "[", args, bytecode.OpSubset1)
}

func compileSubscript(c *Compiler, call *rtvalue.Pair, name string, args []*rtvalue.Pair, op bytecode.Opcode) error {
	return guarded(c, call, name, func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)

		if err := c.compileExpr(args[0].Car); err != nil {
			return err
		}
		dispatch := b.NewLabel(name + "$dispatch")
		end := b.NewLabel(name + "$end")
		b.EmitJump(bytecode.OpBrObj, srcKey, dispatch)

		if err := c.compileExpr(args[1].Car); err != nil {
			return err
		}
		b.Emit(op, srcKey)
		b.EmitJump(bytecode.OpBr, srcKey, end)

		b.BindLabel(dispatch)
		if err := c.compileOrdinaryDispatch(call, name, args); err != nil {
			return err
		}
		b.BindLabel(end)
		return nil
	})
}

// compileOrdinaryDispatch compiles the generic-dispatch side exit for a
// subscript operator once brobj_ has found a class attribute: the receiver
// is already on the stack, the remaining arguments compile as promises, and
// dispatch_ performs S4-then-S3-then-call resolution (spec.md §4.2's
// dispatch_ entry).
func (c *Compiler) compileOrdinaryDispatch(call *rtvalue.Pair, name string, args []*rtvalue.Pair) error {
	b := c.current()
	srcKey := c.srcs.Add(call)

	argIdx := make([]rtvalue.Value, 0, len(args)-1)
	for _, a := range args[1:] {
		codeIdx, err := c.compileArgument(a)
		if err != nil {
			return err
		}
		argIdx = append(argIdx, &rtvalue.Int{Value: int64(codeIdx)})
	}
	kArgs := c.consts.Add(&rtvalue.List{Elems: argIdx})
	kSel := c.consts.Add(rtvalue.Intern(name))
	b.EmitStack(bytecode.OpDispatch, srcKey, 1, 1, kArgs, -1, kSel)
	return nil
}

// compileBlock lowers `{ e1; e2; ...; en }`: every statement but the last
// is compiled and discarded, the last is left on the stack as the block's
// value. An empty block pushes Nil.
func compileBlock(c *Compiler, call *rtvalue.Pair) error {
	b := c.current()
	srcKey := c.srcs.Add(call)
	stmts := rtvalue.CallArgs(call)

	if len(stmts) == 0 {
		idx := c.consts.Add(rtvalue.NilValue)
		b.Emit(bytecode.OpPushConst, srcKey, idx)
		return nil
	}
	for i, stmt := range stmts {
		if err := c.compileExpr(stmt.Car); err != nil {
			return err
		}
		if i < len(stmts)-1 {
			b.Emit(bytecode.OpPop, c.srcs.Add(stmt.Car))
		}
	}
	return nil
}

// compileAssign lowers `target <- value` in its three shapes: a bare symbol
// target stores directly; a string target is interned to a symbol first;
// a call-shaped target (`f(g(x)) <- v`) is rewritten into the nested
// getter/setter sequence spec.md §4.2.1 describes.
func compileAssign(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "<-", 2)
	if err != nil {
		return err
	}
	return guarded(c, call, "<-", func() error {
		return compileAssignInto(c, call, args[0].Car, args[1].Car, bytecode.OpStVar)
	})
}

// compileSuperAssign lowers `target <<- value`: same three shapes as `<-`,
// but the final store uses stvar_super_, which walks outward past the
// local environment and only falls back to defining in the global
// environment when no enclosing binding already exists (spec.md §4.2.1).
func compileSuperAssign(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "<<-", 2)
	if err != nil {
		return err
	}
	return guarded(c, call, "<<-", func() error {
		return compileAssignInto(c, call, args[0].Car, args[1].Car, bytecode.OpStVarSuper)
	})
}

func compileAssignInto(c *Compiler, call *rtvalue.Pair, target, value rtvalue.Value, storeOp bytecode.Opcode) error {
	if p, ok := target.(*rtvalue.Pair); ok {
		return compileComplexAssign(c, call, p, value, storeOp)
	}

	b := c.current()
	srcKey := c.srcs.Add(call)
	if err := c.compileExpr(value); err != nil {
		return err
	}

	switch t := target.(type) {
	case *rtvalue.Symbol:
		b.Emit(bytecode.OpDup, srcKey)
		idx := c.consts.Add(t)
		b.Emit(storeOp, srcKey, idx)
		return nil

	case *rtvalue.Str:
		b.Emit(bytecode.OpDup, srcKey)
		idx := c.consts.Add(rtvalue.Intern(t.Value))
		b.Emit(storeOp, srcKey, idx)
		return nil

	default:
		return fmt.Errorf("invalid assignment target %T", target)
	}
}

// compileComplexAssign rewrites `f(g(x)) <- v` into R's canonical
// getter/setter decomposition, built here as a plain AST-to-AST rewrite
// (rather than hand-emitted bytecode) so the general call protocol handles
// evaluation order and promise wrapping exactly as it would for any other
// call:
//
//	x <- `g<-`(x, value = `f<-`(g(x), value = v))
//
// The outermost getter's setter (`f<-`) is applied first, to the
// one-level-in getter expression (`g(x)`), with v as its replacement
// value; the innermost getter's setter (`g<-`) wraps that, applied
// directly to x, and its result is stored back into x. Built in the same
// "decompose into an ordered sequence of operations" style the teacher
// uses for HashLiteral's sorted-key emission, since no corpus example has
// a call-site assignment target to generalize from directly.
func compileComplexAssign(c *Compiler, call *rtvalue.Pair, target *rtvalue.Pair, value rtvalue.Value, storeOp bytecode.Opcode) error {
	chain, innermost, err := flattenAssignChain(target)
	if err != nil {
		return err
	}

	rebuilt := value
	for i := 0; i < len(chain); i++ {
		wrap := chain[i]
		sym, ok := wrap.Car.(*rtvalue.Symbol)
		if !ok {
			return fmt.Errorf("invalid assignment target: %T is not a named call", wrap.Car)
		}
		receiver := getterUpTo(chain, i+1, innermost)
		args := rtvalue.CallArgs(wrap)
		setterArgs := make([]*rtvalue.Pair, 0, len(args)+1)
		setterArgs = append(setterArgs, rtvalue.Arg(nil, receiver))
		for j := 1; j < len(args); j++ {
			setterArgs = append(setterArgs, rtvalue.Arg(args[j].Tag, args[j].Car))
		}
		setterArgs = append(setterArgs, rtvalue.Arg(rtvalue.SymValue, rebuilt))
		rebuilt = rtvalue.Call(rtvalue.Intern(sym.Name()+"<-"), setterArgs...)
	}

	b := c.current()
	srcKey := c.srcs.Add(call)
	if err := c.compileExpr(rebuilt); err != nil {
		return err
	}
	b.Emit(bytecode.OpDup, srcKey)
	idx := c.consts.Add(innermost)
	b.Emit(storeOp, srcKey, idx)
	return nil
}

// getterUpTo rebuilds the getter expression applying chain[j:] to base, in
// nesting order (chain[len(chain)-1] is adjacent to base). j == len(chain)
// is the base case: no getters left, just base itself.
func getterUpTo(chain []*rtvalue.Pair, j int, base *rtvalue.Symbol) rtvalue.Value {
	if j >= len(chain) {
		return base
	}
	wrap := chain[j]
	args := rtvalue.CallArgs(wrap)
	rest := make([]*rtvalue.Pair, len(args))
	rest[0] = rtvalue.Arg(nil, getterUpTo(chain, j+1, base))
	for k := 1; k < len(args); k++ {
		rest[k] = rtvalue.Arg(args[k].Tag, args[k].Car)
	}
	return rtvalue.Call(wrap.Car, rest...)
}

// flattenAssignChain walks a nested-call assignment target outside-in,
// collecting each wrapping call and returning the innermost symbol being
// ultimately rebound.
func flattenAssignChain(target *rtvalue.Pair) (chain []*rtvalue.Pair, innermost *rtvalue.Symbol, err error) {
	cur := target
	for {
		chain = append(chain, cur)
		args := rtvalue.CallArgs(cur)
		if len(args) == 0 {
			return nil, nil, fmt.Errorf("assignment target %s has no receiver argument", cur.String())
		}
		switch inner := args[0].Car.(type) {
		case *rtvalue.Symbol:
			return chain, inner, nil
		case *rtvalue.Pair:
			cur = inner
		default:
			return nil, nil, fmt.Errorf("invalid nested assignment target %T", inner)
		}
	}
}

// compileWhile lowers `while(cond) body`: a LOOP frame whose break target
// follows the closing branch and whose next target re-enters at the
// condition test, per spec.md §4.1's beginloop_/endcontext_ pairing.
func compileWhile(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "while", 2)
	if err != nil {
		return err
	}
	return guarded(c, call, "while", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)

		top := b.NewLabel("while$top")
		after := b.NewLabel("while$after")

		b.EmitJump(bytecode.OpBeginLoop, srcKey, after)
		b.BindLabel(top)
		if err := c.compileExpr(args[0].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpAsBool, srcKey)
		b.EmitJump(bytecode.OpBrFalse, srcKey, after)

		if err := c.compileExpr(args[1].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpPop, srcKey)
		b.EmitJump(bytecode.OpBr, srcKey, top)

		b.BindLabel(after)
		b.Emit(bytecode.OpEndContext, srcKey)
		idx := c.consts.Add(rtvalue.NilValue)
		b.Emit(bytecode.OpPushConst, srcKey, idx)
		return nil
	})
}

// compileRepeat lowers `repeat body`: identical to compileWhile but without
// a condition test -- the loop only ends via break or a non-local transfer.
func compileRepeat(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "repeat", 1)
	if err != nil {
		return err
	}
	return guarded(c, call, "repeat", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)

		top := b.NewLabel("repeat$top")
		after := b.NewLabel("repeat$after")

		b.EmitJump(bytecode.OpBeginLoop, srcKey, after)
		b.BindLabel(top)
		if err := c.compileExpr(args[0].Car); err != nil {
			return err
		}
		b.Emit(bytecode.OpPop, srcKey)
		b.EmitJump(bytecode.OpBr, srcKey, top)

		b.BindLabel(after)
		b.Emit(bytecode.OpEndContext, srcKey)
		idx := c.consts.Add(rtvalue.NilValue)
		b.Emit(bytecode.OpPushConst, srcKey, idx)
		return nil
	})
}

// compileNext and compileBreak are not inlined: only the interpreter knows
// which Loop frame is installed when they run, so each compiles to an
// ordinary, unguarded call of the builtin named "next"/"break", which the
// base environment binds to raise a frame.Transfer; the interpreter then
// unwinds to the nearest Loop frame. See builtins.controlBuiltins.
func compileNext(c *Compiler, call *rtvalue.Pair) error {
	return compileOrdinaryCall0(c, call, "next")
}

func compileBreak(c *Compiler, call *rtvalue.Pair) error {
	return compileOrdinaryCall0(c, call, "break")
}

func compileOrdinaryCall0(c *Compiler, call *rtvalue.Pair, name string) error {
	if _, err := wantArgs(call, name, 0); err != nil {
		return err
	}
	return c.compileOrdinaryCall(call)
}
