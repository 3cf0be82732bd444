// Package interp implements evalCode: the bytecode dispatch loop that runs
// a compiled FunctionObject's CodeObjects against the value stack, the
// frame stack, and a live environment chain.
//
// Grounded on vm/vm.go's single giant switch over fetched opcodes plus an
// explicit stack/sp pair, generalized from the teacher's one implicit call
// kind (every invocation is a function call with no lazy arguments) to the
// spec's five frame kinds, promise forcing, and non-local transfer via
// frame.Transfer in place of the teacher's total absence of control-flow
// escapes (Monkey has no break/next/return-from-nested-call at all).
package interp

import (
	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/frame"
	"github.com/rlangvm/core/pool"
	"github.com/rlangvm/core/rtvalue"
	"github.com/rlangvm/core/vmstack"
)

// Interp runs compiled code against one value stack and one frame chain. An
// Interp is not safe for concurrent use; concurrent evaluations each need
// their own instance, sharing only the process-wide pools.
type Interp struct {
	consts *pool.ConstantPool
	srcs   *pool.SourcePool
	stack  *vmstack.Stack
	top    *frame.Frame

	// visible is the host's "print the top-level result" flag, cleared by
	// invisible_ and restored to true at the start of every call (spec.md
	// §4.1's OpInvisible entry).
	visible bool

	opts options
}

// New creates an Interp backed by consts and srcs, the same pools the
// compiler that produced the code being run used.
func New(consts *pool.ConstantPool, srcs *pool.SourcePool, opts ...Option) *Interp {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Interp{
		consts:  consts,
		srcs:    srcs,
		stack:   vmstack.New(o.stackCapacity),
		visible: true,
		opts:    o,
	}
}

// Visible reports the visibility flag left by the most recently completed
// top-level evaluation.
func (i *Interp) Visible() bool { return i.visible }

// instructionIndexes maps every instruction-start byte offset in ops to its
// 0-based instruction index, so SrcAt's instruction-index-keyed SrcIndex
// table stays usable even after a jump lands pc at a non-sequential offset.
func instructionIndexes(ops bytecode.Instructions) map[int]int {
	out := make(map[int]int)
	idx := 0
	for p := 0; p < len(ops); {
		def, err := bytecode.Lookup(ops[p])
		if err != nil {
			break
		}
		out[p] = idx
		width := 1
		for _, w := range def.OperandWidths {
			width += w
		}
		p += width
		idx++
	}
	return out
}

// runCode installs a fresh frame of kind and executes co to completion (a
// normal ret_, or a non-local transfer this invocation itself resolves).
func (i *Interp) runCode(co *bytecode.CodeObject, fn *bytecode.FunctionObject, env *rtvalue.Environment, kind frame.Kind) (rtvalue.Value, error) {
	fr := frame.New(i.top, kind, env, i.stack.Len())
	return i.execFrame(fr, co, fn)
}

// execFrame installs fr (already constructed by the caller, which may have
// set Closure/CallExpr/name) and runs co to completion.
func (i *Interp) execFrame(fr *frame.Frame, co *bytecode.CodeObject, fn *bytecode.FunctionObject) (rtvalue.Value, error) {
	i.top = fr
	i.stack.EnsureFree(co.StackDepth + 5)
	i.visible = true

	ops := co.Ops
	offsetToIdx := instructionIndexes(ops)
	env := fr.CallEnv

	pc := 0
	for {
		def, err := bytecode.Lookup(ops[pc])
		if err != nil {
			i.top = fr.Pop()
			return nil, err
		}
		operands, width := bytecode.ReadOperands(def, ops[pc+1:])
		instrLen := 1 + width
		nextPC := pc + instrLen
		srcKey := co.SrcAt(offsetToIdx[pc], co.Src)
		op := bytecode.Opcode(ops[pc])

		if i.opts.trace != nil {
			i.opts.trace(def.Name)
		}

		if op == bytecode.OpRet {
			result := i.stack.Pop()
			i.stack.Truncate(fr.StackTopSnapshot)
			i.top = fr.Pop()
			return result, nil
		}

		var stepErr error
		jumped := false

		switch op {
		case bytecode.OpPushConst:
			i.stack.Push(markNamed(i.consts.Get(operands[0])))

		case bytecode.OpLdFun:
			sym := i.consts.Get(operands[0]).(*rtvalue.Symbol)
			v, ok := env.FindCallable(sym)
			if !ok {
				stepErr = rtvalue.NonFunctionError(sym.Name())
				break
			}
			i.stack.Push(v)

		case bytecode.OpLdVar:
			sym := i.consts.Get(operands[0]).(*rtvalue.Symbol)
			v, ok := env.FindVar(sym)
			if !ok {
				stepErr = rtvalue.UnboundVariableError(sym.Name())
				break
			}
			resolved, ferr := i.resolveArg(v, sym.Name())
			if ferr != nil {
				stepErr = ferr
				break
			}
			i.stack.Push(resolved)

		case bytecode.OpLdDDVar:
			sym := i.consts.Get(operands[0]).(*rtvalue.Symbol)
			n, _ := rtvalue.DDNum(sym)
			dv, ok := env.FindVar(rtvalue.SymDots)
			if !ok {
				stepErr = rtvalue.UnboundVariableError(sym.Name())
				break
			}
			elems := dotsElements(dv)
			if n < 1 || n > len(elems) {
				stepErr = rtvalue.MissingArgumentError(sym.Name())
				break
			}
			resolved, ferr := i.resolveArg(elems[n-1].value, sym.Name())
			if ferr != nil {
				stepErr = ferr
				break
			}
			i.stack.Push(resolved)

		case bytecode.OpPushCode:
			i.stack.Push(fn.Code(operands[0]))

		case bytecode.OpPromise:
			i.stack.Push(rtvalue.NewCodePromise(fn.Code(operands[0]), fn, env))

		case bytecode.OpForce:
			v := i.stack.Pop()
			p, ok := v.(*rtvalue.Promise)
			if !ok {
				i.stack.Push(v)
				break
			}
			forced, ferr := i.force(p)
			if ferr != nil {
				stepErr = ferr
				break
			}
			i.stack.Push(forced)

		case bytecode.OpCall:
			callAST := i.srcs.Get(srcKey)
			if err := i.execCall(operands[0], operands[1], fn, env, callAST); err != nil {
				stepErr = err
			}

		case bytecode.OpCallStack:
			callAST := i.srcs.Get(srcKey)
			if err := i.execCallStack(operands[0], operands[1], env, callAST); err != nil {
				stepErr = err
			}

		case bytecode.OpDispatch:
			if err := i.execDispatch(operands[0], operands[1], operands[2], fn, env); err != nil {
				stepErr = err
			}

		case bytecode.OpBr:
			pc = nextPC + operands[0]
			jumped = true

		case bytecode.OpBrTrue:
			v := i.stack.Pop()
			b, berr := toBool(v)
			if berr != nil {
				stepErr = berr
				break
			}
			if b {
				pc = nextPC + operands[0]
				jumped = true
			}

		case bytecode.OpBrFalse:
			v := i.stack.Pop()
			b, berr := toBool(v)
			if berr != nil {
				stepErr = berr
				break
			}
			if !b {
				pc = nextPC + operands[0]
				jumped = true
			}

		case bytecode.OpBrObj:
			if rtvalue.IsObject(i.stack.Top()) {
				pc = nextPC + operands[0]
				jumped = true
			}

		case bytecode.OpBeginLoop:
			loopFr := frame.New(i.top, frame.Loop, env, i.stack.Len())
			loopFr.ReturnTarget = nextPC + operands[0]
			loopFr.SavedPC = nextPC
			i.top = loopFr

		case bytecode.OpEndContext:
			i.top = i.top.Pop()

		case bytecode.OpPop:
			i.stack.Pop()

		case bytecode.OpDup:
			i.stack.Dup()

		case bytecode.OpDup2:
			i.stack.Dup2()

		case bytecode.OpSwap:
			i.stack.Swap()

		case bytecode.OpPick:
			i.stack.Pick(operands[0])

		case bytecode.OpPut:
			i.stack.Put(operands[0])

		case bytecode.OpAsBool:
			v := i.stack.Pop()
			b, berr := toBool(v)
			if berr != nil {
				stepErr = berr
				break
			}
			i.stack.Push(&rtvalue.Bool{Value: b})

		case bytecode.OpAsLogical:
			i.stack.Push(toLogical(i.stack.Pop()))

		case bytecode.OpLglAnd:
			right := i.stack.Pop()
			left := i.stack.Pop()
			i.stack.Push(logicalAnd(left, right))

		case bytecode.OpLglOr:
			right := i.stack.Pop()
			left := i.stack.Pop()
			i.stack.Push(logicalOr(left, right))

		case bytecode.OpIs:
			v := i.stack.Pop()
			i.stack.Push(&rtvalue.Bool{Value: matchesTag(v, bytecode.TypeTag(operands[0]))})

		case bytecode.OpStVar:
			v := i.stack.Pop()
			sym := i.consts.Get(operands[0]).(*rtvalue.Symbol)
			env.DefineVar(sym, v)

		case bytecode.OpStVarSuper:
			v := i.stack.Pop()
			sym := i.consts.Get(operands[0]).(*rtvalue.Symbol)
			env.SetOrDefineGlobal(sym, v)

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpLt:
			right := i.stack.Pop()
			left := i.stack.Pop()
			result, aerr := i.arith(op, left, right, env)
			if aerr != nil {
				stepErr = aerr
				break
			}
			i.stack.Push(result)

		case bytecode.OpExtract1, bytecode.OpSubset1:
			idxVal := i.stack.Pop()
			recv := i.stack.Pop()
			result, xerr := i.subscript(op, recv, idxVal, env)
			if xerr != nil {
				stepErr = xerr
				break
			}
			i.stack.Push(result)

		case bytecode.OpInc:
			v := i.stack.Pop()
			result, ierr := incScalar(v)
			if ierr != nil {
				stepErr = ierr
				break
			}
			i.stack.Push(result)

		case bytecode.OpInvisible:
			i.visible = false

		case bytecode.OpUniq:
			i.stack.Push(uniqCopy(i.stack.Pop()))

		case bytecode.OpAsAST:
			i.stack.Push(i.asAST(i.stack.Pop()))

		case bytecode.OpIsFun:
			if !rtvalue.IsCallable(i.stack.Top()) {
				stepErr = rtvalue.NonFunctionError(i.stack.Top().String())
			}

		case bytecode.OpIsSpecial:
			sym := i.consts.Get(operands[0]).(*rtvalue.Symbol)
			v, ok := env.FindCallable(sym)
			if !ok || !rtvalue.IsSpecial(v) {
				pc = nextPC + operands[1]
				jumped = true
			}

		default:
			stepErr = rtvalue.InternalBugError("unhandled opcode %v", op)
		}

		if stepErr != nil {
			if t, ok := frame.AsTransfer(stepErr); ok {
				if resumePC, value, handled := i.interceptTransfer(t, fr); handled {
					if resumePC >= 0 {
						pc = resumePC
						continue
					}
					return value, nil
				}
			}
			i.top = fr.Pop()
			return nil, stepErr
		}

		if !jumped {
			pc = nextPC
		}
	}
}

// resolveArg forces v if it is a promise, and raises MissingArgumentError
// (naming sym) if it is the missing-argument singleton; any other value
// passes through.
func (i *Interp) resolveArg(v rtvalue.Value, name string) (rtvalue.Value, error) {
	if p, ok := v.(*rtvalue.Promise); ok {
		return i.force(p)
	}
	if rtvalue.IsMissing(v) {
		return nil, rtvalue.MissingArgumentError(name)
	}
	return v, nil
}

// force evaluates p's body (compiling it on demand if it is still a bare
// AST expression, spec.md §3's compile-on-demand contract applied to
// promises the same way it applies to closures), idempotently.
func (i *Interp) force(p *rtvalue.Promise) (rtvalue.Value, error) {
	return p.Force(i.forcePromiseBody)
}

// matchKind reports whether fr is the target of t: the nearest frame of
// the transfer's target kind, or an exact pinned frame for restarts.
func matchKind(fr *frame.Frame, t *frame.Transfer) bool {
	switch t.Kind {
	case frame.TransferBreak, frame.TransferNext:
		return fr.Kind == frame.Loop && (t.Target == nil || t.Target == fr)
	case frame.TransferReturn:
		return fr.Kind == frame.FunctionReturn && (t.Target == nil || t.Target == fr)
	case frame.TransferRestart:
		return t.Target == fr
	default:
		return false
	}
}

// interceptTransfer looks for the frame t targets somewhere between i.top
// and this execFrame invocation's own frame fr (inclusive). If found, it
// unwinds the value stack and frame chain accordingly and reports where
// this invocation should resume (resumePC >= 0) or, for a TransferReturn
// landing on fr itself, the value this invocation should return as its own
// result. handled is false when the target belongs to an outer invocation,
// in which case the caller re-raises stepErr after popping its own frame.
func (i *Interp) interceptTransfer(t *frame.Transfer, fr *frame.Frame) (resumePC int, value rtvalue.Value, handled bool) {
	var target *frame.Frame
	for f := i.top; f != nil; f = f.Next {
		if matchKind(f, t) {
			target = f
			break
		}
		if f == fr {
			break
		}
	}
	if target == nil {
		return 0, nil, false
	}

	i.stack.Truncate(target.StackTopSnapshot)
	switch t.Kind {
	case frame.TransferBreak:
		// ReturnTarget is the loop's endcontext_, which pops target itself.
		for i.top != target {
			i.top = i.top.Pop()
		}
		return target.ReturnTarget, nil, true
	case frame.TransferNext:
		for i.top != target {
			i.top = i.top.Pop()
		}
		return target.SavedPC, nil, true
	case frame.TransferRestart:
		for i.top != target {
			i.top = i.top.Pop()
		}
		return target.SavedPC, nil, true
	case frame.TransferReturn:
		i.top = target.Pop()
		return -1, t.Value, true
	default:
		return 0, nil, false
	}
}
