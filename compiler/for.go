package compiler

import (
	"fmt"

	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/rtvalue"
)

// compileFor resolves the `for`-loop lowering spec.md §9 leaves open: the
// loop variable is bound, in turn, to each element of the evaluated
// sequence (via the `[` fast path, so a user-overridden `[` on an object
// sequence is honored through the same brobj_ dispatch side exit an
// ordinary subscript gets), with beginloop_/endcontext_ installing and
// tearing down the LOOP frame break/next targets around it.
func compileFor(c *Compiler, call *rtvalue.Pair) error {
	args, err := wantArgs(call, "for", 3)
	if err != nil {
		return err
	}
	loopVar, ok := args[0].Car.(*rtvalue.Symbol)
	if !ok {
		return fmt.Errorf("for: loop variable must be a symbol, got %T", args[0].Car)
	}
	seqExpr, bodyExpr := args[1].Car, args[2].Car

	return guarded(c, call, "for", func() error {
		b := c.current()
		srcKey := c.srcs.Add(call)

		c.forCounter++
		seqSym := rtvalue.Intern(fmt.Sprintf("..for_seq.%d", c.forCounter))
		idxSym := rtvalue.Intern(fmt.Sprintf("..for_idx.%d", c.forCounter))

		if err := c.compileExpr(seqExpr); err != nil {
			return err
		}
		b.Emit(bytecode.OpStVar, srcKey, c.consts.Add(seqSym))

		zeroIdx := c.consts.Add(&rtvalue.Int{Value: 0})
		b.Emit(bytecode.OpPushConst, srcKey, zeroIdx)
		b.Emit(bytecode.OpStVar, srcKey, c.consts.Add(idxSym))

		top := b.NewLabel("for$top")
		after := b.NewLabel("for$after")

		b.EmitJump(bytecode.OpBeginLoop, srcKey, after)
		b.BindLabel(top)

		// idx < length(seq)
		if err := c.compileExpr(idxSym); err != nil {
			return err
		}
		lengthCall := rtvalue.Call(rtvalue.Intern("length"), rtvalue.Arg(nil, seqSym))
		if err := c.compileExpr(lengthCall); err != nil {
			return err
		}
		b.Emit(bytecode.OpLt, srcKey)
		b.Emit(bytecode.OpAsBool, srcKey)
		b.EmitJump(bytecode.OpBrFalse, srcKey, after)

		// loopVar <- seq[idx]
		oneBased := rtvalue.Call(rtvalue.Intern("+"), rtvalue.Arg(nil, idxSym), rtvalue.Arg(nil, &rtvalue.Int{Value: 1}))
		elem := rtvalue.Call(rtvalue.Intern("["), rtvalue.Arg(nil, seqSym), rtvalue.Arg(nil, oneBased))
		if err := c.compileExpr(elem); err != nil {
			return err
		}
		b.Emit(bytecode.OpStVar, srcKey, c.consts.Add(loopVar))

		if err := c.compileExpr(bodyExpr); err != nil {
			return err
		}
		b.Emit(bytecode.OpPop, srcKey)

		if err := c.compileExpr(idxSym); err != nil {
			return err
		}
		b.Emit(bytecode.OpInc, srcKey)
		b.Emit(bytecode.OpStVar, srcKey, c.consts.Add(idxSym))
		b.EmitJump(bytecode.OpBr, srcKey, top)

		b.BindLabel(after)
		b.Emit(bytecode.OpEndContext, srcKey)
		nilIdx := c.consts.Add(rtvalue.NilValue)
		b.Emit(bytecode.OpPushConst, srcKey, nilIdx)
		return nil
	})
}
