package emit

import (
	"testing"

	"github.com/rlangvm/core/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFinalizeStackDepthIsPeakNotFinal verifies the stack_depth invariant
// spec.md §8 calls out: StackDepth is the peak abstract depth observed
// across the whole stream, not the depth at the final instruction (which a
// well-formed expression always leaves at exactly one).
func TestFinalizeStackDepthIsPeakNotFinal(t *testing.T) {
	b := New()
	b.Emit(bytecode.OpPushConst, 0, 0) // depth 1
	b.Emit(bytecode.OpPushConst, 0, 1) // depth 2
	b.Emit(bytecode.OpAdd, 0)          // pops 2, pushes 1: depth 1

	co := b.Finalize(0)
	assert.Equal(t, 2, co.StackDepth)
	assert.Equal(t, 1, b.depth)
}

func TestEmitStackNeverUnderflowsBelowZero(t *testing.T) {
	b := New()
	// Pop with nothing pushed yet: depth must clamp at 0, not go negative.
	b.Emit(bytecode.OpPop, 0)
	assert.Equal(t, 0, b.depth)
	assert.Equal(t, 0, b.peak)
}

func TestEmitJumpPatchesForwardLabel(t *testing.T) {
	b := New()
	after := b.NewLabel("test$after")
	jumpPos := b.EmitJump(bytecode.OpBr, 0, after)
	b.Emit(bytecode.OpPushConst, 0, 0)
	b.BindLabel(after)

	co := b.Finalize(0)
	require.Equal(t, bytecode.OpBr, bytecode.Opcode(co.Ops[jumpPos]))

	operandPos := jumpPos + 1
	afterInstr := operandPos + 4
	wantOffset := int32(len(co.Ops) - afterInstr)
	gotOffset := int32(bytecode.ReadUint32(co.Ops[operandPos:]))
	assert.Equal(t, wantOffset, gotOffset)
}

func TestEmitIsSpecialPatchesFallbackLabel(t *testing.T) {
	b := New()
	fallback := b.NewLabel("if$fallback")
	pos := b.EmitIsSpecial(0, 5, fallback)
	b.Emit(bytecode.OpPop, 0)
	b.BindLabel(fallback)

	co := b.Finalize(0)
	operandPos := pos + 1 + 4
	afterInstr := operandPos + 4
	wantOffset := int32(len(co.Ops) - afterInstr)
	gotOffset := int32(bytecode.ReadUint32(co.Ops[operandPos:]))
	assert.Equal(t, wantOffset, gotOffset)
}

func TestTruncateDropsTrailingInstructionAndRestoresLastOp(t *testing.T) {
	b := New()
	b.Emit(bytecode.OpPushConst, 0, 0)
	pos := b.Pos()
	b.Emit(bytecode.OpPop, 0)

	b.Truncate(pos)
	op, ok := b.LastOp()
	require.True(t, ok)
	assert.Equal(t, bytecode.OpPushConst, op)
	assert.Equal(t, pos, b.Pos())
}

func TestReplaceAtOverwritesInPlaceWithoutChangingLength(t *testing.T) {
	b := New()
	b.Emit(bytecode.OpPop, 0)
	pos := 0
	before := b.Pos()
	b.ReplaceAt(pos, bytecode.OpRet)
	assert.Equal(t, before, b.Pos())
	assert.Equal(t, bytecode.OpRet, bytecode.Opcode(b.ops[pos]))
}
