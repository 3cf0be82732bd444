// Package emit implements the code stream builder: a streaming emitter that
// interleaves encoded instructions with their source-pool keys, resolves
// forward jump labels via patch points, and computes a conservative
// stack_depth bound by abstract-interpreting each opcode's (pops, pushes)
// signature.
//
// Grounded on compiler.Compiler's emit/addInstruction/setLastInstruction/
// changeOperand/replaceInstruction family: the teacher tracks
// lastInstruction/previousInstruction to patch exactly two hardcoded
// if/else jump sites; this module generalizes the same "emit a bogus
// operand, come back and changeOperand later" technique to arbitrary named
// forward labels, since the spec's while/repeat/break/next/for lowering all
// need it.
package emit

import (
	"encoding/binary"
	"fmt"

	"github.com/rlangvm/core/bytecode"
)

// Builder accumulates one CodeObject's instruction stream.
type Builder struct {
	ops      bytecode.Instructions
	srcIndex []int // parallel to instruction count, not byte offset

	labels  map[string]int   // label name -> resolved byte offset
	patches map[string][]int // label name -> pending operand byte offsets

	depth    int // current abstract stack depth
	peak     int // peak abstract stack depth observed
	lastOp   bytecode.Opcode
	lastPos  int
	prevOp   bytecode.Opcode
	hasEmits bool
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{
		labels:  make(map[string]int),
		patches: make(map[string][]int),
	}
}

// Pos returns the current byte offset (where the next instruction will be
// written).
func (b *Builder) Pos() int { return len(b.ops) }

// Emit appends an instruction for op with the given operands and records
// srcKey for it, returning the instruction's byte offset. The abstract
// stack depth is updated via the opcode's static (pops, pushes) signature;
// callers that need an operand-dependent signature (call_, dispatch_,
// push_code_ producing a known arity) pass the already-known pop/push
// counts via EmitStack instead.
func (b *Builder) Emit(op bytecode.Opcode, srcKey int, operands ...int) int {
	pops, pushes := staticEffect(op)
	return b.EmitStack(op, srcKey, pops, pushes, operands...)
}

// EmitStack is Emit with an explicit (pops, pushes) stack effect, for
// opcodes whose effect depends on their operands (call_, call_stack_,
// dispatch_, array/hash-style builders if the spec gains one).
func (b *Builder) EmitStack(op bytecode.Opcode, srcKey, pops, pushes int, operands ...int) int {
	pos := len(b.ops)
	ins := bytecode.Make(op, operands...)
	b.ops = append(b.ops, ins...)
	b.srcIndex = append(b.srcIndex, srcKey)

	b.prevOp = b.lastOp
	b.lastOp = op
	b.lastPos = pos
	b.hasEmits = true

	b.depth -= pops
	if b.depth < 0 {
		b.depth = 0
	}
	b.depth += pushes
	if b.depth > b.peak {
		b.peak = b.depth
	}
	return pos
}

// LastOp reports the most recently emitted opcode and whether any
// instruction has been emitted yet.
func (b *Builder) LastOp() (bytecode.Opcode, bool) { return b.lastOp, b.hasEmits }

// LastPos reports the byte offset of the most recently emitted instruction.
func (b *Builder) LastPos() int { return b.lastPos }

// Truncate removes every instruction from pos onward, used to drop a
// trailing pop_ the way the teacher's removeLastPop drops a trailing OpPop
// before splicing in a jump or a return.
func (b *Builder) Truncate(pos int) {
	n := pos
	// Recompute srcIndex length: one entry per instruction, not byte, so we
	// must count instructions up to pos.
	count := 0
	for i := 0; i < n; {
		def, err := bytecode.Lookup(b.ops[i])
		if err != nil {
			break
		}
		width := 1
		for _, w := range def.OperandWidths {
			width += w
		}
		i += width
		count++
	}
	b.ops = b.ops[:n]
	b.srcIndex = b.srcIndex[:count]
	b.lastOp = b.prevOp
}

// ReplaceAt overwrites the instruction at byte offset pos in place (used to
// turn a trailing pop_ into a ret_-adjacent instruction, mirroring the
// teacher's replaceInstruction).
func (b *Builder) ReplaceAt(pos int, op bytecode.Opcode, operands ...int) {
	ins := bytecode.Make(op, operands...)
	copy(b.ops[pos:], ins)
}

// NewLabel returns a fresh, unbound label name unique to this builder.
func (b *Builder) NewLabel(hint string) string {
	return fmt.Sprintf("%s#%d", hint, len(b.labels)+len(b.patches))
}

// EmitJump emits a jump-family instruction (br_/brtrue_/brfalse_/brobj_/
// beginloop_) with a placeholder offset targeting label, queuing a patch to
// resolve once the label is bound. Returns the instruction's byte offset.
func (b *Builder) EmitJump(op bytecode.Opcode, srcKey int, label string) int {
	pops, pushes := staticEffect(op)
	pos := b.EmitStack(op, srcKey, pops, pushes, 0)
	// The operand occupies the 4 bytes right after the 1-byte opcode.
	operandPos := pos + 1
	if resolved, ok := b.labels[label]; ok {
		b.patchAt(operandPos, resolved)
	} else {
		b.patches[label] = append(b.patches[label], operandPos)
	}
	return pos
}

// EmitIsSpecial emits an isspecial_ guard for symIdx (the constant-pool index
// of the symbol an inlined special form is about to assume is unshadowed),
// queuing a patch against label for its fallback branch operand (the second
// of isspecial_'s two operands, after the symbol index).
func (b *Builder) EmitIsSpecial(srcKey, symIdx int, label string) int {
	pos := b.EmitStack(bytecode.OpIsSpecial, srcKey, 0, 0, symIdx, 0)
	operandPos := pos + 1 + 4
	if resolved, ok := b.labels[label]; ok {
		b.patchAt(operandPos, resolved)
	} else {
		b.patches[label] = append(b.patches[label], operandPos)
	}
	return pos
}

// BindLabel binds label to the current byte offset, resolving every
// pending patch recorded for it. Jump offsets are relative to the byte
// after the full jump instruction (spec.md §6), which patchAt accounts for
// by reading back the instruction's own start from the operand position.
func (b *Builder) BindLabel(label string) {
	here := len(b.ops)
	b.labels[label] = here
	for _, operandPos := range b.patches[label] {
		b.patchAt(operandPos, here)
	}
	delete(b.patches, label)
}

// patchAt overwrites the 4-byte operand at byte offset operandPos with the
// relative jump offset from the byte after the full instruction (operandPos
// + 4) to target, per spec.md §6 ("Jump offsets are relative to the byte
// after the full instruction"). Only the builder ever patches Ops in place
// after the fact; the interpreter treats a finalized CodeObject's Ops as
// immutable.
func (b *Builder) patchAt(operandPos, target int) {
	afterInstr := operandPos + 4
	offset := target - afterInstr
	binary.BigEndian.PutUint32(b.ops[operandPos:], uint32(int32(offset)))
}

// Finalize returns the completed CodeObject: the instruction stream, the
// per-instruction source index table, the peak abstract stack depth, and
// src as the whole expression's source-pool key.
func (b *Builder) Finalize(src int) *bytecode.CodeObject {
	return &bytecode.CodeObject{
		Ops:        b.ops,
		SrcIndex:   b.srcIndex,
		StackDepth: b.peak,
		Src:        src,
	}
}

// staticEffect returns the (pops, pushes) stack-depth signature for
// opcodes whose effect does not depend on their operands. Variable-effect
// opcodes (call_, call_stack_, dispatch_) must be emitted through
// EmitStack with an explicit signature instead; staticEffect returns (0, 1)
// for them as a harmless placeholder that callers are expected to override.
func staticEffect(op bytecode.Opcode) (pops, pushes int) {
	switch op {
	case bytecode.OpPushConst, bytecode.OpLdFun, bytecode.OpLdVar, bytecode.OpLdDDVar, bytecode.OpPushCode:
		return 0, 1
	case bytecode.OpPromise:
		return 0, 1
	case bytecode.OpForce:
		return 1, 1
	case bytecode.OpBr:
		return 0, 0
	case bytecode.OpBrTrue, bytecode.OpBrFalse:
		return 1, 0
	case bytecode.OpBrObj:
		return 0, 0 // peeks without popping
	case bytecode.OpBeginLoop:
		return 0, 0
	case bytecode.OpEndContext:
		return 0, 0
	case bytecode.OpRet:
		return 0, 0
	case bytecode.OpPop:
		return 1, 0
	case bytecode.OpDup:
		return 0, 1 // reads top, pushes a copy: net depth +1
	case bytecode.OpDup2:
		return 0, 2
	case bytecode.OpSwap:
		return 0, 0
	case bytecode.OpPick, bytecode.OpPut:
		return 0, 0
	case bytecode.OpAsBool, bytecode.OpAsLogical:
		return 1, 1
	case bytecode.OpLglAnd, bytecode.OpLglOr:
		return 2, 1
	case bytecode.OpIs:
		return 1, 1
	case bytecode.OpStVar, bytecode.OpStVarSuper:
		return 1, 0
	case bytecode.OpLt, bytecode.OpAdd, bytecode.OpSub:
		return 2, 1
	case bytecode.OpInc:
		return 1, 1
	case bytecode.OpExtract1, bytecode.OpSubset1:
		return 2, 1
	case bytecode.OpInvisible:
		return 0, 0
	case bytecode.OpUniq:
		return 1, 1
	case bytecode.OpAsAST:
		return 1, 1
	case bytecode.OpIsFun:
		return 1, 1
	case bytecode.OpIsSpecial:
		return 0, 0
	default:
		return 0, 1
	}
}
