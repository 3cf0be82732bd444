// Package bytecode defines the instruction set the compiler emits and the
// interpreter executes, plus the CodeObject/FunctionObject containers that
// hold a compiled closure's instruction streams.
//
// Grounded on the teacher's code/code.go: the same Opcode/Definition/
// definitions-map/Lookup/Make/ReadOperands machinery, generalized from
// Monkey's ~28 fixed-arithmetic opcodes to the spec's promise-forcing,
// dispatch, and complex-assignment instruction set. Encoding keeps the
// teacher's shape: a 1-byte opcode followed by 0-3 fixed-width immediates,
// each 4 bytes except is_'s 1-byte type tag, big-endian throughout (spec.md
// §6's "Instruction encoding").
package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a contiguous, byte-addressable instruction stream.
type Instructions []byte

// Opcode identifies a single bytecode instruction.
type Opcode byte

// The core's instruction set (spec.md §4.1). Categories follow the spec's
// own grouping: constants/loads, promises, calls, control, stack ops,
// booleans/type tests, binding, fast paths, misc.
const (
	// --- Constants / loads ---

	// OpPushConst pushes pool[k]. Operand: constant-pool index (4 bytes,
	// per spec.md §6's "4-byte pool index"; the teacher uses 2 bytes for a
	// much smaller constant pool, widened here since the spec's pools are
	// process-wide and can grow past 64K entries).
	OpPushConst Opcode = iota

	// OpLdFun resolves pool[k] as a function in env (skipping non-function
	// bindings) and pushes it, compiling the closure on demand if needed.
	// Operand: constant-pool index of the symbol.
	OpLdFun

	// OpLdVar resolves pool[k] as an ordinary variable, forcing a promise
	// binding before pushing. Operand: constant-pool index of the symbol.
	OpLdVar

	// OpLdDDVar resolves pool[k] as a variadic-positional ("..N") variable.
	// Operand: constant-pool index of the symbol.
	OpLdDDVar

	// OpPushCode pushes the CodeObject at local index i as a first-class
	// value. Operand: local code-object index.
	OpPushCode

	// --- Promises ---

	// OpPromise builds a promise from local code i and the current env, and
	// pushes it. Operand: local code-object index.
	OpPromise

	// OpForce pops a promise, forces it, and pushes the value.
	OpForce

	// --- Calls ---

	// OpCall pops the callee, then builds an argument list from the local
	// code indices listed in pool[kArgs] (a packed integer vector) and the
	// tag names in pool[kNames] (Nil = no names). Operands: constant-pool
	// index of the args-index vector, constant-pool index of the names
	// vector (or -1 encoded via an out-of-range sentinel for "no names").
	OpCall

	// OpCallStack calls with n arguments plus the callee already on the
	// stack (callee beneath the arguments). Operands: arg count,
	// constant-pool index of the names vector (4 bytes each).
	OpCallStack

	// OpDispatch performs S4-then-S3-then-call dispatch on top-of-stack for
	// method pool[kSelector]. Operands: args-index vector pool index,
	// names vector pool index, selector symbol pool index.
	OpDispatch

	// --- Control ---

	// OpBr jumps by a relative signed offset.
	OpBr

	// OpBrTrue pops a value; if asbool_(value) is true, jumps.
	OpBrTrue

	// OpBrFalse pops a value; if asbool_(value) is false, jumps.
	OpBrFalse

	// OpBrObj jumps if top-of-stack has a class attribute, without popping.
	OpBrObj

	// OpBeginLoop installs a LOOP frame whose break target is the
	// instruction at pc+off (pc is the address after this instruction).
	OpBeginLoop

	// OpEndContext pops the current frame.
	OpEndContext

	// OpRet terminates evalCode, leaving the result on the stack.
	OpRet

	// --- Stack ops ---

	// OpPop discards the top value.
	OpPop

	// OpDup duplicates the top value.
	OpDup

	// OpDup2 duplicates the top two values.
	OpDup2

	// OpSwap swaps the top two values.
	OpSwap

	// OpPick moves stack[top-n] to the top. Operand: n (4 bytes).
	OpPick

	// OpPut moves the top value to stack[top-n] (the inverse of OpPick).
	// Operand: n (4 bytes).
	OpPut

	// --- Booleans / type tests ---

	// OpAsBool converts top-of-stack to a single bool via the
	// length/NA-checked conversion described in spec.md §4.1 and §8.
	OpAsBool

	// OpAsLogical converts top-of-stack to a three-valued logical scalar
	// (true/false/NA) without the strict boolean error checks OpAsBool
	// applies.
	OpAsLogical

	// OpLglAnd pops two three-valued logicals and pushes their
	// short-circuit-safe conjunction.
	OpLglAnd

	// OpLglOr pops two three-valued logicals and pushes their
	// short-circuit-safe disjunction.
	OpLglOr

	// OpIs tests top-of-stack's type against an immediate type tag, per
	// the is_ family (VECSXP also matches List, LISTSXP also matches Nil).
	// Operand: type tag (1 byte, a TypeTag constant).
	OpIs

	// --- Binding ---

	// OpStVar pops a value and defines pool[k] in env, raising the value's
	// named indicator. Operand: constant-pool index of the symbol.
	OpStVar

	// OpStVarSuper pops a value and rebinds pool[k] in the nearest enclosing
	// environment already holding it (walking outward past the current
	// environment), falling back to defining it in the global environment
	// if no enclosing binding exists -- the `<<-` superassignment contract,
	// distinct from stvar_'s always-local define.
	OpStVarSuper

	// --- Fast paths ---

	// OpLt is the scalar-real-pair fast path for `<`, falling back to the
	// builtin otherwise.
	OpLt

	// OpAdd is the scalar-real-pair fast path for `+`.
	OpAdd

	// OpSub is the scalar-real-pair fast path for `-`.
	OpSub

	// OpInc increments an unshared scalar int in place.
	OpInc

	// OpExtract1 is the attribute-free scalar fast path for `[[`.
	OpExtract1

	// OpSubset1 is the attribute-free scalar fast path for `[`.
	OpSubset1

	// --- Misc ---

	// OpInvisible clears the visibility flag.
	OpInvisible

	// OpUniq ensures top-of-stack is unshared, shallow-duplicating it if
	// its named indicator is set.
	OpUniq

	// OpAsAST extracts the AST out of a promise (looking up its CodeObject's
	// Src if the promise body is compiled).
	OpAsAST

	// OpIsFun asserts top-of-stack is callable (closure/builtin/special).
	OpIsFun

	// OpIsSpecial asserts that the symbol named by pool[k]'s binding is
	// still the special form the compiler assumed when it inlined this
	// call; on mismatch (shadowed binding) control falls through to the
	// instruction at pc+off instead of raising InternalBug, per spec.md
	// §9's recommended dynamic fallback. Operands: constant-pool index of
	// the symbol, relative branch offset taken on mismatch.
	OpIsSpecial
)

// Definition names an opcode and the byte width of each of its immediate
// operands, in encoding order.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpPushConst: {"push_", []int{4}},
	OpLdFun:     {"ldfun_", []int{4}},
	OpLdVar:     {"ldvar_", []int{4}},
	OpLdDDVar:   {"ldddvar_", []int{4}},
	OpPushCode:  {"push_code_", []int{4}},

	OpPromise: {"promise_", []int{4}},
	OpForce:   {"force_", []int{}},

	OpCall:      {"call_", []int{4, 4}},
	OpCallStack: {"call_stack_", []int{4, 4}},
	OpDispatch:  {"dispatch_", []int{4, 4, 4}},

	OpBr:        {"br_", []int{4}},
	OpBrTrue:    {"brtrue_", []int{4}},
	OpBrFalse:   {"brfalse_", []int{4}},
	OpBrObj:     {"brobj_", []int{4}},
	OpBeginLoop: {"beginloop_", []int{4}},
	OpEndContext: {"endcontext_", []int{}},
	OpRet:       {"ret_", []int{}},

	OpPop:  {"pop_", []int{}},
	OpDup:  {"dup_", []int{}},
	OpDup2: {"dup2_", []int{}},
	OpSwap: {"swap_", []int{}},
	OpPick: {"pick_", []int{4}},
	OpPut:  {"put_", []int{4}},

	OpAsBool:     {"asbool_", []int{}},
	OpAsLogical:  {"aslogical_", []int{}},
	OpLglAnd:     {"lgl_and_", []int{}},
	OpLglOr:      {"lgl_or_", []int{}},
	OpIs:         {"is_", []int{1}},

	OpStVar:      {"stvar_", []int{4}},
	OpStVarSuper: {"stvar_super_", []int{4}},

	OpLt:       {"lt_", []int{}},
	OpAdd:      {"add_", []int{}},
	OpSub:      {"sub_", []int{}},
	OpInc:      {"inc_", []int{}},
	OpExtract1: {"extract1_", []int{}},
	OpSubset1:  {"subset1_", []int{}},

	OpInvisible: {"invisible_", []int{}},
	OpUniq:      {"uniq_", []int{}},
	OpAsAST:     {"asast_", []int{}},
	OpIsFun:     {"isfun_", []int{}},
	OpIsSpecial: {"isspecial_", []int{4, 4}},
}

// Lookup returns the [Definition] for op.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes op and its operands into a fresh instruction, zero-padding
// unused bytes of each operand the same way the teacher's Make does.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}
	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}
	ins := make([]byte, length)
	ins[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			ins[offset] = byte(operand)
		case 4:
			binary.BigEndian.PutUint32(ins[offset:], uint32(int32(operand)))
		}
		offset += width
	}
	return ins
}

// String renders ins as a human-readable disassembly, one instruction per
// line prefixed with its byte offset, following the teacher's
// Instructions.String/fmtInstruction formatting exactly.
func (ins Instructions) String() string {
	var out strings.Builder
	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += read + 1
	}
	return out.String()
}

func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	n := len(def.OperandWidths)
	if len(operands) != n {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d", len(operands), n)
	}
	switch n {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	case 3:
		return fmt.Sprintf("%s %d %d %d", def.Name, operands[0], operands[1], operands[2])
	}
	return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
}

// ReadOperands decodes the operands for def from the start of ins, returning
// the decoded operands and the number of bytes consumed.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		case 4:
			operands[i] = int(int32(ReadUint32(ins[offset:])))
		}
		offset += width
	}
	return operands, offset
}

// ReadUint32 decodes the first four bytes of ins as a big-endian uint32.
func ReadUint32(ins Instructions) uint32 { return binary.BigEndian.Uint32(ins) }

// ReadUint8 extracts the first byte of ins.
func ReadUint8(ins Instructions) uint8 { return ins[0] }

// TypeTag identifies the type predicate `is_` tests for.
type TypeTag byte

const (
	TagNil TypeTag = iota
	TagList   // VECSXP, also matches List
	TagPairlist // LISTSXP, also matches Nil
	TagSymbol
	TagClosure
	TagEnvironment
	TagPromise
)
