package bytecode

import (
	"fmt"

	"github.com/rlangvm/core/rtvalue"
)

// Sentinel local-code indices a call instruction's argument-index vector
// may carry instead of an ordinary CodeObject index, per spec.md §4.1's
// "Calls" category.
const (
	// DotsArgIdx marks a call-site position where "..." should expand into
	// the pending named/unnamed arguments captured at that point.
	DotsArgIdx = -1

	// MissingArgIdx marks a call-site position that forwards a missing
	// argument rather than supplying one.
	MissingArgIdx = -2
)

// CodeObject is an immutable (after compilation) bytecode block: a
// contiguous instruction stream, a parallel table mapping instruction index
// to a source-pool key, and an upper bound on value-stack growth during
// execution. Grounded on the teacher's object.CompiledFunction, split out
// as its own type (rather than folded into FunctionObject) because the
// spec's FunctionObject is a collection of these — one entry body plus one
// per promise emitted during compilation.
type CodeObject struct {
	// Ops is the contiguous, byte-addressable instruction stream.
	Ops Instructions

	// SrcIndex maps instruction index (not byte offset) to a source-pool
	// key; 0 means "fall back to the owning function's Src".
	SrcIndex []int

	// StackDepth is a conservative upper bound on value-stack growth while
	// executing Ops, computed by the code stream builder via abstract
	// interpretation of each opcode's (pops, pushes) signature.
	StackDepth int

	// Src is the source-pool key of the whole expression this CodeObject
	// compiles.
	Src int
}

// SrcAt returns the source-pool key to use for the instruction at
// instruction index idx, falling back to fallback (typically the owning
// FunctionObject's Src) when SrcIndex has no entry or the entry is 0.
func (c *CodeObject) SrcAt(idx int, fallback int) int {
	if idx < 0 || idx >= len(c.SrcIndex) {
		return fallback
	}
	if c.SrcIndex[idx] == 0 {
		return fallback
	}
	return c.SrcIndex[idx]
}

func (c *CodeObject) String() string {
	return fmt.Sprintf("CodeObject{%d bytes, depth=%d}\n%s", len(c.Ops), c.StackDepth, c.Ops.String())
}

// Kind reports KindCode: push_code_ pushes a *CodeObject directly as a
// first-class value (spec.md §4.1), so CodeObject implements rtvalue.Value
// itself rather than needing a separate wrapper type.
func (c *CodeObject) Kind() rtvalue.Kind { return rtvalue.KindCode }
