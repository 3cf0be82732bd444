package bytecode

import (
	"fmt"

	"github.com/rlangvm/core/rtvalue"
)

// FunctionObject is the ordered collection of CodeObjects that realizes one
// compiled closure body: index 0 is the entry body, indices >= 1 are the
// promise bodies emitted while compiling the entry (one per argument
// expression and per formal default). Any `promise_`/`push_code_`
// instruction in the entry (or in another promise body, for nested
// promises) carries an index into this collection.
//
// Grounded on the teacher's object.CompiledFunction, generalized from a
// single flat Instructions blob to a collection, per spec.md §3's
// FunctionObject definition.
type FunctionObject struct {
	Codes []*CodeObject

	// NumFormals is the number of declared formal parameters (not counting
	// "..."), used by the interpreter's closure-entry argument adaptor.
	NumFormals int

	// HasDots reports whether the closure's formals include "...".
	HasDots bool

	// FormalNames names each formal, in order, for the argument adaptor's
	// name-matching pass; "..." appears in its declared position.
	FormalNames []string
}

// Entry returns the entry CodeObject (index 0).
func (f *FunctionObject) Entry() *CodeObject { return f.Codes[0] }

// Code returns the CodeObject at local index i (1-based promise indices, 0
// is the entry).
func (f *FunctionObject) Code(i int) *CodeObject { return f.Codes[i] }

// AddCode appends a promise CodeObject and returns its index.
func (f *FunctionObject) AddCode(c *CodeObject) int {
	f.Codes = append(f.Codes, c)
	return len(f.Codes) - 1
}

func (f *FunctionObject) String() string {
	return fmt.Sprintf("FunctionObject{%d code objects}", len(f.Codes))
}

// Kind reports KindCompiledFunction: a compiled closure body considered as
// a value in its own right (diagnostics, `asast_`-adjacent introspection),
// distinct from the [rtvalue.Closure] that pairs it with formals and a
// defining environment.
func (f *FunctionObject) Kind() rtvalue.Kind { return rtvalue.KindCompiledFunction }
