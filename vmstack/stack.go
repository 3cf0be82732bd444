// Package vmstack implements the interpreter's value stack: a growable
// sequence of values with O(1) random-access slots addressed from the top.
//
// Grounded on kristofer-smog/pkg/vm/vm.go's stack []interface{} + sp design
// and developgo-agora/runtime/funcvm.go's valStack (grow-on-push, zero
// popped slots so references can be released). This core has no garbage
// collector of its own to cooperate with, but the zeroing discipline is
// kept anyway: it is the idiomatic shape both reference VMs use and it
// costs nothing to keep a stale Value reference from outliving its frame.
package vmstack

import "github.com/rlangvm/core/rtvalue"

// Stack is a single per-interpreter-invocation growable sequence of values.
type Stack struct {
	data []rtvalue.Value
}

// New creates a Stack with the given initial capacity.
func New(capacity int) *Stack {
	return &Stack{data: make([]rtvalue.Value, 0, capacity)}
}

// Len reports the current stack length.
func (s *Stack) Len() int { return len(s.data) }

// EnsureFree grows the backing array's capacity so at least n more values
// can be pushed without reallocation, per spec.md §4.3 step 2
// ("stack_depth + 5 free slots").
func (s *Stack) EnsureFree(n int) {
	if cap(s.data)-len(s.data) >= n {
		return
	}
	grown := make([]rtvalue.Value, len(s.data), len(s.data)+n)
	copy(grown, s.data)
	s.data = grown
}

// Push appends v to the top of the stack.
func (s *Stack) Push(v rtvalue.Value) { s.data = append(s.data, v) }

// Pop removes and returns the top value.
func (s *Stack) Pop() rtvalue.Value {
	n := len(s.data) - 1
	v := s.data[n]
	s.data[n] = nil
	s.data = s.data[:n]
	return v
}

// PopN removes and returns the top n values, in stack order (bottom to
// top).
func (s *Stack) PopN(n int) []rtvalue.Value {
	start := len(s.data) - n
	out := make([]rtvalue.Value, n)
	copy(out, s.data[start:])
	for i := start; i < len(s.data); i++ {
		s.data[i] = nil
	}
	s.data = s.data[:start]
	return out
}

// Top returns the value at the top of the stack without removing it.
func (s *Stack) Top() rtvalue.Value { return s.data[len(s.data)-1] }

// Get returns the value n slots down from the top (Get(0) == Top()).
func (s *Stack) Get(n int) rtvalue.Value { return s.data[len(s.data)-1-n] }

// Set overwrites the value n slots down from the top.
func (s *Stack) Set(n int, v rtvalue.Value) { s.data[len(s.data)-1-n] = v }

// Dup duplicates the top value.
func (s *Stack) Dup() { s.Push(s.Top()) }

// Dup2 duplicates the top two values, in order.
func (s *Stack) Dup2() {
	a, b := s.Get(1), s.Get(0)
	s.Push(a)
	s.Push(b)
}

// Swap exchanges the top two values.
func (s *Stack) Swap() {
	n := len(s.data)
	s.data[n-1], s.data[n-2] = s.data[n-2], s.data[n-1]
}

// Pick moves stack[top-n] to the top, shifting the values above it down by
// one slot.
func (s *Stack) Pick(n int) {
	n2 := len(s.data) - 1 - n
	v := s.data[n2]
	copy(s.data[n2:], s.data[n2+1:])
	s.data[len(s.data)-1] = v
}

// Put moves the top value to stack[top-n] (the inverse of Pick), shifting
// the values originally above that slot up by one.
func (s *Stack) Put(n int) {
	v := s.data[len(s.data)-1]
	dst := len(s.data) - 1 - n
	copy(s.data[dst+1:], s.data[dst:len(s.data)-1])
	s.data[dst] = v
}

// Truncate resets the stack to length n, dropping any values above it. Used
// to restore the stack to a frame's snapshot on non-local exit (spec.md
// §5).
func (s *Stack) Truncate(n int) {
	for i := n; i < len(s.data); i++ {
		s.data[i] = nil
	}
	s.data = s.data[:n]
}
