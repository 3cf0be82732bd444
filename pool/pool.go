// Package pool implements the constant pool and source pool: process-wide,
// append-only interned tables addressable by small integer keys, with
// lock-free reads and serialized insertion (spec.md §5).
//
// Grounded on the teacher's compiler.Compiler.constants slice and
// addConstant method (a flat append-only []object.Object with no dedup),
// extended with the int/double dedup maps and the parallel source pool
// spec.md §3 requires, and with a mutex so a single process-wide pool can
// back concurrently-compiling goroutines even though the interpreter itself
// runs single-threaded cooperative per instance (spec.md §5).
package pool

import (
	"sync"

	"github.com/rlangvm/core/rtvalue"
)

// ConstantPool is the append-only interned table of constant values shared
// by the whole runtime. Two secondary maps (int -> idx, double -> idx)
// deduplicate numeric constants, per spec.md §3.
type ConstantPool struct {
	mu      sync.Mutex
	values  []rtvalue.Value
	ints    map[int64]int
	doubles map[float64]int
}

// NewConstantPool creates an empty constant pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		ints:    make(map[int64]int),
		doubles: make(map[float64]int),
	}
}

// Add interns v and returns its pool index, deduplicating scalar ints and
// reals via the secondary maps. Insertion is serialized (spec.md §5);
// reads via Get need no lock since the slice only ever grows and existing
// entries are never mutated or moved.
func (p *ConstantPool) Add(v rtvalue.Value) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch t := v.(type) {
	case *rtvalue.Int:
		if idx, ok := p.ints[t.Value]; ok {
			return idx
		}
		idx := p.append(v)
		p.ints[t.Value] = idx
		return idx
	case *rtvalue.Real:
		if idx, ok := p.doubles[t.Value]; ok {
			return idx
		}
		idx := p.append(v)
		p.doubles[t.Value] = idx
		return idx
	default:
		return p.append(v)
	}
}

func (p *ConstantPool) append(v rtvalue.Value) int {
	p.values = append(p.values, v)
	return len(p.values) - 1
}

// Get returns the value at idx.
func (p *ConstantPool) Get(idx int) rtvalue.Value { return p.values[idx] }

// Len reports the number of interned constants.
func (p *ConstantPool) Len() int { return len(p.values) }

// SourcePool stores AST nodes referenced for error messages, dispatch, and
// complex-assignment rewriting. Same shape as ConstantPool but without
// numeric dedup, since source references are compared by identity, not
// value.
type SourcePool struct {
	mu     sync.Mutex
	values []rtvalue.Value
}

// NewSourcePool creates an empty source pool.
func NewSourcePool() *SourcePool { return &SourcePool{} }

// Add interns the AST node ast and returns its pool key. Key 0 is reserved
// (CodeObject.SrcIndex uses 0 to mean "fall back to the function's Src"),
// so the first real entry gets key 1.
func (s *SourcePool) Add(ast rtvalue.Value) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		s.values = append(s.values, nil) // reserve key 0
	}
	s.values = append(s.values, ast)
	return len(s.values) - 1
}

// Get returns the AST node at key.
func (s *SourcePool) Get(key int) rtvalue.Value {
	if key <= 0 || key >= len(s.values) {
		return nil
	}
	return s.values[key]
}
