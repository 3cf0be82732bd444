package rtvalue

import "strings"

// Pair is a cons cell: both an ordinary list-building block and, when its
// Car is a symbol or another call, an AST node representing a language call
// (`f(args...)`). The compiler and `asast_` only ever read a Pair's
// structure; they never mutate a shared one in place without first ensuring
// it is unshared, same as any other Value.
type Pair struct {
	Car Value
	Cdr Value

	// Tag names this cell when the chain it belongs to is a tagged
	// pairlist (e.g. a call's argument list, where Tag carries the
	// argument's name and Car its expression). Nil for an ordinary list
	// cell.
	Tag *Symbol
}

func (p *Pair) Kind() Kind { return KindPair }

func (p *Pair) String() string {
	var b strings.Builder
	b.WriteByte('(')
	cur := Value(p)
	first := true
	for {
		pr, ok := cur.(*Pair)
		if !ok {
			if !IsNil(cur) {
				b.WriteString(" . ")
				b.WriteString(cur.String())
			}
			break
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		if pr.Car == nil {
			b.WriteString("nil")
		} else {
			b.WriteString(pr.Car.String())
		}
		cur = pr.Cdr
	}
	b.WriteByte(')')
	return b.String()
}

// Cons builds a new Pair from head and tail.
func Cons(head, tail Value) *Pair { return &Pair{Car: head, Cdr: tail} }

// ListOf builds a proper Nil-terminated Pair chain from vs.
func ListOf(vs ...Value) Value {
	var tail Value = NilValue
	for i := len(vs) - 1; i >= 0; i-- {
		tail = Cons(vs[i], tail)
	}
	return tail
}

// Elements walks a proper Pair chain (or Nil) into a slice. Improper lists
// stop at the first non-Pair Cdr.
func Elements(v Value) []Value {
	var out []Value
	for {
		p, ok := v.(*Pair)
		if !ok {
			break
		}
		out = append(out, p.Car)
		v = p.Cdr
	}
	return out
}

// nilValue is the unique empty-list / null singleton.
type nilValue struct{}

func (nilValue) Kind() Kind   { return KindNil }
func (nilValue) String() string { return "NULL" }

// NilValue is the unique Value representing the empty list / null.
var NilValue Value = nilValue{}

// List is a dense VECSXP-shaped vector, distinct from a Pair chain but
// matched by the same `is_ VECSXP` type test (spec.md §4.1).
type List struct {
	Elems []Value
}

func (l *List) Kind() Kind { return KindList }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range l.Elems {
		if i > 0 {
			b.WriteByte(' ')
		}
		if e == nil {
			b.WriteString("nil")
		} else {
			b.WriteString(e.String())
		}
	}
	b.WriteByte(']')
	return b.String()
}
