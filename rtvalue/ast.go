package rtvalue

// Arg builds one tagged pairlist cell for a call's argument list: Car holds
// the (unevaluated) argument expression, Tag its name (nil for a positional
// argument). Cdr is filled in by ArgList when the cells are chained.
func Arg(tag *Symbol, expr Value) *Pair {
	return &Pair{Car: expr, Tag: tag}
}

// ArgList chains args into a Nil-terminated tagged pairlist, preserving each
// cell's Tag.
func ArgList(args ...*Pair) Value {
	var tail Value = NilValue
	for i := len(args) - 1; i >= 0; i-- {
		args[i].Cdr = tail
		tail = args[i]
	}
	return tail
}

// Call builds a call AST node: Car is the callee expression (a Symbol for an
// ordinary named call, or a nested Pair for a call-in-callee-position), Cdr
// the argument pairlist built by ArgList.
func Call(callee Value, args ...*Pair) *Pair {
	return &Pair{Car: callee, Cdr: ArgList(args...)}
}

// CallArgs walks a call node's argument pairlist into a slice of cells, each
// still carrying its Tag. Stops at the first non-Pair Cdr (the Nil
// terminator).
func CallArgs(call *Pair) []*Pair {
	var out []*Pair
	cur := call.Cdr
	for {
		p, ok := cur.(*Pair)
		if !ok {
			break
		}
		out = append(out, p)
		cur = p.Cdr
	}
	return out
}

// IsCallTo reports whether v is a call node (*Pair) whose callee is the
// symbol name.
func IsCallTo(v Value, name string) (*Pair, bool) {
	p, ok := v.(*Pair)
	if !ok {
		return nil, false
	}
	sym, ok := p.Car.(*Symbol)
	if !ok || sym.Name() != name {
		return nil, false
	}
	return p, true
}
