package builtins

import (
	"github.com/rlangvm/core/interp"
	"github.com/rlangvm/core/rtvalue"
)

// sequenceElements views v as an ordered, 1-based-indexable sequence: a
// List's elements, a Pair chain's elements (tags dropped), Nil as
// length-zero, or any other value as its own length-one sequence. Shared
// with for's element-by-element iteration (control.go) and the data
// builtins below, the same view interp.elementsOf takes for its fast path.
func sequenceElements(v rtvalue.Value) []rtvalue.Value {
	switch t := v.(type) {
	case *rtvalue.List:
		return t.Elems
	case *rtvalue.Pair:
		return rtvalue.Elements(t)
	default:
		if rtvalue.IsNil(v) {
			return nil
		}
		return []rtvalue.Value{v}
	}
}

func dataBuiltins() []builtinDef {
	return []builtinDef{
		{"$", &rtvalue.Builtin{Name: "$", Visible: true, Fn: dollarGet}},
		{"$<-", &rtvalue.Builtin{Name: "$<-", Visible: true, Fn: dollarSet}},
		{"[[<-", &rtvalue.Builtin{Name: "[[<-", Visible: true, Fn: indexSet}},
		{"[<-", &rtvalue.Builtin{Name: "[<-", Visible: true, Fn: indexSet}},
		{"length", &rtvalue.Builtin{Name: "length", Visible: true, Fn: lengthOf}},
		{"c", &rtvalue.Builtin{Name: "c", Visible: true, Fn: combine}},
		{"is.null", &rtvalue.Builtin{Name: "is.null", Visible: true, Fn: isPredicate(rtvalue.IsNil)}},
		{"is.list", &rtvalue.Builtin{Name: "is.list", Visible: true, Fn: isPredicate(rtvalue.IsList)}},
		{"is.pairlist", &rtvalue.Builtin{Name: "is.pairlist", Visible: true, Fn: isPredicate(rtvalue.IsPairlist)}},
		{"class", &rtvalue.Builtin{Name: "class", Visible: true, Fn: classOf}},
		{"class<-", &rtvalue.Builtin{Name: "class<-", Visible: true, Fn: classSet}},
		{"structure", &rtvalue.Builtin{Name: "structure", Visible: true, Fn: structure}},
		{"inherits", &rtvalue.Builtin{Name: "inherits", Visible: true, Fn: inherits}},
	}
}

// dataSpecials covers the forms that need the raw, unevaluated argument
// pairlist rather than an already-forced []Value: list preserves each
// argument's Tag (a plain Builtin's Fn signature has no way to see it, per
// closure.go), and [[/[ are bound here only so isspecial_ succeeds at their
// call sites -- letting the compiler's own dispatch-aware inlined extract1_/
// subset1_ fast path run instead of this fallback in the ordinary case,
// since a plain compileOrdinaryCall would bypass brobj_/dispatch_ entirely
// for a classed receiver.
func dataSpecials(i *interp.Interp) []specialDef {
	return []specialDef{
		{"list", &rtvalue.Special{Name: "list", Visible: true, Fn: specialList(i)}},
		{"[[", &rtvalue.Special{Name: "[[", Visible: true, Fn: specialSubscript(i, false)}},
		{"[", &rtvalue.Special{Name: "[", Visible: true, Fn: specialSubscript(i, true)}},
	}
}

func specialList(i *interp.Interp) rtvalue.SpecialFunc {
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		cells := argsOf(args)
		var tail rtvalue.Value = rtvalue.NilValue
		built := make([]*rtvalue.Pair, len(cells))
		for idx := len(cells) - 1; idx >= 0; idx-- {
			v, err := i.EvalExpr(cells[idx].Car, env)
			if err != nil {
				return nil, err
			}
			p := &rtvalue.Pair{Car: v, Cdr: tail, Tag: cells[idx].Tag}
			built[idx] = p
			tail = p
		}
		if len(built) == 0 {
			return rtvalue.NilValue, nil
		}
		return built[0], nil
	}
}

// specialSubscript is [[/['s dispatch-oblivious fallback: evaluate both
// operands, then do a bare 1-based element lookup. It does not dispatch on
// a classed receiver; such a receiver is treated as a one-element sequence.
func specialSubscript(i *interp.Interp, subset bool) rtvalue.SpecialFunc {
	name := "[["
	if subset {
		name = "["
	}
	return func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := argsOf(args)
		if len(a) != 2 {
			return nil, newError("%s: expected 2 arguments, got %d", name, len(a))
		}
		recv, err := i.EvalExpr(a[0].Car, env)
		if err != nil {
			return nil, err
		}
		idxVal, err := i.EvalExpr(a[1].Car, env)
		if err != nil {
			return nil, err
		}
		n, ok := numArg(idxVal)
		if !ok {
			return nil, newError("%s: non-numeric index", name)
		}
		idx := int(n)
		elems := sequenceElements(recv)
		if idx < 1 || idx > len(elems) {
			return nil, newError("%s: subscript %d out of bounds for length %d", name, idx, len(elems))
		}
		return elems[idx-1], nil
	}
}

func dollarGet(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 2 {
		return nil, newError("$: expected 2 arguments, got %d", len(args))
	}
	field, ok := fieldName(args[1])
	if !ok {
		return nil, newError("$: field name must be a string or symbol, got %T", args[1])
	}
	cur := args[0]
	for {
		p, ok := cur.(*rtvalue.Pair)
		if !ok {
			return rtvalue.NilValue, nil
		}
		if p.Tag != nil && p.Tag.Name() == field {
			return p.Car, nil
		}
		cur = p.Cdr
	}
}

func dollarSet(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 3 {
		return nil, newError("$<-: expected 3 arguments, got %d", len(args))
	}
	field, ok := fieldName(args[1])
	if !ok {
		return nil, newError("$<-: field name must be a string or symbol, got %T", args[1])
	}
	value := args[2]
	var cells []*rtvalue.Pair
	found := false
	cur := args[0]
	for {
		p, ok := cur.(*rtvalue.Pair)
		if !ok {
			break
		}
		if p.Tag != nil && p.Tag.Name() == field {
			cells = append(cells, &rtvalue.Pair{Car: value, Tag: p.Tag})
			found = true
		} else {
			cells = append(cells, &rtvalue.Pair{Car: p.Car, Tag: p.Tag})
		}
		cur = p.Cdr
	}
	if !found {
		cells = append(cells, &rtvalue.Pair{Car: value, Tag: rtvalue.Intern(field)})
	}
	var tail rtvalue.Value = rtvalue.NilValue
	for idx := len(cells) - 1; idx >= 0; idx-- {
		cells[idx].Cdr = tail
		tail = cells[idx]
	}
	return tail, nil
}

func fieldName(v rtvalue.Value) (string, bool) {
	switch t := v.(type) {
	case *rtvalue.Str:
		return t.Value, true
	case *rtvalue.Symbol:
		return t.Name(), true
	default:
		return "", false
	}
}

// indexSet implements [[<-/[<-'s scalar-replacement case: a 1-based index
// into a List copy, or growing a Pair chain to a positional cell otherwise.
// Non-scalar subset replacement (a vector of indices) is not supported.
func indexSet(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 3 {
		return nil, newError("[[<-: expected 3 arguments, got %d", len(args))
	}
	n, ok := numArg(args[1])
	if !ok {
		return nil, newError("[[<-: non-numeric index")
	}
	idx := int(n)
	value := args[2]

	if lst, ok := args[0].(*rtvalue.List); ok {
		elems := make([]rtvalue.Value, len(lst.Elems))
		copy(elems, lst.Elems)
		for len(elems) < idx {
			elems = append(elems, rtvalue.NilValue)
		}
		elems[idx-1] = value
		return &rtvalue.List{Elems: elems}, nil
	}

	elems := sequenceElements(args[0])
	out := make([]rtvalue.Value, len(elems))
	copy(out, elems)
	for len(out) < idx {
		out = append(out, rtvalue.NilValue)
	}
	out[idx-1] = value
	return rtvalue.ListOf(out...), nil
}

func lengthOf(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 1 {
		return nil, newError("length: expected 1 argument, got %d", len(args))
	}
	return &rtvalue.Int{Value: int64(len(sequenceElements(args[0])))}, nil
}

// combine implements c()'s flattening: each argument contributes its own
// sequence of elements (a scalar contributes itself), matching c()'s
// one-level-flat concatenation.
func combine(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	var out []rtvalue.Value
	for _, a := range args {
		out = append(out, sequenceElements(a)...)
	}
	return &rtvalue.List{Elems: out}, nil
}

func isPredicate(pred func(rtvalue.Value) bool) rtvalue.BuiltinFunc {
	return func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		if len(args) != 1 {
			return nil, newError("predicate: expected 1 argument, got %d", len(args))
		}
		return &rtvalue.Bool{Value: pred(args[0])}, nil
	}
}

func classOf(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 1 {
		return nil, newError("class: expected 1 argument, got %d", len(args))
	}
	classes := rtvalue.ClassOf(args[0])
	out := make([]rtvalue.Value, len(classes))
	for idx, c := range classes {
		out[idx] = &rtvalue.Str{Value: c}
	}
	return &rtvalue.List{Elems: out}, nil
}

func classSet(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 2 {
		return nil, newError("class<-: expected 2 arguments, got %d", len(args))
	}
	classes := stringsOf(args[1])
	underlying := args[0]
	if o, ok := underlying.(*rtvalue.Object); ok {
		underlying = o.Underlying
	}
	if len(classes) == 0 {
		return underlying, nil
	}
	return &rtvalue.Object{Underlying: underlying, Class: classes}, nil
}

func structure(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) == 0 {
		return nil, newError("structure: expected at least 1 argument")
	}
	return args[0], nil
}

func inherits(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) != 2 {
		return nil, newError("inherits: expected 2 arguments, got %d", len(args))
	}
	want, ok := fieldName(args[1])
	if !ok {
		return nil, newError("inherits: class name must be a string, got %T", args[1])
	}
	for _, c := range rtvalue.ClassOf(args[0]) {
		if c == want {
			return &rtvalue.Bool{Value: true}, nil
		}
	}
	return &rtvalue.Bool{Value: false}, nil
}

func stringsOf(v rtvalue.Value) []string {
	var out []string
	for _, e := range sequenceElements(v) {
		if s, ok := e.(*rtvalue.Str); ok {
			out = append(out, s.Value)
		}
	}
	return out
}
