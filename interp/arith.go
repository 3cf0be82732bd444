package interp

import (
	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/rtvalue"
)

// ToBool exports asbool_'s coercion for callers outside this package (the
// builtins package's own control-flow fallbacks re-enter the interpreter
// and need the identical length/NA-checked conversion, per spec.md §9's
// note that re-entrancy happens "whenever a builtin or special calls back
// into the interpreter").
func ToBool(v rtvalue.Value) (bool, error) { return toBool(v) }

// toBool implements asbool_'s strict, length/NA-checked conversion
// (spec.md §4.1, §8): length zero and NA are always errors, never silently
// coerced.
func toBool(v rtvalue.Value) (bool, error) {
	switch t := v.(type) {
	case *rtvalue.Bool:
		return t.Value, nil
	case *rtvalue.Int:
		return t.Value != 0, nil
	case *rtvalue.Real:
		return t.Value != 0, nil
	default:
		if rtvalue.IsNA(v) {
			return false, rtvalue.BadConditionNAError(true)
		}
		if rtvalue.IsNil(v) || rtvalue.Length(v) == 0 {
			return false, rtvalue.BadConditionLengthZeroError()
		}
		return false, rtvalue.BadConditionNAError(false)
	}
}

// toLogical implements aslogical_: the same conversion as toBool but
// returning the three-valued NA singleton instead of raising an error.
func toLogical(v rtvalue.Value) rtvalue.Value {
	switch t := v.(type) {
	case *rtvalue.Bool:
		return t
	case *rtvalue.Int:
		return &rtvalue.Bool{Value: t.Value != 0}
	case *rtvalue.Real:
		return &rtvalue.Bool{Value: t.Value != 0}
	default:
		return rtvalue.NAValue
	}
}

// logicalAnd/logicalOr implement lgl_and_/lgl_or_'s three-valued,
// short-circuit-safe boolean algebra: FALSE wins over NA for AND, TRUE wins
// over NA for OR, matching the host language's own semantics.
func logicalAnd(a, b rtvalue.Value) rtvalue.Value {
	af, aNA := boolOrNA(a)
	bf, bNA := boolOrNA(b)
	if !aNA && !af {
		return &rtvalue.Bool{Value: false}
	}
	if !bNA && !bf {
		return &rtvalue.Bool{Value: false}
	}
	if aNA || bNA {
		return rtvalue.NAValue
	}
	return &rtvalue.Bool{Value: true}
}

func logicalOr(a, b rtvalue.Value) rtvalue.Value {
	af, aNA := boolOrNA(a)
	bf, bNA := boolOrNA(b)
	if !aNA && af {
		return &rtvalue.Bool{Value: true}
	}
	if !bNA && bf {
		return &rtvalue.Bool{Value: true}
	}
	if aNA || bNA {
		return rtvalue.NAValue
	}
	return &rtvalue.Bool{Value: false}
}

func boolOrNA(v rtvalue.Value) (value bool, isNA bool) {
	if rtvalue.IsNA(v) {
		return false, true
	}
	if b, ok := v.(*rtvalue.Bool); ok {
		return b.Value, false
	}
	return false, true
}

// matchesTag implements is_'s type-tag predicate, honoring the VECSXP/List
// and LISTSXP/Nil equivalences spec.md §4.1 calls out.
func matchesTag(v rtvalue.Value, tag bytecode.TypeTag) bool {
	switch tag {
	case bytecode.TagNil:
		return rtvalue.IsNil(v)
	case bytecode.TagList:
		return rtvalue.IsList(v)
	case bytecode.TagPairlist:
		return rtvalue.IsPairlist(v)
	case bytecode.TagSymbol:
		return rtvalue.IsSymbol(v)
	case bytecode.TagClosure:
		return rtvalue.IsClosure(v)
	case bytecode.TagEnvironment:
		return rtvalue.IsEnvironment(v)
	case bytecode.TagPromise:
		return rtvalue.IsPromise(v)
	default:
		return false
	}
}

// scalarNum reports v's value as a float64 if v is a scalar Int or Real,
// the shape add_/sub_/lt_'s fast path requires.
func scalarNum(v rtvalue.Value) (float64, bool) {
	switch t := v.(type) {
	case *rtvalue.Int:
		return float64(t.Value), true
	case *rtvalue.Real:
		return t.Value, true
	default:
		return 0, false
	}
}

var arithNames = map[bytecode.Opcode]string{
	bytecode.OpAdd: "+",
	bytecode.OpSub: "-",
	bytecode.OpLt:  "<",
}

// arith implements add_/sub_/lt_'s fast path over a scalar-real pair,
// falling back to calling the ordinary builtin bound to the operator's name
// in env when either operand isn't a bare scalar Int/Real (spec.md §4.1).
func (i *Interp) arith(op bytecode.Opcode, left, right rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	lf, lok := scalarNum(left)
	rf, rok := scalarNum(right)
	if i.opts.fastPaths && lok && rok {
		switch op {
		case bytecode.OpAdd:
			return numResult(left, right, lf+rf), nil
		case bytecode.OpSub:
			return numResult(left, right, lf-rf), nil
		case bytecode.OpLt:
			return &rtvalue.Bool{Value: lf < rf}, nil
		}
	}

	name := arithNames[op]
	callee, ok := env.FindCallable(rtvalue.Intern(name))
	if !ok {
		return nil, rtvalue.NonFunctionError(name)
	}
	return i.invoke(callee, []actual{{value: left}, {value: right}}, env, nil)
}

// numResult keeps the result an Int only when both operands were Int
// (R's own integer/double promotion rule), pushing a Real otherwise.
func numResult(a, b rtvalue.Value, f float64) rtvalue.Value {
	_, aInt := a.(*rtvalue.Int)
	_, bInt := b.(*rtvalue.Int)
	if aInt && bInt {
		return &rtvalue.Int{Value: int64(f)}
	}
	return &rtvalue.Real{Value: f}
}

// incScalar implements inc_: increment an unshared scalar Int/Real in
// place, or shallow-copy first if the value's named indicator is set
// (spec.md §3's Ownership invariant applied to a fast-path mutation).
func incScalar(v rtvalue.Value) (rtvalue.Value, error) {
	switch t := v.(type) {
	case *rtvalue.Int:
		if t.Named {
			return &rtvalue.Int{Value: t.Value + 1}, nil
		}
		t.Value++
		return t, nil
	case *rtvalue.Real:
		if t.Named {
			return &rtvalue.Real{Value: t.Value + 1}, nil
		}
		t.Value++
		return t, nil
	default:
		return nil, rtvalue.InternalBugError("inc_: non-numeric operand %T", v)
	}
}

// uniqCopy implements uniq_: shallow-duplicate v if its named indicator is
// set, returning an unshared copy; anything without a Named flag (and
// anything already unshared) passes through unchanged.
func uniqCopy(v rtvalue.Value) rtvalue.Value {
	switch t := v.(type) {
	case *rtvalue.Int:
		if t.Named {
			return &rtvalue.Int{Value: t.Value}
		}
	case *rtvalue.Real:
		if t.Named {
			return &rtvalue.Real{Value: t.Value}
		}
	case *rtvalue.Bool:
		if t.Named {
			return &rtvalue.Bool{Value: t.Value}
		}
	case *rtvalue.Str:
		if t.Named {
			return &rtvalue.Str{Value: t.Value}
		}
	}
	return v
}

// elementsOf views v as an indexable sequence for extract1_/subset1_'s
// fast path: a List's elements, a Pair chain's elements, Nil as
// length-zero, or any other value as its own length-one sequence.
func elementsOf(v rtvalue.Value) []rtvalue.Value {
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

// subscript1 implements extract1_/subset1_'s shared attribute-free scalar
// fast path: a 1-based numeric index into recv's elements. Out-of-range
// returns ErrOutOfRange rather than falling through to dispatch, since this
// fast path only ever runs once brobj_ has already confirmed recv carries
// no class attribute to dispatch against; the caller, subscript, then falls
// back to the bound `[[`/`[` callable.
func subscript1(recv, idxVal rtvalue.Value) (rtvalue.Value, error) {
	n, ok := scalarNum(idxVal)
	if !ok {
		return nil, rtvalue.InternalBugError("subscript: non-numeric index %T", idxVal)
	}
	idx := int(n)
	elems := elementsOf(recv)
	if idx < 1 || idx > len(elems) {
		return nil, rtvalue.OutOfRangeError(idx, len(elems))
	}
	return elems[idx-1], nil
}

var subscriptNames = map[bytecode.Opcode]string{
	bytecode.OpExtract1: "[[",
	bytecode.OpSubset1:  "[",
}

// subscript implements extract1_/subset1_ in full: the attribute-free
// scalar fast path when WithFastPaths is enabled and recv carries no class
// attribute, falling back to calling the ordinary `[`/`[[` builtin
// otherwise (an object with a class always dispatches through brobj_/
// dispatch_ rather than reaching here, but the fallback keeps this opcode
// correct even with fast paths disabled for differential testing).
func (i *Interp) subscript(op bytecode.Opcode, recv, idxVal rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if i.opts.fastPaths && !rtvalue.IsObject(recv) {
		if v, err := subscript1(recv, idxVal); err == nil {
			return v, nil
		}
	}

	name := subscriptNames[op]
	callee, ok := env.FindCallable(rtvalue.Intern(name))
	if !ok {
		return subscript1(recv, idxVal)
	}
	return i.invoke(callee, []actual{{value: recv}, {value: idxVal}}, env, nil)
}

// asAST implements asast_: recover a promise's unevaluated expression,
// whether it was built from a bare AST (Expr) or a compiled CodeObject
// (whose owning Src the source pool still holds). Any non-promise value
// passes through unchanged.
func (i *Interp) asAST(v rtvalue.Value) rtvalue.Value {
	p, ok := v.(*rtvalue.Promise)
	if !ok {
		return v
	}
	if co, ok := p.Code.(*bytecode.CodeObject); ok && p.Expr == nil {
		return i.srcs.Get(co.Src)
	}
	return p.Expr
}
