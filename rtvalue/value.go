// Package rtvalue defines the typed view over host values that the compiler
// and interpreter operate on: symbols, pairs (the AST/list representation),
// promises, environments, and scalars. It is the "Value/AST adapter" named
// in the core's component table — the thin layer that stands in for the
// host runtime's own value representation, which the core otherwise treats
// as opaque.
//
// Every host value implements [Value]. The classification predicates
// (IsSymbol, IsPair, IsClosure, ...) are the vocabulary the compiler and
// interpreter use instead of a Go type switch scattered across packages.
package rtvalue

import "fmt"

// Value is the tagged union of runtime values the core operates on. It plays
// the role the host's own value representation plays in a full runtime; the
// core never constructs or frees a Value itself beyond what is defined here.
type Value interface {
	// Kind reports the value's tag.
	Kind() Kind

	// String returns a debug representation.
	String() string
}

// Kind tags a Value's dynamic type.
type Kind int

const (
	KindNil Kind = iota
	KindSymbol
	KindPair
	KindInt
	KindReal
	KindBool
	KindStr
	KindNA
	KindMissing
	KindClosure
	KindBuiltin
	KindSpecial
	KindPromise
	KindEnvironment
	KindObject
	KindCompiledFunction
	KindCode
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindSymbol:
		return "symbol"
	case KindPair:
		return "pair"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindStr:
		return "string"
	case KindNA:
		return "NA"
	case KindMissing:
		return "missing"
	case KindClosure:
		return "closure"
	case KindBuiltin:
		return "builtin"
	case KindSpecial:
		return "special"
	case KindPromise:
		return "promise"
	case KindEnvironment:
		return "environment"
	case KindObject:
		return "object"
	case KindCompiledFunction:
		return "function"
	case KindCode:
		return "code"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsSymbol reports whether v is a [Symbol].
func IsSymbol(v Value) bool { return v != nil && v.Kind() == KindSymbol }

// IsPair reports whether v is a [Pair] (a cons cell / language call node).
func IsPair(v Value) bool { return v != nil && v.Kind() == KindPair }

// IsLanguageCall reports whether v is a Pair whose head is a symbol or
// another call, i.e. an AST node that represents an application or special
// form rather than plain data.
func IsLanguageCall(v Value) bool {
	p, ok := v.(*Pair)
	if !ok || p == nil {
		return false
	}
	switch p.Car.(type) {
	case *Symbol, *Pair:
		return true
	default:
		return false
	}
}

// IsNil reports whether v is the empty list / null value.
func IsNil(v Value) bool { return v == nil || v.Kind() == KindNil }

// IsClosure reports whether v is a [Closure].
func IsClosure(v Value) bool { return v != nil && v.Kind() == KindClosure }

// IsBuiltin reports whether v is a [Builtin].
func IsBuiltin(v Value) bool { return v != nil && v.Kind() == KindBuiltin }

// IsSpecial reports whether v is a [Special].
func IsSpecial(v Value) bool { return v != nil && v.Kind() == KindSpecial }

// IsCallable reports whether v can appear as the callee of a call
// instruction: a closure, a builtin, or a special.
func IsCallable(v Value) bool {
	return IsClosure(v) || IsBuiltin(v) || IsSpecial(v)
}

// IsPromise reports whether v is a [Promise].
func IsPromise(v Value) bool { return v != nil && v.Kind() == KindPromise }

// IsEnvironment reports whether v is an [Environment].
func IsEnvironment(v Value) bool { return v != nil && v.Kind() == KindEnvironment }

// IsObject reports whether v carries a class attribute, i.e. is dispatchable
// via S3/S4.
func IsObject(v Value) bool {
	o, ok := v.(*Object)
	return ok && o != nil && o.Class != nil
}

// IsList reports whether v is VECSXP-shaped: a [List] or, per spec.md's
// `is_` type-test note that VECSXP also matches list, an ordinary Pair
// chain.
func IsList(v Value) bool {
	if _, ok := v.(*List); ok {
		return true
	}
	return IsPair(v) || IsNil(v)
}

// IsPairlist reports whether v is LISTSXP-shaped: a Pair chain or Nil (per
// spec.md's note that LISTSXP also matches nil).
func IsPairlist(v Value) bool {
	return IsPair(v) || IsNil(v)
}
