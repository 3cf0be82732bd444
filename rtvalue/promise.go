package rtvalue

import "fmt"

// Promise is a suspended computation: an expression (or, once compiled, a
// code body) plus the environment it closed over, and a slot for its
// eventual value. Promises are the mechanism behind call-by-need: arguments
// are wrapped in promises at the call site and forced on first use.
//
// Invariant (spec.md §3, §8): once Forced is true, Value holds the result
// permanently; forcing a second time is a no-op that returns the same
// value with no side effects. Once a promise holds a value, that value's
// Named indicator (see [Int.Named] and friends) is raised so in-place
// mutation is disallowed.
type Promise struct {
	// Expr is the unevaluated source expression, used when Code is nil.
	Expr Value

	// Code, if non-nil, is the compiled code body for this promise's
	// expression (its concrete type is *bytecode.CodeObject; held as `any`
	// for the same import-cycle reason as Closure.Compiled).
	Code any

	// Env is the environment the expression is evaluated in.
	Env *Environment

	// Value is the forced result, valid only when Forced is true.
	Value Value

	// Forced reports whether the promise has already been evaluated.
	Forced bool

	// Owner keeps a back-reference to the FunctionObject the promise's Code
	// was compiled from, per spec.md §3's "Ownership" note: held as `any`
	// for the same reason as Code, purely to keep the compiled function
	// reachable for as long as any promise created from it is alive.
	Owner any
}

func (p *Promise) Kind() Kind { return KindPromise }

func (p *Promise) String() string {
	if p.Forced {
		return fmt.Sprintf("<promise: %v>", p.Value)
	}
	return "<promise: unforced>"
}

// NewPromise builds an unforced promise over expr in env.
func NewPromise(expr Value, env *Environment) *Promise {
	return &Promise{Expr: expr, Env: env}
}

// NewCodePromise builds an unforced promise over a compiled code body
// (code's concrete type is *bytecode.CodeObject, owner its
// *bytecode.FunctionObject) in env, per the `promise_` instruction's
// contract (spec.md §4.1).
func NewCodePromise(code, owner any, env *Environment) *Promise {
	return &Promise{Code: code, Owner: owner, Env: env}
}

// Force returns the promise's value, computing it via eval if this is the
// first force. eval is called only when the promise is not yet forced; it
// is expected to run the promise's Code (or interpret its Expr) in p.Env.
// Force is idempotent: a second call returns the cached Value without
// invoking eval again, satisfying the round-trip property in spec.md §8.
func (p *Promise) Force(eval func(p *Promise) (Value, error)) (Value, error) {
	if p.Forced {
		return p.Value, nil
	}
	v, err := eval(p)
	if err != nil {
		return nil, err
	}
	p.Value = v
	p.Forced = true
	raiseNamed(v)
	return v, nil
}

// raiseNamed elevates a value's "named" indicator once it has escaped into a
// promise slot or a variable binding, per the Ownership invariant in
// spec.md §3: "once a promise holds a value, the value's reference count
// indicator is elevated so in-place mutation is disallowed."
func raiseNamed(v Value) {
	switch t := v.(type) {
	case *Int:
		t.Named = true
	case *Real:
		t.Named = true
	case *Bool:
		t.Named = true
	case *Str:
		t.Named = true
	}
}
