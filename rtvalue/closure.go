package rtvalue

import "fmt"

// Closure is a user-defined function: a formals list, a body AST (compiled
// on first call into the Compiled field), and the environment it closed over at
// definition time. Grounded on the teacher's object.Function /
// object.Closure pair, collapsed into one type since this core's closures
// are compiled on demand rather than carrying a separate interpreted and
// bytecode representation.
type Closure struct {
	// Formals is the ordered parameter list: name plus an optional default
	// expression (nil if the formal has none).
	Formals []Formal

	// Body is the uncompiled AST of the closure's body. Once the closure is
	// first called, Compiled is populated and Body is no longer consulted.
	Body Value

	// Env is the defining environment, captured at closure-creation time.
	Env *Environment

	// Name, if non-empty, is the symbol the closure was bound to at
	// definition, used only for diagnostics (stack traces, Inspect).
	Name string

	// Compiled holds the compiled FunctionObject once compile-on-demand has
	// run; nil until then. Its concrete type is *bytecode.FunctionObject,
	// but rtvalue cannot import bytecode without an import cycle (bytecode
	// stores Values in its constant pool), so it is held as `any` and type
	// asserted by the compiler/interpreter.
	Compiled any
}

// Formal is one parameter of a closure: a name and an optional default
// expression, the latter compiled to a promise body per spec.md §4.2.2.
type Formal struct {
	Name    *Symbol
	Default Value // nil if the formal has no default
}

func (c *Closure) Kind() Kind { return KindClosure }
func (c *Closure) String() string {
	if c.Name != "" {
		return fmt.Sprintf("function %s", c.Name)
	}
	return "function"
}

// BuiltinFunc is the host's eager call_builtin(builtin, args, env) -> Value
// interface, consumed as an opaque collaborator per spec.md §1.
type BuiltinFunc func(args []Value, env *Environment) (Value, error)

// Builtin is a callable that receives its arguments already evaluated.
type Builtin struct {
	Name    string
	Fn      BuiltinFunc
	Visible bool // the visibility flag this builtin sets on return
}

func (b *Builtin) Kind() Kind     { return KindBuiltin }
func (b *Builtin) String() string { return fmt.Sprintf(".Primitive(%q)", b.Name) }

// SpecialFunc receives its call expression unevaluated, exactly as a special
// form does.
type SpecialFunc func(call Value, callee Value, args Value, env *Environment) (Value, error)

// Special is a callable that receives its arguments unevaluated as an AST
// fragment (the call's CDR).
type Special struct {
	Name    string
	Fn      SpecialFunc
	Visible bool
}

func (s *Special) Kind() Kind     { return KindSpecial }
func (s *Special) String() string { return fmt.Sprintf(".Primitive(%q)", s.Name) }
