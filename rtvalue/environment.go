package rtvalue

// Environment is a first-class, chained symbol-to-value mapping. Variable
// lookup walks the parent chain; the global/base environment has a nil
// Parent. Environments are created at every closure entry (formal binding)
// and by the host; a `for` loop keeps its variables in the current
// environment rather than opening a new one. The core never frees one
// itself (lifetime is the host GC's concern per spec.md §3).
type Environment struct {
	vars   map[*Symbol]Value
	Parent *Environment
}

func (e *Environment) Kind() Kind     { return KindEnvironment }
func (e *Environment) String() string { return "<environment>" }

// NewEnvironment creates a new environment chained to parent. A nil parent
// marks the global/base environment.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{vars: make(map[*Symbol]Value), Parent: parent}
}

// FindVar walks the environment chain for sym, returning (value, true) on
// success or (nil, false) if sym is bound nowhere in the chain. This is the
// host's find_var primitive, consumed here rather than left fully opaque so
// the interpreter is runnable standalone.
func (e *Environment) FindVar(sym *Symbol) (Value, bool) {
	for env := e; env != nil; env = env.Parent {
		if v, ok := env.vars[sym]; ok {
			return v, true
		}
	}
	return nil, false
}

// DefineVar binds sym to v in e directly (not walking the parent chain),
// overwriting any existing binding for sym in e. This is `stvar_`'s
// contract: define, never assign-through-parent.
func (e *Environment) DefineVar(sym *Symbol, v Value) {
	raiseNamed(v)
	e.vars[sym] = v
}

// SetVar walks the chain looking for an existing binding of sym and updates
// it in place (used by SetOrDefineGlobal, i.e. by `<<-` superassignment on
// both the inlined `stvar_super_` path and the special form's fallback;
// never by the plain `stvar_` path). Reports whether an existing
// binding was found; if not, the caller decides whether to define in the
// global environment instead, exactly as `<<-` does in the host language.
func (e *Environment) SetVar(sym *Symbol, v Value) bool {
	for env := e; env != nil; env = env.Parent {
		if _, ok := env.vars[sym]; ok {
			raiseNamed(v)
			env.vars[sym] = v
			return true
		}
	}
	return false
}

// FindCallable walks the chain for a binding of sym whose value is callable
// (a Closure/Builtin/Special), skipping over any nearer binding of the same
// name that isn't, per ldfun_'s "resolves pool[k] as a function... skipping
// non-function bindings" contract (spec.md §4.1).
func (e *Environment) FindCallable(sym *Symbol) (Value, bool) {
	for env := e; env != nil; env = env.Parent {
		if v, ok := env.vars[sym]; ok && IsCallable(v) {
			return v, true
		}
	}
	return nil, false
}

// IsGlobal reports whether e has no parent, i.e. is the base environment.
func (e *Environment) IsGlobal() bool { return e.Parent == nil }

// Global walks e's parent chain to the root (base) environment.
func (e *Environment) Global() *Environment {
	env := e
	for env.Parent != nil {
		env = env.Parent
	}
	return env
}

// SetOrDefineGlobal implements `<<-`'s full contract: walk outward from
// e.Parent (never touching e's own local scope) for an existing binding of
// sym and update it in place; if none exists anywhere in the chain, define
// it fresh in the global environment.
func (e *Environment) SetOrDefineGlobal(sym *Symbol, v Value) {
	start := e.Parent
	if start == nil {
		start = e
	}
	if start.SetVar(sym, v) {
		return
	}
	e.Global().DefineVar(sym, v)
}
