// Package frame implements the interpreter's call-frame stack: the
// process-wide chain of per-call/per-loop frames that carries return
// targets, stack snapshots, and the bookkeeping non-local control flow
// unwinds through.
//
// Grounded on vm/frame.go's Frame{cl, ip, basePointer} + NewFrame,
// generalized from the teacher's single implicit frame kind (every call is
// a function call) to the spec's five frame kinds, and on
// kristofer-smog/pkg/vm/errors.go's StackFrame/RuntimeError for the
// frame-chain-as-diagnostic-context idea, realized here as Frame.Trace.
package frame

import (
	"fmt"
	"strings"

	"github.com/rlangvm/core/rtvalue"
)

// Kind tags what a Frame represents, per spec.md §3's "Call frame" entry.
type Kind int

const (
	// TopLevel is the outermost frame installed for a top-level
	// eval_function/eval_expr call.
	TopLevel Kind = iota

	// Loop frames hold break/next targets (installed by beginloop_).
	Loop

	// FunctionReturn frames are installed on closure entry and hold the
	// `return` non-local-transfer target.
	FunctionReturn

	// Browser frames stand in for an interactive-debugger frame (the host
	// runtime's `browser()` concept): present in the frame-kind taxonomy
	// spec.md §3 names, but this core never installs one itself since it
	// has no debugger of its own.
	Browser

	// Builtin frames are installed around the run of a forced promise's
	// body (interp's forcePromiseBody), so errors raised from inside one
	// still unwind through a well-formed frame chain. Calls into host
	// builtins/specials install no frame of their own.
	Builtin
)

func (k Kind) String() string {
	switch k {
	case TopLevel:
		return "TOPLEVEL"
	case Loop:
		return "LOOP"
	case FunctionReturn:
		return "FUNCTION_RETURN"
	case Browser:
		return "BROWSER"
	case Builtin:
		return "BUILTIN"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Frame is one entry in the process-wide call-frame stack, per spec.md §3.
type Frame struct {
	// Next links to the enclosing frame (nil for the outermost TopLevel
	// frame), forming a stack rooted in process-wide state.
	Next *Frame

	Kind Kind

	// ReturnTarget is where a matching break resumes: for a Loop frame
	// this is the byte offset of the instruction just after the loop's
	// closing br_ (the loop's endcontext_; next re-enters at SavedPC).
	// Other frames leave it unset: a return ends the frame's own
	// interpreter invocation instead.
	ReturnTarget int

	// StackTopSnapshot is the value-stack length at the time this frame was
	// installed; a non-local transfer through this frame truncates the
	// stack back to this length before resuming.
	StackTopSnapshot int

	// SavedPC is the program counter to resume at on a `next` or restart
	// re-entry: the loop's first instruction for a Loop frame, 0 (the start
	// of the frame's code) for any other frame.
	SavedPC int

	// CallEnv is the environment this frame executes in.
	CallEnv *rtvalue.Environment

	// Closure is the closure being executed by a FunctionReturn frame (nil
	// otherwise).
	Closure *rtvalue.Closure

	// Args holds the unforced-promise argument list built for a
	// FunctionReturn frame's call, kept for diagnostics and for `missing()`
	// style introspection.
	Args []rtvalue.Value

	// CallExpr is the call AST that produced this frame, used for error
	// messages and complex-assignment placeholder substitution.
	CallExpr rtvalue.Value

	// ExitHandler, if non-nil, runs when this frame is popped on any exit
	// path (normal or non-local), mirroring begincontext/endcontext's
	// on-exit hooks.
	ExitHandler func()

	// name is a short diagnostic label (closure/builtin name), used only by
	// Trace.
	name string
}

// New creates a frame of the given kind, chained to next, snapshotting env
// and the current stack length.
func New(next *Frame, kind Kind, env *rtvalue.Environment, stackTop int) *Frame {
	return &Frame{Next: next, Kind: kind, CallEnv: env, StackTopSnapshot: stackTop}
}

// WithName sets the frame's diagnostic label and returns it, for chaining
// at construction time.
func (f *Frame) WithName(name string) *Frame {
	f.name = name
	return f
}

// Pop runs f's exit handler (if any) and returns the enclosing frame, the
// paired call every begincontext must see matched by an endcontext on every
// exit path, including non-local ones (spec.md §5).
func (f *Frame) Pop() *Frame {
	if f.ExitHandler != nil {
		f.ExitHandler()
	}
	return f.Next
}

// FindKind walks from f outward (towards Next) for the nearest frame of
// kind, returning nil if none exists. Used by break/next (nearest Loop) and
// return (nearest FunctionReturn).
func FindKind(f *Frame, kind Kind) *Frame {
	for ; f != nil; f = f.Next {
		if f.Kind == kind {
			return f
		}
	}
	return nil
}

// Trace renders the frame chain from f outward as a stack trace, innermost
// frame first.
func Trace(f *Frame) string {
	var b strings.Builder
	for ; f != nil; f = f.Next {
		label := f.name
		if label == "" {
			label = f.Kind.String()
		}
		fmt.Fprintf(&b, "  at %s\n", label)
	}
	return b.String()
}
