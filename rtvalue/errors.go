package rtvalue

import (
	"errors"
	"fmt"
)

// ErrorKind tags one of the core's seven recoverable/fatal error
// classifications (spec.md §7). Grounded on the teacher's object.Error /
// newError pattern, generalized from a flat message string to a typed
// sentinel so callers can distinguish kinds with errors.Is without string
// matching.
type ErrorKind int

const (
	// ErrUnboundVariable: ldvar_/ldfun_ found no binding for a symbol.
	ErrUnboundVariable ErrorKind = iota

	// ErrMissingArgument: ldvar_, or eager argument expansion, hit
	// R_MissingArg.
	ErrMissingArgument

	// ErrNonFunction: ldfun_/isfun_ resolved a binding whose type is not
	// callable.
	ErrNonFunction

	// ErrBadCondition: asbool_ was given a length-0 or NA condition.
	ErrBadCondition

	// ErrBadAssignmentTarget: the compiler found a malformed `<-` LHS.
	ErrBadAssignmentTarget

	// ErrOutOfRange: extract1_/subset1_'s fast path saw an index past the
	// end. The interpreter then calls the bound `[[`/`[` instead, and
	// returns this error only when no such callable is bound.
	ErrOutOfRange

	// ErrInternalBug: an assertion failed in opcode dispatch or frame
	// bookkeeping. Always fatal.
	ErrInternalBug
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnboundVariable:
		return "UnboundVariable"
	case ErrMissingArgument:
		return "MissingArgument"
	case ErrNonFunction:
		return "NonFunction"
	case ErrBadCondition:
		return "BadCondition"
	case ErrBadAssignmentTarget:
		return "BadAssignmentTarget"
	case ErrOutOfRange:
		return "OutOfRange"
	case ErrInternalBug:
		return "InternalBug"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// CoreError is the error type every core-raised error wraps. errors.Is
// compares by Kind; errors.As recovers the message and kind both.
type CoreError struct {
	Kind    ErrorKind
	Message string
}

func (e *CoreError) Error() string { return e.Message }

// Is implements errors.Is support: two *CoreError values match if they
// share a Kind. A bare ErrorKind is not an error value; to test an error's
// kind directly, use KindOf.
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	return ok && other.Kind == e.Kind
}

// newCoreError builds a *CoreError of the given kind with a formatted
// message, mirroring the teacher's newError(format, args...) helper.
func newCoreError(kind ErrorKind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// UnboundVariableError reports a lookup failure for sym's name.
func UnboundVariableError(name string) error {
	return newCoreError(ErrUnboundVariable, "object %q not found", name)
}

// MissingArgumentError reports a reference to a formal with no supplied or
// default value.
func MissingArgumentError(name string) error {
	return newCoreError(ErrMissingArgument, "argument %q is missing, with no default", name)
}

// NonFunctionError reports an attempt to call a non-callable binding.
func NonFunctionError(name string) error {
	return newCoreError(ErrNonFunction, "attempt to apply non-function %q", name)
}

// BadConditionLengthZeroError is the `asbool_` length-0 boundary from
// spec.md §8.
func BadConditionLengthZeroError() error {
	return newCoreError(ErrBadCondition, "argument is of length zero")
}

// BadConditionNAError is the `asbool_` NA boundary from spec.md §8; logical
// inputs and non-logical inputs get distinct messages, matching the
// original host's two wordings.
func BadConditionNAError(wasLogical bool) error {
	if wasLogical {
		return newCoreError(ErrBadCondition, "missing value where TRUE/FALSE needed")
	}
	return newCoreError(ErrBadCondition, "argument is not interpretable as logical")
}

// BadAssignmentTargetError reports a malformed `<-` LHS the compiler could
// not even fall back on dynamically.
func BadAssignmentTargetError(msg string) error {
	return newCoreError(ErrBadAssignmentTarget, "invalid assignment target: %s", msg)
}

// OutOfRangeError reports an extract1_ fast-path index past the vector end.
func OutOfRangeError(index, length int) error {
	return newCoreError(ErrOutOfRange, "subscript out of bounds: index %d, length %d", index, length)
}

// InternalBugError reports an assertion failure in opcode dispatch or frame
// bookkeeping; always fatal.
func InternalBugError(format string, args ...any) error {
	return newCoreError(ErrInternalBug, "internal error: "+format, args...)
}

// KindOf recovers the ErrorKind from err if it (or something it wraps) is a
// *CoreError.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
