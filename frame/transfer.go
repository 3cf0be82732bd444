package frame

import "github.com/rlangvm/core/rtvalue"

// TransferKind tags what kind of non-local control transfer is in flight.
type TransferKind int

const (
	// TransferBreak unwinds to the nearest Loop frame's ReturnTarget.
	TransferBreak TransferKind = iota

	// TransferNext unwinds to the nearest Loop frame and resumes at its
	// SavedPC (re-entering the loop body).
	TransferNext

	// TransferReturn unwinds to the nearest FunctionReturn frame, carrying
	// Value as the call's result.
	TransferReturn

	// TransferRestart re-enters the same CodeObject a restart token names,
	// resuming from its saved PC (spec.md §5's "Restart tokens").
	TransferRestart
)

// Transfer is the explicit-frame replacement for the host's setjmp/longjmp
// non-local control primitive (spec.md §5, §9's design note). It is
// propagated as an ordinary Go error up the interpreter's call stack and
// intercepted by evalCode at the first frame matching its Kind's target
// frame kind, which then restores the value stack to that frame's
// StackTopSnapshot before resuming — the "stack snapshot discipline" spec.md
// §9 requires be preserved precisely.
type Transfer struct {
	Kind  TransferKind
	Value rtvalue.Value // the return value for TransferReturn

	// Target, if non-nil, pins the transfer to a specific frame instance
	// rather than "the nearest frame of the matching kind" — used by
	// restart tokens, which re-enter a particular saved frame rather than
	// whichever loop/function happens to be innermost right now.
	Target *Frame
}

func (t *Transfer) Error() string {
	switch t.Kind {
	case TransferBreak:
		return "non-local transfer: break"
	case TransferNext:
		return "non-local transfer: next"
	case TransferReturn:
		return "non-local transfer: return"
	case TransferRestart:
		return "non-local transfer: restart"
	default:
		return "non-local transfer"
	}
}

// AsTransfer reports whether err is a *Transfer, for interpreter code that
// needs to distinguish "ordinary error, propagate" from "non-local
// transfer, intercept or re-raise at the matching frame."
func AsTransfer(err error) (*Transfer, bool) {
	t, ok := err.(*Transfer)
	return t, ok
}
