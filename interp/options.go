package interp

// Option configures an Interp at construction time.
//
// Grounded on the teacher's repl.Options{NoColor, Debug} struct-of-flags
// convention, adapted to the functional-options idiom the rest of the
// corpus's larger programs use for their entry points.
type Option func(*options)

type options struct {
	stackCapacity int
	fastPaths     bool
	trace         func(note string)
}

func defaultOptions() options {
	return options{
		stackCapacity: 256,
		fastPaths:     true,
	}
}

// WithStackCapacity sets the value stack's initial backing capacity.
func WithStackCapacity(n int) Option {
	return func(o *options) { o.stackCapacity = n }
}

// WithFastPaths enables or disables the add_/sub_/lt_/extract1_/subset1_
// scalar fast paths; disabling routes every arithmetic/subscript operation
// through the ordinary builtin call, useful for differential testing the
// fast paths against their fallback.
func WithFastPaths(enabled bool) Option {
	return func(o *options) { o.fastPaths = enabled }
}

// WithTrace installs a callback invoked with a short note before every
// instruction dispatch, for debugging.
func WithTrace(fn func(note string)) Option {
	return func(o *options) { o.trace = fn }
}
