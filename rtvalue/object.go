package rtvalue

import "fmt"

// Object wraps an underlying value with a class attribute, making it
// dispatchable via S3 (single-dispatch on the first argument's class) or S4
// (formal multi-argument dispatch on every argument's class) per spec.md
// §1 and the GLOSSARY's "S3/S4 dispatch" entry.
//
// Grounded on the teacher's small opt-in interfaces (object.Hashable) rather
// than a fat base "Object" type every value embeds: only values that
// actually carry a class attribute pay for this wrapper.
type Object struct {
	// Underlying is the value the class attribute decorates.
	Underlying Value

	// Class is the ordered class vector, most-specific first, mirroring
	// how S3's class() attribute and S4's class hierarchy are both just
	// "an ordered list of class names" at dispatch time.
	Class []string

	// IsS4 marks this object as participating in S4 (formal) dispatch in
	// addition to S3. dispatch_ does not consult it: every classed receiver
	// is resolved by the same walk over Class (interp's resolveMethod).
	IsS4 bool
}

func (o *Object) Kind() Kind { return KindObject }
func (o *Object) String() string {
	return fmt.Sprintf("<object class=%v>", o.Class)
}

// ClassOf returns v's class vector, or nil if v carries no class attribute.
func ClassOf(v Value) []string {
	if o, ok := v.(*Object); ok {
		return o.Class
	}
	return nil
}
