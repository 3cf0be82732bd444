package builtins

import (
	"fmt"
	"os"

	"github.com/rlangvm/core/rtvalue"
)

// printBuiltins covers print/print.default/stop: the minimal output surface
// a base environment needs for the dispatch-fallback scenario in
// spec.md §9 (an object with no print.<class> method falls back to
// print.default). Dispatch itself is dispatch_'s job (interp/call.go); these
// are just the two leaves it can land on.
func printBuiltins() []builtinDef {
	return []builtinDef{
		{"print", &rtvalue.Builtin{Name: "print", Visible: false, Fn: printDefault}},
		{"print.default", &rtvalue.Builtin{Name: "print.default", Visible: false, Fn: printDefault}},
		{"stop", &rtvalue.Builtin{Name: "stop", Visible: false, Fn: stopBuiltin}},
	}
}

func printDefault(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	if len(args) == 0 {
		return nil, newError("print: expected at least 1 argument")
	}
	v := args[0]
	if o, ok := v.(*rtvalue.Object); ok {
		fmt.Fprintln(os.Stdout, o.Underlying.String())
	} else {
		fmt.Fprintln(os.Stdout, v.String())
	}
	return v, nil
}

// stopBuiltin implements the condition-raising primitive: joins its
// arguments' string forms into a single message and returns it as an error,
// matching the convention that a builtin signals failure through its error
// return rather than a side channel.
func stopBuiltin(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	msg := ""
	for idx, a := range args {
		if idx > 0 {
			msg += " "
		}
		if s, ok := a.(*rtvalue.Str); ok {
			msg += s.Value
		} else {
			msg += a.String()
		}
	}
	return nil, newError("%s", msg)
}
