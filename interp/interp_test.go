package interp

import (
	"testing"

	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/frame"
	"github.com/rlangvm/core/pool"
	"github.com/rlangvm/core/rtvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterp() *Interp {
	return New(pool.NewConstantPool(), pool.NewSourcePool())
}

// TestEvalFunctionLeavesStackEmpty verifies spec.md §8's post-eval_function
// stack-length invariant: a completed top-level evaluation leaves the value
// stack exactly where it started, the result having been returned as a Go
// value rather than left sitting on top.
func TestEvalFunctionLeavesStackEmpty(t *testing.T) {
	i := newTestInterp()
	env := rtvalue.NewEnvironment(nil)

	fn, err := Compile(i.consts, i.srcs, &rtvalue.Int{Value: 42})
	require.NoError(t, err)

	v, err := i.EvalFunction(fn, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 42, Named: true}, v)
	assert.Equal(t, 0, i.stack.Len())
	assert.Nil(t, i.top)
}

// TestFramePopsOnErrorExit checks the frame stack is popped back to nil even
// when execFrame exits via an ordinary (non-transfer) error, not just a
// normal ret_.
func TestFramePopsOnErrorExit(t *testing.T) {
	i := newTestInterp()
	env := rtvalue.NewEnvironment(nil)

	fn, err := Compile(i.consts, i.srcs, rtvalue.Intern("unbound_thing"))
	require.NoError(t, err)

	_, err = i.EvalFunction(fn, env)
	require.Error(t, err)
	kind, ok := rtvalue.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, rtvalue.ErrUnboundVariable, kind)
	assert.Nil(t, i.top)
}

// TestNestedClosureFramePopOnError runs a closure whose body errors,
// confirming the closure's FunctionReturn frame unwinds cleanly, leaving no
// stale frame behind.
func TestNestedClosureFramePopOnError(t *testing.T) {
	i := newTestInterp()
	env := rtvalue.NewEnvironment(nil)

	cl := &rtvalue.Closure{Env: env, Body: rtvalue.Intern("unbound_in_body")}
	_, err := i.invokeClosure(cl, nil, nil)
	require.Error(t, err)
	assert.Nil(t, i.top)
}

// TestPromiseForceIsIdempotent verifies spec.md §8's force/re-force
// round-trip: a promise's expression runs exactly once, and every later
// Force call returns the cached value even if the environment it closed
// over has since changed.
func TestPromiseForceIsIdempotent(t *testing.T) {
	i := newTestInterp()
	env := rtvalue.NewEnvironment(nil)
	env.DefineVar(rtvalue.Intern("counter"), &rtvalue.Int{Value: 1})

	p := rtvalue.NewPromise(rtvalue.Intern("counter"), env)

	v1, err := i.force(p)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 1, Named: true}, v1)

	env.DefineVar(rtvalue.Intern("counter"), &rtvalue.Int{Value: 2})

	v2, err := i.force(p)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.True(t, p.Forced)
}

func TestToBoolBoundaries(t *testing.T) {
	_, err := toBool(rtvalue.NilValue)
	require.Error(t, err)
	kind, _ := rtvalue.KindOf(err)
	assert.Equal(t, rtvalue.ErrBadCondition, kind)

	_, err = toBool(rtvalue.NAValue)
	require.Error(t, err)

	b, err := toBool(&rtvalue.Bool{Value: true})
	require.NoError(t, err)
	assert.True(t, b)

	b, err = toBool(&rtvalue.Int{Value: 0})
	require.NoError(t, err)
	assert.False(t, b)

	b, err = toBool(&rtvalue.Real{Value: 3.5})
	require.NoError(t, err)
	assert.True(t, b)
}

// TestLogicalThreeValuedTruthTable exhaustively checks lgl_and_/lgl_or_
// against R's three-valued (TRUE/FALSE/NA) boolean algebra: FALSE
// dominates AND regardless of the other operand's NA-ness, and TRUE
// dominates OR the same way.
func TestLogicalThreeValuedTruthTable(t *testing.T) {
	tru := &rtvalue.Bool{Value: true}
	fls := &rtvalue.Bool{Value: false}
	na := rtvalue.NAValue

	andCases := []struct {
		a, b, want rtvalue.Value
	}{
		{tru, tru, tru},
		{tru, fls, fls},
		{fls, tru, fls},
		{fls, fls, fls},
		{fls, na, fls},
		{na, fls, fls},
		{tru, na, na},
		{na, tru, na},
		{na, na, na},
	}
	for _, c := range andCases {
		assert.Equal(t, c.want, logicalAnd(c.a, c.b))
	}

	orCases := []struct {
		a, b, want rtvalue.Value
	}{
		{tru, tru, tru},
		{tru, fls, tru},
		{fls, tru, tru},
		{fls, fls, fls},
		{tru, na, tru},
		{na, tru, tru},
		{fls, na, na},
		{na, fls, na},
		{na, na, na},
	}
	for _, c := range orCases {
		assert.Equal(t, c.want, logicalOr(c.a, c.b))
	}
}

// TestSubscriptOutOfRangeFallsBackToBuiltin checks extract1_/subset1_'s
// documented fallback: a fast-path out-of-range miss does not propagate
// directly as an error when an ordinary `[[`/`[` builtin is bound -- it
// calls that builtin instead, only surfacing the fast path's own error when
// no such builtin exists.
func TestSubscriptOutOfRangeFallsBackToBuiltin(t *testing.T) {
	i := newTestInterp()
	env := rtvalue.NewEnvironment(nil)
	recv := &rtvalue.List{Elems: []rtvalue.Value{&rtvalue.Int{Value: 1}, &rtvalue.Int{Value: 2}}}
	idx := &rtvalue.Int{Value: 5}

	_, err := i.subscript(bytecode.OpExtract1, recv, idx, env)
	require.Error(t, err)
	kind, ok := rtvalue.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, rtvalue.ErrOutOfRange, kind)

	sentinel := &rtvalue.Str{Value: "fallback-ran"}
	env.DefineVar(rtvalue.Intern("[["), &rtvalue.Builtin{
		Name:    "[[",
		Visible: true,
		Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
			return sentinel, nil
		},
	})

	v, err := i.subscript(bytecode.OpExtract1, recv, idx, env)
	require.NoError(t, err)
	assert.Equal(t, sentinel, v)
}

// TestStackDupSwapSwapIsIdentity checks dup_;swap_;swap_'s round trip: two
// swaps cancel, leaving the same two top values dup_ produced.
func TestStackDupSwapSwapIsIdentity(t *testing.T) {
	i := newTestInterp()
	a := &rtvalue.Int{Value: 1}
	b := &rtvalue.Int{Value: 2}
	i.stack.Push(a)
	i.stack.Push(b)

	i.stack.Dup()
	i.stack.Swap()
	i.stack.Swap()

	assert.Equal(t, b, i.stack.Pop())
	assert.Equal(t, b, i.stack.Pop())
	assert.Equal(t, a, i.stack.Pop())
	assert.Equal(t, 0, i.stack.Len())
}

// TestStackDupPopIsNoOp checks dup_;pop_'s round trip: pushing a duplicate
// and immediately popping it leaves the stack exactly as it was.
func TestStackDupPopIsNoOp(t *testing.T) {
	i := newTestInterp()
	a := &rtvalue.Int{Value: 7}
	i.stack.Push(a)
	before := i.stack.Len()

	i.stack.Dup()
	i.stack.Pop()

	assert.Equal(t, before, i.stack.Len())
	assert.Equal(t, a, i.stack.Top())
}

// TestUniqCopyTwiceStaysUnshared checks uniq_'s idempotence: once a value
// has been shallow-copied to shed its Named flag, a second uniq_ is a
// genuine no-op rather than copying again.
func TestUniqCopyTwiceStaysUnshared(t *testing.T) {
	v := &rtvalue.Int{Value: 9, Named: true}

	once := uniqCopy(v)
	onceInt, ok := once.(*rtvalue.Int)
	require.True(t, ok)
	assert.False(t, onceInt.Named)
	assert.NotSame(t, v, onceInt)

	twice := uniqCopy(once)
	assert.Same(t, once, twice)
}

// TestResolveMethodFallsBackThroughDefaultToPlainName exercises
// dispatch_'s S3 fallback chain end-to-end scenario 6 calls for: an object
// whose class has no specific method falls back to "<name>.default", and
// one whose class has no method and no default at all falls back to the
// plain generic-name binding.
func TestResolveMethodFallsBackThroughDefaultToPlainName(t *testing.T) {
	env := rtvalue.NewEnvironment(nil)
	defaultMethod := &rtvalue.Builtin{Name: "print.default", Visible: true, Fn: noopBuiltinFn}
	env.DefineVar(rtvalue.Intern("print.default"), defaultMethod)

	m, ok := resolveMethod(env, "print", []string{"widget", "gadget"})
	require.True(t, ok)
	assert.Same(t, defaultMethod, m)

	specific := &rtvalue.Builtin{Name: "print.widget", Visible: true, Fn: noopBuiltinFn}
	env.DefineVar(rtvalue.Intern("print.widget"), specific)

	m, ok = resolveMethod(env, "print", []string{"widget", "gadget"})
	require.True(t, ok)
	assert.Same(t, specific, m)

	env2 := rtvalue.NewEnvironment(nil)
	plain := &rtvalue.Builtin{Name: "summary", Visible: true, Fn: noopBuiltinFn}
	env2.DefineVar(rtvalue.Intern("summary"), plain)
	m, ok = resolveMethod(env2, "summary", []string{"widget"})
	require.True(t, ok)
	assert.Same(t, plain, m)
}

func noopBuiltinFn(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
	return rtvalue.NilValue, nil
}

// TestMatchKindTargetsNearestMatchingFrame checks matchKind's contract: an
// untargeted break/next matches the nearest Loop frame, an untargeted
// return matches the nearest FunctionReturn frame, and neither matches a
// frame of the wrong kind.
func TestMatchKindTargetsNearestMatchingFrame(t *testing.T) {
	loopFr := frame.New(nil, frame.Loop, nil, 0)
	funcFr := frame.New(nil, frame.FunctionReturn, nil, 0)

	assert.True(t, matchKind(loopFr, &frame.Transfer{Kind: frame.TransferBreak}))
	assert.True(t, matchKind(loopFr, &frame.Transfer{Kind: frame.TransferNext}))
	assert.False(t, matchKind(loopFr, &frame.Transfer{Kind: frame.TransferReturn}))

	assert.True(t, matchKind(funcFr, &frame.Transfer{Kind: frame.TransferReturn}))
	assert.False(t, matchKind(funcFr, &frame.Transfer{Kind: frame.TransferBreak}))

	assert.True(t, matchKind(funcFr, &frame.Transfer{Kind: frame.TransferReturn, Target: funcFr}))
	assert.False(t, matchKind(funcFr, &frame.Transfer{Kind: frame.TransferReturn, Target: loopFr}))
}

// newMinimalControlEnv builds a from-scratch environment binding the
// control-flow forms needed to run an if/while/return program, the way
// builtins.NewGlobalEnv does for the real host -- kept local and minimal
// here so this package's own tests never need to import builtins (which
// itself imports interp).
func newMinimalControlEnv(i *Interp) *rtvalue.Environment {
	env := rtvalue.NewEnvironment(nil)

	env.DefineVar(rtvalue.Intern("if"), &rtvalue.Special{Name: "if", Visible: true, Fn: func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := rtvalue.CallArgs(call.(*rtvalue.Pair))
		cv, err := i.EvalExpr(a[0].Car, env)
		if err != nil {
			return nil, err
		}
		cb, err := ToBool(cv)
		if err != nil {
			return nil, err
		}
		if cb {
			return i.EvalExpr(a[1].Car, env)
		}
		if len(a) == 3 {
			return i.EvalExpr(a[2].Car, env)
		}
		return rtvalue.NilValue, nil
	}})

	env.DefineVar(rtvalue.Intern("while"), &rtvalue.Special{Name: "while", Visible: false, Fn: func(call, callee, args rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		a := rtvalue.CallArgs(call.(*rtvalue.Pair))
		for {
			cv, err := i.EvalExpr(a[0].Car, env)
			if err != nil {
				return nil, err
			}
			cb, err := ToBool(cv)
			if err != nil {
				return nil, err
			}
			if !cb {
				break
			}
			if _, err := i.EvalExpr(a[1].Car, env); err != nil {
				if t, ok := frame.AsTransfer(err); ok && t.Kind == frame.TransferBreak {
					break
				}
				if t, ok := frame.AsTransfer(err); ok && t.Kind == frame.TransferNext {
					continue
				}
				return nil, err
			}
		}
		return rtvalue.NilValue, nil
	}})

	env.DefineVar(rtvalue.Intern("return"), &rtvalue.Builtin{Name: "return", Visible: false, Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		var v rtvalue.Value = rtvalue.NilValue
		if len(args) == 1 {
			v = args[0]
		}
		return nil, &frame.Transfer{Kind: frame.TransferReturn, Value: v}
	}})

	env.DefineVar(rtvalue.Intern("=="), &rtvalue.Builtin{Name: "==", Visible: true, Fn: func(args []rtvalue.Value, env *rtvalue.Environment) (rtvalue.Value, error) {
		l := args[0].(*rtvalue.Int).Value
		r := args[1].(*rtvalue.Int).Value
		return &rtvalue.Bool{Value: l == r}, nil
	}})

	return env
}

// TestIfAndReturnUnwindPastEnclosingLoop runs spec.md §8 end-to-end
// scenario 5 in miniature: `function(i) while (1) if (i == 3) return(i)`,
// asserting that `if` takes its branch correctly and that `return` actually
// unwinds past the enclosing Loop frame to the function's FunctionReturn
// frame -- the exact two code paths review comments (a) and (b) added.
func TestIfAndReturnUnwindPastEnclosingLoop(t *testing.T) {
	i := newTestInterp()
	env := newMinimalControlEnv(i)

	body := rtvalue.Call(rtvalue.Intern("while"),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
		rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("if"),
			rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("=="),
				rtvalue.Arg(nil, rtvalue.Intern("i")),
				rtvalue.Arg(nil, &rtvalue.Int{Value: 3}),
			)),
			rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("return"),
				rtvalue.Arg(nil, rtvalue.Intern("i")),
			)),
		)),
	)

	cl := &rtvalue.Closure{
		Env:     env,
		Body:    body,
		Formals: []rtvalue.Formal{{Name: rtvalue.Intern("i")}},
	}
	actuals := []actual{{value: &rtvalue.Int{Value: 3}}}
	v, err := i.invokeClosure(cl, actuals, nil)
	require.NoError(t, err)
	result, ok := v.(*rtvalue.Int)
	require.True(t, ok)
	assert.Equal(t, int64(3), result.Value)
	assert.Nil(t, i.top)
	assert.Equal(t, 0, i.stack.Len())
}
