package builtins

import (
	"testing"

	"github.com/rlangvm/core/frame"
	"github.com/rlangvm/core/interp"
	"github.com/rlangvm/core/pool"
	"github.com/rlangvm/core/rtvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterp() (*interp.Interp, *rtvalue.Environment) {
	consts := pool.NewConstantPool()
	srcs := pool.NewSourcePool()
	i := interp.New(consts, srcs)
	return i, NewGlobalEnv(i)
}

func boolLit(v bool) rtvalue.Value { return &rtvalue.Bool{Value: v} }

func TestOrShortCircuitsRightOperand(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("||"),
		rtvalue.Arg(nil, boolLit(true)),
		rtvalue.Arg(nil, rtvalue.Intern("unbound_poison")),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: true}, v)
}

func TestAndShortCircuitsRightOperand(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("&&"),
		rtvalue.Arg(nil, boolLit(false)),
		rtvalue.Arg(nil, rtvalue.Intern("unbound_poison")),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: false}, v)
}

func TestAndEvaluatesBothWhenLeftTrue(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("&&"),
		rtvalue.Arg(nil, boolLit(true)),
		rtvalue.Arg(nil, boolLit(false)),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: false}, v)
}

func TestQuoteDoesNotEvaluateOperand(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("quote"),
		rtvalue.Arg(nil, rtvalue.Intern("unbound_poison")),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, rtvalue.Intern("unbound_poison"), v)
}

func TestNextAndBreakRaiseTransfer(t *testing.T) {
	next := findBuiltin(t, controlBuiltins(), "next")
	_, err := next(nil, nil)
	tr, ok := frame.AsTransfer(err)
	require.True(t, ok)
	assert.Equal(t, frame.TransferNext, tr.Kind)

	brk := findBuiltin(t, controlBuiltins(), "break")
	_, err = brk(nil, nil)
	tr, ok = frame.AsTransfer(err)
	require.True(t, ok)
	assert.Equal(t, frame.TransferBreak, tr.Kind)
}

func TestReturnBuiltinRaisesTransferReturn(t *testing.T) {
	ret := findBuiltin(t, controlBuiltins(), "return")

	v, err := ret([]rtvalue.Value{&rtvalue.Int{Value: 42}}, nil)
	assert.Nil(t, v)
	tr, ok := frame.AsTransfer(err)
	require.True(t, ok)
	assert.Equal(t, frame.TransferReturn, tr.Kind)
	assert.Equal(t, &rtvalue.Int{Value: 42}, tr.Value)

	_, err = ret(nil, nil)
	tr, ok = frame.AsTransfer(err)
	require.True(t, ok)
	assert.Equal(t, rtvalue.NilValue, tr.Value)

	_, err = ret([]rtvalue.Value{&rtvalue.Int{Value: 1}, &rtvalue.Int{Value: 2}}, nil)
	assert.Error(t, err)
}

func TestIfTakesTheTrueBranchOnly(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("if"),
		rtvalue.Arg(nil, boolLit(true)),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
		rtvalue.Arg(nil, rtvalue.Intern("unbound_poison")),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 1, Named: true}, v)
}

func TestIfTakesTheElseBranch(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("if"),
		rtvalue.Arg(nil, boolLit(false)),
		rtvalue.Arg(nil, rtvalue.Intern("unbound_poison")),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 2}),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 2, Named: true}, v)
}

func TestIfWithNoElseYieldsNil(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("if"),
		rtvalue.Arg(nil, boolLit(false)),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)
	assert.Equal(t, rtvalue.NilValue, v)
}

func TestWhileLoopBreaksOnIfCondition(t *testing.T) {
	i, env := newTestInterp()
	env.DefineVar(rtvalue.Intern("x"), &rtvalue.Int{Value: 0})

	// while (TRUE) { x <- x + 1; if (x >= 3) break }
	body := rtvalue.Call(rtvalue.Intern("{"),
		rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("<-"),
			rtvalue.Arg(nil, rtvalue.Intern("x")),
			rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("+"),
				rtvalue.Arg(nil, rtvalue.Intern("x")),
				rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
			)),
		)),
		rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("if"),
			rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern(">="),
				rtvalue.Arg(nil, rtvalue.Intern("x")),
				rtvalue.Arg(nil, &rtvalue.Int{Value: 3}),
			)),
			rtvalue.Arg(nil, rtvalue.Call(rtvalue.Intern("break"))),
		)),
	)
	ast := rtvalue.Call(rtvalue.Intern("while"),
		rtvalue.Arg(nil, boolLit(true)),
		rtvalue.Arg(nil, body),
	)
	_, err := i.EvalExpr(ast, env)
	require.NoError(t, err)

	xv, ok := env.FindVar(rtvalue.Intern("x"))
	require.True(t, ok)
	assert.Equal(t, &rtvalue.Int{Value: 3, Named: true}, xv)
}
