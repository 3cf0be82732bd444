package builtins

import (
	"testing"

	"github.com/rlangvm/core/rtvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPreservesNames(t *testing.T) {
	i, env := newTestInterp()
	ast := rtvalue.Call(rtvalue.Intern("list"),
		rtvalue.Arg(rtvalue.Intern("a"), &rtvalue.Int{Value: 1}),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 2}),
		rtvalue.Arg(rtvalue.Intern("b"), &rtvalue.Int{Value: 3}),
	)
	v, err := i.EvalExpr(ast, env)
	require.NoError(t, err)

	p, ok := v.(*rtvalue.Pair)
	require.True(t, ok)
	require.NotNil(t, p.Tag)
	assert.Equal(t, "a", p.Tag.Name())
	assert.Equal(t, &rtvalue.Int{Value: 1, Named: true}, p.Car)

	second := p.Cdr.(*rtvalue.Pair)
	assert.Nil(t, second.Tag)
	assert.Equal(t, &rtvalue.Int{Value: 2, Named: true}, second.Car)

	third := second.Cdr.(*rtvalue.Pair)
	require.NotNil(t, third.Tag)
	assert.Equal(t, "b", third.Tag.Name())
}

func TestDollarGetAndSet(t *testing.T) {
	lst := rtvalue.ArgList(
		rtvalue.Arg(rtvalue.Intern("a"), &rtvalue.Int{Value: 1}),
		rtvalue.Arg(rtvalue.Intern("b"), &rtvalue.Int{Value: 2}),
	)

	get := findBuiltin(t, dataBuiltins(), "$")
	v, err := get([]rtvalue.Value{lst, &rtvalue.Str{Value: "b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 2}, v)

	set := findBuiltin(t, dataBuiltins(), "$<-")
	updated, err := set([]rtvalue.Value{lst, &rtvalue.Str{Value: "b"}, &rtvalue.Int{Value: 99}}, nil)
	require.NoError(t, err)

	v2, err := get([]rtvalue.Value{updated, &rtvalue.Str{Value: "b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 99}, v2)

	// original list is untouched (no shared mutation)
	v3, err := get([]rtvalue.Value{lst, &rtvalue.Str{Value: "b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 2}, v3)
}

func TestLengthAndC(t *testing.T) {
	length := findBuiltin(t, dataBuiltins(), "length")
	n, err := length([]rtvalue.Value{&rtvalue.List{Elems: []rtvalue.Value{
		&rtvalue.Int{Value: 1}, &rtvalue.Int{Value: 2}, &rtvalue.Int{Value: 3},
	}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 3}, n)

	c := findBuiltin(t, dataBuiltins(), "c")
	combined, err := c([]rtvalue.Value{
		&rtvalue.Int{Value: 1},
		&rtvalue.List{Elems: []rtvalue.Value{&rtvalue.Int{Value: 2}, &rtvalue.Int{Value: 3}}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, len(combined.(*rtvalue.List).Elems))
}

func TestClassAndInherits(t *testing.T) {
	classSetFn := findBuiltin(t, dataBuiltins(), "class<-")
	obj, err := classSetFn([]rtvalue.Value{
		&rtvalue.Int{Value: 1},
		&rtvalue.List{Elems: []rtvalue.Value{&rtvalue.Str{Value: "money"}}},
	}, nil)
	require.NoError(t, err)

	inheritsFn := findBuiltin(t, dataBuiltins(), "inherits")
	v, err := inheritsFn([]rtvalue.Value{obj, &rtvalue.Str{Value: "money"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: true}, v)

	v2, err := inheritsFn([]rtvalue.Value{obj, &rtvalue.Str{Value: "other"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: false}, v2)
}

func TestIsNullIsList(t *testing.T) {
	isNull := findBuiltin(t, dataBuiltins(), "is.null")
	v, err := isNull([]rtvalue.Value{rtvalue.NilValue}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: true}, v)

	isList := findBuiltin(t, dataBuiltins(), "is.list")
	v2, err := isList([]rtvalue.Value{&rtvalue.List{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: true}, v2)
}
