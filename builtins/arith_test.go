package builtins

import (
	"testing"

	"github.com/rlangvm/core/rtvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithBuiltinsInt(t *testing.T) {
	env := rtvalue.NewEnvironment(nil)
	for _, b := range arithBuiltins() {
		env.DefineVar(rtvalue.Intern(b.Name), b.Builtin)
	}

	plus, ok := env.FindCallable(rtvalue.Intern("+"))
	require.True(t, ok)
	fn := plus.(*rtvalue.Builtin).Fn

	v, err := fn([]rtvalue.Value{&rtvalue.Int{Value: 2}, &rtvalue.Int{Value: 3}}, env)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Int{Value: 5}, v)
}

func TestArithBuiltinsRealPromotion(t *testing.T) {
	fn := findBuiltin(t, arithBuiltins(), "*")
	v, err := fn([]rtvalue.Value{&rtvalue.Int{Value: 2}, &rtvalue.Real{Value: 1.5}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Real{Value: 3}, v)
}

func TestArithBuiltinsCompare(t *testing.T) {
	fn := findBuiltin(t, arithBuiltins(), "<=")
	v, err := fn([]rtvalue.Value{&rtvalue.Int{Value: 3}, &rtvalue.Int{Value: 3}}, nil)
	require.NoError(t, err)
	assert.Equal(t, &rtvalue.Bool{Value: true}, v)
}

func TestArithBuiltinsNonNumericError(t *testing.T) {
	fn := findBuiltin(t, arithBuiltins(), "+")
	_, err := fn([]rtvalue.Value{&rtvalue.Str{Value: "x"}, &rtvalue.Int{Value: 1}}, nil)
	assert.Error(t, err)
}

func findBuiltin(t *testing.T, defs []builtinDef, name string) rtvalue.BuiltinFunc {
	t.Helper()
	for _, d := range defs {
		if d.Name == name {
			return d.Builtin.Fn
		}
	}
	t.Fatalf("builtin %q not found", name)
	return nil
}
