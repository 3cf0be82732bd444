package compiler

import (
	"testing"

	"github.com/rlangvm/core/bytecode"
	"github.com/rlangvm/core/pool"
	"github.com/rlangvm/core/rtvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeOps walks ops into the sequence of opcodes it contains, discarding
// operand values -- enough to assert the shape of a compiled sequence
// without depending on exact byte offsets, which label patching makes
// fragile to hand-compute.
func decodeOps(t *testing.T, ops bytecode.Instructions) []bytecode.Opcode {
	t.Helper()
	var out []bytecode.Opcode
	i := 0
	for i < len(ops) {
		def, err := bytecode.Lookup(ops[i])
		require.NoError(t, err)
		out = append(out, bytecode.Opcode(ops[i]))
		_, read := bytecode.ReadOperands(def, ops[i+1:])
		i += read + 1
	}
	return out
}

// containsSubsequence reports whether want appears, in order (not
// necessarily contiguous), within got.
func containsSubsequence(got, want []bytecode.Opcode) bool {
	wi := 0
	for _, op := range got {
		if wi < len(want) && op == want[wi] {
			wi++
		}
	}
	return wi == len(want)
}

func TestCompileLiteralPushesConstantAndReturns(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	fn, err := CompileTopLevel(consts, srcs, &rtvalue.Int{Value: 42})
	require.NoError(t, err)

	ops := decodeOps(t, fn.Entry().Ops)
	assert.Equal(t, []bytecode.Opcode{bytecode.OpPushConst, bytecode.OpRet}, ops)
}

func TestCompileSymbolEmitsLdVar(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	fn, err := CompileTopLevel(consts, srcs, rtvalue.Intern("x"))
	require.NoError(t, err)

	ops := decodeOps(t, fn.Entry().Ops)
	assert.Equal(t, []bytecode.Opcode{bytecode.OpLdVar, bytecode.OpRet}, ops)
}

func TestCompileArithEmitsGuardedFastPath(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	ast := rtvalue.Call(rtvalue.Intern("+"),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 2}),
	)
	fn, err := CompileTopLevel(consts, srcs, ast)
	require.NoError(t, err)

	ops := decodeOps(t, fn.Entry().Ops)
	require.True(t, containsSubsequence(ops, []bytecode.Opcode{
		bytecode.OpIsSpecial,
		bytecode.OpPushConst, bytecode.OpPushConst,
		bytecode.OpAdd,
	}), "ops = %v", ops)
	assert.Equal(t, bytecode.OpRet, ops[len(ops)-1])
}

func TestCompileIfEmitsGuardedBranch(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	ast := rtvalue.Call(rtvalue.Intern("if"),
		rtvalue.Arg(nil, &rtvalue.Bool{Value: true}),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 2}),
	)
	fn, err := CompileTopLevel(consts, srcs, ast)
	require.NoError(t, err)

	ops := decodeOps(t, fn.Entry().Ops)
	require.True(t, containsSubsequence(ops, []bytecode.Opcode{
		bytecode.OpIsSpecial,
		bytecode.OpAsBool,
		bytecode.OpBrFalse,
	}), "ops = %v", ops)

	pushConsts := 0
	for _, op := range ops {
		if op == bytecode.OpPushConst {
			pushConsts++
		}
	}
	// the TRUE condition, the then-branch, and the else-branch each push a
	// constant on the inlined fast path
	assert.GreaterOrEqual(t, pushConsts, 3)
	assert.Equal(t, bytecode.OpRet, ops[len(ops)-1])
}

func TestCompileIfWithNoElsePushesNil(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	ast := rtvalue.Call(rtvalue.Intern("if"),
		rtvalue.Arg(nil, &rtvalue.Bool{Value: false}),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
	)
	fn, err := CompileTopLevel(consts, srcs, ast)
	require.NoError(t, err)

	foundNil := false
	for i := 0; i < consts.Len(); i++ {
		if rtvalue.IsNil(consts.Get(i)) {
			foundNil = true
		}
	}
	assert.True(t, foundNil, "expected a Nil constant for the missing else branch")
}

func TestCompileIfRejectsWrongArity(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	ast := rtvalue.Call(rtvalue.Intern("if"), rtvalue.Arg(nil, &rtvalue.Bool{Value: true}))
	_, err := CompileTopLevel(consts, srcs, ast)
	assert.Error(t, err)
}

func TestCompileClosureRecordsFormals(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	formals := []rtvalue.Formal{
		{Name: rtvalue.Intern("a")},
		{Name: rtvalue.Intern("b")},
	}
	fn, err := CompileClosure(consts, srcs, formals, rtvalue.Intern("a"))
	require.NoError(t, err)

	assert.Equal(t, 2, fn.NumFormals)
	assert.False(t, fn.HasDots)
	assert.Equal(t, []string{"a", "b"}, fn.FormalNames)
}

func TestCompileClosureRecordsDots(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	formals := []rtvalue.Formal{
		{Name: rtvalue.Intern("a")},
		{Name: rtvalue.SymDots},
	}
	fn, err := CompileClosure(consts, srcs, formals, rtvalue.Intern("a"))
	require.NoError(t, err)

	assert.Equal(t, 1, fn.NumFormals)
	assert.True(t, fn.HasDots)
	assert.Equal(t, []string{"a"}, fn.FormalNames)
}

func TestCompileWhileEmitsLoopFraming(t *testing.T) {
	consts, srcs := pool.NewConstantPool(), pool.NewSourcePool()
	ast := rtvalue.Call(rtvalue.Intern("while"),
		rtvalue.Arg(nil, &rtvalue.Bool{Value: false}),
		rtvalue.Arg(nil, &rtvalue.Int{Value: 1}),
	)
	fn, err := CompileTopLevel(consts, srcs, ast)
	require.NoError(t, err)

	ops := decodeOps(t, fn.Entry().Ops)
	require.True(t, containsSubsequence(ops, []bytecode.Opcode{
		bytecode.OpBeginLoop,
		bytecode.OpAsBool,
		bytecode.OpBrFalse,
		bytecode.OpEndContext,
	}), "ops = %v", ops)
}
