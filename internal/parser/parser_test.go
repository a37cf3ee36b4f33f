package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/lexer"
	"github.com/blazify/blazify/internal/token"
)

// parse lexes and parses src, requiring both stages to succeed.
func parse(t *testing.T, src string) ([]ast.Node, *token.Interner) {
	t.Helper()
	interner := token.NewInterner()
	toks, lexErr := lexer.New(&diag.Source{File: "test.bz", Content: src}, interner).Lex()
	require.Nil(t, lexErr, "unexpected lex error: %v", lexErr)
	prog, parseErr := New(&diag.Source{File: "test.bz", Content: src}, toks, interner).Parse()
	require.Nil(t, parseErr, "unexpected parse error: %v", parseErr)
	return prog, interner
}

// TestParserArithmeticPrecedence covers spec §8 scenario 1: `^` binds
// tighter than `*` which binds tighter than `+`, with `^` right-associative.
func TestParserArithmeticPrecedence(t *testing.T) {
	prog, _ := parse(t, "val x = 1 + 2 * 3 ^ 2")
	require.Len(t, prog, 1)
	assign := prog[0].(*ast.VarAssign)
	require.False(t, assign.Mutable)

	add := assign.Value.(*ast.Binary)
	require.Equal(t, ast.BinAdd, add.Op)
	require.Equal(t, int64(1), add.Left.(*ast.Number).IntVal)

	mul := add.Right.(*ast.Binary)
	require.Equal(t, ast.BinMul, mul.Op)
	require.Equal(t, int64(2), mul.Left.(*ast.Number).IntVal)

	pow := mul.Right.(*ast.Binary)
	require.Equal(t, ast.BinPow, pow.Op)
	require.Equal(t, int64(3), pow.Left.(*ast.Number).IntVal)
	require.Equal(t, int64(2), pow.Right.(*ast.Number).IntVal)
}

func TestParserPowerBindsTighterThanUnaryMinus(t *testing.T) {
	prog, _ := parse(t, "-2 ^ 2")
	require.Len(t, prog, 1)
	unary := prog[0].(*ast.Unary)
	require.Equal(t, ast.UnaryMinus, unary.Op)
	pow := unary.Operand.(*ast.Binary)
	require.Equal(t, ast.BinPow, pow.Op)
}

// TestParserForLoop covers spec §8 scenario 2, including the implicit
// `step 1` when omitted.
func TestParserForLoop(t *testing.T) {
	prog, interner := parse(t, "for i = 0 to 10 { val x = i }")
	require.Len(t, prog, 1)
	f := prog[0].(*ast.For)
	require.Equal(t, "i", interner.Lookup(f.Var))
	require.Equal(t, int64(0), f.Start.(*ast.Number).IntVal)
	require.Equal(t, int64(10), f.End.(*ast.Number).IntVal)
	require.Equal(t, int64(1), f.Step.(*ast.Number).IntVal)
	require.Len(t, f.Body, 1)
}

func TestParserForLoopExplicitStep(t *testing.T) {
	prog, _ := parse(t, "for i = 0 to 10 step 2 { i }")
	f := prog[0].(*ast.For)
	require.Equal(t, int64(2), f.Step.(*ast.Number).IntVal)
}

// TestParserRecursiveFunction covers spec §8 scenario 3 (recursive
// fibonacci): a named function that calls itself and branches with if/else.
func TestParserRecursiveFunction(t *testing.T) {
	prog, interner := parse(t, `
fun fib(n) => {
	if n < 2 {
		return n
	} else {
		return fib(n - 1) + fib(n - 2)
	}
}`)
	require.Len(t, prog, 1)
	fn := prog[0].(*ast.FunDef)
	require.True(t, fn.Named)
	require.Equal(t, "fib", interner.Lookup(fn.Name))
	require.Len(t, fn.Params, 1)
	require.Equal(t, "n", interner.Lookup(fn.Params[0]))

	ifNode := fn.Body[0].(*ast.If)
	require.Len(t, ifNode.Cases, 1)
	require.NotNil(t, ifNode.Else)
	ret := ifNode.Cases[0].Body[0].(*ast.Return)
	require.Equal(t, "n", interner.Lookup(ret.Value.(*ast.VarAccess).Name))

	elseRet := ifNode.Else[0].(*ast.Return)
	sum := elseRet.Value.(*ast.Binary)
	require.Equal(t, ast.BinAdd, sum.Op)
	_, ok := sum.Left.(*ast.Call)
	require.True(t, ok)
}

// TestParserObjectFieldAccess covers spec §8 scenario 5.
func TestParserObjectFieldAccess(t *testing.T) {
	prog, interner := parse(t, `val p = { x: 1, y: 2 }
p.x`)
	require.Len(t, prog, 2)
	obj := prog[0].(*ast.VarAssign).Value.(*ast.ObjectDef)
	require.Len(t, obj.Properties, 2)
	require.Equal(t, "x", interner.Lookup(obj.Properties[0].Name))

	access := prog[1].(*ast.ObjectPropAccess)
	require.Equal(t, "x", interner.Lookup(access.Property))
	require.Equal(t, "p", interner.Lookup(access.Object.(*ast.VarAccess).Name))
}

func TestParserObjectPropertyEdit(t *testing.T) {
	prog, interner := parse(t, "p.x = 5")
	edit := prog[0].(*ast.ObjectPropEdit)
	require.Equal(t, "x", interner.Lookup(edit.Property))
	require.Equal(t, int64(5), edit.NewValue.(*ast.Number).IntVal)
}

// TestParserClassWithConstructorAndMethod covers spec §8 scenario 6.
func TestParserClassWithConstructorAndMethod(t *testing.T) {
	prog, interner := parse(t, `
class Counter {
	var count = 0
	fun(start) => {
		soul.count = start
	}
	fun increment() => {
		soul.count = soul.count + 1
		return soul.count
	}
}
val c = new Counter(10)
c.increment()`)
	require.Len(t, prog, 3)

	cls := prog[0].(*ast.ClassDef)
	require.Equal(t, "Counter", interner.Lookup(cls.Name))
	require.Len(t, cls.Properties, 1)
	require.NotNil(t, cls.Constructor)
	require.Len(t, cls.Constructor.Params, 1)
	require.Len(t, cls.Methods, 1)
	require.Equal(t, "increment", interner.Lookup(cls.Methods[0].Name))

	init := prog[1].(*ast.VarAssign).Value.(*ast.ClassInit)
	require.Equal(t, "Counter", interner.Lookup(init.Name))
	require.Len(t, init.Args, 1)

	call := prog[2].(*ast.ObjectMethodCall)
	require.Equal(t, "increment", interner.Lookup(call.Property))
}

func TestParserArrayAndIndex(t *testing.T) {
	prog, _ := parse(t, "val a = [1, 2, 3]\na[0]")
	arr := prog[0].(*ast.VarAssign).Value.(*ast.Array)
	require.Len(t, arr.Elements, 3)
	idx := prog[1].(*ast.Index)
	require.Equal(t, int64(0), idx.Idx.(*ast.Number).IntVal)
}

func TestParserCompoundReassign(t *testing.T) {
	prog, _ := parse(t, "var x = 1\nx += 2")
	reassign := prog[1].(*ast.VarReassign)
	require.Equal(t, ast.ReassignAdd, reassign.Op)
}

func TestParserExternVariadic(t *testing.T) {
	prog, interner := parse(t, `extern fun printf(string, ...) : int`)
	ext := prog[0].(*ast.Extern)
	require.Equal(t, "printf", interner.Lookup(ext.Name))
	require.True(t, ext.Variadic)
	require.Equal(t, ast.TypeInt, ext.ReturnType)
}

func TestParserBareReturn(t *testing.T) {
	prog, _ := parse(t, `fun noop() => {
	return
}`)
	fn := prog[0].(*ast.FunDef)
	ret := fn.Body[0].(*ast.Return)
	require.Nil(t, ret.Value)
}

func TestParserElseIfChainFlattensIntoCases(t *testing.T) {
	prog, _ := parse(t, `if 1 < 2 {
	1
} else if 2 < 3 {
	2
} else {
	3
}`)
	ifNode := prog[0].(*ast.If)
	require.Len(t, ifNode.Cases, 2)
	require.NotNil(t, ifNode.Else)
}

func TestParserInvalidSyntaxReportsParseError(t *testing.T) {
	interner := token.NewInterner()
	src := "val = 1"
	toks, lexErr := lexer.New(&diag.Source{File: "test.bz", Content: src}, interner).Lex()
	require.Nil(t, lexErr)
	_, err := New(&diag.Source{File: "test.bz", Content: src}, toks, interner).Parse()
	require.NotNil(t, err)
	require.Equal(t, diag.ParseError, err.Kind)
}
