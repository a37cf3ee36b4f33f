package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/bytecode"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/lexer"
	"github.com/blazify/blazify/internal/parser"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/vm"
)

func compileSrc(t *testing.T, src string) *bytecode.ByteCode {
	t.Helper()
	interner := token.NewInterner()
	source := &diag.Source{File: "test.bz", Content: src}
	toks, lexErr := lexer.New(source, interner).Lex()
	require.Nil(t, lexErr)
	prog, parseErr := parser.New(source, toks, interner).Parse()
	require.Nil(t, parseErr)
	code, compErr := bytecode.Compile(interner, prog)
	require.Nil(t, compErr)
	return code
}

func TestReassigningImmutableBindingFails(t *testing.T) {
	code := compileSrc(t, "val x = 1\nx = 2")
	_, err := vm.New(code, vm.DefaultExterns()).Run()
	require.NotNil(t, err)
	require.Equal(t, diag.VMError, err.Kind)
}

func TestUnboundAccessFails(t *testing.T) {
	code := compileSrc(t, "y")
	_, err := vm.New(code, vm.DefaultExterns()).Run()
	require.NotNil(t, err)
	require.Equal(t, diag.VMError, err.Kind)
}

func TestDivisionByZeroFails(t *testing.T) {
	code := compileSrc(t, "1 / 0")
	_, err := vm.New(code, vm.DefaultExterns()).Run()
	require.NotNil(t, err)
}

func TestIndexedCharFromIntDivString(t *testing.T) {
	result, err := vm.New(compileSrc(t, `1 / "abc"`), vm.DefaultExterns()).Run()
	require.Nil(t, err)
	require.Equal(t, bytecode.Char('b'), result)
}

func TestBooleanAndOperator(t *testing.T) {
	code := compileSrc(t, "true and false")
	result, err := vm.New(code, vm.DefaultExterns()).Run()
	require.Nil(t, err)
	require.Equal(t, bytecode.Bool(false), result)
}

func TestComparisonOperators(t *testing.T) {
	result, err := vm.New(compileSrc(t, "3 > 2"), vm.DefaultExterns()).Run()
	require.Nil(t, err)
	require.Equal(t, bytecode.Bool(true), result)
}

func TestMutableVariableReassignSucceeds(t *testing.T) {
	result, err := vm.New(compileSrc(t, "var x = 1\nx = 5\nx"), vm.DefaultExterns()).Run()
	require.Nil(t, err)
	require.Equal(t, bytecode.Int(5), result)
}
