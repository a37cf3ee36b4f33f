package interp_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/bytecode"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/interp"
	"github.com/blazify/blazify/internal/lexer"
	"github.com/blazify/blazify/internal/parser"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/vm"
)

// agree lexes and parses src once, then runs it through both the bytecode
// VM and the tree-walking interpreter, asserting spec §8's VM–AST agreement
// property: both evaluators reach the same final value.
func agree(t *testing.T, src string) (vmResult bytecode.Value, interpResult interp.Value) {
	t.Helper()
	interner := token.NewInterner()
	source := &diag.Source{File: "test.bz", Content: src}
	toks, lexErr := lexer.New(source, interner).Lex()
	require.Nil(t, lexErr)
	prog, parseErr := parser.New(source, toks, interner).Parse()
	require.Nil(t, parseErr)

	code, compErr := bytecode.Compile(interner, prog)
	require.Nil(t, compErr)
	vmResult, vmErr := vm.New(code, vm.DefaultExterns()).Run()
	require.Nil(t, vmErr)

	interpResult, interpErr := interp.New(interner).Eval(prog)
	require.NoError(t, interpErr)
	return vmResult, interpResult
}

func requireAgree(t *testing.T, src, wantString string) {
	t.Helper()
	vmResult, interpResult := agree(t, src)
	require.Equal(t, wantString, vmResult.String())
	require.Equal(t, wantString, interpResult.String())
}

func TestAgreementArithmetic(t *testing.T) {
	requireAgree(t, "val x = 1 + 2 * 3 ^ 2\nx", "19")
}

func TestAgreementIfElse(t *testing.T) {
	requireAgree(t, "val x = 5\nif x > 3 { \"big\" } else { \"small\" }", "big")
}

func TestAgreementWhileLoop(t *testing.T) {
	requireAgree(t, "var i = 0\nvar acc = 0\nwhile i < 5 {\n  acc = acc + i\n  i = i + 1\n}\nacc", "10")
}

func TestAgreementForLoop(t *testing.T) {
	requireAgree(t, "var acc = 0\nfor i = 0 to 5 {\n  acc = acc + i\n}\nacc", "10")
}

func TestAgreementFunctionCall(t *testing.T) {
	requireAgree(t, "fun double(x) => { x * 2 }\ndouble(21)", "42")
}

func TestAgreementStringRepeat(t *testing.T) {
	requireAgree(t, `3 * "ab"`, "ababab")
}

func TestAgreementArrayIndex(t *testing.T) {
	requireAgree(t, "val xs = [10, 20, 30]\nxs[1]", "20")
}

// TestArrayStructuralEquality exercises google/go-cmp to structurally diff
// two independently built interp.Array trees, the sort of pointer/slice
// comparison plain == can't do.
func TestArrayStructuralEquality(t *testing.T) {
	a := interp.Array{Elements: []interp.Value{interp.Int(1), interp.Int(2), interp.String("x")}}
	b := interp.Array{Elements: []interp.Value{interp.Int(1), interp.Int(2), interp.String("x")}}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("identically built arrays differ (-a +b):\n%s", diff)
	}

	c := interp.Array{Elements: []interp.Value{interp.Int(1), interp.Int(2), interp.String("y")}}
	if diff := cmp.Diff(a, c); diff == "" {
		t.Fatal("expected a structural difference, got none")
	}
}
