package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/bytecode"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/lexer"
	"github.com/blazify/blazify/internal/parser"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/vm"
)

// run lexes, parses, compiles and executes src end to end, skipping type
// inference (these fixtures are hand-picked to be well-typed already; the
// inferencer runs in internal/driver's pipeline, which internal/driver's
// tests exercise).
func run(t *testing.T, src string) (bytecode.Value, *token.Interner) {
	t.Helper()
	interner := token.NewInterner()
	source := &diag.Source{File: "test.bz", Content: src}
	toks, lexErr := lexer.New(source, interner).Lex()
	require.Nil(t, lexErr)
	prog, parseErr := parser.New(source, toks, interner).Parse()
	require.Nil(t, parseErr)
	code, compErr := bytecode.Compile(interner, prog)
	require.Nil(t, compErr)
	result, vmErr := vm.New(code, vm.DefaultExterns()).Run()
	require.Nil(t, vmErr)
	return result, interner
}

// TestArithmeticPrecedence covers spec §8 scenario 1.
func TestArithmeticPrecedence(t *testing.T) {
	result, _ := run(t, "val x = 1 + 2 * 3 ^ 2\nx")
	require.Equal(t, bytecode.Int(19), result)
}

// TestForLoopAccumulation covers spec §8 scenario 2.
func TestForLoopAccumulation(t *testing.T) {
	result, _ := run(t, `
var total = 0
for i = 1 to 5 {
	total += i
}
total`)
	require.Equal(t, bytecode.Int(10), result)
}

// TestRecursiveFibonacci covers spec §8 scenario 3.
func TestRecursiveFibonacci(t *testing.T) {
	result, _ := run(t, `
fun fib(n) => {
	if n < 2 {
		return n
	} else {
		return fib(n - 1) + fib(n - 2)
	}
}
fib(10)`)
	require.Equal(t, bytecode.Int(55), result)
}

// TestStringRepeatViaMultiply covers spec §8 scenario 4.
func TestStringRepeatViaMultiply(t *testing.T) {
	result, _ := run(t, `"ab" * 3`)
	require.Equal(t, bytecode.String("ababab"), result)
}

// TestObjectFieldAccess covers spec §8 scenario 5.
func TestObjectFieldAccess(t *testing.T) {
	result, _ := run(t, `
val p = { x: 1, y: 2 }
p.x`)
	require.Equal(t, bytecode.Int(1), result)
}

// TestClassConstructorAndMethod covers spec §8 scenario 6.
func TestClassConstructorAndMethod(t *testing.T) {
	result, _ := run(t, `
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
	require.Equal(t, bytecode.Int(11), result)
}

func TestIfElseChain(t *testing.T) {
	result, _ := run(t, `
val x = 3
if x < 2 {
	1
} else if x < 5 {
	2
} else {
	3
}`)
	require.Equal(t, bytecode.Int(2), result)
}

func TestArrayIndexing(t *testing.T) {
	result, _ := run(t, `
val a = [10, 20, 30]
a[1]`)
	require.Equal(t, bytecode.Int(20), result)
}

func TestWhileLoop(t *testing.T) {
	result, _ := run(t, `
var n = 0
while n < 5 {
	n += 1
}
n`)
	require.Equal(t, bytecode.Int(5), result)
}

// TestSerializationRoundTrip checks spec §6's "load is the exact inverse"
// requirement for a program exercising every constant-pool kind.
func TestSerializationRoundTrip(t *testing.T) {
	interner := token.NewInterner()
	source := &diag.Source{File: "test.bz", Content: `
class Counter {
	var count = 0
	fun(start) => { soul.count = start }
	fun increment() => { soul.count = soul.count + 1 }
}
val a = [1, 2, 3]
val o = { x: 1 }
val c = new Counter(10)
c.increment()`}
	toks, lexErr := lexer.New(source, interner).Lex()
	require.Nil(t, lexErr)
	prog, parseErr := parser.New(source, toks, interner).Parse()
	require.Nil(t, parseErr)
	code, compErr := bytecode.Compile(interner, prog)
	require.Nil(t, compErr)

	var buf bytes.Buffer
	require.NoError(t, bytecode.Write(&buf, code))

	decoded, err := bytecode.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, code.Code, decoded.Code)
	require.Len(t, decoded.Consts, len(code.Consts))
	require.Equal(t, code.Symbols, decoded.Symbols)
	require.NotEmpty(t, decoded.Symbols)
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := bytecode.Read(bytes.NewReader([]byte("not-a-blaze-file-at-all")))
	require.Error(t, err)
}
