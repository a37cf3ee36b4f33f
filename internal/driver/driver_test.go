package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/driver"
)

// TestBytecodeRoundTrip exercises the .bzs -> .bze -> run path end to end,
// the two driver branches that don't require an LLVM target machine (the
// AOT .bz/.bzx path needs the host LLVM libraries and a C toolchain; it is
// not exercised here, and internal/codegen/llvm's own tests cover only its
// layout helpers).
func TestBytecodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.bzs")
	require.NoError(t, os.WriteFile(src, []byte("val x = 6 * 7\nx"), 0o644))

	bze := filepath.Join(dir, "prog.bze")
	compileRes, err := driver.CompileToBytecode(src, bze)
	require.Nil(t, err)
	require.Contains(t, compileRes.Listing, "ast.VarAssign")

	runRes, runErr := driver.RunBytecode(bze)
	require.Nil(t, runErr)
	require.Equal(t, "42", runRes.Value.String())
}

func TestCompileToBytecodeReportsLexErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.bzs")
	require.NoError(t, os.WriteFile(src, []byte("val x = 'oops"), 0o644))

	_, err := driver.CompileToBytecode(src, filepath.Join(dir, "bad.bze"))
	require.NotNil(t, err)
}
