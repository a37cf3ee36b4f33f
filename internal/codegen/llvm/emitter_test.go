package llvm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/types"
)

// These cover the pure layout helpers that don't need a live LLVM context:
// the rest of this package's behavior (genExpr/genBlock/Emit) is only
// checked by emitting through a real golvm.Context, which needs the host
// LLVM libraries linked in — exercised by internal/driver's callers rather
// than a unit test here.

func TestFieldIndexIsOneBasedAndAlphabetical(t *testing.T) {
	fields := map[string]types.Type{
		"z": types.Ground(types.Int),
		"a": types.Ground(types.Int),
		"m": types.Ground(types.Int),
	}
	require.Equal(t, 1, fieldIndex(fields, "a"))
	require.Equal(t, 2, fieldIndex(fields, "m"))
	require.Equal(t, 3, fieldIndex(fields, "z"))
	require.Equal(t, -1, fieldIndex(fields, "missing"))
}

func TestSortedFieldNames(t *testing.T) {
	fields := map[string]types.Type{"b": types.Ground(types.Int), "a": types.Ground(types.Int)}
	require.Equal(t, []string{"a", "b"}, sortedFieldNames(fields))
}

func TestMangleMethod(t *testing.T) {
	require.Equal(t, "Counter%increment", mangleMethod("Counter", "increment"))
}
