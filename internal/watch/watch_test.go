package watch_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blazify/blazify/internal/watch"
)

// TestDebouncesBurstOfWrites writes to the watched file several times in
// quick succession and expects exactly one rebuild once the debounce
// window elapses, not one per write.
func TestDebouncesBurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.bzs")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	var rebuilds int32
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- watch.Run(path, func() error {
			atomic.AddInt32(&rebuilds, 1)
			return nil
		}, func(error) {}, stop)
	}()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("2"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(1500 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt32(&rebuilds))

	close(stop)
	require.NoError(t, <-done)
}
