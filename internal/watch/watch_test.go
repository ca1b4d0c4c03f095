package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths []string, debounce time.Duration) *atomic.Int64 {
	t.Helper()
	var calls atomic.Int64
	w, err := New(paths, debounce, func() { calls.Add(1) }, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
	return &calls
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "outages.csv")
	require.NoError(t, os.WriteFile(events, []byte("v0"), 0o600))

	calls := startWatcher(t, []string{events}, 200*time.Millisecond)

	for i := range 5 {
		require.NoError(t, os.WriteFile(events, []byte{byte('a' + i)}, 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load(), "burst coalesced into one call")
}

func TestWatcher_FileCreatedLater(t *testing.T) {
	dir := t.TempDir()
	tickets := filepath.Join(dir, "tickets.csv")

	calls := startWatcher(t, []string{tickets}, 50*time.Millisecond)
	require.NoError(t, os.WriteFile(tickets, []byte("x"), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "outages.csv")

	calls := startWatcher(t, []string{events}, 50*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]string{"a.csv"}, time.Second, nil, slog.Default())
	require.Error(t, err)

	_, err = New([]string{"", ""}, time.Second, func() {}, slog.Default())
	require.Error(t, err)
}
