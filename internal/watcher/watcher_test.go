package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/mpv-danmaku/internal/watcher"
)

func startWatcher(t *testing.T, files ...string) <-chan string {
	t.Helper()
	w, err := watcher.New(watcher.Config{Files: files, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ch, err := w.Start()
	require.NoError(t, err)
	return ch
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	opts := filepath.Join(t.TempDir(), "danmaku.conf")
	require.NoError(t, os.WriteFile(opts, []byte("font_size=40\n"), 0o600))
	ch := startWatcher(t, opts)

	for i := range 10 {
		require.NoError(t, os.WriteFile(opts, []byte(fmt.Sprintf("font_size=%d\n", 30+i)), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case got := <-ch:
		require.Equal(t, opts, got)
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}

	select {
	case <-ch:
		t.Fatal("burst produced a second notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_SeesFileCreatedLater(t *testing.T) {
	opts := filepath.Join(t.TempDir(), "danmaku.conf")
	ch := startWatcher(t, opts)

	require.NoError(t, os.WriteFile(opts, []byte("font_size=32\n"), 0o600))

	select {
	case got := <-ch:
		require.Equal(t, opts, got)
	case <-time.After(time.Second):
		t.Fatal("expected a notification for a new file")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	opts := filepath.Join(dir, "danmaku.conf")
	other := filepath.Join(dir, "osc.conf")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	ch := startWatcher(t, opts)

	require.NoError(t, os.WriteFile(other, []byte("y"), 0o600))

	select {
	case <-ch:
		t.Fatal("unrelated file triggered a notification")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	opts := filepath.Join(t.TempDir(), "danmaku.conf")
	w, err := watcher.New(watcher.DefaultConfig(opts))
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestNew_RequiresFiles(t *testing.T) {
	_, err := watcher.New(watcher.Config{})
	require.Error(t, err)
}
