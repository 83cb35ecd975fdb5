package commentfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
)

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	records := []danmaku.Record{
		{Time: 0, Color: 0xFF0000, Text: "hi"},
		{Time: 2.5, Color: 0xFFFFFF, Text: "two\nlines"},
	}
	require.NoError(t, Save(path, records))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"time":1}`), 0o600))

	_, err := Load(bad)
	require.ErrorContains(t, err, "parsing comment file")

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSource_FetchIgnoresMediaPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"time":1,"color":255,"text":"x"}]`), 0o600))

	got, err := Source{Path: path}.Fetch(context.Background(), "/some/video.mkv")
	require.NoError(t, err)
	require.Equal(t, []danmaku.Record{{Time: 1, Color: 255, Text: "x"}}, got)
}

func TestSource_FetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Source{Path: "unused"}.Fetch(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}
