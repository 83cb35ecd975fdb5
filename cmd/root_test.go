package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/mpv-danmaku/internal/host/fake"
	"github.com/zjrosen/mpv-danmaku/internal/session"
)

// resetFlags puts every flag back to its default so one Execute does not leak
// into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args against a fresh viper and returns
// what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		viper.Reset()
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRender_PrintsFrameMarkup(t *testing.T) {
	dir := t.TempDir()
	conf := writeFile(t, dir, "config.yaml", "font_size: 40\n")
	comments := writeFile(t, dir, "ep01.json", `[{"time": 0, "color": 16711680, "text": "hi"}]`)

	out, err := execute(t, "render", "--config", conf, "--comments", comments, "--pos", "0")
	require.NoError(t, err)
	require.Equal(t, `{\pos(1920,0)\c&H0000ff&\alpha&H30\fs40\bord1.5\b1\q2}hi`+"\n", out)
}

func TestRender_MultipleFrames(t *testing.T) {
	dir := t.TempDir()
	conf := writeFile(t, dir, "config.yaml", "font_size: 40\n")
	comments := writeFile(t, dir, "ep01.json", `[{"time": 0, "color": 16777215, "text": "hi"}]`)

	out, err := execute(t, "render", "--config", conf, "--comments", comments, "--frames", "3")
	require.NoError(t, err)
	frames := strings.Split(strings.TrimSuffix(out, "\n"), "\n\n")
	require.Len(t, frames, 3)
	for _, f := range frames {
		require.Contains(t, f, `\c&Hffffff&`)
		require.True(t, strings.HasSuffix(f, "}hi"), f)
	}
	require.NotEqual(t, frames[0], frames[2], "comment should move between frames")
}

func TestRender_UsesConfiguredFontSize(t *testing.T) {
	dir := t.TempDir()
	conf := writeFile(t, dir, "config.yaml", "font_size: 32\n")
	comments := writeFile(t, dir, "ep01.json", `[{"time": 0, "color": 0, "text": "hi"}]`)

	out, err := execute(t, "render", "--config", conf, "--comments", comments)
	require.NoError(t, err)
	require.Contains(t, out, `\fs32\`)
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	conf := writeFile(t, dir, "config.yaml", "font_size: 40\n")
	comments := writeFile(t, dir, "ep01.json", `[]`)

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{"missing comments flag", []string{"render"}, `"comments" not set`},
		{"zero width", []string{"render", "--comments", comments, "--width", "0"}, "must be positive"},
		{"no frames", []string{"render", "--comments", comments, "--frames", "0"}, "at least 1"},
		{"missing file", []string{"render", "--comments", filepath.Join(dir, "nope.json")}, "reading comment file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--config", conf)...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestRender_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	conf := writeFile(t, dir, "config.yaml", "font_size: -1\n")
	comments := writeFile(t, dir, "ep01.json", `[]`)

	_, err := execute(t, "render", "--config", conf, "--comments", comments)
	require.Error(t, err)
	require.Contains(t, err.Error(), "font_size")
}

func TestPreview_FlagValidation(t *testing.T) {
	dir := t.TempDir()
	conf := writeFile(t, dir, "config.yaml", "font_size: 40\n")

	_, err := execute(t, "preview", "--config", conf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "comments media")

	_, err = execute(t, "preview", "--config", conf, "--comments", "a.json", "--media", "a.mkv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "none of the others")
}

func TestConfig_InitSetShow(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "nested", "config.yaml")

	out, err := execute(t, "config", "init", "--config", conf)
	require.NoError(t, err)
	require.Contains(t, out, conf)
	data, err := os.ReadFile(conf)
	require.NoError(t, err)
	require.Contains(t, string(data), "font_size: 40")

	_, err = execute(t, "config", "init", "--config", conf)
	require.Error(t, err, "init must not overwrite an existing file")

	_, err = execute(t, "config", "set", "font_size", "32", "--config", conf)
	require.NoError(t, err)
	data, err = os.ReadFile(conf)
	require.NoError(t, err)
	require.Contains(t, string(data), "font_size: 32")
	require.Contains(t, string(data), "# mpv-danmaku configuration", "comments survive")

	out, err = execute(t, "config", "show", "--config", conf)
	require.NoError(t, err)
	require.Contains(t, out, "font_size: 32")
	require.Contains(t, out, "base_url: https://api.dandanplay.net")
}

func TestWatchOptions_AppliesFontSize(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "danmaku.conf", "font_size=32\n")

	s := session.New(fake.New(), nil, session.DefaultConfig())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string)
	go watchOptions(ctx, changes, s, 40)

	changes <- path
	require.Eventually(t, func() bool { return s.Stats().Layout.FontSize == 32 },
		time.Second, 5*time.Millisecond)

	writeFile(t, dir, "danmaku.conf", "# font_size removed\n")
	changes <- path
	require.Eventually(t, func() bool { return s.Stats().Layout.FontSize == 40 },
		time.Second, 5*time.Millisecond, "removing the option restores the fallback")
}

func TestWatchOptions_StopsOnCancel(t *testing.T) {
	s := session.New(fake.New(), nil, session.DefaultConfig())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchOptions(ctx, make(chan string), s, 40)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchOptions did not return after cancel")
	}
}
