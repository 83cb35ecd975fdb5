package preview

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/log"
	"github.com/zjrosen/mpv-danmaku/internal/session"
)

// Config holds preview settings.
type Config struct {
	// Path is reported as the media path and handed to the fetcher.
	Path    string
	Fetcher session.Fetcher
	Session session.Config
	// Enabled turns danmaku on as soon as the preview starts.
	Enabled bool
	// Paused starts playback paused.
	Paused bool
}

// Run plays cfg.Path in the terminal until the user quits or ctx is done.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	layout := cfg.Session.Layout
	if layout.FontSize <= 0 || layout.Duration <= 0 || layout.Interval <= 0 {
		layout = danmaku.DefaultLayout()
		cfg.Session.Layout = layout
	}
	scale := ScaleFor(layout)

	player := NewPlayer(cfg.Path, scale)
	s := session.New(player, cfg.Fetcher, cfg.Session)
	defer s.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx)
	}()

	player.Load(cfg.Path)
	if cfg.Paused {
		player.TogglePause()
	}
	if cfg.Enabled {
		player.ToggleDanmaku()
	}

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(NewModel(ctx, player, s, scale), opts...).Run()
	player.Quit()
	runErr := <-errc

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running preview: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("running session: %w", runErr)
	}
	log.Info(log.CatUI, "preview finished", "path", cfg.Path)
	return nil
}
