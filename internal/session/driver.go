package session

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/host"
	"github.com/zjrosen/mpv-danmaku/internal/log"
)

// Run processes player events until the player shuts down, the connection
// closes or ctx is done. While danmaku is on and playback runs it wakes every
// tick interval to re-render; otherwise it blocks until the next event.
//
// Run fails only if the pause observation cannot be established.
func (s *Session) Run(ctx context.Context) error {
	if err := s.host.ObserveProperty(ctx, host.PropPause); err != nil {
		return fmt.Errorf("observing pause: %w", err)
	}
	defer s.shutdown()

	log.Info(log.CatSession, "session started")
	for {
		ev, err := s.host.WaitEvent(ctx, s.timeout(ctx))
		if err != nil {
			if ctx.Err() == nil {
				log.ErrorErr(log.CatSession, "waiting for player event failed", err)
			}
			return nil
		}
		if ev.Err != nil {
			log.Warn(log.CatHost, "player reported an error", "event", ev.Name, "error", ev.Err)
		}

		switch ev.Kind {
		case host.EventShutdown:
			log.Info(log.CatSession, "player shut down")
			return nil
		case host.EventFileLoaded:
			s.fileLoaded(ctx)
		case host.EventSeek:
			s.seek()
		case host.EventClientMessage:
			if len(ev.Args) == 0 || ev.Args[0] != ToggleMessage {
				continue
			}
			s.toggle(ctx)
		}

		s.tick(ctx)
	}
}

// timeout is the tick interval while armed (enabled and playing), Forever
// otherwise. An unreadable pause flag counts as not playing.
func (s *Session) timeout(ctx context.Context) time.Duration {
	if !s.enabled.Load() {
		return host.Forever
	}
	paused, ok := s.host.Flag(ctx, host.PropPause)
	if !ok || paused {
		return host.Forever
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Layout().Interval
}

func (s *Session) shutdown() {
	s.cancelFetch()
	s.mu.Lock()
	s.store = nil
	s.mu.Unlock()
	s.enabled.Store(false)
	log.Info(log.CatSession, "session stopped")
}

func (s *Session) tick(ctx context.Context) {
	if !s.enabled.Load() {
		return
	}
	f, ok := s.frame(ctx)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil || !s.enabled.Load() {
		return
	}
	s.render(ctx, f)
}

// frame reads the playback state. Any missing property, or an empty canvas,
// means there is nothing to render this tick.
func (s *Session) frame(ctx context.Context) (danmaku.Frame, bool) {
	width, ok := s.host.Float(ctx, host.PropOSDWidth)
	if !ok || width <= 0 {
		return danmaku.Frame{}, false
	}
	height, ok := s.host.Float(ctx, host.PropOSDHeight)
	if !ok || height <= 0 {
		return danmaku.Frame{}, false
	}
	pos, ok := s.host.Float(ctx, host.PropTimePos)
	if !ok {
		return danmaku.Frame{}, false
	}
	speed, ok := s.host.Float(ctx, host.PropSpeed)
	if !ok {
		return danmaku.Frame{}, false
	}
	return danmaku.Frame{Width: width, Height: height, Pos: pos, Speed: speed}, true
}

// render must be called with mu held and a store installed.
func (s *Session) render(ctx context.Context, f danmaku.Frame) {
	draws := s.engine.Render(s.store, f)
	if err := s.host.SetOverlay(ctx, danmaku.Markup(draws), int(f.Width), int(f.Height)); err != nil {
		log.ErrorErr(log.CatHost, "set overlay failed", err)
	}
}
