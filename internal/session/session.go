// Package session drives danmaku for one player: it reacts to player events,
// loads comments in the background and renders the overlay on every tick.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/host"
	"github.com/zjrosen/mpv-danmaku/internal/log"
	"github.com/zjrosen/mpv-danmaku/internal/pubsub"
)

// ToggleMessage is the client message (script-message) that flips danmaku.
const ToggleMessage = "toggle-danmaku"

// Fetcher loads the comments for a media path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]danmaku.Record, error)
}

// NoticeKind classifies a user-visible notice.
type NoticeKind int

const (
	NoticeOn NoticeKind = iota
	NoticeOff
	NoticeLoaded
	NoticeFailed
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeOn:
		return "on"
	case NoticeOff:
		return "off"
	case NoticeLoaded:
		return "loaded"
	case NoticeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Notice is a message shown to the user, also published to subscribers.
type Notice struct {
	Kind  NoticeKind
	Text  string
	Count int
	Err   error
}

// Config holds session settings.
type Config struct {
	Layout danmaku.Layout
	// SkipPatterns are doublestar globs; matching media paths are never
	// fetched.
	SkipPatterns []string
}

// DefaultConfig uses the default layout and skips nothing.
func DefaultConfig() Config {
	return Config{Layout: danmaku.DefaultLayout()}
}

// Stats is a snapshot of session state.
type Stats struct {
	Enabled  bool
	Loaded   bool
	Comments int
	Placed   int
	Epoch    uint64
	Layout   danmaku.Layout
}

// Session is the controller for one player. Create it with New, then call Run.
type Session struct {
	host    host.Host
	fetcher Fetcher
	skip    []string

	enabled atomic.Bool

	// mu guards the store, the engine and the fetch generation.
	mu         sync.Mutex
	store      *danmaku.Store
	engine     *danmaku.Engine
	generation uint64

	fetchMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	notices   *pubsub.Broker[Notice]
	closeOnce sync.Once
}

// New creates a disabled session with nothing loaded.
func New(h host.Host, f Fetcher, cfg Config) *Session {
	layout := cfg.Layout
	if layout.FontSize <= 0 || layout.Duration <= 0 || layout.Interval <= 0 {
		layout = danmaku.DefaultLayout()
	}
	return &Session{
		host:    h,
		fetcher: f,
		skip:    cfg.SkipPatterns,
		engine:  danmaku.NewEngine(layout),
		notices: pubsub.NewBroker[Notice](),
	}
}

// Notices subscribes to user-visible notices until ctx is done.
func (s *Session) Notices(ctx context.Context) <-chan pubsub.Event[Notice] {
	return s.notices.Subscribe(ctx)
}

// Enabled reports whether danmaku is on.
func (s *Session) Enabled() bool {
	return s.enabled.Load()
}

// Stats returns a snapshot of the session.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Enabled: s.enabled.Load(), Layout: s.engine.Layout()}
	if s.store != nil {
		st.Loaded = true
		st.Comments = s.store.Len()
		st.Placed = s.store.Placed()
		st.Epoch = s.store.Epoch()
	}
	return st
}

// SetFontSize switches to a new font size. The loaded comments are reset so
// every lane is recomputed for the new line height. Sizes that are not
// positive finite numbers are ignored.
func (s *Session) SetFontSize(size float64) {
	if !(size > 0) || math.IsInf(size, 1) {
		log.Warn(log.CatSession, "ignoring font size", "size", size)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	layout := s.engine.Layout()
	if layout.FontSize == size {
		return
	}
	layout.FontSize = size
	s.engine = danmaku.NewEngine(layout)
	if s.store != nil {
		s.store.Reset()
	}
	log.Info(log.CatSession, "font size changed", "size", size)
}

// Close cancels any in-flight fetch, waits for it to return and closes the
// notice subscriptions.
func (s *Session) Close() {
	s.cancelFetch()
	s.wg.Wait()
	s.closeOnce.Do(s.notices.Close)
}

func (s *Session) toggle(ctx context.Context) {
	if s.enabled.Swap(!s.enabled.Load()) {
		s.mu.Lock()
		s.clearOverlay(ctx)
		s.mu.Unlock()
		s.notify(ctx, Notice{Kind: NoticeOff, Text: "Danmaku: off"})
		return
	}

	s.mu.Lock()
	store := s.store
	n := 0
	if store != nil {
		store.Reset()
		n = store.Len()
	}
	s.mu.Unlock()

	if store != nil {
		s.notify(ctx, loadedNotice(n))
		return
	}
	s.notify(ctx, Notice{Kind: NoticeOn, Text: "Danmaku: on"})
	s.startFetch(ctx)
}

func (s *Session) seek() {
	if !s.enabled.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.store.Reset()
		log.Debug(log.CatSession, "reset after seek", "epoch", s.store.Epoch())
	}
}

func (s *Session) fileLoaded(ctx context.Context) {
	s.cancelFetch()
	s.mu.Lock()
	s.store = nil
	if s.enabled.Load() {
		s.clearOverlay(ctx)
	}
	s.mu.Unlock()

	if s.enabled.Load() {
		s.startFetch(ctx)
	}
}

func loadedNotice(n int) Notice {
	plural := ""
	if n > 1 {
		plural = "s"
	}
	return Notice{Kind: NoticeLoaded, Count: n, Text: fmt.Sprintf("Loaded %d danmaku comment%s", n, plural)}
}

func (s *Session) notify(ctx context.Context, n Notice) {
	if err := s.host.ShowMessage(ctx, n.Text); err != nil {
		log.ErrorErr(log.CatHost, "show message failed", err, "text", n.Text)
	}
	s.notices.Publish(pubsub.CreatedEvent, n)
}

// clearOverlay must be called with mu held.
func (s *Session) clearOverlay(ctx context.Context) {
	if err := s.host.ClearOverlay(ctx); err != nil {
		log.ErrorErr(log.CatHost, "clear overlay failed", err)
	}
}
