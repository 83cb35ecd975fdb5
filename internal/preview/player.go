// Package preview plays danmaku in the terminal. A simulated player stands
// in for mpv: it keeps a playback clock, answers property reads and feeds the
// overlay it receives to a Bubble Tea view.
package preview

import (
	"context"
	"sync"
	"time"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/host"
	"github.com/zjrosen/mpv-danmaku/internal/log"
	"github.com/zjrosen/mpv-danmaku/internal/session"
)

const (
	// SeekStep is how far one seek key jumps.
	SeekStep = 5 * time.Second

	MinSpeed  = 0.25
	MaxSpeed  = 4.0
	SpeedStep = 0.25

	eventBuffer   = 256
	messageBuffer = 16
)

// Scale maps overlay pixels to terminal cells.
type Scale struct {
	CellWidth  float64
	CellHeight float64
}

// ScaleFor sizes cells so one lane is one row and a full-width glyph (which
// the engine assumes is FontSize wide) spans two columns.
func ScaleFor(l danmaku.Layout) Scale {
	return Scale{CellWidth: l.FontSize / 2, CellHeight: l.LineHeight()}
}

// State is a snapshot of the simulated playback.
type State struct {
	Path   string
	Pos    float64
	Speed  float64
	Paused bool
}

// Player is a simulated mpv. It implements host.Host.
type Player struct {
	mu       sync.Mutex
	now      func() time.Time
	scale    Scale
	path     string
	cols     int
	rows     int
	base     float64
	anchor   time.Time
	speed    float64
	paused   bool
	observed map[string]bool
	markup   string

	events   chan host.Event
	frames   chan string
	messages chan string
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithClock replaces time.Now for the playback clock.
func WithClock(now func() time.Time) PlayerOption {
	return func(p *Player) {
		p.now = now
	}
}

// NewPlayer creates a player for path, playing from zero at normal speed.
// The canvas has no size until Resize is called.
func NewPlayer(path string, scale Scale, opts ...PlayerOption) *Player {
	p := &Player{
		now:      time.Now,
		scale:    scale,
		path:     path,
		speed:    1,
		observed: make(map[string]bool),
		events:   make(chan host.Event, eventBuffer),
		frames:   make(chan string, 1),
		messages: make(chan string, messageBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.anchor = p.now()
	return p
}

// position must be called with mu held.
func (p *Player) position() float64 {
	if p.paused {
		return p.base
	}
	return p.base + p.now().Sub(p.anchor).Seconds()*p.speed
}

// rebase folds elapsed playback into base. Must be called with mu held.
func (p *Player) rebase() {
	p.base = p.position()
	p.anchor = p.now()
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Path: p.path, Pos: p.position(), Speed: p.speed, Paused: p.paused}
}

// TogglePause flips pause and returns the new value.
func (p *Player) TogglePause() bool {
	p.mu.Lock()
	p.rebase()
	p.paused = !p.paused
	paused := p.paused
	notify := p.observed[host.PropPause]
	p.mu.Unlock()

	if notify {
		p.emit(host.Event{Kind: host.EventPropertyChanged, Name: host.PropPause})
	}
	return paused
}

// Seek moves the position by delta, stopping at zero.
func (p *Player) Seek(delta time.Duration) {
	p.mu.Lock()
	p.rebase()
	p.base = max(p.base+delta.Seconds(), 0)
	p.mu.Unlock()

	p.emit(host.Event{Kind: host.EventSeek})
}

// AdjustSpeed changes the speed by delta within [MinSpeed, MaxSpeed] and
// returns the new speed.
func (p *Player) AdjustSpeed(delta float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebase()
	p.speed = min(max(p.speed+delta, MinSpeed), MaxSpeed)
	return p.speed
}

// ToggleDanmaku sends the toggle script message.
func (p *Player) ToggleDanmaku() {
	p.emit(host.Event{Kind: host.EventClientMessage, Args: []string{session.ToggleMessage}})
}

// Load starts path from the beginning.
func (p *Player) Load(path string) {
	p.mu.Lock()
	p.path = path
	p.base = 0
	p.anchor = p.now()
	p.mu.Unlock()

	p.emit(host.Event{Kind: host.EventFileLoaded})
}

// Resize sets the canvas size in cells.
func (p *Player) Resize(cols, rows int) {
	p.mu.Lock()
	p.cols, p.rows = cols, rows
	p.mu.Unlock()

	p.emit(host.Event{Kind: host.EventOther, Name: "video-reconfig"})
}

// Quit ends playback.
func (p *Player) Quit() {
	p.emit(host.Event{Kind: host.EventShutdown})
}

func (p *Player) emit(ev host.Event) {
	select {
	case p.events <- ev:
	default:
		log.Warn(log.CatUI, "dropping player event", "event", ev.Kind)
	}
}

// Frames delivers overlay markup. Only the newest frame is kept.
func (p *Player) Frames() <-chan string {
	return p.frames
}

// Messages delivers the text of ShowMessage calls.
func (p *Player) Messages() <-chan string {
	return p.messages
}

// Overlay returns the markup currently shown.
func (p *Player) Overlay() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markup
}

func (p *Player) Float(_ context.Context, name string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch name {
	case host.PropOSDWidth:
		return float64(p.cols) * p.scale.CellWidth, p.cols > 0
	case host.PropOSDHeight:
		return float64(p.rows) * p.scale.CellHeight, p.rows > 0
	case host.PropTimePos:
		return p.position(), true
	case host.PropSpeed:
		return p.speed, true
	}
	return 0, false
}

func (p *Player) Flag(_ context.Context, name string) (bool, bool) {
	if name != host.PropPause {
		return false, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused, true
}

func (p *Player) String(_ context.Context, name string) (string, bool) {
	if name != host.PropPath {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path, p.path != ""
}

func (p *Player) SetOverlay(_ context.Context, markup string, _, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markup = markup
	select {
	case <-p.frames:
	default:
	}
	p.frames <- markup
	return nil
}

func (p *Player) ClearOverlay(ctx context.Context) error {
	return p.SetOverlay(ctx, "", 0, 0)
}

func (p *Player) ShowMessage(_ context.Context, text string) error {
	select {
	case p.messages <- text:
	default:
		log.Warn(log.CatUI, "dropping player message", "text", text)
	}
	return nil
}

func (p *Player) ObserveProperty(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observed[name] = true
	return nil
}

func (p *Player) WaitEvent(ctx context.Context, timeout time.Duration) (host.Event, error) {
	if timeout == host.Forever {
		select {
		case ev := <-p.events:
			return ev, nil
		case <-ctx.Done():
			return host.Event{}, ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-p.events:
		return ev, nil
	case <-ctx.Done():
		return host.Event{}, ctx.Err()
	case <-timer.C:
		return host.Event{Kind: host.EventNone}, nil
	}
}

var _ host.Host = (*Player)(nil)
