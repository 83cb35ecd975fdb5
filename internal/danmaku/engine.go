package danmaku

import (
	"math"
	"time"
)

const (
	DefaultFontSize = 40.0
	DefaultDuration = 12 * time.Second
	DefaultInterval = 5 * time.Millisecond
)

// Layout holds the fixed geometry and timing of the scroll.
type Layout struct {
	// FontSize is the comment font size in overlay pixels.
	FontSize float64
	// Duration is how long a comment takes to cross the screen.
	Duration time.Duration
	// Interval is the media time one render tick advances comments by.
	Interval time.Duration
}

// DefaultLayout returns font 40, 12s crossing and 5ms ticks.
func DefaultLayout() Layout {
	return Layout{
		FontSize: DefaultFontSize,
		Duration: DefaultDuration,
		Interval: DefaultInterval,
	}
}

// Spacing is the horizontal margin after a comment and the vertical gap
// between lanes.
func (l Layout) Spacing() float64 {
	return l.FontSize / 10
}

// LineHeight is the vertical distance between two lanes.
func (l Layout) LineHeight() float64 {
	return l.FontSize + l.Spacing()
}

// LaneCount returns how many lanes fit a canvas of the given height.
func (l Layout) LaneCount(height float64) int {
	n := int(math.Floor(height / l.LineHeight()))
	return max(n, 1)
}

// Frame is the playback state one render pass works from.
type Frame struct {
	Width  float64
	Height float64
	// Pos is the playback position in seconds.
	Pos float64
	// Speed is the playback speed multiplier.
	Speed float64
}

// Draw is one comment to put on screen.
type Draw struct {
	X, Y     float64
	Lane     int
	FontSize float64
	Color    Color
	Text     string
	Time     float64
}

// Engine lays out and scrolls the comments of a store.
type Engine struct {
	layout Layout
}

// NewEngine creates an engine for layout.
func NewEngine(layout Layout) *Engine {
	return &Engine{layout: layout}
}

// Layout returns the engine's layout.
func (e *Engine) Layout() Layout {
	return e.layout
}

// Render computes the draw list for frame and advances every drawn comment
// by one tick. It scans the store from the start and stops at the first
// comment more than half a crossing ahead of Pos, so work is bounded by the
// visible window. Output order follows store order.
func (e *Engine) Render(s *Store, f Frame) []Draw {
	if s == nil {
		return nil
	}

	duration := e.layout.Duration.Seconds()
	fontSize := e.layout.FontSize
	spacing := e.layout.Spacing()
	lineHeight := e.layout.LineHeight()
	velocity := f.Width / duration
	step := velocity * f.Speed * e.layout.Interval.Seconds()
	lookahead := f.Pos + duration/2

	lanes := NewOccupancy(e.layout.LaneCount(f.Height))
	var draws []Draw
	for i := range s.comments {
		c := &s.comments[i]
		if c.Time > lookahead {
			break
		}

		tail := float64(c.Width)*fontSize + spacing
		p := c.placement
		if p == nil {
			x := f.Width - (f.Pos-c.Time)*velocity
			if x+tail < 0 {
				continue
			}
			p = &Placement{X: x, Lane: lanes.Allocate(x)}
			c.placement = p
		} else if p.X+tail < 0 {
			continue
		}

		draws = append(draws, Draw{
			X:        p.X,
			Y:        float64(p.Lane) * lineHeight,
			Lane:     p.Lane,
			FontSize: fontSize,
			Color:    c.Color,
			Text:     c.Message,
			Time:     c.Time,
		})

		p.X -= step
		lanes.Extend(p.Lane, p.X+tail)
	}
	return draws
}
