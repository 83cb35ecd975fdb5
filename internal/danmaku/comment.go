// Package danmaku implements the comment store and the scroll/lane layout
// engine that turns a time-sorted comment set into one overlay frame per
// render tick.
package danmaku

import (
	"strings"

	"github.com/rivo/uniseg"
)

// LineBreak is the compositor's literal line-break escape.
const LineBreak = `\N`

// Record is one timed comment as delivered by a comment source.
type Record struct {
	Time  float64 `json:"time"`
	Color uint32  `json:"color"`
	Text  string  `json:"text"`
}

// Color is an RGB comment color.
type Color struct {
	R, G, B uint8
}

// ColorFromPacked decodes a packed 0xRRGGBB integer. Bits above the low 24
// are dropped.
func ColorFromPacked(c uint32) Color {
	return Color{
		R: uint8(c / 65536),
		G: uint8(c % 65536 / 256),
		B: uint8(c % 256),
	}
}

// Packed returns the color as 0xRRGGBB.
func (c Color) Packed() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Placement is where a comment sits once it has been revealed: its current
// horizontal offset in pixels and its lane.
type Placement struct {
	X    float64
	Lane int
}

// Comment is an immutable payload plus an optional placement. A nil
// placement means the comment has not been revealed in the current epoch.
type Comment struct {
	Message string
	// Width is the number of grapheme clusters in the original text; the
	// engine multiplies it by the font size to estimate pixel width.
	Width int
	Time  float64
	Color Color

	placement *Placement
}

// NewComment builds a comment from a record, normalizing line breaks.
func NewComment(r Record) Comment {
	return Comment{
		Message: strings.ReplaceAll(r.Text, "\n", LineBreak),
		Width:   uniseg.GraphemeClusterCount(r.Text),
		Time:    r.Time,
		Color:   ColorFromPacked(r.Color),
	}
}

// Placement returns the comment's placement and whether it has one.
func (c Comment) Placement() (Placement, bool) {
	if c.placement == nil {
		return Placement{}, false
	}
	return *c.placement, true
}

// Placed reports whether the comment has been revealed in this epoch.
func (c Comment) Placed() bool {
	return c.placement != nil
}
