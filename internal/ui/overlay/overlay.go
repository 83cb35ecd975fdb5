// Package overlay draws one block of terminal text on top of another without
// disturbing the styling of either.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position specifies where to place the overlay content.
type Position int

const (
	// Center places the overlay in the center of the viewport.
	Center Position = iota
	// Top places the overlay at the top center of the viewport.
	Top
	// Bottom places the overlay at the bottom center of the viewport.
	Bottom
	// TopLeft places the overlay in the top-left corner, where the player
	// shows its own messages.
	TopLeft
)

// Config controls overlay rendering behavior.
type Config struct {
	// Width is the total viewport width.
	Width int
	// Height is the total viewport height.
	Height int
	// Position specifies where to place the overlay.
	Position Position
	// PadX is the distance from the left edge for TopLeft.
	PadX int
	// PadY is the distance from the top or bottom edge for Top, Bottom and
	// TopLeft.
	PadY int
}

// Place renders fg on top of bg at the configured position.
func Place(cfg Config, fg, bg string) string {
	x, y := calculatePosition(cfg, lipgloss.Width(fg), lipgloss.Height(fg))
	return At(fg, bg, x, y, cfg.Width, cfg.Height)
}

// At draws fg with its top-left corner at column x and row y of bg. The
// background is padded to height rows. Cells of fg left of column 0 or right
// of width are clipped; a width of zero or less disables the right edge.
func At(fg, bg string, x, y, width, height int) string {
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < height {
		bgLines = append(bgLines, strings.Repeat(" ", max(width, 0)))
	}

	for i, line := range strings.Split(fg, "\n") {
		row := y + i
		if row < 0 {
			continue
		}
		if row >= len(bgLines) {
			break
		}

		col := x
		if col < 0 {
			line = ansi.TruncateLeft(line, -col, "")
			col = 0
		}
		if width > 0 {
			if col >= width {
				continue
			}
			if col+ansi.StringWidth(line) > width {
				line = ansi.Truncate(line, width-col, "")
			}
		}
		lineWidth := ansi.StringWidth(line)
		if lineWidth == 0 {
			continue
		}

		bgLine := bgLines[row]
		left := ansi.Truncate(bgLine, col, "")
		if w := ansi.StringWidth(left); w < col {
			left += strings.Repeat(" ", col-w)
		}
		var right string
		if end, bgWidth := col+lineWidth, ansi.StringWidth(bgLine); end < bgWidth {
			right = ansi.TruncateLeft(bgLine, end, "")
			// A wide character straddling end is kept whole; blank it instead.
			if ansi.StringWidth(right) > bgWidth-end {
				right = " " + ansi.TruncateLeft(bgLine, end+1, "")
			}
			if w := ansi.StringWidth(right); w < bgWidth-end {
				right = strings.Repeat(" ", bgWidth-end-w) + right
			}
		}
		bgLines[row] = left + line + right
	}

	return strings.Join(bgLines, "\n")
}

// calculatePosition determines the x,y starting coordinates for the overlay.
func calculatePosition(cfg Config, fgWidth, fgHeight int) (x, y int) {
	switch cfg.Position {
	case Top:
		x = (cfg.Width - fgWidth) / 2
		y = cfg.PadY
	case Bottom:
		x = (cfg.Width - fgWidth) / 2
		y = cfg.Height - fgHeight - cfg.PadY
	case TopLeft:
		x = cfg.PadX
		y = cfg.PadY
	default: // Center
		x = (cfg.Width - fgWidth) / 2
		y = (cfg.Height - fgHeight) / 2
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
