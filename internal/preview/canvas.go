package preview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/ui/overlay"
)

// Paint draws a frame onto a blank cols x rows canvas. Draws are painted in
// order, so a later comment covers an earlier one where they overlap.
func Paint(draws []danmaku.Draw, cols, rows int, scale Scale) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	line := strings.Repeat(" ", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = line
	}
	canvas := strings.Join(lines, "\n")
	if scale.CellWidth <= 0 || scale.CellHeight <= 0 {
		return canvas
	}

	styles := make(map[danmaku.Color]lipgloss.Style)
	for _, d := range draws {
		row := int(math.Round(d.Y / scale.CellHeight))
		if row < 0 || row >= rows {
			continue
		}
		col := int(math.Floor(d.X / scale.CellWidth))

		st, ok := styles[d.Color]
		if !ok {
			st = lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(d.Color)))
			styles[d.Color] = st
		}
		text := strings.ReplaceAll(d.Text, danmaku.LineBreak, " ")
		canvas = overlay.At(st.Render(text), canvas, col, row, cols, rows)
	}
	return canvas
}

func hexColor(c danmaku.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
