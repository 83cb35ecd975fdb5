package danmaku

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fixed ASS override tags applied to every comment: 0x30 transparency,
// 1.5px border, bold, no wrapping.
const (
	markupAlpha  = "30"
	markupBorder = "1.5"
)

// Markup renders draws as ASS events, one per line.
func Markup(draws []Draw) string {
	lines := make([]string, len(draws))
	for i, d := range draws {
		lines[i] = d.Markup()
	}
	return strings.Join(lines, "\n")
}

// Markup renders the draw as a single ASS event. Colors are written in the
// format's BGR order.
func (d Draw) Markup() string {
	return fmt.Sprintf(`{\pos(%s,%s)\c&H%02x%02x%02x&\alpha&H%s\fs%s\bord%s\b1\q2}%s`,
		formatFloat(d.X),
		formatFloat(d.Y),
		d.Color.B, d.Color.G, d.Color.R,
		markupAlpha,
		formatFloat(d.FontSize),
		markupBorder,
		d.Text,
	)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var markupLine = regexp.MustCompile(
	`^\{\\pos\(([^,]+),([^)]+)\)\\c&H([0-9a-fA-F]{6})&\\alpha&H[0-9a-fA-F]{2}\\fs([^\\]+)\\bord[^\\]+\\b1\\q2\}(.*)$`)

// ParseMarkup reads back a frame produced by Markup. Lane and Time are not
// part of the markup and come back as zero.
func ParseMarkup(s string) ([]Draw, error) {
	if s == "" {
		return nil, nil
	}

	lines := strings.Split(s, "\n")
	draws := make([]Draw, 0, len(lines))
	for i, line := range lines {
		m := markupLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d: not a danmaku event", i)
		}
		x, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: x: %w", i, err)
		}
		y, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", i, err)
		}
		bgr, err := strconv.ParseUint(m[3], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: color: %w", i, err)
		}
		size, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: font size: %w", i, err)
		}
		draws = append(draws, Draw{
			X:        x,
			Y:        y,
			FontSize: size,
			Color: Color{
				R: uint8(bgr),
				G: uint8(bgr >> 8),
				B: uint8(bgr >> 16),
			},
			Text: m[5],
		})
	}
	return draws, nil
}
