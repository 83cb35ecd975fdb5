// Package toaster shows short player messages in a box in the top-left
// corner, the way mpv shows its OSD text, and dismisses them after a delay.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/mpv-danmaku/internal/ui/overlay"
)

// Style determines the border color of the toast.
type Style int

const (
	StyleInfo Style = iota
	StyleSuccess
	StyleError
	StyleWarn
)

var (
	infoColor    = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#54AEFF"}
	successColor = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	errorColor   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	warnColor    = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
)

// DefaultDuration matches mpv's default osd-duration.
const DefaultDuration = time.Second

// Model holds the toaster state.
type Model struct {
	message string
	style   Style
	visible bool
	// seq identifies the current toast so a dismissal scheduled for an
	// earlier one is ignored.
	seq int
}

// New creates a hidden toaster.
func New() Model {
	return Model{}
}

// Show displays message, replacing any visible toast.
func (m Model) Show(message string, style Style) Model {
	m.message = message
	m.style = style
	m.visible = true
	m.seq++
	return m
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// Message returns the text of the visible toast.
func (m Model) Message() string {
	return m.message
}

// Update hides the toast when its own dismissal arrives.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		return m.Hide()
	}
	return m
}

// View renders the toast box.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	color := infoColor
	switch m.style {
	case StyleSuccess:
		color = successColor
	case StyleError:
		color = errorColor
	case StyleWarn:
		color = warnColor
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Render(m.message)
}

// Overlay renders the toast on top of a background view.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}
	cfg := overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.TopLeft,
		PadX:     1,
	}
	return overlay.Place(cfg, m.View(), bg)
}

// DismissMsg signals that the toast shown with the matching Show should go.
type DismissMsg struct {
	seq int
}

// ScheduleDismiss returns a command that dismisses the current toast after d.
func (m Model) ScheduleDismiss(d time.Duration) tea.Cmd {
	seq := m.seq
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return DismissMsg{seq: seq}
	})
}
