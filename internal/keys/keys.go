// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// PreviewKeyMap defines the keybindings of the terminal preview.
type PreviewKeyMap struct {
	// Playback
	Pause       key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	Faster      key.Binding
	Slower      key.Binding

	// Danmaku
	Toggle key.Binding
	Reload key.Binding

	// General
	Logs key.Binding
	Help key.Binding
	Quit key.Binding
}

// Preview holds the default preview bindings.
var Preview = PreviewKeyMap{
	Pause: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "pause"),
	),
	SeekBack: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "-5s"),
	),
	SeekForward: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "+5s"),
	),
	Faster: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	Slower: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "slower"),
	),

	Toggle: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle danmaku"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload file"),
	),

	Logs: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "logs"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp returns keybindings for the status line.
func (k PreviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.SeekBack, k.SeekForward, k.Toggle, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k PreviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.SeekBack, k.SeekForward, k.Faster, k.Slower}, // Playback
		{k.Toggle, k.Reload},                                      // Danmaku
		{k.Logs, k.Help, k.Quit},                                  // General
	}
}
