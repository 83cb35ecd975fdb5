package preview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/keys"
	"github.com/zjrosen/mpv-danmaku/internal/log"
	"github.com/zjrosen/mpv-danmaku/internal/pubsub"
	"github.com/zjrosen/mpv-danmaku/internal/session"
	"github.com/zjrosen/mpv-danmaku/internal/ui/overlay"
	"github.com/zjrosen/mpv-danmaku/internal/ui/toaster"
)

const (
	clockInterval = 100 * time.Millisecond
	maxLogLines   = 200
	logPaneLines  = 8
	chromeRows    = 2 // status bar + help line
)

var (
	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#24292F", Dark: "#C9D1D9"}).
			Background(lipgloss.AdaptiveColor{Light: "#EAEEF2", Dark: "#21262D"})
	loadedStyle  = barStyle.Foreground(lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"})
	failedStyle  = barStyle.Foreground(lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"})
	loadingStyle = barStyle.Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"})
	logBoxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#8C959F", Dark: "#484F58"})
)

type frameMsg string

type messageMsg string

type clockMsg time.Time

// Model is the Bubble Tea model of the preview.
type Model struct {
	ctx     context.Context
	player  *Player
	session *session.Session
	scale   Scale
	keys    keys.PreviewKeyMap
	help    help.Model
	toast   toaster.Model

	width  int
	height int
	draws  []danmaku.Draw

	notices <-chan pubsub.Event[session.Notice]
	notice  session.Notice
	seen    bool

	logs     *log.LogListener
	logLines []string
	showLogs bool
}

// NewModel creates the preview model. Subscriptions live until ctx is done.
func NewModel(ctx context.Context, p *Player, s *session.Session, scale Scale) Model {
	return Model{
		ctx:     ctx,
		player:  p,
		session: s,
		scale:   scale,
		keys:    keys.Preview,
		help:    help.New(),
		toast:   toaster.New(),
		notices: s.Notices(ctx),
		logs:    log.NewListener(ctx),
	}
}

// Init starts the frame, message, notice and clock listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.waitFrame(),
		m.waitMessage(),
		pubsub.ListenCmd(m.ctx, m.notices),
		clockTick(),
	}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

func (m Model) waitFrame() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case markup := <-m.player.Frames():
			return frameMsg(markup)
		}
	}
}

func (m Model) waitMessage() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case text := <-m.player.Messages():
			return messageMsg(text)
		}
	}
}

func clockTick() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.player.Resize(m.width, m.canvasRows())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case frameMsg:
		draws, err := danmaku.ParseMarkup(string(msg))
		if err != nil {
			log.Warn(log.CatUI, "unreadable overlay", "error", err)
		} else {
			m.draws = draws
		}
		return m, m.waitFrame()

	case messageMsg:
		m.toast = m.toast.Show(string(msg), toaster.StyleInfo)
		return m, tea.Batch(m.toast.ScheduleDismiss(toaster.DefaultDuration), m.waitMessage())

	case toaster.DismissMsg:
		m.toast = m.toast.Update(msg)
		return m, nil

	case pubsub.Event[session.Notice]:
		m.notice = msg.Payload
		m.seen = true
		return m, pubsub.ListenCmd(m.ctx, m.notices)

	case log.LogEvent:
		m.logLines = append(m.logLines, strings.TrimRight(msg.Payload, "\n"))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, m.logs.Listen()

	case clockMsg:
		return m, clockTick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.player.Quit()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		m.player.TogglePause()
	case key.Matches(msg, m.keys.SeekBack):
		m.player.Seek(-SeekStep)
	case key.Matches(msg, m.keys.SeekForward):
		m.player.Seek(SeekStep)
	case key.Matches(msg, m.keys.Faster):
		m.player.AdjustSpeed(SpeedStep)
	case key.Matches(msg, m.keys.Slower):
		m.player.AdjustSpeed(-SpeedStep)
	case key.Matches(msg, m.keys.Toggle):
		m.player.ToggleDanmaku()
	case key.Matches(msg, m.keys.Reload):
		m.player.Load(m.player.State().Path)
	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) canvasRows() int {
	return max(m.height-chromeRows, 1)
}

// View renders the canvas with the status bar and help below it.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	rows := m.canvasRows()

	canvas := Paint(m.draws, m.width, rows, m.scale)
	if m.showLogs {
		canvas = overlay.Place(overlay.Config{
			Width:    m.width,
			Height:   rows,
			Position: overlay.Bottom,
		}, m.logPane(), canvas)
	}
	if m.help.ShowAll {
		canvas = overlay.Place(overlay.Config{
			Width:    m.width,
			Height:   rows,
			Position: overlay.Center,
		}, logBoxStyle.Padding(0, 1).Render(m.help.FullHelpView(m.keys.FullHelp())), canvas)
	}
	canvas = m.toast.Overlay(canvas, m.width, rows)

	return lipgloss.JoinVertical(lipgloss.Left,
		canvas,
		m.statusBar(),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

func (m Model) statusBar() string {
	st := m.player.State()
	state := "playing"
	if st.Paused {
		state = "paused"
	}
	stats := m.session.Stats()

	text := fmt.Sprintf(" %s %s  ×%.2f  %s", state, formatClock(st.Pos), st.Speed, m.danmakuStatus(stats))
	text = runewidth.FillRight(runewidth.Truncate(text, m.width, "…"), m.width)

	style := barStyle
	switch {
	case !stats.Enabled:
	case m.seen && m.notice.Kind == session.NoticeFailed:
		style = failedStyle
	case stats.Loaded:
		style = loadedStyle
	default:
		style = loadingStyle
	}
	return style.Render(text)
}

func (m Model) danmakuStatus(stats session.Stats) string {
	switch {
	case !stats.Enabled:
		return "danmaku off"
	case stats.Loaded:
		return fmt.Sprintf("danmaku on  %d comments  %d placed", stats.Comments, stats.Placed)
	case m.seen && m.notice.Kind == session.NoticeFailed:
		return m.notice.Text
	default:
		return "danmaku on  fetching…"
	}
}

func (m Model) logPane() string {
	inner := max(m.width-2, 1)
	lines := m.logLines
	if len(lines) > logPaneLines {
		lines = lines[len(lines)-logPaneLines:]
	}
	out := make([]string, logPaneLines)
	for i := range out {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		out[i] = runewidth.FillRight(runewidth.Truncate(line, inner, "…"), inner)
	}
	if m.logs == nil {
		out[0] = runewidth.FillRight("logging is off; run with --debug", inner)
	}
	return logBoxStyle.Render(strings.Join(out, "\n"))
}

// formatClock renders seconds as m:ss.t.
func formatClock(pos float64) string {
	tenths := int64(pos*10 + 0.5)
	return fmt.Sprintf("%d:%02d.%d", tenths/600, tenths/10%60, tenths%10)
}
