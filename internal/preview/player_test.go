package preview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/host"
	"github.com/zjrosen/mpv-danmaku/internal/mocks"
	"github.com/zjrosen/mpv-danmaku/internal/session"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func nextEvent(t *testing.T, p *Player) host.Event {
	t.Helper()
	ev, err := p.WaitEvent(context.Background(), time.Second)
	require.NoError(t, err)
	return ev
}

func newTestPlayer() (*Player, *clock) {
	c := newClock()
	return NewPlayer("/media/ep01.mkv", ScaleFor(danmaku.DefaultLayout()), WithClock(c.Now)), c
}

func TestPlayer_ClockAdvancesWithSpeed(t *testing.T) {
	p, c := newTestPlayer()
	ctx := context.Background()

	c.Advance(2 * time.Second)
	pos, ok := p.Float(ctx, host.PropTimePos)
	require.True(t, ok)
	require.InDelta(t, 2.0, pos, 1e-9)

	require.Equal(t, 2.0, p.AdjustSpeed(1))
	c.Advance(time.Second)
	require.InDelta(t, 4.0, p.State().Pos, 1e-9)

	speed, ok := p.Float(ctx, host.PropSpeed)
	require.True(t, ok)
	require.Equal(t, 2.0, speed)
}

func TestPlayer_PauseFreezesClock(t *testing.T) {
	p, c := newTestPlayer()

	c.Advance(time.Second)
	require.True(t, p.TogglePause())
	c.Advance(10 * time.Second)
	require.InDelta(t, 1.0, p.State().Pos, 1e-9)

	paused, ok := p.Flag(context.Background(), host.PropPause)
	require.True(t, ok)
	require.True(t, paused)

	require.False(t, p.TogglePause())
	c.Advance(time.Second)
	require.InDelta(t, 2.0, p.State().Pos, 1e-9)
}

func TestPlayer_PauseEventOnlyWhenObserved(t *testing.T) {
	p, _ := newTestPlayer()
	ctx := context.Background()

	p.TogglePause()
	ev, err := p.WaitEvent(ctx, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, host.EventNone, ev.Kind)

	require.NoError(t, p.ObserveProperty(ctx, host.PropPause))
	p.TogglePause()
	ev = nextEvent(t, p)
	require.Equal(t, host.EventPropertyChanged, ev.Kind)
	require.Equal(t, host.PropPause, ev.Name)
}

func TestPlayer_SeekClampsAtZero(t *testing.T) {
	p, c := newTestPlayer()
	c.Advance(3 * time.Second)

	p.Seek(-SeekStep)
	require.Equal(t, host.EventSeek, nextEvent(t, p).Kind)
	require.InDelta(t, 0.0, p.State().Pos, 1e-9)

	p.Seek(SeekStep)
	require.Equal(t, host.EventSeek, nextEvent(t, p).Kind)
	require.InDelta(t, 5.0, p.State().Pos, 1e-9)
}

func TestPlayer_SpeedBounds(t *testing.T) {
	p, _ := newTestPlayer()

	for range 20 {
		p.AdjustSpeed(SpeedStep)
	}
	require.Equal(t, MaxSpeed, p.State().Speed)

	for range 40 {
		p.AdjustSpeed(-SpeedStep)
	}
	require.Equal(t, MinSpeed, p.State().Speed)
}

func TestPlayer_CanvasSize(t *testing.T) {
	p, _ := newTestPlayer()
	ctx := context.Background()

	_, ok := p.Float(ctx, host.PropOSDWidth)
	require.False(t, ok, "no size before resize")

	p.Resize(80, 10)
	ev := nextEvent(t, p)
	require.Equal(t, host.EventOther, ev.Kind)

	w, ok := p.Float(ctx, host.PropOSDWidth)
	require.True(t, ok)
	require.Equal(t, 1600.0, w)
	h, ok := p.Float(ctx, host.PropOSDHeight)
	require.True(t, ok)
	require.Equal(t, 440.0, h)

	_, ok = p.Float(ctx, "volume")
	require.False(t, ok)
}

func TestPlayer_PathAndLoad(t *testing.T) {
	p, c := newTestPlayer()
	ctx := context.Background()

	path, ok := p.String(ctx, host.PropPath)
	require.True(t, ok)
	require.Equal(t, "/media/ep01.mkv", path)
	_, ok = p.String(ctx, "media-title")
	require.False(t, ok)

	c.Advance(30 * time.Second)
	p.Load("/media/ep02.mkv")
	require.Equal(t, host.EventFileLoaded, nextEvent(t, p).Kind)
	st := p.State()
	require.Equal(t, "/media/ep02.mkv", st.Path)
	require.InDelta(t, 0.0, st.Pos, 1e-9)
}

func TestPlayer_ToggleAndQuitEvents(t *testing.T) {
	p, _ := newTestPlayer()

	p.ToggleDanmaku()
	ev := nextEvent(t, p)
	require.Equal(t, host.EventClientMessage, ev.Kind)
	require.Equal(t, []string{session.ToggleMessage}, ev.Args)

	p.Quit()
	require.Equal(t, host.EventShutdown, nextEvent(t, p).Kind)
}

func TestPlayer_FramesKeepNewest(t *testing.T) {
	p, _ := newTestPlayer()
	ctx := context.Background()

	require.NoError(t, p.SetOverlay(ctx, "one", 1, 1))
	require.NoError(t, p.SetOverlay(ctx, "two", 1, 1))
	require.Equal(t, "two", <-p.Frames())
	require.Equal(t, "two", p.Overlay())

	require.NoError(t, p.ClearOverlay(ctx))
	require.Equal(t, "", <-p.Frames())
	require.Equal(t, "", p.Overlay())
}

func TestPlayer_Messages(t *testing.T) {
	p, _ := newTestPlayer()

	require.NoError(t, p.ShowMessage(context.Background(), "Danmaku: on"))
	require.Equal(t, "Danmaku: on", <-p.Messages())

	for range messageBuffer + 5 {
		require.NoError(t, p.ShowMessage(context.Background(), "x"))
	}
	require.Len(t, p.Messages(), messageBuffer)
}

func TestPlayer_WaitEventCancelled(t *testing.T) {
	p, _ := newTestPlayer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.WaitEvent(ctx, host.Forever)
	require.ErrorIs(t, err, context.Canceled)
	_, err = p.WaitEvent(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlayer_DrivesSession(t *testing.T) {
	p := NewPlayer("/media/ep01.mkv", ScaleFor(danmaku.DefaultLayout()))
	p.Resize(96, 12)
	fetcher := mocks.NewMockFetcher(t)
	fetcher.EXPECT().Fetch(mock.Anything, "/media/ep01.mkv").
		Return([]danmaku.Record{{Time: 0, Color: 0x00ff00, Text: "弹幕"}}, nil).Once()

	s := session.New(p, fetcher, session.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		<-done
		s.Close()
	}()

	p.ToggleDanmaku()
	require.Equal(t, "Danmaku: on", <-p.Messages())
	require.Equal(t, "Loaded 1 danmaku comment", <-p.Messages())

	require.Eventually(t, func() bool {
		draws, err := danmaku.ParseMarkup(p.Overlay())
		return err == nil && len(draws) == 1 && draws[0].Text == "弹幕"
	}, 2*time.Second, 5*time.Millisecond)

	p.Quit()
	select {
	case err := <-done:
		require.NoError(t, err)
		done <- nil
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
