// Package fake provides an in-memory host.Host for tests.
package fake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zjrosen/mpv-danmaku/internal/host"
)

// ErrCommand is returned by overlay calls when FailCommands is set.
var ErrCommand = errors.New("fake: command failed")

// OverlayCall records one SetOverlay.
type OverlayCall struct {
	Markup string
	Width  int
	Height int
}

// Host is a scriptable player. Events pushed with Push are delivered in
// order; properties are read from a map.
type Host struct {
	mu           sync.Mutex
	props        map[string]any
	events       chan host.Event
	observed     []string
	overlays     []OverlayCall
	clears       int
	messages     []string
	observeErr   error
	failCommands bool
	waits        []time.Duration
	onOverlay    func(OverlayCall)
}

// New returns a host with no properties set.
func New() *Host {
	return &Host{
		props:  make(map[string]any),
		events: make(chan host.Event, 64),
	}
}

// Set stores a property value. Use float64, bool or string.
func (h *Host) Set(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.props[name] = value
}

// Unset removes a property.
func (h *Host) Unset(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.props, name)
}

// SetPlayback sets canvas size, position, speed and pause in one call.
func (h *Host) SetPlayback(width, height, pos, speed float64, paused bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.props[host.PropOSDWidth] = width
	h.props[host.PropOSDHeight] = height
	h.props[host.PropTimePos] = pos
	h.props[host.PropSpeed] = speed
	h.props[host.PropPause] = paused
}

// Push queues an event for WaitEvent.
func (h *Host) Push(ev host.Event) {
	h.events <- ev
}

// FailObserve makes ObserveProperty return err.
func (h *Host) FailObserve(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observeErr = err
}

// FailCommands makes overlay and message calls fail.
func (h *Host) FailCommands(fail bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failCommands = fail
}

func (h *Host) Float(_ context.Context, name string) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.props[name].(float64)
	return v, ok
}

func (h *Host) Flag(_ context.Context, name string) (bool, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.props[name].(bool)
	return v, ok
}

func (h *Host) String(_ context.Context, name string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.props[name].(string)
	return v, ok
}

// OnOverlay runs fn after every successful SetOverlay, outside the host's
// lock.
func (h *Host) OnOverlay(fn func(OverlayCall)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onOverlay = fn
}

func (h *Host) SetOverlay(_ context.Context, markup string, width, height int) error {
	h.mu.Lock()
	if h.failCommands {
		h.mu.Unlock()
		return ErrCommand
	}
	call := OverlayCall{Markup: markup, Width: width, Height: height}
	h.overlays = append(h.overlays, call)
	fn := h.onOverlay
	h.mu.Unlock()

	if fn != nil {
		fn(call)
	}
	return nil
}

func (h *Host) ClearOverlay(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failCommands {
		return ErrCommand
	}
	h.clears++
	return nil
}

func (h *Host) ShowMessage(_ context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failCommands {
		return ErrCommand
	}
	h.messages = append(h.messages, text)
	return nil
}

func (h *Host) ObserveProperty(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.observeErr != nil {
		return h.observeErr
	}
	h.observed = append(h.observed, name)
	return nil
}

// WaitEvent returns the next pushed event. A bounded wait that finds the
// queue empty returns EventNone after a 1ms pause rather than the full
// timeout, so tick-driven tests run fast.
func (h *Host) WaitEvent(ctx context.Context, timeout time.Duration) (host.Event, error) {
	h.mu.Lock()
	h.waits = append(h.waits, timeout)
	h.mu.Unlock()

	if timeout != host.Forever {
		select {
		case ev := <-h.events:
			return ev, nil
		case <-ctx.Done():
			return host.Event{}, ctx.Err()
		default:
		}
		time.Sleep(time.Millisecond)
		return host.Event{Kind: host.EventNone}, nil
	}

	select {
	case ev := <-h.events:
		return ev, nil
	case <-ctx.Done():
		return host.Event{}, ctx.Err()
	}
}

// Overlays returns every SetOverlay call so far.
func (h *Host) Overlays() []OverlayCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]OverlayCall(nil), h.overlays...)
}

// LastOverlay returns the most recent SetOverlay call.
func (h *Host) LastOverlay() (OverlayCall, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.overlays) == 0 {
		return OverlayCall{}, false
	}
	return h.overlays[len(h.overlays)-1], true
}

// Clears returns how many times the overlay was removed.
func (h *Host) Clears() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clears
}

// Messages returns every shown message.
func (h *Host) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

// Observed returns the observed property names.
func (h *Host) Observed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.observed...)
}

// Waits returns the timeouts WaitEvent was called with.
func (h *Host) Waits() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.waits...)
}

var _ host.Host = (*Host)(nil)
