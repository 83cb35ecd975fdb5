// Package host defines the player capabilities the danmaku session consumes:
// property reads, the overlay/message sink and the event source. Adapters
// live in subpackages (mpvipc for a running mpv, fake for tests).
package host

import (
	"context"
	"time"
)

// Forever makes WaitEvent block until an event arrives.
const Forever time.Duration = -1

// Property names read by the session.
const (
	PropOSDWidth  = "osd-width"
	PropOSDHeight = "osd-height"
	PropTimePos   = "time-pos"
	PropSpeed     = "speed"
	PropPause     = "pause"
	PropPath      = "path"
)

// EventKind identifies a player event.
type EventKind int

const (
	// EventNone is returned when WaitEvent times out.
	EventNone EventKind = iota
	EventShutdown
	EventFileLoaded
	EventSeek
	EventPropertyChanged
	EventClientMessage
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventShutdown:
		return "shutdown"
	case EventFileLoaded:
		return "file-loaded"
	case EventSeek:
		return "seek"
	case EventPropertyChanged:
		return "property-change"
	case EventClientMessage:
		return "client-message"
	default:
		return "other"
	}
}

// Event is one player event.
type Event struct {
	Kind EventKind
	// Name is the property name for EventPropertyChanged and the raw event
	// name for EventOther.
	Name string
	// Args are the arguments of a client message.
	Args []string
	// Err carries an error the player attached to the event.
	Err error
}

// Properties reads player properties. The boolean is false when the player
// has no value (no file loaded, property unavailable, request failed).
type Properties interface {
	Float(ctx context.Context, name string) (float64, bool)
	Flag(ctx context.Context, name string) (bool, bool)
	String(ctx context.Context, name string) (string, bool)
}

// Overlay is the compositor and notice sink. Each SetOverlay replaces the
// whole overlay.
type Overlay interface {
	SetOverlay(ctx context.Context, markup string, width, height int) error
	ClearOverlay(ctx context.Context) error
	ShowMessage(ctx context.Context, text string) error
}

// Events is the player event source.
type Events interface {
	// ObserveProperty asks the player to emit EventPropertyChanged for name.
	ObserveProperty(ctx context.Context, name string) error
	// WaitEvent blocks for at most timeout (Forever for no limit) and returns
	// the next event, or an EventNone event on timeout.
	WaitEvent(ctx context.Context, timeout time.Duration) (Event, error)
}

// Host bundles every capability the session needs.
type Host interface {
	Properties
	Overlay
	Events
}
