// Package mpvipc connects to a running mpv through its JSON IPC socket
// (mpv --input-ipc-server=PATH) and exposes it as a host.Host.
//
// Requests are newline-delimited JSON objects carrying a request_id; replies
// are matched back to the waiting caller, and unsolicited event messages are
// queued for WaitEvent. The client is safe for concurrent use.
package mpvipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/mpv-danmaku/internal/host"
	"github.com/zjrosen/mpv-danmaku/internal/log"
)

// ErrClosed is returned for requests made after the connection went away.
var ErrClosed = errors.New("mpvipc: connection closed")

// CommandError is an mpv error reply, e.g. "property unavailable".
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Message)
}

// Config tunes the client.
type Config struct {
	// RequestTimeout bounds each request/reply round trip.
	RequestTimeout time.Duration
	// OverlayID is the osd-overlay id the danmaku layer is drawn on.
	OverlayID int
}

// DefaultConfig returns a one second request timeout and overlay id 0.
func DefaultConfig() Config {
	return Config{RequestTimeout: time.Second}
}

type request struct {
	Command   any   `json:"command"`
	RequestID int64 `json:"request_id"`
}

type message struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Args      []string        `json:"args,omitempty"`
	FileError string          `json:"file_error,omitempty"`
}

type reply struct {
	data json.RawMessage
	err  string
}

// Client is a live mpv IPC connection.
type Client struct {
	conn net.Conn
	cfg  Config

	writeMu sync.Mutex
	enc     *json.Encoder

	nextID    atomic.Int64
	observeID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan reply

	queueMu sync.Mutex
	queue   []host.Event
	notify  chan struct{}

	done    chan struct{}
	readErr error
}

// Dial connects to the IPC socket at path.
func Dial(ctx context.Context, path string, cfg Config) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("connecting to mpv at %s: %w", path, err)
	}
	return New(conn, cfg), nil
}

// New wraps an established connection and starts reading from it.
func New(conn net.Conn, cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	c := &Client{
		conn:    conn,
		cfg:     cfg,
		enc:     json.NewEncoder(conn),
		pending: make(map[int64]chan reply),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close shuts the connection down. Pending and later requests fail with
// ErrClosed and WaitEvent reports a shutdown.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)

	dec := json.NewDecoder(c.conn)
	for {
		var msg message
		if err := dec.Decode(&msg); err != nil {
			c.readErr = err
			log.Debug(log.CatHost, "ipc connection ended", "error", err)
			c.failPending()
			return
		}
		if msg.Event != "" {
			c.push(toEvent(msg))
			continue
		}
		if msg.RequestID == nil {
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[*msg.RequestID]
		delete(c.pending, *msg.RequestID)
		c.pendingMu.Unlock()
		if ok {
			ch <- reply{data: msg.Data, err: msg.Error}
		}
	}
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func toEvent(msg message) host.Event {
	switch msg.Event {
	case "shutdown":
		return host.Event{Kind: host.EventShutdown}
	case "file-loaded":
		return host.Event{Kind: host.EventFileLoaded}
	case "seek":
		return host.Event{Kind: host.EventSeek}
	case "property-change":
		return host.Event{Kind: host.EventPropertyChanged, Name: msg.Name}
	case "client-message":
		return host.Event{Kind: host.EventClientMessage, Args: msg.Args}
	default:
		ev := host.Event{Kind: host.EventOther, Name: msg.Event}
		if msg.FileError != "" {
			ev.Err = errors.New(msg.FileError)
		}
		return ev
	}
}

func (c *Client) push(ev host.Event) {
	c.queueMu.Lock()
	c.queue = append(c.queue, ev)
	c.queueMu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *Client) pop() (host.Event, bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if len(c.queue) == 0 {
		return host.Event{}, false
	}
	ev := c.queue[0]
	c.queue = c.queue[1:]
	return ev, true
}

// WaitEvent implements host.Events.
func (c *Client) WaitEvent(ctx context.Context, timeout time.Duration) (host.Event, error) {
	var expired <-chan time.Time
	if timeout != host.Forever {
		timer := time.NewTimer(max(timeout, 0))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if ev, ok := c.pop(); ok {
			return ev, nil
		}
		select {
		case <-c.notify:
		case <-c.done:
			if ev, ok := c.pop(); ok {
				return ev, nil
			}
			return host.Event{Kind: host.EventShutdown, Err: c.connErr()}, nil
		case <-expired:
			return host.Event{Kind: host.EventNone}, nil
		case <-ctx.Done():
			return host.Event{}, ctx.Err()
		}
	}
}

// connErr is why the read loop stopped, or nil when the connection was simply
// closed. Only valid once done is closed.
func (c *Client) connErr() error {
	err := c.readErr
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Command runs a positional mpv command and returns its data.
func (c *Client) Command(ctx context.Context, args ...any) (json.RawMessage, error) {
	return c.do(ctx, commandName(args), args)
}

func commandName(args []any) string {
	if len(args) == 0 {
		return ""
	}
	if s, ok := args[0].(string); ok {
		return s
	}
	return fmt.Sprint(args[0])
}

func (c *Client) do(ctx context.Context, name string, command any) (json.RawMessage, error) {
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan reply, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.enc.Encode(request{Command: command, RequestID: id})
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", name, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case r, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if r.err != "" && r.err != "success" {
			return nil, &CommandError{Command: name, Message: r.err}
		}
		return r.data, nil
	case <-c.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, fmt.Errorf("mpv %s: no reply within %s", name, c.cfg.RequestTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) getProperty(ctx context.Context, name string, v any) bool {
	data, err := c.Command(ctx, "get_property", name)
	if err != nil {
		log.Debug(log.CatHost, "property read failed", "name", name, "error", err)
		return false
	}
	if len(data) == 0 || string(data) == "null" {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug(log.CatHost, "property decode failed", "name", name, "error", err)
		return false
	}
	return true
}

// Float implements host.Properties.
func (c *Client) Float(ctx context.Context, name string) (float64, bool) {
	var v float64
	ok := c.getProperty(ctx, name, &v)
	return v, ok
}

// Flag implements host.Properties.
func (c *Client) Flag(ctx context.Context, name string) (bool, bool) {
	var v bool
	ok := c.getProperty(ctx, name, &v)
	return v, ok
}

// String implements host.Properties.
func (c *Client) String(ctx context.Context, name string) (string, bool) {
	var v string
	ok := c.getProperty(ctx, name, &v)
	return v, ok
}

// ObserveProperty implements host.Events.
func (c *Client) ObserveProperty(ctx context.Context, name string) error {
	id := c.observeID.Add(1)
	if _, err := c.Command(ctx, "observe_property", id, name); err != nil {
		return fmt.Errorf("observing %s: %w", name, err)
	}
	return nil
}

// SetOverlay implements host.Overlay by replacing the danmaku osd-overlay.
func (c *Client) SetOverlay(ctx context.Context, markup string, width, height int) error {
	_, err := c.do(ctx, "osd-overlay", map[string]any{
		"name":   "osd-overlay",
		"id":     c.cfg.OverlayID,
		"format": "ass-events",
		"data":   markup,
		"res_x":  width,
		"res_y":  height,
	})
	return err
}

// ClearOverlay implements host.Overlay.
func (c *Client) ClearOverlay(ctx context.Context) error {
	_, err := c.do(ctx, "osd-overlay", map[string]any{
		"name":   "osd-overlay",
		"id":     c.cfg.OverlayID,
		"format": "none",
		"data":   "",
	})
	return err
}

// ShowMessage implements host.Overlay with show-text.
func (c *Client) ShowMessage(ctx context.Context, text string) error {
	_, err := c.Command(ctx, "show-text", text)
	return err
}

// ExpandPath resolves mpv path prefixes such as ~~/ to a filesystem path.
func (c *Client) ExpandPath(ctx context.Context, path string) (string, error) {
	data, err := c.Command(ctx, "expand-path", path)
	if err != nil {
		return "", err
	}
	var out string
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding expand-path reply: %w", err)
	}
	return out, nil
}

var _ host.Host = (*Client)(nil)
