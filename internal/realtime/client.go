// Package realtime implements the push channel used by live dashboards. In
// mock mode the channel synthesizes events locally; in live mode it holds a
// websocket and reconnects with exponential backoff after unexpected closes.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrNotOpen is returned by Send in live mode when no connection is open.
var ErrNotOpen = errors.New("websocket is not open")

// ErrClosed is returned by Connect when Disconnect ran while dialing.
var ErrClosed = errors.New("channel closed")

// PathPrefix is prepended to every channel path.
const PathPrefix = "/ws"

const (
	DefaultMaxAttempts      = 5
	DefaultBackoffBase      = time.Second
	DefaultMockJoinDelay    = 2 * time.Second
	DefaultMockMessageDelay = 5 * time.Second
	DefaultEchoDelay        = 100 * time.Millisecond
	dialTimeout             = 10 * time.Second
)

// State is the connection lifecycle.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configure a Client. Zero values select the defaults.
type Options struct {
	Mock    bool
	BaseURL string

	MaxAttempts int
	BackoffBase time.Duration

	Dialer    Dialer
	Scheduler Scheduler
	Logger    *log.Logger
	Now       func() time.Time

	MockJoinDelay    time.Duration
	MockMessageDelay time.Duration
	EchoDelay        time.Duration
}

// Client is one logical channel to a path. Handlers and give-up callbacks
// stay registered across Disconnect and Connect.
type Client struct {
	path string
	opts Options

	mu         sync.Mutex
	state      State
	attempts   int
	token      string
	connID     string
	conn       Conn
	cancelRead context.CancelFunc
	gen        uint64
	closing    bool
	retry      Timer
	timers     map[int]Timer
	nextTimer  int
	handlers   map[string][]Handler
	giveUp     []func(attempts int)
}

// New returns an idle client for path (e.g. "/parties/1/").
func New(path string, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = clock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MockJoinDelay <= 0 {
		opts.MockJoinDelay = DefaultMockJoinDelay
	}
	if opts.MockMessageDelay <= 0 {
		opts.MockMessageDelay = DefaultMockMessageDelay
	}
	if opts.EchoDelay <= 0 {
		opts.EchoDelay = DefaultEchoDelay
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Client{
		path:     path,
		opts:     opts,
		timers:   make(map[int]Timer),
		handlers: make(map[string][]Handler),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the reconnect attempts made since the last open.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// URL returns the address dialed for token.
func (c *Client) URL(token string) string {
	u := c.opts.BaseURL + PathPrefix + c.path
	if token == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "token=" + url.QueryEscape(token)
}

// On registers h for eventType. Registrations accumulate in order and are
// never de-duplicated.
func (c *Client) On(eventType string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], h)
}

// OnGiveUp registers fn to run once reconnection stops after MaxAttempts.
func (c *Client) OnGiveUp(fn func(attempts int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.giveUp = append(c.giveUp, fn)
}

// Connect opens the channel. In mock mode it always succeeds and schedules
// the synthetic user_joined and chat_message events. In live mode it returns
// the dial error; a failed first connect is not retried. A dial already in
// flight is superseded: its result is discarded and Connect reports its own.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.state == Open {
		c.mu.Unlock()
		return nil
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.closing = false
	c.token = token
	c.mu.Unlock()

	if c.opts.Mock {
		c.connectMock()
		return nil
	}
	return c.dial(ctx, false)
}

func (c *Client) connectMock() {
	c.mu.Lock()
	c.gen++
	c.state = Open
	c.attempts = 0
	c.connID = uuid.NewString()
	id := c.connID
	c.scheduleLocked(c.opts.MockJoinDelay, func() {
		c.emit(EventUserJoined, userJoined(c.opts.Now()))
	})
	c.scheduleLocked(c.opts.MockMessageDelay, func() {
		c.emit(EventChatMessage, chatMessage(c.opts.Now()))
	})
	c.mu.Unlock()

	c.opts.Logger.Info("Mock WebSocket connected", "path", c.path, "conn", id)
}

// scheduleLocked runs f after d unless Disconnect cancels it first.
func (c *Client) scheduleLocked(d time.Duration, f func()) {
	c.nextTimer++
	id := c.nextTimer
	c.timers[id] = c.opts.Scheduler.AfterFunc(d, func() {
		c.mu.Lock()
		if _, ok := c.timers[id]; !ok {
			c.mu.Unlock()
			return
		}
		delete(c.timers, id)
		c.mu.Unlock()
		f()
	})
}

func (c *Client) dial(ctx context.Context, retrying bool) error {
	c.mu.Lock()
	c.state = Connecting
	c.gen++
	gen := c.gen
	target := c.URL(c.token)
	c.mu.Unlock()

	conn, err := c.opts.Dialer.Dial(ctx, target)

	c.mu.Lock()
	if c.closing || c.gen != gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		c.state = Closed
		c.mu.Unlock()
		c.opts.Logger.Error("WebSocket connect failed", "path", c.path, "error", err)
		if retrying {
			c.scheduleReconnect()
		}
		return fmt.Errorf("connect %s: %w", c.path, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c.state = Open
	c.attempts = 0
	c.conn = conn
	c.cancelRead = cancel
	c.connID = uuid.NewString()
	id := c.connID
	c.mu.Unlock()

	c.opts.Logger.Info("WebSocket connected", "path", c.path, "conn", id)
	go c.readLoop(readCtx, conn, gen)
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn Conn, gen uint64) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.lost(gen, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.opts.Logger.Error("Failed to parse WebSocket message", "path", c.path, "error", err)
		return
	}
	c.emit(frame.Type, frame.Data)
}

// emit calls handlers outside the lock so they may use the client.
func (c *Client) emit(eventType string, data json.RawMessage) {
	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[eventType]...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}

func (c *Client) lost(gen uint64, err error) {
	c.mu.Lock()
	if c.gen != gen || c.closing {
		c.mu.Unlock()
		return
	}
	c.state = Closed
	c.conn = nil
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	id := c.connID
	c.mu.Unlock()

	c.opts.Logger.Warn("WebSocket disconnected", "path", c.path, "conn", id, "error", err)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.opts.MaxAttempts {
		attempts := c.attempts
		callbacks := append([]func(int){}, c.giveUp...)
		c.mu.Unlock()

		c.opts.Logger.Error("Max reconnection attempts reached", "path", c.path, "attempts", attempts)
		for _, fn := range callbacks {
			fn(attempts)
		}
		return
	}
	c.attempts++
	attempt := c.attempts
	delay := backoffDelay(c.opts.BackoffBase, attempt)
	c.retry = c.opts.Scheduler.AfterFunc(delay, c.reconnect)
	c.mu.Unlock()

	c.opts.Logger.Info("Reconnecting", "path", c.path, "attempt", attempt, "delay", delay)
}

// backoffDelay returns base * 2^attempt, saturating at the largest Duration.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for range attempt {
		if d > math.MaxInt64/2 {
			return math.MaxInt64
		}
		d *= 2
	}
	return d
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.closing || c.state == Open || c.state == Connecting {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	_ = c.dial(ctx, true)
}

// Send transmits payload. In mock mode the payload is echoed back as an
// echo event with a timestamp after EchoDelay. In live mode payload is
// written as JSON if the channel is open; otherwise ErrNotOpen is returned.
func (c *Client) Send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	if c.opts.Mock {
		echo, err := echoData(data, c.opts.Now())
		if err != nil {
			return fmt.Errorf("build echo: %w", err)
		}
		c.mu.Lock()
		c.scheduleLocked(c.opts.EchoDelay, func() {
			c.emit(EventEcho, echo)
		})
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	open := c.state == Open && conn != nil
	c.mu.Unlock()

	if !open {
		c.opts.Logger.Warn("WebSocket is not connected", "path", c.path)
		return ErrNotOpen
	}
	if err := conn.Write(ctx, data); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Disconnect closes the channel and cancels pending synthetic events and any
// scheduled reconnect. It never triggers a reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	c.gen++
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	conn := c.conn
	c.conn = nil
	wasActive := c.state != Idle && c.state != Closed
	c.state = Closed
	id := c.connID
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if wasActive {
		c.opts.Logger.Info("WebSocket closed", "path", c.path, "conn", id)
	}
}
