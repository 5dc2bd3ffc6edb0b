package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pitchconnect/livesync/internal/telemetry"
)

// ConnState is the externally visible connection state. A transient
// drop is NOT visible here: the channel keeps reporting connected while
// it reconnects internally, and only reports disconnected once the
// backoff attempts are exhausted.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

const pingWait = 30 * time.Second

// Handler receives frames for one subscribed topic. Handlers run on the
// channel's read goroutine and must not block.
type Handler func(Frame)

// ErrClosed is returned for operations on a torn-down channel.
var ErrClosed = errors.New("transport: channel closed")

// ErrNotConnected is returned by Send when no socket is up.
var ErrNotConnected = errors.New("transport: not connected")

// Options tune the reconnect policy.
type Options struct {
	BackoffBase time.Duration // delay before attempt 1; doubles per attempt
	BackoffMax  time.Duration
	MaxAttempts int // per outage, before reporting disconnected
}

func (o *Options) withDefaults() Options {
	out := Options{BackoffBase: time.Second, BackoffMax: 30 * time.Second, MaxAttempts: 5}
	if o == nil {
		return out
	}
	if o.BackoffBase > 0 {
		out.BackoffBase = o.BackoffBase
	}
	if o.BackoffMax > 0 {
		out.BackoffMax = o.BackoffMax
	}
	if o.MaxAttempts > 0 {
		out.MaxAttempts = o.MaxAttempts
	}
	return out
}

// Channel is a single shared WebSocket connection multiplexing many
// match topics. Every engine in the process shares one Channel —
// many visible matches must not each open a socket.
//
// Gorilla/websocket allows one concurrent writer, so all writes are
// serialized through wmu.
type Channel struct {
	url  string
	opts Options

	mu       sync.Mutex
	conn     *websocket.Conn
	gen      int // connection generation; stale readLoop exits are ignored
	attempt  *connectAttempt
	subs     map[string]map[int]Handler
	nextSub  int
	state    ConnState
	stateFns []func(ConnState)
	closed   bool

	wmu sync.Mutex
}

type connectAttempt struct {
	done chan struct{}
	err  error
}

// NewChannel constructs a channel for the given stream URL. It does not
// connect; call Connect.
func NewChannel(url string, opts *Options) *Channel {
	return &Channel{
		url:   url,
		opts:  opts.withDefaults(),
		subs:  make(map[string]map[int]Handler),
		state: StateDisconnected,
	}
}

// State returns the externally visible connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a callback invoked on every externally
// visible state transition. Callbacks run on the channel's goroutines
// and must not block.
func (c *Channel) OnStateChange(fn func(ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFns = append(c.stateFns, fn)
}

// Connect is idempotent: if the socket is already open it returns
// immediately, and if a connect attempt is in flight the caller waits
// on that same attempt — two sockets are never dialed concurrently.
// It fails only after the backoff attempts are exhausted.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	if c.attempt != nil {
		att := c.attempt
		c.mu.Unlock()
		return att.wait(ctx)
	}

	att := &connectAttempt{done: make(chan struct{})}
	c.attempt = att
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.runAttempt(att, false)
	return att.wait(ctx)
}

func (a *connectAttempt) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		// The attempt keeps running for other callers.
		return ctx.Err()
	case <-a.done:
		return a.err
	}
}

// runAttempt dials with exponential backoff until success or the
// attempt budget runs out. On a reconnect the external state stays
// connected until the budget is exhausted.
func (c *Channel) runAttempt(att *connectAttempt, reconnect bool) {
	backoff := c.opts.BackoffBase
	var lastErr error

	for i := 1; i <= c.opts.MaxAttempts; i++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			att.err = ErrClosed
			close(att.done)
			return
		}
		c.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err == nil {
			c.adoptConn(conn, reconnect)
			close(att.done)
			return
		}
		lastErr = err

		if i < c.opts.MaxAttempts {
			telemetry.Warnf("transport: dial %s failed (attempt %d/%d): %v — retrying in %s",
				c.url, i, c.opts.MaxAttempts, err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > c.opts.BackoffMax {
				backoff = c.opts.BackoffMax
			}
		}
	}

	c.mu.Lock()
	c.attempt = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	telemetry.Errorf("transport: giving up on %s after %d attempts: %v", c.url, c.opts.MaxAttempts, lastErr)
	att.err = lastErr
	close(att.done)
}

// adoptConn installs a freshly dialed socket, replays subscriptions and
// starts the read loop.
func (c *Channel) adoptConn(conn *websocket.Conn, reconnect bool) {
	c.mu.Lock()
	c.conn = conn
	c.gen++
	gen := c.gen
	c.attempt = nil
	topics := make([]string, 0, len(c.subs))
	for t := range c.subs {
		topics = append(topics, t)
	}
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	if reconnect {
		telemetry.Metrics.Reconnects.Inc()
		telemetry.Infof("transport: reconnected to %s", c.url)
	} else {
		telemetry.Infof("transport: connected to %s", c.url)
	}

	// Handler registrations survived the drop; re-announce every topic.
	for _, t := range topics {
		if err := c.writeFrame(Frame{Type: FrameSubscribe, MatchID: t, Timestamp: time.Now()}); err != nil {
			telemetry.Warnf("transport: resubscribe %s: %v", t, err)
		}
	}

	go c.readLoop(conn, gen)
}

func (c *Channel) readLoop(conn *websocket.Conn, gen int) {
	conn.SetReadDeadline(time.Now().Add(pingWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pingWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.onReadExit(conn, gen, err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(pingWait))

		frame, err := ParseFrame(msg)
		if err != nil {
			telemetry.Metrics.MalformedFrames.Inc()
			telemetry.Warnf("transport: dropping malformed frame: %v", err)
			continue
		}
		c.dispatch(frame)
	}
}

// onReadExit handles a socket drop. Teardown is final; a transient drop
// starts an internal reconnect attempt without flipping the external
// state away from connected.
func (c *Channel) onReadExit(conn *websocket.Conn, gen int, err error) {
	conn.Close()

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.attempt != nil {
		c.mu.Unlock()
		return
	}
	att := &connectAttempt{done: make(chan struct{})}
	c.attempt = att
	c.mu.Unlock()

	telemetry.Warnf("transport: connection lost: %v — reconnecting", err)
	go c.runAttempt(att, true)
}

func (c *Channel) dispatch(frame Frame) {
	switch frame.Type {
	case FrameSubscribe, FrameUnsubscribe:
		return // upstream control acks, nothing to route
	}

	c.mu.Lock()
	set := c.subs[frame.MatchID]
	handlers := make([]Handler, 0, len(set))
	for _, h := range set {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	if len(handlers) == 0 {
		// Frame for a topic nobody asked for: silently dropped.
		telemetry.Metrics.FramesUnrouted.Inc()
		return
	}
	telemetry.Metrics.FramesDispatched.Inc()
	for _, h := range handlers {
		h(frame)
	}
}

// Subscribe registers a handler for a topic and returns its unsubscribe
// function. The first handler for a topic sends one upstream subscribe
// frame; concurrent subscribers for the same topic never duplicate it.
func (c *Channel) Subscribe(topic string, h Handler) (func(), error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := c.subs[topic]
	if !ok {
		set = make(map[int]Handler)
		c.subs[topic] = set
	}
	first := len(set) == 0
	id := c.nextSub
	c.nextSub++
	set[id] = h
	connected := c.conn != nil
	c.mu.Unlock()

	if first && connected {
		if err := c.writeFrame(Frame{Type: FrameSubscribe, MatchID: topic, Timestamp: time.Now()}); err != nil {
			telemetry.Warnf("transport: subscribe %s: %v", topic, err)
		}
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() { c.unsubscribe(topic, id) })
	}
	return unsub, nil
}

func (c *Channel) unsubscribe(topic string, id int) {
	c.mu.Lock()
	set := c.subs[topic]
	delete(set, id)
	last := len(set) == 0
	if last {
		delete(c.subs, topic)
	}
	connected := c.conn != nil && !c.closed
	c.mu.Unlock()

	if last && connected {
		if err := c.writeFrame(Frame{Type: FrameUnsubscribe, MatchID: topic, Timestamp: time.Now()}); err != nil {
			telemetry.Warnf("transport: unsubscribe %s: %v", topic, err)
		}
	}
}

// Send pushes a frame upstream, e.g. a locally recorded match event.
func (c *Channel) Send(frame Frame) error {
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}
	return c.writeFrame(frame)
}

func (c *Channel) writeFrame(frame Frame) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(frame)
}

// Disconnect tears the channel down for good: closes the socket and
// clears all handler registrations. Transient drops never come through
// here — those are handled by the internal reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.subs = make(map[string]map[int]Handler)
	c.setStateLocked(StateDisconnected)
	c.stateFns = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// setStateLocked updates state and fires callbacks. Caller holds mu;
// callbacks are invoked without the lock.
func (c *Channel) setStateLocked(s ConnState) {
	if c.state == s {
		return
	}
	c.state = s
	fns := make([]func(ConnState), len(c.stateFns))
	copy(fns, c.stateFns)
	go func() {
		for _, fn := range fns {
			fn(s)
		}
	}()
}
