package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	defaultHandshakeTimeout      = 10 * time.Second
	defaultSendBuffer            = 64
	defaultReconnectInitialDelay = 2 * time.Second
	defaultReconnectMaxDelay     = 1 * time.Minute
)

// ConnState tracks the shared connection lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// TokenSource supplies the persisted credential. An empty token means
// "logged out" and keeps the channel from opening. session.Store satisfies
// this.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config tunes the channel. Zero values fall back to defaults, except
// RejoinOnReconnect which the caller decides explicitly.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://host/ws. The credential is
	// appended as a token query parameter.
	URL string

	// RejoinOnReconnect replays a join for every registered room after the
	// transport redials, so listeners that survived the drop keep
	// receiving events without re-subscribing.
	RejoinOnReconnect bool

	HandshakeTimeout      time.Duration
	SendBuffer            int
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
}

type subscription struct {
	room    Room
	fn      func(StatusUpdate)
	removed atomic.Bool
}

// Channel is the process-wide owner of the duplex connection. All room
// subscriptions multiplex over it; no component opens a second one.
//
// Outbound sends are buffered, so Subscribe works before the transport is
// up: the join goes out once the connection is established.
type Channel struct {
	cfg    Config
	tokens TokenSource
	log    *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	state   ConnState
	conn    *websocket.Conn
	closed  bool
	started bool

	done     chan struct{}
	outbound chan Envelope

	subMu sync.RWMutex
	subs  map[string][]*subscription
}

func New(cfg Config, tokens TokenSource, log *slog.Logger) *Channel {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.ReconnectInitialDelay <= 0 {
		cfg.ReconnectInitialDelay = defaultReconnectInitialDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = defaultReconnectMaxDelay
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Channel{
		cfg:      cfg,
		tokens:   tokens,
		log:      log,
		done:     make(chan struct{}),
		outbound: make(chan Envelope, cfg.SendBuffer),
		subs:     make(map[string][]*subscription),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the transport. It is idempotent: while connecting or
// connected it does nothing. With no persisted credential it is a silent
// no-op: the guard, not this component, decides when connecting is
// appropriate.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.setState(StateDisconnected, nil)
		return fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		c.setState(StateDisconnected, nil)
		return nil
	}

	conn, err := c.dial(ctx, token)
	if err != nil {
		c.setState(StateDisconnected, nil)
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrChannelClosed
	}
	c.conn = conn
	c.state = StateConnected
	start := !c.started
	c.started = true
	c.cond.Broadcast()
	c.mu.Unlock()

	if start {
		go c.writePump()
	}
	go c.run(conn)
	return nil
}

// Disconnect tears the channel down for good. Safe to call from any number
// of call sites; only the first has an effect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	close(c.done)
	c.cond.Broadcast()
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		conn.Close()
	}
}

// Subscribe registers fn for the room's status events. The connection is
// shared by every subscriber, so server-side membership is reference
// counted: the join emission goes out only for the room's first local
// listener. It returns an unsubscribe handle that synchronously removes the
// listener; the handle is safe to call more than once.
func (c *Channel) Subscribe(room Room, fn func(StatusUpdate)) (func(), error) {
	if room.ID == "" {
		return nil, ErrEmptyRoom
	}
	sub := &subscription{room: room, fn: fn}
	key := room.Key()

	c.subMu.Lock()
	first := len(c.subs[key]) == 0
	c.subs[key] = append(c.subs[key], sub)
	c.subMu.Unlock()

	if first && !c.send(joinEnvelope(room)) {
		// The join never left the process; a registered listener would
		// just wait on a subscription that does not exist server-side.
		c.removeListener(sub)
		return nil, ErrSendBufferFull
	}
	return func() { c.unsubscribe(sub) }, nil
}

// unsubscribe deregisters the listener first, then fires the leave, and only
// when no other local listener still needs the room: the last one out turns
// off the light. The leave is fire-and-forget: removal never waits on the
// server, and a room with no leave handler server-side just ignores it.
func (c *Channel) unsubscribe(sub *subscription) {
	last, ok := c.removeListener(sub)
	if !ok {
		return
	}
	if last && !c.send(leaveEnvelope(sub.room)) {
		c.log.Warn("leave not sent, outbound buffer full", "room", sub.room.Key())
	}
}

// removeListener takes the subscription out of the registry. last reports
// whether it was the room's final local listener, ok whether this call was
// the one that removed it.
func (c *Channel) removeListener(sub *subscription) (last, ok bool) {
	if !sub.removed.CompareAndSwap(false, true) {
		return false, false
	}
	key := sub.room.Key()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	subs := c.subs[key]
	for i, s := range subs {
		if s == sub {
			c.subs[key] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.subs[key]) == 0 {
		delete(c.subs, key)
		return true, true
	}
	return false, true
}

// send queues an envelope without blocking and reports whether it was
// accepted. Sends issued before the transport is up sit in the buffer until
// the write pump drains them.
func (c *Channel) send(env Envelope) bool {
	select {
	case <-c.done:
		// Tearing down; nothing left to tell the server.
		return true
	default:
	}
	select {
	case c.outbound <- env:
		return true
	default:
		return false
	}
}

func (c *Channel) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// run reads from the current connection and, when the transport drops,
// redials until it is back or the channel is torn down. Registered listeners
// survive the drop.
func (c *Channel) run(conn *websocket.Conn) {
	for {
		err := c.readLoop(conn)
		if c.isClosed() {
			return
		}
		c.log.Warn("realtime connection lost", "error", err)
		c.setState(StateConnecting, nil)

		next, ok := c.redial()
		if !ok {
			return
		}
		conn = next
		c.log.Info("realtime reconnected")
		if c.cfg.RejoinOnReconnect {
			c.replayJoins()
		}
	}
}

func (c *Channel) redial() (*websocket.Conn, bool) {
	backoff := c.cfg.ReconnectInitialDelay
	for {
		select {
		case <-c.done:
			return nil, false
		case <-time.After(backoff):
		}

		token, err := c.tokens.Token(context.Background())
		if err == nil && token == "" {
			// Signed out while the transport was down; stay down.
			c.setState(StateDisconnected, nil)
			return nil, false
		}
		if err == nil {
			var conn *websocket.Conn
			if conn, err = c.dial(context.Background(), token); err == nil {
				c.mu.Lock()
				if c.closed {
					c.mu.Unlock()
					conn.Close()
					return nil, false
				}
				c.conn = conn
				c.state = StateConnected
				c.cond.Broadcast()
				c.mu.Unlock()
				return conn, true
			}
		}
		c.log.Warn("realtime reconnect failed", "error", err, "retry_in", backoff.String())
		backoff = nextBackoff(backoff, c.cfg.ReconnectMaxDelay)
	}
}

// replayJoins re-issues a join for every room that still has listeners.
func (c *Channel) replayJoins() {
	c.subMu.RLock()
	rooms := make([]Room, 0, len(c.subs))
	for _, subs := range c.subs {
		if len(subs) > 0 {
			rooms = append(rooms, subs[0].room)
		}
	}
	c.subMu.RUnlock()

	for _, room := range rooms {
		c.send(joinEnvelope(room))
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Debug("undecodable frame dropped", "error", err)
			continue
		}
		if env.Event != EventSolutionStatusUpdated {
			c.log.Debug("unhandled event", "event", env.Event)
			continue
		}
		c.dispatch(env.Data)
	}
}

// dispatch routes one status payload to the listeners of the entity it
// names, and only those. Events for entity A never reach a listener for
// entity B even though both share the event name. Payloads without an
// entity id are dropped.
func (c *Channel) dispatch(data json.RawMessage) {
	var upd StatusUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		c.log.Debug("undecodable status payload dropped", "error", err)
		return
	}
	upd.Raw = data

	rooms := upd.Rooms()
	if len(rooms) == 0 {
		c.log.Debug("status payload without entity id dropped")
		return
	}

	var targets []*subscription
	c.subMu.RLock()
	for _, room := range rooms {
		targets = append(targets, c.subs[room.Key()]...)
	}
	c.subMu.RUnlock()

	for _, sub := range targets {
		// A listener torn down between snapshot and invoke stays silent.
		if sub.removed.Load() {
			continue
		}
		sub.fn(upd)
	}
}

// writePump is the single writer on the connection. It drains the outbound
// buffer whenever a connection is up and parks while one is not.
func (c *Channel) writePump() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.outbound:
			conn := c.waitConnected()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				c.log.Warn("realtime send failed", "event", env.Event, "error", err)
			}
		}
	}
}

func (c *Channel) waitConnected() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.closed && (c.state != StateConnected || c.conn == nil) {
		c.cond.Wait()
	}
	if c.closed {
		return nil
	}
	return c.conn
}

func (c *Channel) setState(state ConnState, conn *websocket.Conn) {
	c.mu.Lock()
	c.state = state
	c.conn = conn
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
