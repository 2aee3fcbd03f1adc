// Package session implements the single-owner connection controller: it
// dials a transport, drives the protocol state machine to Connected,
// applies the reconnect-on-drop policy, and republishes the resulting
// events to subscribers. It is the only package that is allowed to touch
// internal/wsconn directly once a connection exists; everything else goes
// through the operations below.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"rfbws/internal/codec"
	"rfbws/internal/eventbus"
	"rfbws/internal/protocol"
	"rfbws/internal/telemetry"
	"rfbws/internal/wsconn"
)

const writeTimeout = 5 * time.Second

// DialFunc opens a transport to rawurl. Production code uses wsconn.Dial;
// tests substitute a fake.
type DialFunc func(ctx context.Context, rawurl string) (wsconn.Conn, error)

// Controller is the client-side session: one Controller maps to one logical
// connection (including its reconnect attempts) to a single RFB endpoint.
// The zero value is not usable; construct one with New.
type Controller struct {
	opts Options
	dial DialFunc
	bus  *eventbus.Bus

	mu         sync.Mutex
	state      State
	lastErr    string
	conn       wsconn.Conn
	width      uint16
	height     uint16
	serverName string
	attempt    int
	cancel     context.CancelFunc

	// graceTimer is the pending deferred teardown armed by Teardown; a
	// Connect within the grace window stops it and keeps the live session.
	graceTimer *time.Timer
}

// New returns a Controller for the given options, dialing over a real
// WebSocket via wsconn.Dial.
func New(opts Options) *Controller {
	return NewWithDialer(opts, wsconn.Dial)
}

// NewWithDialer is New with an injectable DialFunc, for tests.
func NewWithDialer(opts Options, dial DialFunc) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		opts:  opts,
		dial:  dial,
		bus:   eventbus.New(opts.Debug),
		state: StateIdle,
	}
}

// Subscribe registers an observer for session events, in emission order.
func (c *Controller) Subscribe() (int, <-chan eventbus.Event) { return c.bus.Subscribe() }

// Unsubscribe removes an observer registered with Subscribe.
func (c *Controller) Unsubscribe(id int) { c.bus.Unsubscribe(id) }

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError reports the message of the most recent error, cleared on the
// next Connecting transition.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

// Geometry reports the server's screen size, as negotiated in ServerInit.
// Zero before the first successful Connect.
func (c *Controller) Geometry() (width, height uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// ServerName reports the name the server sent in ServerInit. Empty before
// the first successful Connect.
func (c *Controller) ServerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverName
}

// Connect validates the endpoint, opens a transport, and drives the
// handshake to Connected (or a terminal failure) within opts.ConnectTimeout.
// It returns ErrAlreadyActive if called while Connecting or Connected. Once
// Connect succeeds, the controller continues to own the connection in the
// background and applies the reconnect policy on transport drop; the
// caller observes subsequent lifecycle changes via Subscribe, not via
// Connect's return value.
func (c *Controller) Connect(ctx context.Context) error {
	u, err := url.Parse(c.opts.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return ErrInvalidEndpoint
	}

	c.mu.Lock()
	// A remount inside the grace window: stop the pending teardown and keep
	// the live session instead of redialing.
	if t := c.graceTimer; t != nil {
		c.graceTimer = nil
		if t.Stop() && c.state == StateConnected {
			c.mu.Unlock()
			return nil
		}
	}
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	// A previous connection that ended in a terminal drop may have left its
	// transport and context behind; exactly one transport may be live.
	residualCancel := c.cancel
	residualConn := c.conn
	c.cancel = nil
	c.conn = nil
	c.lastErr = ""
	c.state = StateConnecting
	c.mu.Unlock()
	if residualCancel != nil {
		residualCancel()
	}
	if residualConn != nil {
		_ = residualConn.Close(wsconn.StatusNormalClosure, "superseded")
	}
	c.bus.Publish(eventbus.Connecting())
	telemetry.ObserveConnectAttempt(c.opts.Endpoint)

	sessionCtx, cancel := context.WithCancel(context.Background())

	connectCtx, cancelConnect := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancelConnect()

	conn, err := c.dial(connectCtx, c.opts.Endpoint)
	if err != nil {
		cancel()
		c.reportTerminal(err, connectCtx)
		return wrapConnectErr(err, connectCtx)
	}

	m, err := c.handshake(connectCtx, conn)
	if err != nil {
		_ = conn.Close(wsconn.StatusProtocolError, "handshake failed")
		cancel()
		c.reportTerminal(err, connectCtx)
		return wrapConnectErr(err, connectCtx)
	}

	c.mu.Lock()
	c.conn = conn
	c.attempt = 0
	c.cancel = cancel
	c.width, c.height = m.Geometry()
	c.serverName = m.ServerName()
	c.state = StateConnected
	c.mu.Unlock()
	telemetry.SetConnected(c.opts.Endpoint, true)

	go c.serve(sessionCtx, conn, m)
	return nil
}

func wrapConnectErr(err error, ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	return fmt.Errorf("session: connect failed: %w", err)
}

func (c *Controller) reportTerminal(err error, ctx context.Context) {
	msg := err.Error()
	if ctx.Err() == context.DeadlineExceeded {
		msg = ErrTimeout.Error()
	}
	c.setError(msg)
	c.bus.Publish(eventbus.Error(msg))
	c.setState(StateDisconnected)
	telemetry.ObserveHandshakeFailure(c.opts.Endpoint, failureReason(err, ctx))
	telemetry.SetConnected(c.opts.Endpoint, false)
}

// failureReason buckets a terminal handshake error into a short label for
// the handshake-failures counter.
func failureReason(err error, ctx context.Context) string {
	if ctx != nil && ctx.Err() == context.DeadlineExceeded {
		return "timeout"
	}
	var protoErr protocol.ProtocolError
	var authErr protocol.AuthFailedError
	var reqErr protocol.AuthRequiredError
	switch {
	case errors.As(err, &protoErr):
		return "protocol"
	case errors.As(err, &authErr), errors.As(err, &reqErr):
		return "auth"
	default:
		return "other"
	}
}

// handshake drives m with conn's inbound bytes, writing every outbound
// record m produces, until m reaches protocol.Connected or a terminal
// error occurs. Events are published before the outbound records of the
// same Feed are written, so the Connected event is observable before the
// initial framebuffer-update-request leaves the client.
func (c *Controller) handshake(ctx context.Context, conn wsconn.Conn) (*protocol.Machine, error) {
	m := protocol.New(c.opts.Password)
	for m.Phase() != protocol.Connected {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		telemetry.ObserveBytes(c.opts.Endpoint, "in", len(data))
		out, evs, err := m.Feed(data)
		if c.opts.Debug {
			log.Printf("[session] %d bytes in, phase %s", len(data), m.Phase())
		}
		for _, ev := range evs {
			c.bus.Publish(ev)
		}
		for _, rec := range out {
			if werr := conn.Write(ctx, wsconn.MessageBinary, rec); werr != nil {
				return nil, werr
			}
			telemetry.ObserveBytes(c.opts.Endpoint, "out", len(rec))
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// serve owns conn for the lifetime of one established connection: it reads
// Connected-phase messages, feeds them to m, writes whatever outbound bytes
// fall out, and republishes events. It returns when the transport drops or
// a ProtocolError terminates the stream, having already applied the
// reconnect policy.
func (c *Controller) serve(ctx context.Context, conn wsconn.Conn, m *protocol.Machine) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.onDrop(ctx, err)
			return
		}
		telemetry.ObserveBytes(c.opts.Endpoint, "in", len(data))
		out, evs, ferr := m.Feed(data)
		for _, ev := range evs {
			c.bus.Publish(ev)
		}
		for _, rec := range out {
			_ = conn.Write(ctx, wsconn.MessageBinary, rec)
			telemetry.ObserveBytes(c.opts.Endpoint, "out", len(rec))
		}
		if ferr != nil {
			log.Printf("[session] protocol error, closing: %v", ferr)
			_ = conn.Close(wsconn.StatusProtocolError, ferr.Error())
			c.setError(ferr.Error())
			c.bus.Publish(eventbus.Error(ferr.Error()))
			c.setState(StateDisconnected)
			c.bus.Publish(eventbus.Disconnected())
			telemetry.SetConnected(c.opts.Endpoint, false)
			return
		}
	}
}

func (c *Controller) onDrop(ctx context.Context, readErr error) {
	telemetry.SetConnected(c.opts.Endpoint, false)
	if ctx.Err() != nil {
		// Disconnect() already tore this down; nothing more to do.
		c.setState(StateDisconnected)
		return
	}
	code, ok := wsconn.CloseStatus(readErr)
	// A normal closure (1000) is not an error; everything else is surfaced
	// with the stable message for its code.
	if !ok || code != wsconn.StatusNormalClosure {
		msg := closeCodeMessage(code, ok, "")
		c.setError(msg)
		c.bus.Publish(eventbus.Error(msg))
	}
	c.bus.Publish(eventbus.Disconnected())

	switch classifyClose(code, ok, true) {
	case dispositionRetry:
		c.setState(StateReconnecting)
		go c.reconnectLoop(ctx)
	default:
		c.setState(StateDisconnected)
	}
}

// reconnectLoop implements the backoff-bounded redial after an abnormal
// drop. It gives up (transitioning to Disconnected) once
// opts.MaxReconnectAttempts is exceeded, the session context is cancelled,
// or the handshake itself fails terminally (ProtocolError/AuthFailedError/
// AuthRequiredError never warrant another attempt).
func (c *Controller) reconnectLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}
		c.mu.Lock()
		if c.attempt >= c.opts.MaxReconnectAttempts {
			attempts := c.attempt
			c.mu.Unlock()
			log.Printf("[session] giving up after %d reconnect attempts", attempts)
			c.setState(StateDisconnected)
			return
		}
		c.attempt++
		attempt := c.attempt
		c.mu.Unlock()

		select {
		case <-time.After(reconnectDelayFn(attempt)):
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		}

		c.setState(StateConnecting)
		c.bus.Publish(eventbus.Connecting())
		telemetry.ObserveReconnectAttempt(c.opts.Endpoint)

		dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
		conn, err := c.dial(dialCtx, c.opts.Endpoint)
		if err == nil {
			var m *protocol.Machine
			m, err = c.handshake(dialCtx, conn)
			if err == nil {
				cancel()
				c.mu.Lock()
				c.conn = conn
				c.attempt = 0
				c.width, c.height = m.Geometry()
				c.serverName = m.ServerName()
				c.mu.Unlock()
				c.setState(StateConnected)
				telemetry.SetConnected(c.opts.Endpoint, true)
				go c.serve(ctx, conn, m)
				return
			}
			_ = conn.Close(wsconn.StatusProtocolError, "handshake failed")
		}
		cancel()

		c.setError(err.Error())
		c.bus.Publish(eventbus.Error(err.Error()))
		telemetry.ObserveHandshakeFailure(c.opts.Endpoint, failureReason(err, nil))

		var protoErr protocol.ProtocolError
		var authErr protocol.AuthFailedError
		var reqErr protocol.AuthRequiredError
		if errors.As(err, &protoErr) || errors.As(err, &authErr) || errors.As(err, &reqErr) {
			c.setState(StateDisconnected)
			return
		}
		// Anything else (dial failure, transport drop mid-handshake): loop
		// around and try again, same as a fresh abnormal-close retry.
	}
}

// Teardown requests a Disconnect but defers it by opts.GracePeriod, so a
// caller that destroys and immediately re-creates its view of the session
// (a remount) can call Connect inside the window and keep the live
// connection instead of redialing. Calling Teardown with a teardown
// already pending does nothing; an explicit Disconnect is immediate and
// cancels the pending timer.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graceTimer != nil {
		return
	}
	c.graceTimer = time.AfterFunc(c.opts.GracePeriod, func() {
		c.mu.Lock()
		c.graceTimer = nil
		c.mu.Unlock()
		_ = c.Disconnect()
	})
}

// Disconnect is idempotent: it cancels the session context (which stops any
// in-flight reconnect loop), stops any pending Teardown timer, closes the
// transport with a normal close code, and transitions to Disconnected
// without publishing Error. A subsequent Connect starts from a zeroed
// reconnect counter.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.attempt = 0
	already := c.state == StateIdle || c.state == StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if already {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(wsconn.StatusNormalClosure, "client disconnect")
	}
	c.bus.Publish(eventbus.Disconnected())
	return nil
}

func (c *Controller) activeConn() (wsconn.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *Controller) write(rec []byte) error {
	conn, err := c.activeConn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, wsconn.MessageBinary, rec)
}

// SendKeyEvent maps key (a DOM/browser KeyboardEvent.key value) to an X11
// keysym and sends a KeyEvent. Unmapped keys are silently dropped, matching
// codec.MapKeysym's contract. Nothing is sent unless Connected and not
// view-only; those cases return ErrNotConnected and ErrViewOnly.
func (c *Controller) SendKeyEvent(key string, down bool) error {
	if c.opts.ViewOnly {
		return ErrViewOnly
	}
	keysym := codec.MapKeysym(key)
	if keysym == 0 {
		return nil
	}
	return c.write(codec.WriteKeyEvent(down, keysym))
}

// SendPointerEvent divides x,y by opts.Scale, clamps to the server's
// screen geometry, and sends a PointerEvent. Dropped unless Connected and
// not view-only.
func (c *Controller) SendPointerEvent(x, y float64, buttonMask uint8) error {
	if c.opts.ViewOnly {
		return ErrViewOnly
	}
	c.mu.Lock()
	w, h := c.width, c.height
	c.mu.Unlock()

	// Coordinates are clamped into the framebuffer, whose largest valid
	// coordinate is size-1.
	scaled := func(v float64, size uint16) uint16 {
		n := v / c.opts.Scale
		if n < 0 || size == 0 {
			return 0
		}
		if n >= float64(size) {
			return size - 1
		}
		return uint16(n)
	}
	return c.write(codec.WritePointerEvent(buttonMask, scaled(x, w), scaled(y, h)))
}

// SendClientCutText sends text as an outbound clipboard update. Dropped
// unless Connected and not view-only.
func (c *Controller) SendClientCutText(text []byte) error {
	if c.opts.ViewOnly {
		return ErrViewOnly
	}
	return c.write(codec.WriteClientCutText(text))
}

// RequestFramebufferUpdate requests the full screen rectangle. Dropped
// unless Connected (permitted even when view-only, since it requests
// output rather than submitting input).
func (c *Controller) RequestFramebufferUpdate(incremental bool) error {
	c.mu.Lock()
	w, h := c.width, c.height
	c.mu.Unlock()
	return c.write(codec.WriteFramebufferUpdateRequest(incremental, 0, 0, w, h))
}
