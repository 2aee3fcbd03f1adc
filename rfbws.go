// Package rfbws is the small public surface for embedding this client in a
// larger Go program: the implementation lives under internal/ and may
// change shape freely, while this package re-exports just the types and
// constructors an embedder needs.
package rfbws

import (
	"context"
	"time"

	"rfbws/internal/config"
	"rfbws/internal/eventbus"
	"rfbws/internal/session"
)

// Options configures a Session. Endpoint is the only field without a usable
// zero value; everything else defaults the way internal/session.Options
// does (Scale 1, 10s connect timeout, 3 reconnect attempts, 100ms grace
// period).
type Options struct {
	Endpoint string
	Password string
	ViewOnly bool
	Scale    float64
	Debug    bool

	ConnectTimeout       time.Duration
	MaxReconnectAttempts int
	GracePeriod          time.Duration
}

func (o Options) toInternal() session.Options {
	var pw []byte
	if o.Password != "" {
		pw = []byte(o.Password)
	}
	return session.Options{
		Endpoint:             o.Endpoint,
		Password:             pw,
		ViewOnly:             o.ViewOnly,
		Scale:                o.Scale,
		Debug:                o.Debug,
		ConnectTimeout:       o.ConnectTimeout,
		MaxReconnectAttempts: o.MaxReconnectAttempts,
		GracePeriod:          o.GracePeriod,
	}
}

// FromConfig builds Options from a loaded config.SessionConfig (see
// internal/config), the bridge the CLI uses between a YAML profile entry
// and a runnable Session.
func FromConfig(sc *config.SessionConfig) Options {
	return Options{
		Endpoint:             sc.Endpoint,
		Password:             sc.Password,
		ViewOnly:             sc.ViewOnly,
		Scale:                sc.Scale,
		Debug:                sc.Debug,
		ConnectTimeout:       sc.ConnectTimeout,
		MaxReconnectAttempts: sc.MaxReconnectAttempts,
	}
}

// SessionState is a point-in-time, immutable snapshot of a Session's
// lifecycle state — safe to read after the call returns regardless of what
// the Session does next (see internal/session.Controller, which owns the
// mutable fields this copies out of).
type SessionState struct {
	Connecting bool
	Connected  bool
	Error      string
	ServerName string
	Width      uint16
	Height     uint16
}

// Session is the client-facing handle: one Session maps to one logical RFB
// connection (including its automatic reconnects) to a single endpoint.
type Session struct {
	ctrl *session.Controller
}

// NewSession constructs a Session ready to Connect. It does not dial
// anything until Connect is called.
func NewSession(opts Options) *Session {
	return &Session{ctrl: session.New(opts.toInternal())}
}

// Connect opens the transport and drives the handshake to Connected (or a
// terminal failure) within opts.ConnectTimeout. See
// internal/session.Controller.Connect for the exact contract.
func (s *Session) Connect(ctx context.Context) error { return s.ctrl.Connect(ctx) }

// Disconnect idempotently tears the session down, suppressing any further
// automatic reconnection.
func (s *Session) Disconnect() error { return s.ctrl.Disconnect() }

// Teardown schedules a Disconnect after Options.GracePeriod instead of
// tearing down immediately; a Connect inside the window cancels it and
// keeps the live connection. Intended for callers whose UI layer may
// destroy and re-create its view of the session in quick succession.
func (s *Session) Teardown() { s.ctrl.Teardown() }

// SendKeyEvent forwards a keyboard event, see
// internal/session.Controller.SendKeyEvent.
func (s *Session) SendKeyEvent(key string, down bool) error {
	return s.ctrl.SendKeyEvent(key, down)
}

// SendPointerEvent forwards a pointer event, see
// internal/session.Controller.SendPointerEvent.
func (s *Session) SendPointerEvent(x, y float64, buttonMask uint8) error {
	return s.ctrl.SendPointerEvent(x, y, buttonMask)
}

// SendClientCutText forwards an outbound clipboard update, see
// internal/session.Controller.SendClientCutText.
func (s *Session) SendClientCutText(text []byte) error {
	return s.ctrl.SendClientCutText(text)
}

// RequestFramebufferUpdate requests the full screen rectangle, see
// internal/session.Controller.RequestFramebufferUpdate.
func (s *Session) RequestFramebufferUpdate(incremental bool) error {
	return s.ctrl.RequestFramebufferUpdate(incremental)
}

// Subscribe registers an observer for session events, delivered in emission
// order. Unsubscribe with the returned id when the observer is done.
func (s *Session) Subscribe() (int, <-chan Event) { return s.ctrl.Subscribe() }

// Unsubscribe removes an observer registered with Subscribe.
func (s *Session) Unsubscribe(id int) { s.ctrl.Unsubscribe(id) }

// State returns a snapshot of the session's current lifecycle state.
func (s *Session) State() SessionState {
	st := s.ctrl.State()
	width, height := s.ctrl.Geometry()
	return SessionState{
		Connecting: st == session.StateConnecting || st == session.StateReconnecting,
		Connected:  st == session.StateConnected,
		Error:      s.ctrl.LastError(),
		ServerName: s.ctrl.ServerName(),
		Width:      width,
		Height:     height,
	}
}

// Event and Kind are re-exported from internal/eventbus so an embedder
// never needs to import an internal package directly.
type (
	Event = eventbus.Event
	Kind  = eventbus.Kind
)

// Event kinds, re-exported from internal/eventbus.
const (
	KindConnecting        = eventbus.KindConnecting
	KindConnected         = eventbus.KindConnected
	KindDisconnected      = eventbus.KindDisconnected
	KindError             = eventbus.KindError
	KindFramebufferUpdate = eventbus.KindFramebufferUpdate
	KindServerCutText     = eventbus.KindServerCutText
	KindBell              = eventbus.KindBell
	KindResize            = eventbus.KindResize
)

// Sentinel and typed errors, re-exported from internal/session so an
// embedder can errors.Is/errors.As against them without importing an
// internal package.
var (
	ErrInvalidEndpoint = session.ErrInvalidEndpoint
	ErrAlreadyActive   = session.ErrAlreadyActive
	ErrTimeout         = session.ErrTimeout
	ErrNotConnected    = session.ErrNotConnected
	ErrViewOnly        = session.ErrViewOnly
)

// TransportClosedError reports an abnormal transport close, re-exported
// from internal/session.
type TransportClosedError = session.TransportClosedError
