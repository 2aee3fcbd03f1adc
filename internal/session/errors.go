package session

import (
	"errors"
	"fmt"

	"rfbws/internal/wsconn"
)

// ErrInvalidEndpoint is returned by Connect when endpoint is not a ws:// or
// wss:// URL.
var ErrInvalidEndpoint = errors.New("session: invalid endpoint, must be ws:// or wss://")

// ErrAlreadyActive is returned by Connect when the controller is already
// Connecting or Connected.
var ErrAlreadyActive = errors.New("session: already connecting or connected")

// ErrTimeout is returned by Connect when ConnectTimeout elapses before the
// protocol state machine reaches Connected.
var ErrTimeout = errors.New("session: connect timed out")

// ErrNotConnected is returned by the input operations (SendKeyEvent,
// SendPointerEvent, SendClientCutText, RequestFramebufferUpdate) when the
// session isn't Connected.
var ErrNotConnected = errors.New("session: not connected")

// ErrViewOnly is returned by the input operations when the session was
// configured view-only.
var ErrViewOnly = errors.New("session: session is view-only")

// TransportClosedError reports an abnormal transport close (RFC 6455 close
// code 1006 or the absence of a close frame entirely).
type TransportClosedError struct {
	Code wsconn.StatusCode
}

func (e TransportClosedError) Error() string {
	return fmt.Sprintf("session: transport closed: %s", closeCodeMessage(e.Code, true, ""))
}
