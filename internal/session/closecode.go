package session

import (
	"fmt"

	"rfbws/internal/wsconn"
)

// closeDisposition says what a closed transport means for reconnection.
type closeDisposition int

const (
	dispositionRetry closeDisposition = iota // schedule a backoff reconnect
	dispositionHalt                          // stop reconnecting permanently
	dispositionStop                          // go to Disconnected, no retry, not a hard failure
)

// classifyClose maps a close code observed after a previously-Connected
// session to what the controller should do next. wasConnected distinguishes
// a close observed mid-handshake (never reconnected automatically; the
// protocol package's own terminal errors already cover that path) from one
// observed after a successful Connected transition.
func classifyClose(code wsconn.StatusCode, haveCode bool, wasConnected bool) closeDisposition {
	if !wasConnected {
		return dispositionStop
	}
	if !haveCode || code == wsconn.StatusAbnormalClosure {
		return dispositionRetry
	}
	switch code {
	case wsconn.StatusProtocolError, wsconn.StatusUnsupportedData:
		return dispositionHalt
	default:
		return dispositionStop
	}
}

// closeCodeMessage renders the stable, user-visible description for a close
// code, independent of what the controller decides to do about it.
func closeCodeMessage(code wsconn.StatusCode, haveCode bool, reason string) string {
	if !haveCode {
		return "connection lost unexpectedly"
	}
	switch code {
	case wsconn.StatusNormalClosure:
		return "closed normally"
	case wsconn.StatusAbnormalClosure:
		return "connection lost unexpectedly"
	case wsconn.StatusProtocolError:
		return "protocol error"
	case wsconn.StatusUnsupportedData:
		return "server rejected connection (invalid data)"
	case wsconn.StatusPolicyViolation:
		return "rejected by policy"
	case wsconn.StatusInternalError:
		return "server internal error"
	default:
		return fmt.Sprintf("closed with code %d: %s", code, reason)
	}
}
