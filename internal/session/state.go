package session

// State is the externally visible connection lifecycle, distinct from the
// protocol package's internal handshake Phase.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}
