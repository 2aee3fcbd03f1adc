package session

import "time"

// Options configures a Controller. Endpoint is the only field without a
// usable zero value; New fills in the defaults below when the others are
// left unset.
type Options struct {
	Endpoint string
	Password []byte
	ViewOnly bool

	// Scale divides incoming pointer coordinates before they are sent as a
	// PointerEvent, letting a caller render the framebuffer at a different
	// size than the server's own geometry. A Scale of 0 is treated as 1;
	// anything else is clamped into [0.1, 2.0].
	Scale float64

	// Debug enables trace logging of protocol phases and of events dropped
	// by a lagging subscriber.
	Debug bool

	ConnectTimeout       time.Duration
	MaxReconnectAttempts int

	// GracePeriod is how long Teardown defers the actual Disconnect. A
	// Connect arriving inside the window cancels the pending teardown and
	// keeps the live connection, so a caller that unmounts and remounts in
	// quick succession never redials. Disconnect itself is always
	// immediate.
	GracePeriod time.Duration
}

const (
	defaultConnectTimeout       = 10 * time.Second
	defaultMaxReconnectAttempts = 3
	defaultGracePeriod          = 100 * time.Millisecond
)

func (o Options) withDefaults() Options {
	switch {
	case o.Scale == 0:
		o.Scale = 1
	case o.Scale < 0.1:
		o.Scale = 0.1
	case o.Scale > 2.0:
		o.Scale = 2.0
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if o.GracePeriod == 0 {
		o.GracePeriod = defaultGracePeriod
	}
	return o
}
