// Package probe offers a lightweight reachability check: open a WebSocket
// handshake and immediately close it, without running the RFB protocol at
// all. It is a direct generalization of a dial-and-measure helper — useful
// for a CLI preflight check or for periodically recording dial latency
// without holding a live session open.
package probe

import (
	"context"
	"time"

	"rfbws/internal/wsconn"
)

// dial is swapped out in tests to avoid touching a real socket.
var dial = wsconn.Dial

// Endpoint dials rawurl, measures how long the WebSocket handshake took,
// and closes the connection with a normal close code.
func Endpoint(ctx context.Context, rawurl string) (time.Duration, error) {
	start := time.Now()
	conn, err := dial(ctx, rawurl)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	_ = conn.Close(wsconn.StatusNormalClosure, "probe")
	return elapsed, nil
}
