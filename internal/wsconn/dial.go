package wsconn

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// nhooyrConn adapts *websocket.Conn to Conn.
type nhooyrConn struct {
	c *websocket.Conn
}

func (c *nhooyrConn) Read(ctx context.Context) (MessageType, []byte, error) {
	mt, data, err := c.c.Read(ctx)
	if err != nil {
		return 0, nil, err
	}
	if mt == websocket.MessageText {
		return MessageText, data, nil
	}
	return MessageBinary, data, nil
}

func (c *nhooyrConn) Write(ctx context.Context, typ MessageType, data []byte) error {
	mt := websocket.MessageBinary
	if typ == MessageText {
		mt = websocket.MessageText
	}
	return c.c.Write(ctx, mt, data)
}

func (c *nhooyrConn) Close(code StatusCode, reason string) error {
	return c.c.Close(websocket.StatusCode(code), reason)
}

// CloseStatus extracts the WebSocket close status code from an error
// returned by Conn.Read or Conn.Write, mirroring websocket.CloseStatus. ok
// is false for errors that aren't a clean or unclean close frame (e.g. a
// network timeout or context cancellation), in which case the caller should
// treat the close as abnormal (StatusAbnormalClosure).
func CloseStatus(err error) (code StatusCode, ok bool) {
	sc := websocket.CloseStatus(err)
	if sc == -1 {
		return 0, false
	}
	return StatusCode(sc), true
}

// Dial opens a WebSocket connection to rawurl (scheme ws:// or wss://) and
// returns it wrapped as a Conn. The caller is expected to have already
// validated the URL scheme (internal/session does this before calling
// Dial, per the single-owner-transport invariant).
func Dial(ctx context.Context, rawurl string) (Conn, error) {
	opts := &websocket.DialOptions{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	conn, _, err := websocket.Dial(ctx, rawurl, opts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(-1)
	return &nhooyrConn{c: conn}, nil
}
