package session

import (
	"context"
	"sync"

	"rfbws/internal/wsconn"
)

// fakeConn is a scripted wsconn.Conn: the test pushes inbound frames onto
// in and observes outbound writes via out. Closing in (or pushing a
// readErr) simulates the transport dropping.
type fakeConn struct {
	in  chan []byte
	out chan []byte

	mu      sync.Mutex
	readErr error
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 64), out: make(chan []byte, 64)}
}

func (f *fakeConn) push(b []byte) { f.in <- b }

// fail arranges for the next Read past the queued frames to return err.
func (f *fakeConn) fail(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
	close(f.in)
}

func (f *fakeConn) Read(ctx context.Context) (wsconn.MessageType, []byte, error) {
	select {
	case b, ok := <-f.in:
		if !ok {
			f.mu.Lock()
			err := f.readErr
			f.mu.Unlock()
			if err == nil {
				err = context.Canceled
			}
			return 0, nil, err
		}
		return wsconn.MessageBinary, b, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeConn) Write(ctx context.Context, typ wsconn.MessageType, data []byte) error {
	select {
	case f.out <- append([]byte(nil), data...):
	default:
	}
	return nil
}

func (f *fakeConn) Close(code wsconn.StatusCode, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
