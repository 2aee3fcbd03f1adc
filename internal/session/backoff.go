package session

import "time"

const (
	backoffBase = time.Second
	backoffCap  = 10 * time.Second
)

// reconnectDelayFn is swapped out in tests so the reconnect loop doesn't
// sleep for real.
var reconnectDelayFn = reconnectDelay

// reconnectDelay computes the backoff before reconnect attempt n (1-based):
// min(1000 * 2^(n-1), 10000) milliseconds.
func reconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	if d > backoffCap {
		return backoffCap
	}
	return d
}
