// Package telemetry is a hand-rolled Prometheus text-format exposition for
// the session controller: no client library, a single package-level
// registry guarded by a mutex, and a minimal /metrics handler assembled
// with fmt.Fprintf rather than a metrics SDK's builder API.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	enabled bool
	mu      sync.RWMutex

	connectAttempts   map[string]uint64
	reconnectAttempts map[string]uint64
	handshakeFailures map[string]uint64
	bytesTotal        map[string]uint64
	connectionGauge   map[string]float64
}

var (
	regMu sync.RWMutex
	reg   = registry{}
)

// Enable turns on metrics collection. Calling it more than once is a no-op;
// the process either exposes metrics for its whole lifetime or not at all.
func Enable() {
	regMu.Lock()
	defer regMu.Unlock()
	if reg.enabled {
		return
	}
	reg.connectAttempts = make(map[string]uint64)
	reg.reconnectAttempts = make(map[string]uint64)
	reg.handshakeFailures = make(map[string]uint64)
	reg.bytesTotal = make(map[string]uint64)
	reg.connectionGauge = make(map[string]float64)
	reg.enabled = true
}

// Enabled reports whether Enable has been called.
func Enabled() bool {
	regMu.RLock()
	defer regMu.RUnlock()
	return reg.enabled
}

// StartServer serves /metrics on addr until ctx is cancelled; a background
// goroutine calls srv.Shutdown on cancellation, with a bounded grace
// period.
func StartServer(ctx context.Context, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("telemetry: empty metrics address")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("telemetry: metrics server: %w", err)
	}
	return nil
}

// ObserveConnectAttempt records one Connect() call for endpoint.
func ObserveConnectAttempt(endpoint string) {
	inc(func() { reg.connectAttempts[label("endpoint", endpoint)]++ })
}

// ObserveReconnectAttempt records one reconnect-loop redial for endpoint.
func ObserveReconnectAttempt(endpoint string) {
	inc(func() { reg.reconnectAttempts[label("endpoint", endpoint)]++ })
}

// ObserveHandshakeFailure records a terminal handshake error, bucketed by a
// short reason string (e.g. "timeout", "protocol", "auth").
func ObserveHandshakeFailure(endpoint, reason string) {
	inc(func() {
		reg.handshakeFailures[fmt.Sprintf("endpoint=%s,reason=%s", endpoint, reason)]++
	})
}

// ObserveBytes records bytes moved in one direction ("in" or "out") for
// endpoint.
func ObserveBytes(endpoint, direction string, n int) {
	inc(func() {
		reg.bytesTotal[fmt.Sprintf("endpoint=%s,dir=%s", endpoint, direction)] += uint64(n)
	})
}

// SetConnected records the current connection state (1 connected, 0 not)
// for endpoint.
func SetConnected(endpoint string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	inc(func() { reg.connectionGauge[label("endpoint", endpoint)] = v })
}

// inc runs fn under the registry lock, but only once metrics are enabled;
// this keeps every Observe* call a cheap no-op in the common
// metrics-disabled case.
func inc(fn func()) {
	regMu.RLock()
	if !reg.enabled {
		regMu.RUnlock()
		return
	}
	reg.mu.Lock()
	regMu.RUnlock()
	defer reg.mu.Unlock()
	fn()
}

func label(key, value string) string {
	return fmt.Sprintf("%s=%s", key, value)
}

func handler(w http.ResponseWriter, _ *http.Request) {
	regMu.RLock()
	enabled := reg.enabled
	regMu.RUnlock()
	if !enabled {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("# metrics disabled\n"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	writeCounterVec(w, "rfbws_connect_attempts_total", reg.connectAttempts)
	writeCounterVec(w, "rfbws_reconnect_attempts_total", reg.reconnectAttempts)
	writeCounterVec(w, "rfbws_handshake_failures_total", reg.handshakeFailures)
	writeCounterVec(w, "rfbws_bytes_total", reg.bytesTotal)
	writeGaugeVec(w, "rfbws_connected", reg.connectionGauge)
}

func writeCounterVec(w http.ResponseWriter, name string, data map[string]uint64) {
	for _, k := range sortedKeys(data) {
		fmt.Fprintf(w, "%s{%s} %d\n", name, toPromLabels(k), data[k])
	}
}

func writeGaugeVec(w http.ResponseWriter, name string, data map[string]float64) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s{%s} %.0f\n", name, toPromLabels(k), data[k])
	}
}

func sortedKeys(data map[string]uint64) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toPromLabels(s string) string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		parts[i] = fmt.Sprintf("%s=%q", kv[0], kv[1])
	}
	return strings.Join(parts, ",")
}
