package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesAllMetricsOnceEnabled(t *testing.T) {
	// Enable is global and sticky across tests in this package; only assert
	// the shape of a request, not the enabled/disabled transition itself.
	Enable()
	if !Enabled() {
		t.Fatalf("expected Enabled() true after Enable()")
	}

	ObserveConnectAttempt("wss://host/rfb")
	ObserveReconnectAttempt("wss://host/rfb")
	ObserveHandshakeFailure("wss://host/rfb", "timeout")
	ObserveBytes("wss://host/rfb", "in", 128)
	SetConnected("wss://host/rfb", true)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	handler(rr, req)

	body := rr.Body.String()
	for _, want := range []string{
		"rfbws_connect_attempts_total",
		"rfbws_reconnect_attempts_total",
		"rfbws_handshake_failures_total",
		"rfbws_bytes_total",
		"rfbws_connected",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}

func TestToPromLabelsQuotesValues(t *testing.T) {
	got := toPromLabels("endpoint=wss://host/rfb,reason=timeout")
	want := `endpoint="wss://host/rfb",reason="timeout"`
	if got != want {
		t.Fatalf("toPromLabels = %q, want %q", got, want)
	}
}
