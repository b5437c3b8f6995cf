// Package testhelpers provides common utilities for testing the Warren
// relay.
//
// It contains reusable helpers shared across integration tests: dialing the
// WebSocket endpoint, sending frames, and reading or asserting the absence
// of events, to reduce duplication in test files.
package testhelpers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// ClientOrigin is the Origin header integration tests present; stacks under
// test are configured with a wildcard allow-list.
const ClientOrigin = "http://client.example"

// BuildWebSocketURL converts an httptest server URL into the ws:// address
// of the relay's upgrade endpoint.
func BuildWebSocketURL(t *testing.T, baseURL string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("Unexpected test server URL: %q", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

// DialWebSocket opens a client connection to the relay under test. The
// connection is closed automatically when the test finishes.
func DialWebSocket(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()

	header := http.Header{"Origin": []string{ClientOrigin}}
	conn, resp, err := websocket.DefaultDialer.Dial(BuildWebSocketURL(t, baseURL), header)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket endpoint: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// SendFrame marshals v and writes it as a text frame.
func SendFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// ReadEvent reads the next event from the connection and decodes it into a
// generic map. It fails the test if nothing arrives within the timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("Failed to decode event %q: %v", raw, err)
	}
	return event
}

// ReadEventOfType reads the next event and fails the test unless it has the
// expected type.
func ReadEventOfType(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) map[string]any {
	t.Helper()
	event := ReadEvent(t, conn, timeout)
	if event["type"] != eventType {
		t.Fatalf("Expected event type %q, got %v", eventType, event)
	}
	return event
}

// ExpectNoEvent asserts that nothing arrives on the connection within the
// timeout.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no event, but received %q", raw)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of events: %v", err)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
