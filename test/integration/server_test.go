package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/warren-chat/warren/internal/server"
	"github.com/warren-chat/warren/test/testhelpers"
)

// newRestrictedStack builds a relay that only admits a specific origin.
func newRestrictedStack(t *testing.T, origin string) *httptest.Server {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{origin}

	hub := server.NewHub(cfg, server.NewRegistry(server.NewIdentityAssignor()))
	go hub.Run()

	srv := server.NewServer(cfg, hub, server.NewBlobStore(cfg.BlobRetention))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("Hub shutdown: %v", err)
		}
	})
	return ts
}

// TestHealthEndpoint verifies the liveness check over a real server.
func TestHealthEndpoint(t *testing.T) {
	ts, _ := newRelayStack(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
}

// TestUpgradeRejectsDisallowedOrigin verifies that the origin allow-list is
// enforced during the handshake.
func TestUpgradeRejectsDisallowedOrigin(t *testing.T) {
	ts := newRestrictedStack(t, "http://allowed.example")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(testhelpers.BuildWebSocketURL(t, ts.URL), header)
	if err == nil {
		conn.Close()
		t.Fatal("Handshake succeeded from a disallowed origin")
	}
	if resp != nil {
		defer resp.Body.Close()
		testhelpers.AssertStatusCode(t, resp, http.StatusForbidden)
	}
}

// TestUpgradeAcceptsAllowedOrigin verifies that a configured origin can
// connect and use the room protocol.
func TestUpgradeAcceptsAllowedOrigin(t *testing.T) {
	ts := newRestrictedStack(t, "http://allowed.example")

	header := http.Header{"Origin": []string{"http://allowed.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(testhelpers.BuildWebSocketURL(t, ts.URL), header)
	if err != nil {
		t.Fatalf("Handshake failed from an allowed origin: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	testhelpers.SendFrame(t, conn, map[string]any{"type": "join", "room": "r1"})
	testhelpers.ReadEventOfType(t, conn, "identityAssigned", eventTimeout)
}
