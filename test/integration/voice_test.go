package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/warren-chat/warren/test/testhelpers"
)

// TestVoiceClipFlow exercises the whole voice path: upload a clip over HTTP,
// reference it in a room, and retrieve it from the download endpoint.
func TestVoiceClipFlow(t *testing.T) {
	ts, _ := newRelayStack(t)
	clip := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x10, 0x20}

	resp, err := http.Post(ts.URL+"/voice", "audio/webm", bytes.NewReader(clip))
	if err != nil {
		t.Fatalf("Upload request failed: %v", err)
	}
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusCreated)

	var upload struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	if upload.ID == "" || upload.URL == "" {
		t.Fatalf("Incomplete upload response: %+v", upload)
	}

	c1 := testhelpers.DialWebSocket(t, ts.URL)
	nick1 := joinRoom(t, c1, "r1")
	testhelpers.ReadEventOfType(t, c1, "participantsList", eventTimeout)

	c2 := testhelpers.DialWebSocket(t, ts.URL)
	joinRoom(t, c2, "r1")
	testhelpers.ReadEventOfType(t, c2, "participantsList", eventTimeout)
	testhelpers.ReadEventOfType(t, c1, "userJoined", eventTimeout)

	testhelpers.SendFrame(t, c1, map[string]any{
		"type":     "sendVoice",
		"id":       upload.ID,
		"url":      upload.URL,
		"duration": 1.4,
	})

	for _, conn := range []*websocket.Conn{c1, c2} {
		event := testhelpers.ReadEventOfType(t, conn, "newMessage", eventTimeout)
		msg, _ := event["message"].(map[string]any)
		if msg["kind"] != "voice" || msg["id"] != upload.ID || msg["nickname"] != nick1 {
			t.Fatalf("Unexpected voice payload: %v", msg)
		}
		if msg["url"] != upload.URL || msg["duration"] != 1.4 {
			t.Fatalf("Voice payload lost clip reference: %v", msg)
		}
	}

	download, err := http.Get(ts.URL + upload.URL)
	if err != nil {
		t.Fatalf("Download request failed: %v", err)
	}
	defer download.Body.Close()
	testhelpers.AssertStatusCode(t, download, http.StatusOK)

	body, err := io.ReadAll(download.Body)
	if err != nil {
		t.Fatalf("Failed to read downloaded clip: %v", err)
	}
	if !bytes.Equal(body, clip) {
		t.Fatalf("Downloaded clip %v, want %v", body, clip)
	}
	if got := download.Header.Get("Content-Type"); got != "audio/webm" {
		t.Fatalf("Downloaded content type %q, want audio/webm", got)
	}
}

// TestDanglingVoiceReferenceStillBroadcasts verifies the deliberate design
// choice that sendVoice does not validate clip existence: the message fans
// out, and only retrieval reports the miss.
func TestDanglingVoiceReferenceStillBroadcasts(t *testing.T) {
	ts, _ := newRelayStack(t)

	conn := testhelpers.DialWebSocket(t, ts.URL)
	joinRoom(t, conn, "r1")
	testhelpers.ReadEventOfType(t, conn, "participantsList", eventTimeout)

	testhelpers.SendFrame(t, conn, map[string]any{
		"type": "sendVoice",
		"id":   "never-uploaded",
		"url":  "/voice/never-uploaded",
	})

	event := testhelpers.ReadEventOfType(t, conn, "newMessage", eventTimeout)
	msg, _ := event["message"].(map[string]any)
	if msg["id"] != "never-uploaded" {
		t.Fatalf("Unexpected voice payload: %v", msg)
	}

	resp, err := http.Get(ts.URL + "/voice/never-uploaded")
	if err != nil {
		t.Fatalf("Download request failed: %v", err)
	}
	defer resp.Body.Close()
	testhelpers.AssertStatusCode(t, resp, http.StatusNotFound)
}
