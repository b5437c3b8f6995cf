// Package server defines the wire-level frame and event types exchanged with
// clients, plus shared helpers reused across client and hub logic.
package server

import "strings"

// Inbound frame types accepted from clients.
const (
	frameJoin  = "join"
	frameText  = "sendText"
	frameVoice = "sendVoice"
)

// Outbound event types emitted to clients.
const (
	eventIdentityAssigned = "identityAssigned"
	eventParticipantsList = "participantsList"
	eventUserJoined       = "userJoined"
	eventUserLeft         = "userLeft"
	eventNewMessage       = "newMessage"
)

// Message kinds.
const (
	KindText  = "text"
	KindVoice = "voice"
)

// Frame is the inbound command envelope. Type selects the action; the
// remaining fields are populated depending on the type.
type Frame struct {
	Type     string  `json:"type"`
	Room     string  `json:"room,omitempty"`
	Content  string  `json:"content,omitempty"`
	ID       string  `json:"id,omitempty"`
	URL      string  `json:"url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Message is a chat payload fanned out to a room. For voice messages the ID
// equals the clip's blob id, which is the stable cross-reference between the
// message stream and clip storage. Messages are not retained after fan-out.
type Message struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Nickname  string  `json:"nickname"`
	Content   string  `json:"content,omitempty"`
	URL       string  `json:"url,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

type identityAssignedEvent struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
}

type participantsListEvent struct {
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
}

// presenceEvent carries both userJoined and userLeft notifications.
type presenceEvent struct {
	Type      string `json:"type"`
	Nickname  string `json:"nickname"`
	Timestamp int64  `json:"timestamp"`
}

type newMessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
