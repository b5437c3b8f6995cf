// Package server implements the room coordination core of the Warren chat
// relay along with its HTTP and WebSocket boundary.
//
// The implementation is organized into specialized files: the room registry,
// identity assignment, the ephemeral voice-clip store, the hub that routes
// events between connections, and the configuration, handler, and routing
// glue around them.
package server
