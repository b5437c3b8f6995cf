// Package server wires HTTP handlers into a ServeMux for the Warren relay
// via routing helpers.
package server

import "net/http"

// Routes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, and the voice clip boundary.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/voice", s.VoiceUploadHandler)
	mux.HandleFunc("/voice/", s.VoiceDownloadHandler)
	return mux
}
