// Package server exposes the HTTP boundary: WebSocket upgrades, voice-clip
// upload and retrieval, and the health check.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server wires the hub, the clip store, and the HTTP handlers together. All
// state is owned here and threaded explicitly, so tests can build isolated
// instances.
type Server struct {
	cfg      *Config
	hub      *Hub
	store    *BlobStore
	upgrader websocket.Upgrader
}

// NewServer creates a Server around an already constructed hub and store.
func NewServer(cfg *Config, hub *Hub, store *BlobStore) *Server {
	policy := newOriginPolicy(cfg.AllowedOrigins)
	return &Server{
		cfg:   cfg,
		hub:   hub,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
	}
}

// WebSocketHandler handles WebSocket upgrade requests. It validates the
// method, upgrades the connection, and registers the new client with the
// hub, which launches the pump goroutines.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	s.hub.register <- client
}

// uploadResponse is the body returned after a successful clip upload.
type uploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// VoiceUploadHandler stores a clip and returns its id and retrieval URL.
// The request body is capped here; the store itself enforces no size bound.
func (s *Server) VoiceUploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Voice upload only accepts POST requests.", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxVoiceClipBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Printf("Rejected oversized voice clip from %s (limit %d bytes)", r.RemoteAddr, s.cfg.MaxVoiceClipBytes)
			http.Error(w, "Voice clip too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.NewString()
	s.store.Put(id, data, contentType)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(uploadResponse{ID: id, URL: "/voice/" + id}); err != nil {
		log.Printf("Error writing upload response: %v", err)
	}
}

// VoiceDownloadHandler serves a stored clip with its original Content-Type.
// Unknown and expired ids both yield 404.
func (s *Server) VoiceDownloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Voice retrieval only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/voice/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	rec, ok := s.store.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", rec.ContentType)
	if _, err := w.Write(rec.Data); err != nil {
		log.Printf("Error writing voice clip %s: %v", id, err)
	}
}

// HealthHandler provides a simple health check endpoint.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "Warren relay is running!")
}
