// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendQueueDepth = 256
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
)

// Client represents one WebSocket connection. Its room and identity live in
// the hub's registry; the Client itself only carries the connection, its
// outbound buffer, and throttling state.
type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	hub          *Hub
	addr         string
	closed       bool
	maxFrameSize int64
	limiter      *tokenBucket
	limit        RateLimitConfig
}

// NewClient creates a Client for the given connection. The send channel is
// buffered so fan-out to this client never blocks the hub.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:         conn,
		send:         make(chan []byte, sendQueueDepth),
		hub:          hub,
		addr:         addr,
		maxFrameSize: cfg.MaxMessageSize,
		limiter:      newTokenBucket(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		limit:        cfg.RateLimit,
	}
}

// GetSendChan returns the client's send channel for reading outgoing events.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// handleReadError logs an appropriate message for the error and returns true
// if the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Frame from %s exceeded maximum size of %d bytes", c.addr, c.maxFrameSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Client %s disconnected: %v", c.addr, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Client %s connection closed: %v", c.addr, err)
		return true
	}

	log.Printf("WebSocket read error from %s: %v", c.addr, err)
	return true
}

// processFrame decodes an inbound frame and dispatches it to the hub. Frames
// that cannot be decoded, and frames of unknown type, are dropped with a log
// line and never answered.
func (c *Client) processFrame(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("Invalid frame from %s: %v", c.addr, err)
		return
	}

	switch frame.Type {
	case frameJoin:
		c.hub.Join(c, frame.Room)
	case frameText:
		c.hub.SendText(c, frame.Content)
	case frameVoice:
		c.hub.SendVoice(c, frame.ID, frame.URL, frame.Duration)
	default:
		log.Printf("Unknown frame type %q from %s; dropping", frame.Type, c.addr)
	}
}

func (c *Client) readPump() {
	defer func() {
		// Unregistration must happen exactly once per connection; if the hub
		// loop has already stopped, shutdown owns the cleanup.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		if c.limiter != nil && !c.limiter.allow() {
			log.Printf("Rate limit exceeded for %s (%d frames per %s); discarding frame",
				c.addr, c.limit.Burst, c.limit.RefillInterval)
			continue
		}

		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in writePump: %v", err)
			}
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					if !isExpectedCloseError(err) {
						log.Printf("Error writing close message to %s: %v", c.addr, err)
					}
				}
				return
			}
			if !c.writeFrame(message) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing ping message to %s: %v", c.addr, err)
				}
				return
			}
		}
	}
}

// writeFrame writes one event as a text frame. Events are never coalesced:
// each outbound event is its own frame so clients can decode them
// individually.
func (c *Client) writeFrame(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing event to %s: %v", c.addr, err)
		}
		return false
	}
	return true
}
