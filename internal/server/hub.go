// Package server routes events between connections via the Hub type: it owns
// the live connection set, consults the room registry for membership, and
// fans events out to the recipient set each event calls for.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"
)

// Hub coordinates connection registration, room membership, and event
// fan-out. Registry state is always mutated before notifications are
// dispatched, and dispatch never blocks on a recipient: a client whose send
// buffer is full is dropped rather than waited on.
type Hub struct {
	cfg      *Config
	registry *Registry

	clients    map[*Client]bool
	mutex      sync.RWMutex
	register   chan *Client
	unregister chan *Client

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub that resolves room membership through the given
// registry. The returned Hub is ready once Run is started in a goroutine.
func NewHub(cfg *Config, registry *Registry) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        cfg,
		registry:   registry,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Registry returns the registry backing this hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the hub's lifecycle loop, handling client registration and
// disconnection. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Client connected from %s. Total clients: %d", client.addr, clientCount)

			if client.conn != nil {
				h.wg.Add(2)
				go func() {
					defer h.wg.Done()
					client.writePump()
				}()
				go func() {
					defer h.wg.Done()
					client.readPump()
				}()
			}

		case client := <-h.unregister:
			h.drop(client)
		}
	}
}

// Join moves the client into roomID. Any previous membership is removed
// first and its room notified; the mover itself gets no leave
// acknowledgment, only the new room's join sequence: identity, then the
// join broadcast to the rest of the room, then the participants snapshot.
func (h *Hub) Join(c *Client, roomID string) {
	if roomID == "" {
		log.Printf("Dropping join with empty room id from %s", c.addr)
		return
	}

	identity, departed := h.registry.Join(roomID, c)
	if departed != nil {
		h.notifyPresence(eventUserLeft, departed.Room, departed.Identity, nil)
	}
	log.Printf("Client from %s joined room %q as %s", c.addr, roomID, identity)

	h.unicast(c, identityAssignedEvent{Type: eventIdentityAssigned, Nickname: identity})
	h.notifyPresence(eventUserJoined, roomID, identity, c)
	h.unicast(c, participantsListEvent{
		Type:         eventParticipantsList,
		Participants: h.registry.Identities(roomID),
	})
}

// SendText broadcasts a text message to the sender's room, sender included.
// The echo-back is intentional: the sender's UI renders its own message from
// the broadcast rather than echoing locally. Dropped with a log line when
// the client has not joined a room.
func (h *Hub) SendText(c *Client, content string) {
	room, identity, ok := h.registry.Session(c)
	if !ok {
		log.Printf("Dropping text from %s: not in a room", c.addr)
		return
	}

	h.broadcast(room, nil, newMessageEvent{
		Type: eventNewMessage,
		Message: Message{
			ID:        newMessageID(),
			Kind:      KindText,
			Nickname:  identity,
			Content:   content,
			Timestamp: time.Now().UnixMilli(),
		},
	})
}

// SendVoice broadcasts a voice-clip reference to the sender's room, sender
// included. The message id is the clip's blob id. The clip's existence is
// not checked here; a dangling reference is resolved at retrieval time.
func (h *Hub) SendVoice(c *Client, blobID, url string, duration float64) {
	room, identity, ok := h.registry.Session(c)
	if !ok {
		log.Printf("Dropping voice message from %s: not in a room", c.addr)
		return
	}
	if blobID == "" {
		log.Printf("Dropping voice message from %s: missing clip id", c.addr)
		return
	}

	h.broadcast(room, nil, newMessageEvent{
		Type: eventNewMessage,
		Message: Message{
			ID:        blobID,
			Kind:      KindVoice,
			Nickname:  identity,
			URL:       url,
			Duration:  duration,
			Timestamp: time.Now().UnixMilli(),
		},
	})
}

// drop removes the client from the hub exactly once: it is taken out of the
// connection set, its send channel is closed, and the room it belonged to is
// left and notified.
func (h *Hub) drop(c *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, c)
	c.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	close(c.send)
	log.Printf("Client from %s disconnected. Total clients: %d", c.addr, clientCount)

	if departed, ok := h.registry.Drop(c); ok {
		h.notifyPresence(eventUserLeft, departed.Room, departed.Identity, nil)
	}
}

// notifyPresence sends a userJoined or userLeft event to roomID, optionally
// excluding one client. Departed members are already out of the registry, so
// no explicit exclusion is needed on the leave path.
func (h *Hub) notifyPresence(eventType, roomID, identity string, exclude *Client) {
	h.broadcast(roomID, exclude, presenceEvent{
		Type:      eventType,
		Nickname:  identity,
		Timestamp: time.Now().UnixMilli(),
	})
}

// broadcast delivers event to every member of roomID except exclude.
func (h *Hub) broadcast(roomID string, exclude *Client, event any) {
	h.dispatch(h.registry.Members(roomID, exclude), event)
}

// unicast delivers event to a single client.
func (h *Hub) unicast(c *Client, event any) {
	h.dispatch([]*Client{c}, event)
}

// dispatch encodes the event once and hands it to each recipient's send
// buffer. Recipients that cannot accept it are dropped; delivery is
// fire-and-forget with no retry.
func (h *Hub) dispatch(recipients []*Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding event %T: %v", event, err)
		return
	}

	var failed []*Client
	for _, c := range recipients {
		if !h.safeSend(c, payload) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		log.Printf("Client from %s removed due to full send buffer", c.addr)
		h.drop(c)
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// newMessageID returns a message id built from the current millisecond
// timestamp and a random 4-digit suffix. Unique enough in practice;
// collisions are tolerated, not prevented.
func newMessageID() string {
	return fmt.Sprintf("%d-%04d", time.Now().UnixMilli(), 1000+rand.IntN(9000))
}
