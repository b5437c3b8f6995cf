// Package server tracks room membership: which clients belong to which room,
// under which identity, with rooms created lazily and deleted the moment they
// empty.
package server

import "sync"

// Departure records a membership the registry removed, so the hub can notify
// the room the member left behind.
type Departure struct {
	Room     string
	Identity string
}

// membership is the per-connection session record: the single room a client
// currently belongs to and the identity assigned for it.
type membership struct {
	room     string
	identity string
}

// Registry maps room ids to their member sets. A client is a member of at
// most one room at a time; joining a new room implicitly removes it from the
// previous one. All membership mutation is linearized behind one mutex.
type Registry struct {
	mu       sync.RWMutex
	assignor *IdentityAssignor
	rooms    map[string]map[*Client]string // room id -> member -> identity
	sessions map[*Client]membership
}

// NewRegistry creates an empty registry that assigns identities with the
// provided assignor.
func NewRegistry(assignor *IdentityAssignor) *Registry {
	return &Registry{
		assignor: assignor,
		rooms:    make(map[string]map[*Client]string),
		sessions: make(map[*Client]membership),
	}
}

// Join adds the client to roomID under a freshly generated identity, creating
// the room if absent. If the client was already a member of a room (the same
// one included), that membership is removed first and returned as a
// Departure so the caller can notify the old room. The identity is
// regenerated on every join, including a rejoin of the same room.
func (r *Registry) Join(roomID string, c *Client) (string, *Departure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departed *Departure
	if prev, ok := r.sessions[c]; ok {
		r.removeLocked(prev.room, c)
		departed = &Departure{Room: prev.room, Identity: prev.identity}
	}

	identity := r.assignor.Generate()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[*Client]string)
		r.rooms[roomID] = members
	}
	members[c] = identity
	r.sessions[c] = membership{room: roomID, identity: identity}

	return identity, departed
}

// Leave removes the client's membership in roomID and returns the identity
// that was removed. The second return is false when the client was not a
// member of that room, making Leave an idempotent no-op for the caller.
func (r *Registry) Leave(roomID string, c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[c]
	if !ok || sess.room != roomID {
		return "", false
	}
	r.removeLocked(roomID, c)
	return sess.identity, true
}

// Drop removes the client's membership in whatever room it currently belongs
// to. Used on disconnect, where the caller does not know the room.
func (r *Registry) Drop(c *Client) (*Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[c]
	if !ok {
		return nil, false
	}
	r.removeLocked(sess.room, c)
	return &Departure{Room: sess.room, Identity: sess.identity}, true
}

// removeLocked deletes the member and, when that empties the room, the room
// itself. Rooms have no existence independent of membership.
func (r *Registry) removeLocked(roomID string, c *Client) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.sessions, c)
}

// Session returns the client's current room and identity, or ok == false if
// the client has not joined a room.
func (r *Registry) Session(c *Client) (room, identity string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[c]
	if !ok {
		return "", "", false
	}
	return sess.room, sess.identity, true
}

// Identities returns a snapshot of the member identities in roomID. An
// unknown room yields an empty slice, not an error.
func (r *Registry) Identities(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	identities := make([]string, 0, len(members))
	for _, identity := range members {
		identities = append(identities, identity)
	}
	return identities
}

// Members returns a snapshot of the clients in roomID for fan-out, optionally
// excluding one client.
func (r *Registry) Members(roomID string, exclude *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	clients := make([]*Client, 0, len(members))
	for c := range members {
		if c == exclude {
			continue
		}
		clients = append(clients, c)
	}
	return clients
}
