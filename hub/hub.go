package hub

import "sync"

// Conn is a room member. Send hands a payload to the connection's outbound
// queue and reports whether it was accepted; implementations must not block.
type Conn interface {
	ID() string
	Send(payload []byte) bool
}

// Hub tracks which connections are in which rooms and fans broadcast
// payloads out to the members. All methods are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{rooms: make(map[string]map[string]Conn)}
}

// Join adds the connection to the room. Joining a room the connection is
// already in is a no-op.
func (h *Hub) Join(room string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]Conn)
		h.rooms[room] = members
	}

	members[conn.ID()] = conn
}

// Leave removes the connection from the room. Leaving a room the connection
// is not in is a no-op. A room with no members left is dropped.
func (h *Hub) Leave(room string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}

	delete(members, conn.ID())
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// LeaveAll removes the connection from every room it is in.
func (h *Hub) LeaveAll(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, members := range h.rooms {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends the payload to every member of the room. Members that do
// not accept the payload are skipped. It returns how many deliveries were
// handed off and how many were dropped.
func (h *Hub) Broadcast(room string, payload []byte) (sent, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.rooms[room] {
		if conn.Send(payload) {
			sent++
		} else {
			dropped++
		}
	}

	return
}

// MemberCount returns how many connections are in the room.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[room])
}

// RoomCount returns how many rooms currently have members.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms)
}
