package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub coordinates websocket connections and logical rooms. A user may hold
// several simultaneous connections (one per device); rooms fan out to
// connections, presence is tracked per user elsewhere.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Connection            // connID -> connection
	userConns map[string]map[string]*Connection // userID -> connID -> connection
	rooms     map[string]map[string]*Connection // roomName -> connID -> connection
	connRooms map[string]map[string]struct{}    // connID -> set of roomNames
}

func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]*Connection),
		userConns: make(map[string]map[string]*Connection),
		rooms:     make(map[string]map[string]*Connection),
		connRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection and starts its write loop.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	byUser := h.userConns[conn.UserID]
	if byUser == nil {
		byUser = make(map[string]*Connection)
		h.userConns[conn.UserID] = byUser
	}
	byUser[conn.ID] = conn
	h.connRooms[conn.ID] = make(map[string]struct{})
	h.mu.Unlock()

	conn.Start()
}

// Detach removes a connection and its room memberships.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Join adds the connection to the room's broadcast group.
func (h *Hub) Join(roomName string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn.ID]; !ok {
		return
	}

	room := h.rooms[roomName]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[roomName] = room
	}
	room[conn.ID] = conn

	memberships := h.connRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.connRooms[conn.ID] = memberships
	}
	memberships[roomName] = struct{}{}
}

// Leave removes the connection from the room.
func (h *Hub) Leave(roomName string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(roomName, conn.ID)
	h.mu.Unlock()
}

// BroadcastRoom writes payload to every member of the room except the
// connection identified by excludeConnID (empty means deliver to all).
// Returns the number of successful deliveries.
func (h *Hub) BroadcastRoom(roomName string, payload []byte, excludeConnID string) int {
	h.mu.RLock()
	room := h.rooms[roomName]
	if len(room) == 0 {
		h.mu.RUnlock()
		return 0
	}
	members := make([]*Connection, 0, len(room))
	for _, conn := range room {
		if excludeConnID != "" && conn.ID == excludeConnID {
			continue
		}
		members = append(members, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll writes payload to every connection except those belonging
// to excludeUserID. Used for presence events.
func (h *Hub) BroadcastAll(payload []byte, excludeUserID string) int {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		if excludeUserID != "" && conn.UserID == excludeUserID {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*Connection)
	h.userConns = make(map[string]map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
	h.connRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "hub shutdown")
	}
}

func (h *Hub) detachLocked(connID string) {
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)

	if byUser, ok := h.userConns[conn.UserID]; ok {
		delete(byUser, connID)
		if len(byUser) == 0 {
			delete(h.userConns, conn.UserID)
		}
	}

	for roomName := range h.connRooms[connID] {
		h.leaveLocked(roomName, connID)
	}
	delete(h.connRooms, connID)
}

func (h *Hub) leaveLocked(roomName, connID string) {
	room := h.rooms[roomName]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(h.rooms, roomName)
	}
	if memberships, ok := h.connRooms[connID]; ok {
		delete(memberships, roomName)
	}
}
