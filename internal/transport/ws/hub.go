package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections and their room membership. A
// connection exists before it joins a room (the client creates or
// joins one over the socket itself), so membership is tracked here
// rather than on the upgrade path.
type Hub struct {
	conns map[string]*Connection            // connID -> conn
	rooms map[string]map[string]*Connection // roomCode -> connID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	log zerolog.Logger
}

// Connection represents one WebSocket client.
type Connection struct {
	ID       string
	RoomCode string // guarded by hub.mu after registration
	Send     chan []byte
}

// BroadcastMessage is a message to fan out.
type BroadcastMessage struct {
	RoomCode string
	ToConn   string // non-empty: single recipient, RoomCode ignored
	Exclude  string // connID to skip on room broadcasts
	Message  *Message
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub(log zerolog.Logger) *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		rooms:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		log:        log.With().Str("component", "ws").Logger(),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.ID] = conn
			h.mu.Unlock()
			h.log.Debug().Str("conn", conn.ID).Msg("connection registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.ID]; ok && existing == conn {
				delete(h.conns, conn.ID)
				if members, ok := h.rooms[conn.RoomCode]; ok {
					delete(members, conn.ID)
					if len(members) == 0 {
						delete(h.rooms, conn.RoomCode)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			h.log.Debug().Str("conn", conn.ID).Msg("connection unregistered")

		case msg := <-h.broadcast:
			data, _ := json.Marshal(msg.Message)
			h.mu.RLock()
			if msg.ToConn != "" {
				if conn, ok := h.conns[msg.ToConn]; ok {
					h.send(conn, data)
				}
			} else if members, ok := h.rooms[msg.RoomCode]; ok {
				for id, conn := range members {
					if id == msg.Exclude {
						continue
					}
					h.send(conn, data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) send(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// Drop message if the client's buffer is full.
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection and its room membership.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Join moves a connection into a room (implements Sender).
func (h *Hub) Join(connID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	if conn.RoomCode != "" {
		if members, ok := h.rooms[conn.RoomCode]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, conn.RoomCode)
			}
		}
	}
	conn.RoomCode = roomCode
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[string]*Connection)
	}
	h.rooms[roomCode][connID] = conn
}

// SendToConn sends a message to one connection (implements Sender).
func (h *Hub) SendToConn(connID string, msgType MessageType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		ToConn:  connID,
		Message: &Message{Type: msgType, Payload: data},
	}
}

// BroadcastToRoom sends a message to every member of a room
// (implements Sender).
func (h *Hub) BroadcastToRoom(roomCode string, msgType MessageType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		Message:  &Message{Type: msgType, Payload: data},
	}
}

// BroadcastToOthers sends a message to every member of a room except
// one connection (implements Sender).
func (h *Hub) BroadcastToOthers(roomCode, exceptConnID string, msgType MessageType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		Exclude:  exceptConnID,
		Message:  &Message{Type: msgType, Payload: data},
	}
}
