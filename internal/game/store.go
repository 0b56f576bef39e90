package game

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"guessthetune/internal/model"
)

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLen     = 4
)

// Store is the process-local index of live rooms. It is safe for
// concurrent use across rooms; per-room state is guarded by each
// Room's own mutex.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewStore creates an empty room store.
func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// Create generates a unique room code and host secret and registers a
// new lobby room with the host as its only player.
func (s *Store) Create(hostConnID, hostDisplayName string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateCodeLocked()
	room := &Room{
		code:       code,
		hostConnID: hostConnID,
		hostSecret: newHostSecret(),
		players: []*model.Player{{
			ConnID:      hostConnID,
			DisplayName: hostDisplayName,
			Score:       0,
			IsHost:      true,
		}},
		state:     model.RoomStateLobby,
		createdAt: time.Now(),
	}
	s.rooms[code] = room
	return room
}

// Get returns the room with the given code.
func (s *Store) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

// Delete removes a room. Idempotent.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// FindByConn scans live rooms for one containing the given connection.
func (s *Store) FindByConn(connID string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		room.mu.Lock()
		found := room.findPlayer(connID) != nil
		room.mu.Unlock()
		if found {
			return room, true
		}
	}
	return nil, false
}

// All returns the live rooms in no particular order.
func (s *Store) All() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// generateCodeLocked draws 4-letter codes until one is free. The code
// space is 26^4; collisions among a handful of live rooms are rare
// enough that the loop terminates almost immediately.
func (s *Store) generateCodeLocked() string {
	for {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			panic("room code entropy unavailable: " + err.Error())
		}
		code := make([]byte, codeLen)
		for i := range code {
			code[i] = codeLetters[int(b[i])%len(codeLetters)]
		}
		if _, taken := s.rooms[string(code)]; !taken {
			return string(code)
		}
	}
}

func newHostSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("host secret entropy unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
