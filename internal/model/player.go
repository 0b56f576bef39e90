package model

// Player represents a participant in a room. ConnID is the gateway
// connection identifier; it is the only field that may change after
// creation, and only through the host rejoin path.
type Player struct {
	ConnID      string `json:"id"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	IsHost      bool   `json:"isHost"`
}
