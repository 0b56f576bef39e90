package model

import "time"

type RoomState string

const (
	RoomStateLobby    RoomState = "lobby"
	RoomStatePlaying  RoomState = "playing"
	RoomStateGuessing RoomState = "guessing"
	RoomStateGameOver RoomState = "gameOver"
)

// Room is the wire-level snapshot of a game room broadcast to clients.
// The host secret is never part of a snapshot; it travels only in the
// roomCreated and hostRejoined messages addressed to the host.
type Room struct {
	Code              string    `json:"code"`
	State             RoomState `json:"state"`
	Players           []Player  `json:"players"`
	Playlist          []Track   `json:"playlist,omitempty"`
	CurrentTrackIndex int       `json:"currentTrackIndex"`
	CurrentGuesser    string    `json:"currentGuesser,omitempty"`
	CurrentJudgeIndex int       `json:"currentJudgeIndex"`
	RotateJudge       bool      `json:"rotateJudge"`
	CreatedAt         time.Time `json:"createdAt"`
}

// RoomSummary is the directory listing entry for GET /v1/rooms.
type RoomSummary struct {
	Code            string    `json:"code"`
	PlayerCount     int       `json:"playerCount"`
	State           RoomState `json:"state"`
	HostDisplayName string    `json:"hostDisplayName"`
	CurrentTrack    string    `json:"currentTrack,omitempty"`
}
