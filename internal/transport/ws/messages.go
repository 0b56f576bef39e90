package ws

import (
	"encoding/json"

	"guessthetune/internal/model"
)

// MessageType defines the type of a WebSocket message.
type MessageType string

// Client intents.
const (
	MsgCreateRoom     MessageType = "createRoom"
	MsgJoinRoom       MessageType = "joinRoom"
	MsgRejoinAsHost   MessageType = "rejoinAsHost"
	MsgStartGame      MessageType = "startGame"
	MsgBuzzIn         MessageType = "buzzIn"
	MsgSubmitJudgment MessageType = "submitJudgment"
	MsgNextSong       MessageType = "nextSong"
	MsgForceNextSong  MessageType = "forceNextSong"
)

// Server events.
const (
	MsgRoomCreated      MessageType = "roomCreated"
	MsgPlayerJoined     MessageType = "playerJoined"
	MsgHostRejoined     MessageType = "hostRejoined"
	MsgHostReconnected  MessageType = "hostReconnected"
	MsgHostDisconnected MessageType = "hostDisconnected"
	MsgPlayerLeft       MessageType = "playerLeft"
	MsgGameStarted      MessageType = "gameStarted"
	MsgPlayerIsGuessing MessageType = "playerIsGuessing"
	MsgGuessTimeExpired MessageType = "guessTimeExpired"
	MsgRoundOver        MessageType = "roundOver"
	MsgGameOver         MessageType = "gameOver"
	MsgSongChanged      MessageType = "songChanged"
	MsgError            MessageType = "error"
)

// Message is the WebSocket envelope format, both directions.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
}

type joinRoomPayload struct {
	RoomCode    string `json:"roomCode"`
	DisplayName string `json:"displayName"`
}

type rejoinAsHostPayload struct {
	RoomCode  string `json:"roomCode"`
	HostToken string `json:"hostToken"`
}

type startGamePayload struct {
	RoomCode    string        `json:"roomCode"`
	Playlist    []model.Track `json:"playlist"`
	Shuffle     bool          `json:"shuffle"`
	RotateJudge bool          `json:"rotateJudge"`
}

type roomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type submitJudgmentPayload struct {
	RoomCode  string `json:"roomCode"`
	IsCorrect bool   `json:"isCorrect"`
}

type forceNextSongPayload struct {
	RoomCode string      `json:"roomCode"`
	Track    model.Track `json:"track"`
}
