package model

import "time"

// FinalScore is one row of a finished game's scoreboard.
type FinalScore struct {
	DisplayName string `json:"displayName" bson:"displayName"`
	Score       int    `json:"score" bson:"score"`
	IsHost      bool   `json:"isHost" bson:"isHost"`
}

// GameRecord is the archived result of a finished game. Records are
// write-only from the server's point of view: live room state is never
// rebuilt from them.
type GameRecord struct {
	RoomCode   string       `json:"roomCode" bson:"roomCode"`
	WinnerName string       `json:"winnerName" bson:"winnerName"`
	Scores     []FinalScore `json:"scores" bson:"scores"`
	TrackCount int          `json:"trackCount" bson:"trackCount"`
	StartedAt  time.Time    `json:"startedAt" bson:"startedAt"`
	EndedAt    time.Time    `json:"endedAt" bson:"endedAt"`
}
