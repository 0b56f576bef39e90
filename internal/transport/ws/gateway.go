package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"guessthetune/internal/game"
	"guessthetune/internal/model"
	"guessthetune/internal/repository"
)

// Sender is the broadcast surface the gateway needs from the hub.
type Sender interface {
	Join(connID, roomCode string)
	SendToConn(connID string, msgType MessageType, payload interface{})
	BroadcastToRoom(roomCode string, msgType MessageType, payload interface{})
	BroadcastToOthers(roomCode, exceptConnID string, msgType MessageType, payload interface{})
}

// Gateway translates client intents into game operations and fans the
// results back out. It owns the two scheduled behaviors around the
// state machine: the guess timeout and the delayed auto-advance after
// a correct guess.
type Gateway struct {
	mgr     *game.Manager
	timers  *game.GuessTimers
	sender  Sender
	history repository.HistoryRepo // optional

	guessTimeout time.Duration
	advanceDelay time.Duration

	log zerolog.Logger
}

// NewGateway creates a gateway. history may be nil when game archiving
// is disabled.
func NewGateway(mgr *game.Manager, sender Sender, history repository.HistoryRepo, guessTimeout, advanceDelay time.Duration, log zerolog.Logger) *Gateway {
	if guessTimeout <= 0 {
		guessTimeout = 30 * time.Second
	}
	return &Gateway{
		mgr:          mgr,
		timers:       game.NewGuessTimers(),
		sender:       sender,
		history:      history,
		guessTimeout: guessTimeout,
		advanceDelay: advanceDelay,
		log:          log.With().Str("component", "gateway").Logger(),
	}
}

// Dispatch routes one raw client message.
func (g *Gateway) Dispatch(connID string, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		g.sendError(connID, "malformed message")
		return
	}

	switch msg.Type {
	case MsgCreateRoom:
		g.handleCreateRoom(connID, msg.Payload)
	case MsgJoinRoom:
		g.handleJoinRoom(connID, msg.Payload)
	case MsgRejoinAsHost:
		g.handleRejoinAsHost(connID, msg.Payload)
	case MsgStartGame:
		g.handleStartGame(connID, msg.Payload)
	case MsgBuzzIn:
		g.handleBuzzIn(connID, msg.Payload)
	case MsgSubmitJudgment:
		g.handleSubmitJudgment(connID, msg.Payload)
	case MsgNextSong:
		g.handleNextSong(connID, msg.Payload)
	case MsgForceNextSong:
		g.handleForceNextSong(connID, msg.Payload)
	default:
		g.sendError(connID, "unknown message type")
	}
}

func (g *Gateway) handleCreateRoom(connID string, raw json.RawMessage) {
	var p createRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil || !p.IsHost {
		return
	}
	room, secret, err := g.mgr.CreateRoom(connID, p.DisplayName)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.sender.Join(connID, room.Code)
	g.sender.SendToConn(connID, MsgRoomCreated, map[string]interface{}{
		"roomCode":  room.Code,
		"room":      room,
		"hostToken": secret,
	})
}

func (g *Gateway) handleJoinRoom(connID string, raw json.RawMessage) {
	var p joinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	room, err := g.mgr.JoinRoom(p.RoomCode, connID, p.DisplayName)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.sender.Join(connID, room.Code)
	g.sender.BroadcastToRoom(room.Code, MsgPlayerJoined, map[string]interface{}{
		"room": room,
	})
}

func (g *Gateway) handleRejoinAsHost(connID string, raw json.RawMessage) {
	var p rejoinAsHostPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	room, err := g.mgr.RejoinAsHost(p.RoomCode, p.HostToken, connID)
	if err != nil {
		g.sendError(connID, "rejoin failed")
		return
	}
	g.sender.Join(connID, room.Code)
	g.sender.SendToConn(connID, MsgHostRejoined, map[string]interface{}{
		"roomCode":  room.Code,
		"room":      room,
		"hostToken": p.HostToken,
	})
	g.sender.BroadcastToOthers(room.Code, connID, MsgHostReconnected, map[string]interface{}{
		"message": "Host has reconnected!",
		"room":    room,
	})
}

func (g *Gateway) handleStartGame(connID string, raw json.RawMessage) {
	var p startGamePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	if len(p.Playlist) == 0 {
		g.sendError(connID, "playlist must not be empty")
		return
	}
	room, err := g.mgr.StartGame(p.RoomCode, connID, p.Playlist, p.Shuffle, p.RotateJudge)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.sender.BroadcastToRoom(room.Code, MsgGameStarted, map[string]interface{}{
		"room": room,
	})
}

func (g *Gateway) handleBuzzIn(connID string, raw json.RawMessage) {
	var p roomCodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	res, err := g.mgr.BuzzIn(p.RoomCode, connID)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.sender.BroadcastToRoom(p.RoomCode, MsgPlayerIsGuessing, map[string]interface{}{
		"player":    res.Player,
		"timeLimit": int(g.guessTimeout.Seconds()),
	})

	roomCode, guesser := p.RoomCode, connID
	g.timers.Arm(roomCode, guesser, g.guessTimeout, func() {
		if room, cleared := g.mgr.ClearGuesser(roomCode, guesser); cleared {
			g.sender.BroadcastToRoom(roomCode, MsgGuessTimeExpired, map[string]interface{}{
				"message": "Time expired! Continue playing.",
				"room":    room,
			})
		}
	})
}

func (g *Gateway) handleSubmitJudgment(connID string, raw json.RawMessage) {
	var p submitJudgmentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	res, err := g.mgr.SubmitJudgment(p.RoomCode, connID, p.IsCorrect)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.timers.Cancel(p.RoomCode, res.Guesser.ConnID)

	if res.GameOver {
		g.sender.BroadcastToRoom(p.RoomCode, MsgGameOver, map[string]interface{}{
			"winner":      res.Winner,
			"finalScores": res.Room.Players,
		})
		g.archiveGame(res)
		return
	}

	g.sender.BroadcastToRoom(p.RoomCode, MsgRoundOver, map[string]interface{}{
		"isCorrect": res.Correct,
		"guesser":   res.Guesser,
		"room":      res.Room,
	})

	if res.Correct && g.advanceDelay > 0 {
		roomCode := p.RoomCode
		time.AfterFunc(g.advanceDelay, func() {
			room, err := g.mgr.AutoAdvance(roomCode)
			if err != nil {
				return
			}
			g.sender.BroadcastToRoom(roomCode, MsgSongChanged, map[string]interface{}{
				"room": room,
			})
		})
	}
}

func (g *Gateway) handleNextSong(connID string, raw json.RawMessage) {
	var p roomCodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	room, err := g.mgr.NextSong(p.RoomCode, connID)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.sender.BroadcastToRoom(room.Code, MsgSongChanged, map[string]interface{}{
		"room": room,
	})
}

func (g *Gateway) handleForceNextSong(connID string, raw json.RawMessage) {
	var p forceNextSongPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		g.sendError(connID, "malformed message")
		return
	}
	room, err := g.mgr.ForceNextSong(p.RoomCode, connID, p.Track)
	if err != nil {
		g.sendError(connID, err.Error())
		return
	}
	g.sender.BroadcastToRoom(room.Code, MsgSongChanged, map[string]interface{}{
		"room": room,
	})
}

// HandleDisconnect reconciles a dropped connection and notifies the
// remaining room members.
func (g *Gateway) HandleDisconnect(connID string) {
	res, ok := g.mgr.HandleDisconnect(connID)
	if !ok {
		return
	}

	switch {
	case res.HostDisconnected && res.Room != nil:
		g.sender.BroadcastToOthers(res.RoomCode, connID, MsgHostDisconnected, map[string]interface{}{
			"message":             "Host disconnected. Waiting for reconnection...",
			"waitingForReconnect": true,
		})
	case res.WasHost && res.Room == nil:
		g.sender.BroadcastToOthers(res.RoomCode, connID, MsgHostDisconnected, map[string]interface{}{
			"message":             "Host left. The room has been closed.",
			"waitingForReconnect": false,
		})
	case res.Room != nil:
		g.sender.BroadcastToOthers(res.RoomCode, connID, MsgPlayerLeft, map[string]interface{}{
			"room": res.Room,
		})
	}
}

func (g *Gateway) archiveGame(res *game.JudgmentResult) {
	if g.history == nil {
		return
	}
	record := &model.GameRecord{
		RoomCode:   res.Room.Code,
		WinnerName: res.Winner.DisplayName,
		TrackCount: res.TrackCount,
		StartedAt:  res.StartedAt,
		EndedAt:    res.EndedAt,
	}
	for _, p := range res.Room.Players {
		record.Scores = append(record.Scores, model.FinalScore{
			DisplayName: p.DisplayName,
			Score:       p.Score,
			IsHost:      p.IsHost,
		})
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.history.Insert(ctx, record); err != nil && !errors.Is(err, context.Canceled) {
			g.log.Error().Err(err).Str("room", record.RoomCode).Msg("failed to archive game")
		}
	}()
}

func (g *Gateway) sendError(connID, reason string) {
	g.sender.SendToConn(connID, MsgError, map[string]string{"message": reason})
}
