package game

import (
	"sync"
	"time"

	"guessthetune/internal/model"
)

// Room is the live, mutable session entity. All fields below mu are
// guarded by it; callers outside this package only ever see snapshots.
type Room struct {
	mu sync.Mutex

	code         string
	hostConnID   string
	hostSecret   string
	awaitingHost bool

	players           []*model.Player
	state             model.RoomState
	playlist          []model.Track
	currentTrackIndex int
	currentGuesser    string
	currentJudgeIndex int
	rotateJudge       bool
	createdAt         time.Time
	startedAt         time.Time
}

// snapshot copies the room into its wire form. Caller must hold r.mu.
func (r *Room) snapshot() *model.Room {
	players := make([]model.Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	var playlist []model.Track
	if r.playlist != nil {
		playlist = make([]model.Track, len(r.playlist))
		copy(playlist, r.playlist)
	}
	return &model.Room{
		Code:              r.code,
		State:             r.state,
		Players:           players,
		Playlist:          playlist,
		CurrentTrackIndex: r.currentTrackIndex,
		CurrentGuesser:    r.currentGuesser,
		CurrentJudgeIndex: r.currentJudgeIndex,
		RotateJudge:       r.rotateJudge,
		CreatedAt:         r.createdAt,
	}
}

// Snapshot returns a copy of the room safe to serialize concurrently.
func (r *Room) Snapshot() *model.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// findPlayer returns the player with the given connection ID, or nil.
// Caller must hold r.mu.
func (r *Room) findPlayer(connID string) *model.Player {
	for _, p := range r.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// judge returns the player at the current judge index, or nil if the
// index is somehow out of range. Caller must hold r.mu.
func (r *Room) judge() *model.Player {
	if r.currentJudgeIndex < 0 || r.currentJudgeIndex >= len(r.players) {
		return nil
	}
	return r.players[r.currentJudgeIndex]
}

// removePlayerAt removes the player at index i and keeps the judge
// index pointing at a valid player. If the removed player was the
// active guesser the round is reset so the room never references a
// departed guesser. Caller must hold r.mu.
func (r *Room) removePlayerAt(i int) {
	removed := r.players[i]
	r.players = append(r.players[:i], r.players[i+1:]...)

	if len(r.players) == 0 {
		return
	}
	if i < r.currentJudgeIndex {
		r.currentJudgeIndex--
	}
	if r.currentJudgeIndex >= len(r.players) {
		r.currentJudgeIndex = 0
	}
	if r.currentGuesser == removed.ConnID {
		r.currentGuesser = ""
		if r.state == model.RoomStateGuessing {
			r.state = model.RoomStatePlaying
		}
	}
}

// currentTrackLabel renders "Name by Artist" for the directory
// listing. Caller must hold r.mu.
func (r *Room) currentTrackLabel() string {
	if len(r.playlist) == 0 || r.currentTrackIndex < 0 || r.currentTrackIndex >= len(r.playlist) {
		return ""
	}
	t := r.playlist[r.currentTrackIndex]
	label := t.Name
	if len(t.Artists) > 0 {
		label += " by " + t.Artists[0]
	}
	return label
}
