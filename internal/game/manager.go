package game

import (
	"crypto/subtle"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"guessthetune/internal/model"
)

// DisconnectPolicy selects how a host disconnect is handled.
type DisconnectPolicy string

const (
	// DisconnectStrict deletes the room the moment the host drops.
	DisconnectStrict DisconnectPolicy = "strict"
	// DisconnectResilient keeps the room alive awaiting a host rejoin
	// via the host secret. This is the default.
	DisconnectResilient DisconnectPolicy = "resilient"
)

// DefaultWinningScore is the score at which a guesser wins the game.
const DefaultWinningScore = 10

// Manager owns all mutations of room state. Every operation locks the
// target room for its whole duration, which is what makes the
// first-buzz-wins and judgment-vs-timeout races well defined.
type Manager struct {
	store        *Store
	policy       DisconnectPolicy
	winningScore int
	log          zerolog.Logger
}

// NewManager creates a manager around the given store.
func NewManager(store *Store, policy DisconnectPolicy, winningScore int, log zerolog.Logger) *Manager {
	if policy != DisconnectStrict {
		policy = DisconnectResilient
	}
	if winningScore <= 0 {
		winningScore = DefaultWinningScore
	}
	return &Manager{
		store:        store,
		policy:       policy,
		winningScore: winningScore,
		log:          log.With().Str("component", "game").Logger(),
	}
}

// DisconnectResult describes the outcome of a connection dropping.
type DisconnectResult struct {
	RoomCode         string
	WasHost          bool
	HostDisconnected bool // resilient policy: room kept, awaiting rejoin
	Room             *model.Room
}

// BuzzResult is returned on an accepted buzz-in.
type BuzzResult struct {
	Player model.Player
	Room   *model.Room
}

// JudgmentResult is returned on an accepted judgment.
type JudgmentResult struct {
	Correct    bool
	GameOver   bool
	Winner     *model.Player
	Guesser    model.Player
	Room       *model.Room
	StartedAt  time.Time
	EndedAt    time.Time
	TrackCount int
}

// CreateRoom registers a new room with the caller as host and returns
// the initial snapshot together with the host secret.
func (m *Manager) CreateRoom(connID, displayName string) (*model.Room, string, error) {
	if !validDisplayName(displayName) {
		return nil, "", ErrInvalidDisplayName
	}
	room := m.store.Create(connID, strings.TrimSpace(displayName))
	room.mu.Lock()
	snap, secret := room.snapshot(), room.hostSecret
	room.mu.Unlock()
	m.log.Info().Str("room", snap.Code).Msg("room created")
	return snap, secret, nil
}

// JoinRoom adds a non-host player to a lobby room. A repeated join
// from the same connection is a no-op returning the current snapshot.
func (m *Manager) JoinRoom(code, connID, displayName string) (*model.Room, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if p := room.findPlayer(connID); p != nil {
		return room.snapshot(), nil
	}
	if room.state != model.RoomStateLobby {
		return nil, ErrGameInProgress
	}
	if !validDisplayName(displayName) {
		return nil, ErrInvalidDisplayName
	}
	room.players = append(room.players, &model.Player{
		ConnID:      connID,
		DisplayName: strings.TrimSpace(displayName),
		Score:       0,
		IsHost:      false,
	})
	return room.snapshot(), nil
}

// RejoinAsHost re-attaches a new connection to the host seat. This is
// the only operation allowed to rewrite a player's connection ID.
func (m *Manager) RejoinAsHost(code, hostSecret, newConnID string) (*model.Room, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if subtle.ConstantTimeCompare([]byte(hostSecret), []byte(room.hostSecret)) != 1 {
		return nil, ErrUnauthorized
	}
	for _, p := range room.players {
		if p.IsHost {
			p.ConnID = newConnID
			break
		}
	}
	room.hostConnID = newConnID
	room.awaitingHost = false
	m.log.Info().Str("room", code).Msg("host rejoined")
	return room.snapshot(), nil
}

// HandleDisconnect reconciles a dropped connection with whatever room
// it belonged to. Returns false if the connection was in no room.
func (m *Manager) HandleDisconnect(connID string) (*DisconnectResult, bool) {
	room, ok := m.store.FindByConn(connID)
	if !ok {
		return nil, false
	}

	room.mu.Lock()
	code := room.code
	idx := -1
	for i, p := range room.players {
		if p.ConnID == connID {
			idx = i
			break
		}
	}
	if idx == -1 {
		room.mu.Unlock()
		return nil, false
	}

	if room.players[idx].IsHost {
		if m.policy == DisconnectResilient {
			room.awaitingHost = true
			snap := room.snapshot()
			room.mu.Unlock()
			m.log.Info().Str("room", code).Msg("host disconnected, awaiting rejoin")
			return &DisconnectResult{RoomCode: code, WasHost: true, HostDisconnected: true, Room: snap}, true
		}
		room.mu.Unlock()
		m.store.Delete(code)
		m.log.Info().Str("room", code).Msg("host disconnected, room deleted")
		return &DisconnectResult{RoomCode: code, WasHost: true}, true
	}

	room.removePlayerAt(idx)
	if len(room.players) == 0 {
		room.mu.Unlock()
		m.store.Delete(code)
		return &DisconnectResult{RoomCode: code}, true
	}
	snap := room.snapshot()
	room.mu.Unlock()
	return &DisconnectResult{RoomCode: code, Room: snap}, true
}

// StartGame installs the playlist and moves the room into playing.
func (m *Manager) StartGame(code, connID string, playlist []model.Track, shuffle, rotateJudge bool) (*model.Room, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.hostConnID != connID {
		return nil, ErrUnauthorized
	}
	if len(playlist) == 0 {
		return nil, ErrEmptyPlaylist
	}

	tracks := make([]model.Track, len(playlist))
	copy(tracks, playlist)
	if shuffle {
		rand.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	}

	room.playlist = tracks
	room.state = model.RoomStatePlaying
	room.currentTrackIndex = 0
	room.currentGuesser = ""
	room.rotateJudge = rotateJudge
	room.startedAt = time.Now()
	m.log.Info().Str("room", code).Int("tracks", len(tracks)).Bool("shuffle", shuffle).Msg("game started")
	return room.snapshot(), nil
}

// BuzzIn resolves the buzz race. The check-and-set runs under the room
// lock, so exactly one of any number of concurrent attempts wins.
func (m *Manager) BuzzIn(code, connID string) (*BuzzResult, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.state != model.RoomStatePlaying {
		return nil, ErrInvalidState
	}
	if room.currentGuesser != "" {
		return nil, ErrAlreadyGuessing
	}
	if j := room.judge(); j != nil && j.ConnID == connID {
		return nil, ErrJudgeCannotBuzz
	}
	player := room.findPlayer(connID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	room.currentGuesser = connID
	room.state = model.RoomStateGuessing
	return &BuzzResult{Player: *player, Room: room.snapshot()}, nil
}

// ClearGuesser ends the guess window, but only if the recorded guesser
// still matches the one the window was armed for. A judgment that
// already resolved the round makes the late timer a no-op.
func (m *Manager) ClearGuesser(code, expectedGuesser string) (*model.Room, bool) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.currentGuesser == "" || room.currentGuesser != expectedGuesser {
		return nil, false
	}
	room.currentGuesser = ""
	room.state = model.RoomStatePlaying
	return room.snapshot(), true
}

// SubmitJudgment applies the judge's ruling on the active guess.
func (m *Manager) SubmitJudgment(code, judgeConnID string, isCorrect bool) (*JudgmentResult, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	judge := room.judge()
	if judge == nil || judge.ConnID != judgeConnID {
		return nil, ErrNotJudge
	}
	guesser := room.findPlayer(room.currentGuesser)
	if room.currentGuesser == "" || guesser == nil {
		return nil, ErrNoGuesser
	}

	res := &JudgmentResult{Correct: isCorrect}
	if isCorrect {
		guesser.Score++
		if guesser.Score >= m.winningScore {
			room.state = model.RoomStateGameOver
			room.currentGuesser = ""
			winner := *guesser
			res.GameOver = true
			res.Winner = &winner
			res.Guesser = winner
			res.Room = room.snapshot()
			res.StartedAt = room.startedAt
			res.EndedAt = time.Now()
			res.TrackCount = len(room.playlist)
			m.log.Info().Str("room", code).Str("winner", winner.DisplayName).Msg("game over")
			return res, nil
		}
		if room.rotateJudge {
			room.currentJudgeIndex = (room.currentJudgeIndex + 1) % len(room.players)
		}
	}

	res.Guesser = *guesser
	room.currentGuesser = ""
	room.state = model.RoomStatePlaying
	res.Room = room.snapshot()
	return res, nil
}

// NextSong advances the playlist on the host's request.
func (m *Manager) NextSong(code, connID string) (*model.Room, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.hostConnID != connID {
		return nil, ErrUnauthorized
	}
	return m.advanceLocked(room)
}

// AutoAdvance advances the playlist without a host check. Used by the
// gateway's scheduled advance after a correct guess.
func (m *Manager) AutoAdvance(code string) (*model.Room, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return m.advanceLocked(room)
}

func (m *Manager) advanceLocked(room *Room) (*model.Room, error) {
	if room.state == model.RoomStateGameOver {
		return nil, ErrInvalidState
	}
	if len(room.playlist) == 0 {
		return nil, ErrInvalidState
	}
	room.currentTrackIndex = (room.currentTrackIndex + 1) % len(room.playlist)
	room.currentGuesser = ""
	room.state = model.RoomStatePlaying
	return room.snapshot(), nil
}

// ForceNextSong inserts a track right after the current one and jumps
// onto it, leaving the untouched remainder of the playlist in order.
func (m *Manager) ForceNextSong(code, connID string, track model.Track) (*model.Room, error) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()

	if room.hostConnID != connID {
		return nil, ErrUnauthorized
	}
	if room.state == model.RoomStateGameOver {
		return nil, ErrInvalidState
	}

	pos := room.currentTrackIndex + 1
	if pos > len(room.playlist) {
		pos = len(room.playlist)
	}
	room.playlist = append(room.playlist[:pos], append([]model.Track{track}, room.playlist[pos:]...)...)
	room.currentTrackIndex = (room.currentTrackIndex + 1) % len(room.playlist)
	room.currentGuesser = ""
	room.state = model.RoomStatePlaying
	return room.snapshot(), nil
}

// Room returns a snapshot of a live room.
func (m *Manager) Room(code string) (*model.Room, bool) {
	room, ok := m.store.Get(code)
	if !ok {
		return nil, false
	}
	return room.Snapshot(), true
}

// RoomSummaries lists live rooms for the directory endpoint.
func (m *Manager) RoomSummaries() []model.RoomSummary {
	rooms := m.store.All()
	summaries := make([]model.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		hostName := ""
		for _, p := range room.players {
			if p.IsHost {
				hostName = p.DisplayName
				break
			}
		}
		summaries = append(summaries, model.RoomSummary{
			Code:            room.code,
			PlayerCount:     len(room.players),
			State:           room.state,
			HostDisplayName: hostName,
			CurrentTrack:    room.currentTrackLabel(),
		})
		room.mu.Unlock()
	}
	return summaries
}

func validDisplayName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 1 && n <= 20
}
