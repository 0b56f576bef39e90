package game

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guessthetune/internal/model"
)

func newTestManager(policy DisconnectPolicy, winningScore int) *Manager {
	return NewManager(NewStore(), policy, winningScore, zerolog.Nop())
}

func testPlaylist(n int) []model.Track {
	tracks := make([]model.Track, n)
	for i := range tracks {
		tracks[i] = model.Track{
			ID:      fmt.Sprintf("track-%d", i),
			URI:     fmt.Sprintf("spotify:track:%d", i),
			Name:    fmt.Sprintf("Song %d", i),
			Artists: []string{"Artist"},
		}
	}
	return tracks
}

// startedRoom creates a room with a host and n extra players and starts
// a game with the given playlist length. Judge rotation is off.
func startedRoom(t *testing.T, m *Manager, players, tracks int) (code string, connIDs []string) {
	t.Helper()
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	code = snap.Code
	connIDs = []string{"host"}

	for i := 0; i < players; i++ {
		id := fmt.Sprintf("player-%d", i)
		_, err := m.JoinRoom(code, id, fmt.Sprintf("Player %d", i))
		require.NoError(t, err)
		connIDs = append(connIDs, id)
	}

	_, err = m.StartGame(code, "host", testPlaylist(tracks), false, false)
	require.NoError(t, err)
	return code, connIDs
}

func TestCreateRoom(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)

	snap, secret, err := m.CreateRoom("host-conn", "Maya")
	require.NoError(t, err)
	assert.Len(t, secret, 64)
	assert.Equal(t, model.RoomStateLobby, snap.State)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "host-conn", snap.Players[0].ConnID)
	assert.Equal(t, "Maya", snap.Players[0].DisplayName)
	assert.True(t, snap.Players[0].IsHost)
	assert.Equal(t, 0, snap.CurrentJudgeIndex)
}

func TestCreateRoom_InvalidDisplayName(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)

	for _, name := range []string{"", "   ", "this display name is way too long"} {
		_, _, err := m.CreateRoom("conn", name)
		assert.ErrorIs(t, err, ErrInvalidDisplayName, "name %q", name)
	}
}

func TestJoinRoom(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)

	joined, err := m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)
	require.Len(t, joined.Players, 2)
	assert.False(t, joined.Players[1].IsHost)
	assert.Equal(t, 0, joined.Players[1].Score)
}

func TestJoinRoom_Idempotent(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)

	_, err = m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)
	again, err := m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)
	assert.Len(t, again.Players, 2)
}

func TestJoinRoom_Errors(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)

	_, err = m.JoinRoom("ZZZZ", "p1", "Alice")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = m.JoinRoom(snap.Code, "p1", "")
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = m.StartGame(snap.Code, "host", testPlaylist(3), false, false)
	require.NoError(t, err)
	_, err = m.JoinRoom(snap.Code, "late", "Late")
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestStartGame(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)

	playlist := testPlaylist(5)
	started, err := m.StartGame(snap.Code, "host", playlist, false, true)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatePlaying, started.State)
	assert.Equal(t, 0, started.CurrentTrackIndex)
	assert.True(t, started.RotateJudge)
	assert.Equal(t, playlist, started.Playlist)
}

func TestStartGame_ShuffleIsPermutation(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)

	playlist := testPlaylist(50)
	started, err := m.StartGame(snap.Code, "host", playlist, true, false)
	require.NoError(t, err)

	require.Len(t, started.Playlist, len(playlist))
	want := make(map[string]int)
	got := make(map[string]int)
	for i := range playlist {
		want[playlist[i].ID]++
		got[started.Playlist[i].ID]++
	}
	assert.Equal(t, want, got)
	// Caller's slice must not be reordered in place.
	assert.Equal(t, "track-0", playlist[0].ID)
}

func TestStartGame_Errors(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	_, err = m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)

	_, err = m.StartGame(snap.Code, "p1", testPlaylist(3), false, false)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.StartGame(snap.Code, "host", nil, false, false)
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestBuzzIn_FirstWins(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 8, 3)

	// Judge is the host (index 0), every other player races.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []string
	var conflicts int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			res, err := m.BuzzIn(code, connID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, res.Player.ConnID)
			case err == ErrAlreadyGuessing:
				conflicts++
			default:
				t.Errorf("unexpected buzz error: %v", err)
			}
		}(fmt.Sprintf("player-%d", i))
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one buzz must win")
	assert.Equal(t, 7, conflicts)

	snap, ok := m.Room(code)
	require.True(t, ok)
	assert.Equal(t, winners[0], snap.CurrentGuesser)
	assert.Equal(t, model.RoomStateGuessing, snap.State)
}

func TestBuzzIn_JudgeRejected(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "host")
	assert.ErrorIs(t, err, ErrJudgeCannotBuzz)
}

func TestBuzzIn_Rejections(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	_, err = m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)

	// Lobby: nothing to buzz on.
	_, err = m.BuzzIn(snap.Code, "p1")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = m.StartGame(snap.Code, "host", testPlaylist(3), false, false)
	require.NoError(t, err)

	_, err = m.BuzzIn(snap.Code, "stranger")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = m.BuzzIn(snap.Code, "p1")
	require.NoError(t, err)
	_, err = m.BuzzIn(snap.Code, "p1")
	assert.ErrorIs(t, err, ErrAlreadyGuessing)
}

func TestClearGuesser(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "player-0")
	require.NoError(t, err)

	snap, cleared := m.ClearGuesser(code, "player-0")
	require.True(t, cleared)
	assert.Empty(t, snap.CurrentGuesser)
	assert.Equal(t, model.RoomStatePlaying, snap.State)
}

func TestClearGuesser_StaleTimerNoOp(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "player-0")
	require.NoError(t, err)
	_, err = m.SubmitJudgment(code, "host", false)
	require.NoError(t, err)
	_, err = m.BuzzIn(code, "player-1")
	require.NoError(t, err)

	// A late expiry for player-0's window must not clobber player-1's
	// active guess.
	_, cleared := m.ClearGuesser(code, "player-0")
	assert.False(t, cleared)

	snap, ok := m.Room(code)
	require.True(t, ok)
	assert.Equal(t, "player-1", snap.CurrentGuesser)
	assert.Equal(t, model.RoomStateGuessing, snap.State)
}

func TestSubmitJudgment_Incorrect(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "player-0")
	require.NoError(t, err)

	res, err := m.SubmitJudgment(code, "host", false)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.GameOver)
	assert.Equal(t, 0, res.Guesser.Score)
	assert.Empty(t, res.Room.CurrentGuesser)
	assert.Equal(t, model.RoomStatePlaying, res.Room.State)
}

func TestSubmitJudgment_CorrectScoresAndRotates(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	code := snap.Code
	_, err = m.JoinRoom(code, "p1", "Alice")
	require.NoError(t, err)
	_, err = m.JoinRoom(code, "p2", "Bob")
	require.NoError(t, err)
	_, err = m.StartGame(code, "host", testPlaylist(3), false, true)
	require.NoError(t, err)

	_, err = m.BuzzIn(code, "p1")
	require.NoError(t, err)
	res, err := m.SubmitJudgment(code, "host", true)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 1, res.Guesser.Score)
	assert.Equal(t, 1, res.Room.CurrentJudgeIndex)

	// p1 is judge now, so host can no longer rule.
	_, err = m.BuzzIn(code, "p2")
	require.NoError(t, err)
	_, err = m.SubmitJudgment(code, "host", true)
	assert.ErrorIs(t, err, ErrNotJudge)
	res, err = m.SubmitJudgment(code, "p1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Room.CurrentJudgeIndex)
}

func TestSubmitJudgment_NoRotationWhenDisabled(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "player-0")
	require.NoError(t, err)
	res, err := m.SubmitJudgment(code, "host", true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Room.CurrentJudgeIndex)
}

func TestSubmitJudgment_WinEndsGame(t *testing.T) {
	m := newTestManager(DisconnectResilient, 10)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	code := snap.Code
	_, err = m.JoinRoom(code, "alice", "Alice")
	require.NoError(t, err)
	_, err = m.StartGame(code, "host", testPlaylist(5), false, true)
	require.NoError(t, err)

	room, ok := m.store.Get(code)
	require.True(t, ok)
	room.mu.Lock()
	room.findPlayer("alice").Score = 9
	room.mu.Unlock()

	_, err = m.BuzzIn(code, "alice")
	require.NoError(t, err)
	res, err := m.SubmitJudgment(code, "host", true)
	require.NoError(t, err)

	assert.True(t, res.GameOver)
	require.NotNil(t, res.Winner)
	assert.Equal(t, "Alice", res.Winner.DisplayName)
	assert.Equal(t, 10, res.Winner.Score)
	assert.Equal(t, model.RoomStateGameOver, res.Room.State)
	assert.Empty(t, res.Room.CurrentGuesser)
	// No judge rotation on the terminating round.
	assert.Equal(t, 0, res.Room.CurrentJudgeIndex)
	assert.False(t, res.EndedAt.IsZero())
	assert.Equal(t, 5, res.TrackCount)

	// A finished game accepts no further play.
	_, err = m.BuzzIn(code, "alice")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.NextSong(code, "host")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitJudgment_Errors(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	// No active guesser yet.
	_, err := m.SubmitJudgment(code, "host", true)
	assert.ErrorIs(t, err, ErrNoGuesser)

	_, err = m.BuzzIn(code, "player-0")
	require.NoError(t, err)
	_, err = m.SubmitJudgment(code, "player-1", true)
	assert.ErrorIs(t, err, ErrNotJudge)
}

func TestNextSong_Wraparound(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 1, 3)

	for _, want := range []int{1, 2, 0, 1} {
		snap, err := m.NextSong(code, "host")
		require.NoError(t, err)
		assert.Equal(t, want, snap.CurrentTrackIndex)
	}
}

func TestNextSong_HostOnly(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 1, 3)

	_, err := m.NextSong(code, "player-0")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNextSong_ResetsGuessWindow(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "player-0")
	require.NoError(t, err)
	snap, err := m.NextSong(code, "host")
	require.NoError(t, err)
	assert.Empty(t, snap.CurrentGuesser)
	assert.Equal(t, model.RoomStatePlaying, snap.State)
}

func TestForceNextSong(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 1, 3)

	inserted := model.Track{ID: "special", Name: "Special Request", Artists: []string{"DJ"}}
	snap, err := m.ForceNextSong(code, "host", inserted)
	require.NoError(t, err)

	require.Len(t, snap.Playlist, 4)
	assert.Equal(t, 1, snap.CurrentTrackIndex)
	assert.Equal(t, "special", snap.Playlist[1].ID)
	// Remainder keeps its order.
	assert.Equal(t, "track-1", snap.Playlist[2].ID)
	assert.Equal(t, "track-2", snap.Playlist[3].ID)

	_, err = m.ForceNextSong(code, "player-0", inserted)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRejoinAsHost(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, secret, err := m.CreateRoom("old-conn", "Host")
	require.NoError(t, err)
	code := snap.Code
	_, err = m.JoinRoom(code, "p1", "Alice")
	require.NoError(t, err)

	res, ok := m.HandleDisconnect("old-conn")
	require.True(t, ok)
	assert.True(t, res.HostDisconnected)

	rejoined, err := m.RejoinAsHost(code, secret, "new-conn")
	require.NoError(t, err)
	require.Len(t, rejoined.Players, 2)
	host := rejoined.Players[0]
	assert.True(t, host.IsHost)
	assert.Equal(t, "new-conn", host.ConnID)
	assert.Equal(t, "Host", host.DisplayName)

	// The new connection now has host privileges.
	_, err = m.StartGame(code, "new-conn", testPlaylist(3), false, false)
	assert.NoError(t, err)
}

func TestRejoinAsHost_WrongSecret(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("old-conn", "Host")
	require.NoError(t, err)

	_, err = m.RejoinAsHost(snap.Code, "deadbeef", "new-conn")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.RejoinAsHost("ZZZZ", "deadbeef", "new-conn")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestHandleDisconnect_HostResilient(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	_, err = m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)

	res, ok := m.HandleDisconnect("host")
	require.True(t, ok)
	assert.True(t, res.WasHost)
	assert.True(t, res.HostDisconnected)

	// Room survives, awaiting rejoin.
	_, ok = m.Room(snap.Code)
	assert.True(t, ok)
}

func TestHandleDisconnect_HostStrict(t *testing.T) {
	m := newTestManager(DisconnectStrict, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	_, err = m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)

	res, ok := m.HandleDisconnect("host")
	require.True(t, ok)
	assert.True(t, res.WasHost)
	assert.False(t, res.HostDisconnected)

	_, ok = m.Room(snap.Code)
	assert.False(t, ok)
}

func TestHandleDisconnect_Player(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	_, err = m.JoinRoom(snap.Code, "p1", "Alice")
	require.NoError(t, err)

	res, ok := m.HandleDisconnect("p1")
	require.True(t, ok)
	assert.False(t, res.WasHost)
	require.NotNil(t, res.Room)
	assert.Len(t, res.Room.Players, 1)
}

func TestHandleDisconnect_UnknownConn(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	_, ok := m.HandleDisconnect("nobody")
	assert.False(t, ok)
}

func TestHandleDisconnect_GuesserLeavingResetsRound(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	_, err := m.BuzzIn(code, "player-0")
	require.NoError(t, err)

	res, ok := m.HandleDisconnect("player-0")
	require.True(t, ok)
	assert.Empty(t, res.Room.CurrentGuesser)
	assert.Equal(t, model.RoomStatePlaying, res.Room.State)
}

func TestHandleDisconnect_ClampsJudgeIndex(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	code := snap.Code
	_, err = m.JoinRoom(code, "p1", "Alice")
	require.NoError(t, err)
	_, err = m.JoinRoom(code, "p2", "Bob")
	require.NoError(t, err)
	_, err = m.StartGame(code, "host", testPlaylist(3), false, true)
	require.NoError(t, err)

	// Rotate judge onto p2 (index 2).
	for _, guesser := range []string{"p1", "p2"} {
		_, err = m.BuzzIn(code, guesser)
		require.NoError(t, err)
		judge, ok := m.Room(code)
		require.True(t, ok)
		_, err = m.SubmitJudgment(code, judge.Players[judge.CurrentJudgeIndex].ConnID, true)
		require.NoError(t, err)
	}
	room, ok := m.Room(code)
	require.True(t, ok)
	require.Equal(t, 2, room.CurrentJudgeIndex)

	// Judge at the tail leaves: index wraps back to the head.
	res, ok := m.HandleDisconnect("p2")
	require.True(t, ok)
	assert.Equal(t, 0, res.Room.CurrentJudgeIndex)
}

func TestHandleDisconnect_JudgeIndexShiftsDown(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)
	code := snap.Code
	for _, p := range []string{"p1", "p2", "p3"} {
		_, err = m.JoinRoom(code, p, p)
		require.NoError(t, err)
	}
	_, err = m.StartGame(code, "host", testPlaylist(3), false, true)
	require.NoError(t, err)

	// Rotate the judge seat onto p2 (index 2).
	for _, guesser := range []string{"p1", "p2"} {
		_, err = m.BuzzIn(code, guesser)
		require.NoError(t, err)
		judge, ok := m.Room(code)
		require.True(t, ok)
		_, err = m.SubmitJudgment(code, judge.Players[judge.CurrentJudgeIndex].ConnID, true)
		require.NoError(t, err)
	}

	// p1 sits before the judge; its removal shifts the index down but
	// the seat stays with p2.
	res, ok := m.HandleDisconnect("p1")
	require.True(t, ok)
	assert.Equal(t, 1, res.Room.CurrentJudgeIndex)
	assert.Equal(t, "p2", res.Room.Players[res.Room.CurrentJudgeIndex].ConnID)
}

func TestHandleDisconnect_LastPlayerDeletesRoom(t *testing.T) {
	m := newTestManager(DisconnectStrict, 0)
	snap, _, err := m.CreateRoom("host", "Host")
	require.NoError(t, err)

	_, ok := m.HandleDisconnect("host")
	require.True(t, ok)
	_, ok = m.Room(snap.Code)
	assert.False(t, ok)
}

func TestRoomSummaries(t *testing.T) {
	m := newTestManager(DisconnectResilient, 0)
	code, _ := startedRoom(t, m, 2, 3)

	summaries := m.RoomSummaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, code, summaries[0].Code)
	assert.Equal(t, 3, summaries[0].PlayerCount)
	assert.Equal(t, model.RoomStatePlaying, summaries[0].State)
	assert.Equal(t, "Host", summaries[0].HostDisplayName)
	assert.Equal(t, "Song 0 by Artist", summaries[0].CurrentTrack)
}
