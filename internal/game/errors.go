package game

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrPlayerNotFound     = errors.New("player not found in room")
	ErrGameInProgress     = errors.New("cannot join a game in progress")
	ErrInvalidState       = errors.New("operation not allowed in current game state")
	ErrUnauthorized       = errors.New("not authorized for this action")
	ErrNotJudge           = errors.New("you are not the current judge")
	ErrJudgeCannotBuzz    = errors.New("judge cannot buzz in")
	ErrAlreadyGuessing    = errors.New("someone is already guessing")
	ErrNoGuesser          = errors.New("no active guesser")
	ErrInvalidDisplayName = errors.New("display name must be 1-20 characters")
	ErrEmptyPlaylist      = errors.New("playlist must not be empty")
)
