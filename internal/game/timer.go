package game

import (
	"sync"
	"time"
)

// GuessTimers schedules the guess-window expirations. Each armed timer
// remembers the guesser it was armed for, so a timer that fires after
// the round was resolved another way identifies itself as stale and is
// dropped. The authoritative stale check lives in Manager.ClearGuesser;
// the bookkeeping here just keeps timers from piling up.
type GuessTimers struct {
	mu     sync.Mutex
	timers map[string]*guessTimer // keyed by room code
}

type guessTimer struct {
	guesser string
	timer   *time.Timer
}

// NewGuessTimers creates an empty scheduler.
func NewGuessTimers() *GuessTimers {
	return &GuessTimers{timers: make(map[string]*guessTimer)}
}

// Arm schedules fire after d for the given room and guesser, replacing
// any timer already armed for the room.
func (g *GuessTimers) Arm(roomCode, guesser string, d time.Duration, fire func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.timers[roomCode]; ok {
		existing.timer.Stop()
	}
	gt := &guessTimer{guesser: guesser}
	gt.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		current, ok := g.timers[roomCode]
		if !ok || current != gt {
			g.mu.Unlock()
			return
		}
		delete(g.timers, roomCode)
		g.mu.Unlock()
		fire()
	})
	g.timers[roomCode] = gt
}

// Cancel stops the room's timer if it is still armed for the given
// guesser. A mismatched guesser means the timer belongs to a newer
// round and is left alone.
func (g *GuessTimers) Cancel(roomCode, guesser string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gt, ok := g.timers[roomCode]
	if !ok || gt.guesser != guesser {
		return
	}
	gt.timer.Stop()
	delete(g.timers, roomCode)
}
