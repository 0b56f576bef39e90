package game

import (
	"testing"
	"time"
)

func TestGuessTimers_Fires(t *testing.T) {
	g := NewGuessTimers()
	fired := make(chan struct{})

	g.Arm("ABCD", "p1", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestGuessTimers_CancelStopsFire(t *testing.T) {
	g := NewGuessTimers()
	fired := make(chan struct{}, 1)

	g.Arm("ABCD", "p1", 20*time.Millisecond, func() { fired <- struct{}{} })
	g.Cancel("ABCD", "p1")

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGuessTimers_CancelIgnoresOtherGuesser(t *testing.T) {
	g := NewGuessTimers()
	fired := make(chan struct{})

	g.Arm("ABCD", "p2", 20*time.Millisecond, func() { close(fired) })
	// A cancel for the previous round's guesser must not touch p2's timer.
	g.Cancel("ABCD", "p1")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer for the new round was wrongly cancelled")
	}
}

func TestGuessTimers_RearmReplaces(t *testing.T) {
	g := NewGuessTimers()
	firstFired := make(chan struct{}, 1)
	secondFired := make(chan struct{})

	g.Arm("ABCD", "p1", 20*time.Millisecond, func() { firstFired <- struct{}{} })
	g.Arm("ABCD", "p2", 40*time.Millisecond, func() { close(secondFired) })

	select {
	case <-secondFired:
	case <-time.After(time.Second):
		t.Fatal("replacement timer never fired")
	}
	select {
	case <-firstFired:
		t.Fatal("replaced timer fired")
	default:
	}
}

func TestGuessTimers_RoomsAreIndependent(t *testing.T) {
	g := NewGuessTimers()
	a := make(chan struct{})
	b := make(chan struct{})

	g.Arm("AAAA", "p1", 10*time.Millisecond, func() { close(a) })
	g.Arm("BBBB", "p1", 10*time.Millisecond, func() { close(b) })

	for name, ch := range map[string]chan struct{}{"AAAA": a, "BBBB": b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("timer for room %s never fired", name)
		}
	}
}
