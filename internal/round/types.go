// internal/round/types.go
//
// Core type definitions for the round controller.
// Defines:
//   - State: active / solved.
//   - Outcome: what a single player input did to the round.
//   - Result: Outcome plus the solve time.
//   - Options: injected clock, randomness and mode.

package round

import (
	"time"

	"github.com/robalobadob/oddone/internal/grid"
)

// State of a round.
type State string

const (
	StateActive State = "active"
	StateSolved State = "solved"
)

// Outcome represents the evaluation of one input.
//   - "ignored":   no state change (solved round, or neither symbol present).
//   - "incorrect": the common symbol was entered; soft error signal only.
//   - "solved":    the odd symbol was entered.
type Outcome string

const (
	Ignored   Outcome = "ignored"
	Incorrect Outcome = "incorrect"
	Solved    Outcome = "solved"
)

// Result is returned by Round.Input.
type Result struct {
	Outcome   Outcome
	TimeTaken float64 // seconds; set only when Outcome == Solved
}

// DefaultErrorFlash is how long ErrorFlag stays raised after a wrong guess.
const DefaultErrorFlash = 500 * time.Millisecond

// Options configure a Round. Zero values pick production defaults except Rand,
// which is required.
type Options struct {
	Now        func() time.Time
	Rand       grid.Rand
	Custom     bool
	ErrorFlash time.Duration
}

// Encouragements are shown on a normal-mode solve, one picked at random.
var Encouragements = []string{
	"Marvelous, my princess!",
	"Your crown is shining!",
	"Daddy loves watching you win!",
	"Pure magic, sweetheart!",
	"Brilliant as a queen!",
	"Wow, what royal cleverness!",
}

// CustomMessage is shown when a custom level is solved.
const CustomMessage = "Daddy found it! Thank you, sweetheart!"
