// internal/round/round.go
//
// Round controller for a single level.
// Responsibilities:
//   - Build a fresh grid every time a round is created (new odd position).
//   - Evaluate player input: odd symbol solves, common symbol flashes an error.
//   - Track the one-shot hint and the cells it hides.
//   - Pick the encouragement message on solve.
//
// Notes:
//   - A Round is discarded when its level changes; nothing carries over.
//   - Matching is substring containment on the whole input field, so a symbol
//     that literally contains the other one is matched by both checks. The odd
//     symbol is checked first.
//   - Round is not safe for concurrent use; the owning session serialises calls.

package round

import (
	"math"
	"strings"
	"time"

	"github.com/robalobadob/oddone/internal/grid"
	"github.com/robalobadob/oddone/internal/level"
)

// Round holds the ephemeral state of the level currently on screen.
type Round struct {
	level  level.Descriptor
	cells  []grid.Cell
	hidden map[int]bool

	start      time.Time
	input      string
	errorUntil time.Time
	hintUsed   int
	solved     bool
	message    string
	timeTaken  float64

	now        func() time.Time
	rnd        grid.Rand
	custom     bool
	errorFlash time.Duration
}

// New starts a round for d. The start timestamp is taken now.
func New(d level.Descriptor, opts Options) *Round {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ErrorFlash <= 0 {
		opts.ErrorFlash = DefaultErrorFlash
	}
	return &Round{
		level:      d,
		cells:      grid.Build(d, opts.Rand),
		hidden:     make(map[int]bool),
		start:      opts.Now(),
		now:        opts.Now,
		rnd:        opts.Rand,
		custom:     opts.Custom,
		errorFlash: opts.ErrorFlash,
	}
}

// Input evaluates the full contents of the input field.
//
// State transitions:
//   - Solved round → Ignored, nothing recorded.
//   - Contains OddSymbol → Solved, time taken measured from round start.
//   - Contains CommonSymbol → Incorrect, error flag raised for ErrorFlash.
//   - Otherwise → Ignored.
func (r *Round) Input(candidate string) Result {
	if r.solved {
		return Result{Outcome: Ignored}
	}
	r.input = candidate

	switch {
	case strings.Contains(candidate, r.level.OddSymbol):
		now := r.now()
		r.solved = true
		r.errorUntil = time.Time{}
		r.timeTaken = float64(now.Sub(r.start).Milliseconds()) / 1000
		r.message = r.pickMessage()
		return Result{Outcome: Solved, TimeTaken: r.timeTaken}
	case strings.Contains(candidate, r.level.CommonSymbol):
		r.errorUntil = r.now().Add(r.errorFlash)
		return Result{Outcome: Incorrect}
	default:
		return Result{Outcome: Ignored}
	}
}

// UseHint hides half of the common cells. It works once per round and only
// while the round is active; otherwise it returns false and changes nothing.
func (r *Round) UseHint() bool {
	if r.hintUsed > 0 || r.solved {
		return false
	}
	r.hintUsed = 1
	for _, i := range grid.HintIndices(r.cells, r.rnd) {
		r.hidden[i] = true
	}
	return true
}

func (r *Round) pickMessage() string {
	if r.custom {
		return CustomMessage
	}
	return Encouragements[r.rnd.IntN(len(Encouragements))]
}

// ErrorFlag reports whether the soft error signal is currently raised.
func (r *Round) ErrorFlag() bool {
	return !r.solved && r.now().Before(r.errorUntil)
}

// State reports the coarse round state.
func (r *Round) State() State {
	if r.solved {
		return StateSolved
	}
	return StateActive
}

// Level is the descriptor the round was built from.
func (r *Round) Level() level.Descriptor { return r.level }

// Solved reports whether the odd symbol has been entered.
func (r *Round) Solved() bool { return r.solved }

// HintUsed is 1 once the hint has been spent, else 0.
func (r *Round) HintUsed() int { return r.hintUsed }

// Message is the encouragement revealed on solve; empty before that.
func (r *Round) Message() string { return r.message }

// Buffer is the last input the player typed.
func (r *Round) Buffer() string { return r.input }

// TimeTaken is the solve time in seconds; zero while active.
func (r *Round) TimeTaken() float64 { return r.timeTaken }

// Cells returns a copy of the grid.
func (r *Round) Cells() []grid.Cell {
	out := make([]grid.Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// Hidden reports whether the hint removed cell i from display.
func (r *Round) Hidden(i int) bool { return r.hidden[i] }

// HiddenCount is the number of cells removed by the hint.
func (r *Round) HiddenCount() int { return len(r.hidden) }

// Score implements the level scoring rule: a base of 50 plus a time bonus of
// 5 points per second under 10, never negative.
func Score(timeTaken float64) int {
	return int(math.Floor(50 + math.Max(0, 10-timeTaken)*5))
}
