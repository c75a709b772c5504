// internal/level/level.go
//
// Level descriptors for the Odd One Out game.
// Defines:
//   - Difficulty: easy / medium / hard tier of a level.
//   - Descriptor: immutable description of one puzzle (two symbols + grid size).
//   - New: validating constructor used for every descriptor that enters the game.
//
// A descriptor is only ever built through New (or the literal fallback list,
// which is covered by tests), so CommonSymbol != OddSymbol holds everywhere.

package level

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is the coarse tier of a level.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// MinGridSize is the smallest allowed grid edge.
const MinGridSize = 3

// Validation errors returned by New.
var (
	ErrEmptySymbol   = errors.New("level: symbol is empty")
	ErrSameSymbol    = errors.New("level: common and odd symbols are equal")
	ErrGridTooSmall  = errors.New("level: grid size below minimum")
	ErrBadDifficulty = errors.New("level: unknown difficulty")
)

// Descriptor holds one level. Grid is GridSize x GridSize.
type Descriptor struct {
	ID           int        `json:"id"`
	CommonSymbol string     `json:"baseEmoji"`
	OddSymbol    string     `json:"targetEmoji"`
	Difficulty   Difficulty `json:"difficulty"`
	GridSize     int        `json:"gridSize"`
}

// New validates and builds a Descriptor. Symbols are trimmed of surrounding
// whitespace before comparison.
func New(id int, common, odd string, diff Difficulty, gridSize int) (Descriptor, error) {
	common = strings.TrimSpace(common)
	odd = strings.TrimSpace(odd)
	if common == "" || odd == "" {
		return Descriptor{}, ErrEmptySymbol
	}
	if common == odd {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrSameSymbol, common)
	}
	if gridSize < MinGridSize {
		return Descriptor{}, fmt.Errorf("%w: %d", ErrGridTooSmall, gridSize)
	}
	if !diff.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrBadDifficulty, diff)
	}
	return Descriptor{
		ID:           id,
		CommonSymbol: common,
		OddSymbol:    odd,
		Difficulty:   diff,
		GridSize:     gridSize,
	}, nil
}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// GridRange returns the inclusive grid size range a generated level of this
// difficulty should use: easy 5-6, medium 7-8, hard 9.
func (d Difficulty) GridRange() (lo, hi int) {
	switch d {
	case Easy:
		return 5, 6
	case Medium:
		return 7, 8
	default:
		return 9, 9
	}
}

// Cells is the number of grid cells.
func (d Descriptor) Cells() int { return d.GridSize * d.GridSize }
