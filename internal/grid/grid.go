// internal/grid/grid.go
//
// Procedural grid generation.
// Responsibilities:
//   - Build: lay out GridSize² cells with exactly one odd cell at a uniformly
//     random position.
//   - HintIndices: pick half of the common cells to hide when a hint is used.
//
// Both functions draw from an injected Rand so tests can fix placement.

package grid

import "github.com/robalobadob/oddone/internal/level"

// Rand is the subset of *math/rand/v2.Rand the generator needs.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Cell is one square of the grid.
type Cell struct {
	Index  int    `json:"index"`
	IsOdd  bool   `json:"isOdd"`
	Symbol string `json:"symbol"`
}

// Build returns a fresh grid for d. Every call picks a new odd position.
func Build(d level.Descriptor, rnd Rand) []Cell {
	n := d.Cells()
	if n <= 0 {
		return nil
	}
	odd := rnd.IntN(n)
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = Cell{Index: i, Symbol: d.CommonSymbol}
	}
	cells[odd].IsOdd = true
	cells[odd].Symbol = d.OddSymbol
	return cells
}

// OddIndex returns the position of the odd cell, or -1.
func OddIndex(cells []Cell) int {
	for _, c := range cells {
		if c.IsOdd {
			return c.Index
		}
	}
	return -1
}

// HintIndices returns floor(k/2) random indices out of the k common cells.
func HintIndices(cells []Cell, rnd Rand) []int {
	common := make([]int, 0, len(cells))
	for _, c := range cells {
		if !c.IsOdd {
			common = append(common, c.Index)
		}
	}
	rnd.Shuffle(len(common), func(i, j int) { common[i], common[j] = common[j], common[i] })
	return common[:len(common)/2]
}
