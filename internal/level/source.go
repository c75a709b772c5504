// internal/level/source.go
//
// Level sources and the built-in fallback list.
//
// A Source never fails loudly: any provider problem collapses into an empty
// result and the caller installs Fallback() instead.

package level

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Source supplies an ordered batch of levels starting after offset.
// An empty result means "nothing available"; callers fall back to Fallback().
type Source interface {
	FetchLevels(ctx context.Context, offset int) []Descriptor
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, offset int) []Descriptor

// FetchLevels calls f.
func (f SourceFunc) FetchLevels(ctx context.Context, offset int) []Descriptor { return f(ctx, offset) }

// Nop is the Source used when no provider credential is configured.
type Nop struct{}

// FetchLevels always returns nil.
func (Nop) FetchLevels(_ context.Context, offset int) []Descriptor {
	log.Debug().Int("offset", offset).Msg("level provider disabled, using fallback")
	return nil
}

// CustomID is the reserved ID of a level authored in the creation flow.
const CustomID = 999

// fallbackLevels is progressively harder, easiest distinctions first.
var fallbackLevels = []Descriptor{
	{ID: 1, CommonSymbol: "🕐", OddSymbol: "🕑", Difficulty: Medium, GridSize: 5},
	{ID: 2, CommonSymbol: "🧐", OddSymbol: "🤓", Difficulty: Medium, GridSize: 6},
	{ID: 3, CommonSymbol: "🐱", OddSymbol: "🐯", Difficulty: Medium, GridSize: 6},
	{ID: 4, CommonSymbol: "🌑", OddSymbol: "🌚", Difficulty: Hard, GridSize: 7},
	{ID: 5, CommonSymbol: "🚍", OddSymbol: "🚌", Difficulty: Hard, GridSize: 8},
	{ID: 6, CommonSymbol: "📆", OddSymbol: "📅", Difficulty: Hard, GridSize: 8},
	{ID: 7, CommonSymbol: "🍤", OddSymbol: "🦐", Difficulty: Hard, GridSize: 9},
	{ID: 8, CommonSymbol: "🅰️", OddSymbol: "🅱️", Difficulty: Hard, GridSize: 9},
}

// Fallback returns a fresh copy of the built-in level list.
func Fallback() []Descriptor {
	out := make([]Descriptor, len(fallbackLevels))
	copy(out, fallbackLevels)
	return out
}

// Palette is the quick-pick symbol list offered by the creation flow.
var Palette = []string{
	"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🐯",
	"🦁", "🐮", "🐷", "🐸", "🐵", "🐔", "🐧", "🐦", "🐤", "🦆",
	"🍎", "🍐", "🍊", "🍋", "🍌", "🍉", "🍇", "🍓", "🍈", "🍒",
	"⚽", "🏀", "🏈", "⚾", "🥎", "🎾", "🏐", "🏉", "🎱", "🏓",
	"🚗", "🚕", "🚙", "🚌", "🚎", "🏎️", "🚓", "🚑", "🚒", "🚐",
	"😀", "😃", "😄", "😁", "😆", "😅", "😂", "🤣", "😊", "😇",
	"🦄", "🦋", "🐞", "🌸", "🏵️", "🌹", "🌺", "🌻", "🌼", "🌷",
	"👑", "💍", "💎", "💄", "🎀", "👗", "🧚", "🧜", "🧞", "🏰",
}
