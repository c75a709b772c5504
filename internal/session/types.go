// internal/session/types.go
//
// Type definitions for the session controller: screens, modes, stats, the
// timer seam and the JSON view handed to the page.

package session

import (
	"errors"
	"time"

	"github.com/robalobadob/oddone/internal/grid"
	"github.com/robalobadob/oddone/internal/level"
)

// Screen is the top-level state of a session.
type Screen string

const (
	ScreenMenu     Screen = "MENU"
	ScreenCreate   Screen = "CREATE_MODE"
	ScreenPlaying  Screen = "PLAYING"
	ScreenGameOver Screen = "GAME_OVER"
)

// Mode tags the active play-through.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeCustom Mode = "custom"
)

// ErrWrongScreen is returned when an action is not allowed from the current screen.
var ErrWrongScreen = errors.New("session: action not allowed on this screen")

// HistoryEntry records one completed level.
type HistoryEntry struct {
	Level     int     `json:"level"`
	TimeTaken float64 `json:"timeTaken"`
}

// Stats are the cross-level counters of one play-through.
type Stats struct {
	Score   int            `json:"score"`
	Level   int            `json:"level"`
	History []HistoryEntry `json:"history"`
}

func freshStats() Stats { return Stats{Level: 1, History: []HistoryEntry{}} }

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Timers schedules callbacks. The default uses time.AfterFunc.
type Timers interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realTimers struct{}

func (realTimers) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// DefaultCelebrationDelay is the pause between a solve and level completion.
const DefaultCelebrationDelay = 3500 * time.Millisecond

// Custom grid sizes authored in the creation flow are clamped into this range.
const (
	CustomMinGrid = 3
	CustomMaxGrid = 7
)

// Options configure a Session. Source and Rand are required.
type Options struct {
	Source           level.Source
	Rand             grid.Rand
	Timers           Timers
	Now              func() time.Time
	CelebrationDelay time.Duration
	ErrorFlash       time.Duration
}

// CellView is one grid cell as displayed. Hidden cells carry no symbol; the
// odd flag is only revealed once the round is solved.
type CellView struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	IsOdd  bool   `json:"isOdd,omitempty"`
}

// RoundView is the displayed state of the active round.
type RoundView struct {
	Cells         []CellView `json:"cells"`
	Input         string     `json:"input"`
	Solved        bool       `json:"solved"`
	Error         bool       `json:"error"`
	HintUsed      int        `json:"hintUsed"`
	HintAvailable bool       `json:"hintAvailable"`
	Message       string     `json:"message,omitempty"`
	TimeTaken     float64    `json:"timeTaken,omitempty"`
}

// View is a point-in-time snapshot of a session.
type View struct {
	ID         string            `json:"id"`
	Screen     Screen            `json:"screen"`
	Mode       Mode              `json:"mode"`
	Stats      Stats             `json:"stats"`
	Generating bool              `json:"generating"`
	Loading    bool              `json:"loading"`
	LevelIndex int               `json:"levelIndex"`
	LevelCount int               `json:"levelCount"`
	Level      *level.Descriptor `json:"level,omitempty"`
	Round      *RoundView        `json:"round,omitempty"`
}
