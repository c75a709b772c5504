// internal/session/session.go
//
// Session controller for one play-through at a time.
// Responsibilities:
//   - Screen state machine: MENU → CREATE_MODE | PLAYING → GAME_OVER → MENU | PLAYING.
//   - Own score, level number and history; apply the scoring rule on completion.
//   - Load levels from a level.Source in the background, falling back to the
//     built-in list, and refill when the player nears the end of a generated batch.
//   - Schedule level completion after the celebratory delay.
//
// Notes:
//   - Every play-through has an epoch. Fetch results and completion timers carry
//     the epoch they were started under and are dropped if it has moved on, so a
//     stale callback never touches stats that were reset in the meantime.
//   - All state is guarded by mu; background fetches and timers re-enter through
//     the same lock.

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/oddone/internal/level"
	"github.com/robalobadob/oddone/internal/round"
)

// Session is a single player's game.
type Session struct {
	ID string

	opts Options

	mu           sync.Mutex
	screen       Screen
	mode         Mode
	stats        Stats
	levels       []level.Descriptor
	index        int
	fromFallback bool
	generating   bool
	refilling    bool
	round        *round.Round

	epoch   uint64
	ctx     context.Context
	cancel  context.CancelFunc
	pending Timer
	touched time.Time

	wg   sync.WaitGroup
	subs map[chan struct{}]struct{}
}

// New creates a session on the menu screen.
func New(id string, opts Options) *Session {
	if opts.Timers == nil {
		opts.Timers = realTimers{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CelebrationDelay <= 0 {
		opts.CelebrationDelay = DefaultCelebrationDelay
	}
	if opts.Source == nil {
		opts.Source = level.Nop{}
	}
	s := &Session{
		ID:     id,
		opts:   opts,
		screen: ScreenMenu,
		mode:   ModeNormal,
		stats:  freshStats(),
		subs:   make(map[chan struct{}]struct{}),
	}
	s.touched = opts.Now()
	return s
}

// StartNormal begins a generated-sequence game from the menu.
func (s *Session) StartNormal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenMenu && s.screen != ScreenGameOver {
		return ErrWrongScreen
	}
	s.startNormalLocked()
	return nil
}

// Restart starts a new normal game from the summary screen.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenGameOver {
		return ErrWrongScreen
	}
	s.startNormalLocked()
	return nil
}

func (s *Session) startNormalLocked() {
	s.resetLocked(ModeNormal)
	s.screen = ScreenPlaying
	s.generating = true
	s.fetchLocked(0, true)
	log.Info().Str("session", s.ID).Uint64("epoch", s.epoch).Msg("normal game started")
	s.notifyLocked()
}

// OpenCreate moves from the menu to the creation flow.
func (s *Session) OpenCreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenMenu {
		return ErrWrongScreen
	}
	s.screen = ScreenCreate
	s.touchLocked()
	s.notifyLocked()
	return nil
}

// StartCustom installs a single authored level and starts playing it.
// gridSize is clamped into [CustomMinGrid, CustomMaxGrid].
func (s *Session) StartCustom(common, odd string, gridSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenCreate {
		return ErrWrongScreen
	}
	gridSize = min(max(gridSize, CustomMinGrid), CustomMaxGrid)
	d, err := level.New(level.CustomID, common, odd, level.Medium, gridSize)
	if err != nil {
		return err
	}
	s.resetLocked(ModeCustom)
	s.levels = []level.Descriptor{d}
	s.screen = ScreenPlaying
	s.enterLevelLocked()
	log.Info().Str("session", s.ID).Int("gridSize", gridSize).Msg("custom game started")
	s.notifyLocked()
	return nil
}

// Home discards any in-progress play and returns to the menu. Stats are left
// as they were.
func (s *Session) Home() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandonLocked()
	s.levels = nil
	s.index = 0
	s.screen = ScreenMenu
	s.touchLocked()
	s.notifyLocked()
}

// Input forwards the contents of the input field to the active round.
func (s *Session) Input(candidate string) (round.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenPlaying {
		return round.Result{Outcome: round.Ignored}, ErrWrongScreen
	}
	s.touchLocked()
	if s.round == nil {
		return round.Result{Outcome: round.Ignored}, nil
	}
	res := s.round.Input(candidate)
	switch res.Outcome {
	case round.Solved:
		s.scheduleCompletionLocked(s.round, res.TimeTaken)
		s.notifyLocked()
	case round.Incorrect:
		s.notifyLocked()
	}
	return res, nil
}

// UseHint spends the active round's hint. It reports whether anything changed.
func (s *Session) UseHint() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenPlaying {
		return false, ErrWrongScreen
	}
	s.touchLocked()
	if s.round == nil || !s.round.UseHint() {
		return false, nil
	}
	s.notifyLocked()
	return true, nil
}

// Close stops pending work. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.abandonLocked()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Wait blocks until all in-flight level fetches have been applied or dropped.
func (s *Session) Wait() { s.wg.Wait() }

// IdleSince reports the last time the player acted.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Subscribe returns a channel signalled after every state change, and a
// function to stop the subscription.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// ----------------------------- internals -----------------------------------

// resetLocked begins a new play-through in mode m.
func (s *Session) resetLocked(m Mode) {
	s.abandonLocked()
	s.mode = m
	s.stats = freshStats()
	s.levels = nil
	s.index = 0
	s.fromFallback = false
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.touchLocked()
}

// abandonLocked invalidates everything tied to the current epoch.
func (s *Session) abandonLocked() {
	s.epoch++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.round = nil
	s.generating = false
	s.refilling = false
}

func (s *Session) enterLevelLocked() {
	s.round = round.New(s.levels[s.index], round.Options{
		Now:        s.opts.Now,
		Rand:       s.opts.Rand,
		Custom:     s.mode == ModeCustom,
		ErrorFlash: s.opts.ErrorFlash,
	})
}

// fetchLocked asks the source for levels after offset without blocking.
// reset=true replaces the sequence (falling back when empty); otherwise the
// batch is appended.
func (s *Session) fetchLocked(offset int, reset bool) {
	epoch, ctx, src := s.epoch, s.ctx, s.opts.Source
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		batch := usable(src.FetchLevels(ctx, offset))
		s.applyFetch(epoch, batch, reset)
	}()
}

func (s *Session) applyFetch(epoch uint64, batch []level.Descriptor, reset bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.screen != ScreenPlaying {
		log.Debug().Str("session", s.ID).Int("levels", len(batch)).Msg("dropping stale level batch")
		return
	}
	s.generating = false
	if reset {
		if len(batch) == 0 {
			s.levels = level.Fallback()
			s.fromFallback = true
			log.Info().Str("session", s.ID).Msg("using fallback levels")
		} else {
			s.levels = renumber(batch, 0)
			log.Info().Str("session", s.ID).Int("levels", len(batch)).Msg("generated levels installed")
		}
		s.enterLevelLocked()
	} else {
		s.refilling = false
		last := 0
		if n := len(s.levels); n > 0 {
			last = s.levels[n-1].ID
		}
		s.levels = append(s.levels, renumber(batch, last)...)
		log.Debug().Str("session", s.ID).Int("added", len(batch)).Int("total", len(s.levels)).Msg("levels refilled")
	}
	s.notifyLocked()
}

func (s *Session) scheduleCompletionLocked(r *round.Round, taken float64) {
	epoch := s.epoch
	s.pending = s.opts.Timers.AfterFunc(s.opts.CelebrationDelay, func() {
		s.completeLevel(epoch, r, taken)
	})
}

// completeLevel runs once per solved round, after the celebratory delay.
func (s *Session) completeLevel(epoch uint64, r *round.Round, taken float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.screen != ScreenPlaying || s.round != r {
		return
	}
	s.pending = nil

	s.stats.History = append(s.stats.History, HistoryEntry{Level: s.stats.Level, TimeTaken: taken})
	s.stats.Score += round.Score(taken)
	s.stats.Level++

	if s.mode == ModeCustom {
		s.finishLocked()
		return
	}

	if s.index+2 >= len(s.levels) && !s.fromFallback && !s.refilling {
		s.refilling = true
		s.generating = true
		s.fetchLocked(len(s.levels), false)
	}

	if s.index < len(s.levels)-1 {
		s.index++
		s.enterLevelLocked()
		s.notifyLocked()
		return
	}
	s.finishLocked()
}

func (s *Session) finishLocked() {
	s.abandonLocked()
	s.screen = ScreenGameOver
	log.Info().Str("session", s.ID).Int("score", s.stats.Score).Int("levels", len(s.stats.History)).Msg("game over")
	s.notifyLocked()
}

func (s *Session) touchLocked() { s.touched = s.opts.Now() }

func (s *Session) notifyLocked() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// usable drops descriptors that fail validation and keeps the normalized form
// of the rest.
func usable(in []level.Descriptor) []level.Descriptor {
	out := make([]level.Descriptor, 0, len(in))
	for _, d := range in {
		clean, err := level.New(d.ID, d.CommonSymbol, d.OddSymbol, d.Difficulty, d.GridSize)
		if err != nil {
			log.Warn().Err(err).Int("id", d.ID).Msg("rejecting level")
			continue
		}
		out = append(out, clean)
	}
	return out
}

// renumber makes IDs strictly increase after last, so a batch from a source
// that reuses or skips back over IDs cannot collide with installed levels.
func renumber(batch []level.Descriptor, last int) []level.Descriptor {
	for i := range batch {
		if batch[i].ID <= last {
			batch[i].ID = last + 1
		}
		last = batch[i].ID
	}
	return batch
}
