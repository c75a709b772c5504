// internal/session/view.go
//
// Snapshot of a session for the page. Hidden cells lose their symbol and the
// odd cell is only flagged once the round is solved.

package session

// View returns a snapshot safe to hand to another goroutine.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:         s.ID,
		Screen:     s.screen,
		Mode:       s.mode,
		Generating: s.generating,
		Loading:    s.screen == ScreenPlaying && s.round == nil,
		LevelIndex: s.index,
		LevelCount: len(s.levels),
		Stats: Stats{
			Score:   s.stats.Score,
			Level:   s.stats.Level,
			History: append([]HistoryEntry{}, s.stats.History...),
		},
	}
	if s.round == nil {
		return v
	}

	d := s.round.Level()
	v.Level = &d
	r := s.round
	rv := &RoundView{
		Input:         r.Buffer(),
		Solved:        r.Solved(),
		Error:         r.ErrorFlag(),
		HintUsed:      r.HintUsed(),
		HintAvailable: r.HintUsed() == 0 && !r.Solved(),
		Message:       r.Message(),
		TimeTaken:     r.TimeTaken(),
	}
	for _, c := range r.Cells() {
		cv := CellView{Index: c.Index, Symbol: c.Symbol, IsOdd: c.IsOdd && r.Solved()}
		if r.Hidden(c.Index) {
			cv.Symbol = ""
			cv.Hidden = true
		}
		rv.Cells = append(rv.Cells, cv)
	}
	v.Round = rv
	return v
}
