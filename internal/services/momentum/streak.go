package momentum

// Streaks counts consecutive cycles each symbol spends in a top list. Positive
// counts are gainer streaks and negative counts loser streaks.
type Streaks struct {
	counts map[string]int
}

func NewStreaks() *Streaks {
	return &Streaks{counts: make(map[string]int)}
}

// Update advances every symbol in universe by one cycle. A symbol in both sets,
// or in neither, resets to 0.
func (s *Streaks) Update(universe []string, gainers, losers map[string]bool) {
	for _, sym := range universe {
		up, down := gainers[sym], losers[sym]
		prev := s.counts[sym]
		switch {
		case up && !down:
			if prev > 0 {
				s.counts[sym] = prev + 1
			} else {
				s.counts[sym] = 1
			}
		case down && !up:
			if prev < 0 {
				s.counts[sym] = prev - 1
			} else {
				s.counts[sym] = -1
			}
		default:
			delete(s.counts, sym)
		}
	}
}

// Get returns the current streak for sym.
func (s *Streaks) Get(sym string) int { return s.counts[sym] }
