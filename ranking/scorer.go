package ranking

// Signal is one scored factor contributing points to a candidate's total.
type Signal struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

// Score is the sum of a candidate's signals plus the reasons that produced it.
type Score struct {
	Total   float64
	Reasons []string
	Signals []Signal
}

// Tally sums signals without normalization. Signals with non-positive points
// are dropped so no signal can pull a total below zero. Callers cap each
// contribution before adding it.
func Tally(signals []Signal) Score {
	score := Score{
		Reasons: make([]string, 0, len(signals)),
		Signals: make([]Signal, 0, len(signals)),
	}
	for _, s := range signals {
		if s.Points <= 0 {
			continue
		}
		score.Total += s.Points
		score.Signals = append(score.Signals, s)
		if s.Reason != "" {
			score.Reasons = append(score.Reasons, s.Reason)
		}
	}
	return score
}

// Scorecard accumulates signals for a single candidate.
type Scorecard struct {
	signals []Signal
}

// Add records a contribution. Non-positive points are ignored.
func (s *Scorecard) Add(name string, points float64, reason string) {
	if points <= 0 {
		return
	}
	s.signals = append(s.signals, Signal{Name: name, Points: points, Reason: reason})
}

// Signals returns the accumulated contributions.
func (s *Scorecard) Signals() []Signal {
	return s.signals
}
