package strategy

// Detector counts upward reversals in a chronological close series and
// signals an entry once SignalReversals of them have been seen.
//
// A Detector belongs to a single ticker's simulation and must not be shared.
type Detector struct {
	state     DetectorState
	lastClose float64
	primed    bool
}

// NewDetector creates a detector with no trend and no baseline price
func NewDetector() *Detector {
	return &Detector{}
}

// Observe feeds the next close into the state machine and reports whether
// this tick completed the pattern. The reversal count is reset whenever a
// signal is emitted.
func (d *Detector) Observe(closePrice float64) bool {
	// First tick only establishes the baseline
	if !d.primed {
		d.primed = true
		d.lastClose = closePrice
		return false
	}

	s := &d.state
	switch {
	case closePrice > d.lastClose:
		if s.Trend == TrendUp {
			s.CurrentStreak++
		} else {
			s.Trend = TrendUp
			s.LastStreak = s.CurrentStreak
			s.CurrentStreak = 0
			s.LocalMax = closePrice
			s.ReversalCount++
		}
	case closePrice < d.lastClose:
		if s.Trend == TrendDown {
			s.CurrentStreak++
		} else {
			s.Trend = TrendDown
			s.LastStreak = s.CurrentStreak
			s.CurrentStreak = 0
			s.LocalMin = closePrice
		}
	}
	d.lastClose = closePrice

	if s.ReversalCount >= SignalReversals {
		s.ReversalCount = 0
		return true
	}
	return false
}

// Trend returns the current trend direction
func (d *Detector) Trend() Trend {
	return d.state.Trend
}

// State returns a copy of the detector state
func (d *Detector) State() DetectorState {
	return d.state
}

// LastClose returns the previous close and whether a baseline exists
func (d *Detector) LastClose() (float64, bool) {
	return d.lastClose, d.primed
}
