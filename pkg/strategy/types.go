package strategy

// Trend is the direction of the most recent price move
type Trend int

const (
	TrendNone Trend = iota
	TrendUp
	TrendDown
)

// String returns a short label for the trend
func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "none"
	}
}

// SignalReversals is the number of upward reversals that completes the
// simplified inverse head-and-shoulders formation
const SignalReversals = 4

// DetectorState is the per-ticker state of the reversal detector
type DetectorState struct {
	Trend         Trend
	CurrentStreak int
	LastStreak    int
	LocalMax      float64
	LocalMin      float64
	ReversalCount int
}

// ExitReason represents why a position was closed
type ExitReason string

const (
	ExitReasonNone        ExitReason = ""
	ExitReasonProfitLimit ExitReason = "Profit Limit"
	ExitReasonLossLimit   ExitReason = "Loss Limit"
)
