package strategy

// ProfitRatio returns the fractional return of currentPrice over entryPrice
func ProfitRatio(entryPrice, currentPrice float64) float64 {
	return (currentPrice - entryPrice) / entryPrice
}

// ShouldExit checks if a held position should be liquidated this tick.
// The profit arm only fires once the trend has turned down; the loss arm
// fires regardless of trend.
func ShouldExit(trend Trend, entryPrice, currentPrice, profitLimit, lossLimit float64) bool {
	return ExitReasonFor(trend, entryPrice, currentPrice, profitLimit, lossLimit) != ExitReasonNone
}

// ExitReasonFor returns which exit rule fires, or ExitReasonNone.
// The loss limit takes precedence when both would apply.
func ExitReasonFor(trend Trend, entryPrice, currentPrice, profitLimit, lossLimit float64) ExitReason {
	if entryPrice <= 0 {
		return ExitReasonNone
	}

	ratio := ProfitRatio(entryPrice, currentPrice)
	if ratio <= lossLimit {
		return ExitReasonLossLimit
	}
	if trend == TrendDown && ratio >= profitLimit {
		return ExitReasonProfitLimit
	}
	return ExitReasonNone
}
