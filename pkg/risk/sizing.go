package risk

import (
	"github.com/shopspring/decimal"
)

// Allocate returns the cash to commit to a new entry: the configured
// fraction of the cash currently on hand
func (l Limits) Allocate(cash decimal.Decimal) decimal.Decimal {
	if !cash.IsPositive() {
		return decimal.Zero
	}
	return cash.Mul(decimal.NewFromFloat(l.PositionFraction))
}

// SharesFor calculates how many whole shares cashToSpend buys at price
func SharesFor(cashToSpend, price decimal.Decimal) int64 {
	if !price.IsPositive() || !cashToSpend.IsPositive() {
		return 0
	}
	return cashToSpend.Div(price).Floor().IntPart()
}
