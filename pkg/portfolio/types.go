package portfolio

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrice is returned for a non-positive price
	ErrInvalidPrice = errors.New("invalid price")
	// ErrNoPosition is returned when selling a ticker that is not held
	ErrNoPosition = errors.New("no open position")
	// ErrInsufficientCash is returned when a purchase would spend more than the cash on hand
	ErrInsufficientCash = errors.New("insufficient cash")
)

// CashPlaces is the number of decimal places cash is rounded to on mutation
const CashPlaces = 4

// Side represents buy or sell
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Position is a held quantity of one ticker
type Position struct {
	Ticker   string          `json:"ticker"`
	Shares   int64           `json:"shares"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// Event records one simulated fill and the cash balance after it
type Event struct {
	Time   time.Time       `json:"time"`
	Side   Side            `json:"side"`
	Ticker string          `json:"ticker"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Cash   decimal.Decimal `json:"cash"`
	Reason string          `json:"reason,omitempty"`
}

// Sink receives every event the portfolio emits
type Sink interface {
	Record(Event) error
}

// PriceLookup returns the latest known price for a ticker
type PriceLookup func(ticker string) (float64, error)
