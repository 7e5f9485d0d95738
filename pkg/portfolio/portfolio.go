package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/risk"
)

// Portfolio owns a cash balance and the positions bought with it.
// It is not safe for concurrent use; one simulation run owns it exclusively.
type Portfolio struct {
	cash      decimal.Decimal
	positions map[string]*Position // ticker -> position
	events    []Event
	sinks     []Sink
	logger    zerolog.Logger
}

// Option configures a Portfolio
type Option func(*Portfolio)

// WithLogger sets the logger used for fills
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Portfolio) {
		p.logger = logger.With().Str("component", "portfolio").Logger()
	}
}

// WithSink adds an event sink
func WithSink(sink Sink) Option {
	return func(p *Portfolio) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// New creates a portfolio holding only cash
func New(cash decimal.Decimal, opts ...Option) *Portfolio {
	p := &Portfolio{
		cash:      cash,
		positions: make(map[string]*Position),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Buy spends up to cashToSpend on whole shares of ticker at price and
// returns the unspent remainder to cash.
func (p *Portfolio) Buy(ticker string, price, cashToSpend decimal.Decimal, at time.Time) (Event, error) {
	if !price.IsPositive() {
		return Event{}, fmt.Errorf("buy %s at %s: %w", ticker, price, ErrInvalidPrice)
	}
	if !cashToSpend.IsPositive() || cashToSpend.GreaterThan(p.cash) {
		return Event{}, fmt.Errorf("buy %s with %s (cash %s): %w", ticker, cashToSpend, p.cash, ErrInsufficientCash)
	}

	shares := risk.SharesFor(cashToSpend, price)

	if existing, ok := p.positions[ticker]; ok {
		// Cost basis is the plain mean of the two prices, not volume weighted.
		// Known simplification; results depend on it.
		existing.Shares += shares
		existing.AvgPrice = price.Add(existing.AvgPrice).Div(decimal.NewFromInt(2)).Round(CashPlaces)
	} else {
		p.positions[ticker] = &Position{Ticker: ticker, Shares: shares, AvgPrice: price}
	}

	spent := price.Mul(decimal.NewFromInt(shares))
	remainder := cashToSpend.Sub(spent).Round(CashPlaces)
	p.cash = p.cash.Sub(cashToSpend).Add(remainder).Round(CashPlaces)

	event := Event{
		Time:   at,
		Side:   SideBuy,
		Ticker: ticker,
		Shares: shares,
		Price:  price,
		Cash:   p.cash,
	}
	p.emit(event)
	return event, nil
}

// Sell liquidates the whole position in ticker at price
func (p *Portfolio) Sell(ticker string, price decimal.Decimal, at time.Time, reason string) (Event, error) {
	position, ok := p.positions[ticker]
	if !ok {
		return Event{}, fmt.Errorf("sell %s: %w", ticker, ErrNoPosition)
	}
	if !price.IsPositive() {
		return Event{}, fmt.Errorf("sell %s at %s: %w", ticker, price, ErrInvalidPrice)
	}

	proceeds := price.Mul(decimal.NewFromInt(position.Shares)).Round(CashPlaces)
	p.cash = p.cash.Add(proceeds)
	delete(p.positions, ticker)

	event := Event{
		Time:   at,
		Side:   SideSell,
		Ticker: ticker,
		Shares: position.Shares,
		Price:  price,
		Cash:   p.cash,
		Reason: reason,
	}
	p.emit(event)
	return event, nil
}

// Valuation returns cash plus every position marked at the price lookup returns
func (p *Portfolio) Valuation(lookup PriceLookup) (decimal.Decimal, error) {
	total := p.cash
	for _, position := range p.Positions() {
		price, err := lookup(position.Ticker)
		if err != nil {
			return decimal.Zero, fmt.Errorf("price lookup for %s: %w", position.Ticker, err)
		}
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(position.Shares)))
	}
	return total, nil
}

// Cash returns the cash on hand
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Events returns every event emitted so far, oldest first
func (p *Portfolio) Events() []Event {
	events := make([]Event, len(p.events))
	copy(events, p.events)
	return events
}

func (p *Portfolio) emit(event Event) {
	p.events = append(p.events, event)

	p.logger.Info().
		Str("side", string(event.Side)).
		Str("ticker", event.Ticker).
		Int64("shares", event.Shares).
		Str("price", event.Price.String()).
		Str("cash", event.Cash.String()).
		Str("reason", event.Reason).
		Msg("fill")

	for _, sink := range p.sinks {
		if err := sink.Record(event); err != nil {
			p.logger.Warn().Err(err).Str("ticker", event.Ticker).Msg("event sink failed")
		}
	}
}

// sortedTickers returns held tickers in lexical order
func (p *Portfolio) sortedTickers() []string {
	tickers := make([]string, 0, len(p.positions))
	for ticker := range p.positions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
