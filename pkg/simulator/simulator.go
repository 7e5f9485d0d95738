package simulator

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/feed"
	"github.com/ihs-daytrader/pkg/portfolio"
	"github.com/ihs-daytrader/pkg/risk"
	"github.com/ihs-daytrader/pkg/strategy"
)

// Simulator replays price series against a portfolio
type Simulator struct {
	portfolio *portfolio.Portfolio
	logger    zerolog.Logger
}

// New creates a simulator that trades through p
func New(p *portfolio.Portfolio, logger zerolog.Logger) *Simulator {
	return &Simulator{
		portfolio: p,
		logger:    logger.With().Str("component", "simulator").Logger(),
	}
}

// Portfolio returns the portfolio the simulator trades through
func (s *Simulator) Portfolio() *portfolio.Portfolio {
	return s.portfolio
}

// SimulateDay runs the reversal strategy over one ticker's series and
// returns the events it produced. Each tick is fully processed (exit
// check, detector update, entry) before the next. An empty series
// produces no events and no error.
func (s *Simulator) SimulateDay(ticker string, series feed.Series, limits risk.Limits) ([]portfolio.Event, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		s.logger.Debug().Str("ticker", ticker).Msg("empty series")
		return nil, nil
	}
	if err := validatePrices(ticker, series); err != nil {
		return nil, err
	}

	logger := s.logger.With().Str("ticker", ticker).Logger()
	detector := strategy.NewDetector()
	var events []portfolio.Event

	for _, sample := range series.Chronological() {
		price := decimal.NewFromFloat(sample.Close)

		if position, held := s.portfolio.Position(ticker); held {
			reason := strategy.ExitReasonFor(
				detector.Trend(),
				position.AvgPrice.InexactFloat64(),
				sample.Close,
				limits.ProfitLimit,
				limits.LossLimit,
			)
			if reason != strategy.ExitReasonNone {
				event, err := s.portfolio.Sell(ticker, price, sample.Time, string(reason))
				if err != nil {
					return events, err
				}
				events = append(events, event)
			}
		}

		if !detector.Observe(sample.Close) {
			continue
		}

		// One open position per ticker
		if s.portfolio.HasPosition(ticker) {
			logger.Debug().Time("at", sample.Time).Msg("entry signal ignored while holding")
			continue
		}

		budget := limits.Allocate(s.portfolio.Cash())
		if !budget.IsPositive() {
			logger.Warn().Time("at", sample.Time).Msg("entry signal with no cash")
			continue
		}

		event, err := s.portfolio.Buy(ticker, price, budget, sample.Time)
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}

	return events, nil
}

func validatePrices(ticker string, series feed.Series) error {
	for _, sample := range series {
		if sample.Close <= 0 || math.IsNaN(sample.Close) || math.IsInf(sample.Close, 0) {
			return fmt.Errorf("%s close %v at %s: %w", ticker, sample.Close, sample.Time, portfolio.ErrInvalidPrice)
		}
	}
	return nil
}
