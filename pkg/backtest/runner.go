package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/feed"
	"github.com/ihs-daytrader/pkg/portfolio"
	"github.com/ihs-daytrader/pkg/risk"
	"github.com/ihs-daytrader/pkg/simulator"
)

// DefaultInitialCash is the starting balance of every run
var DefaultInitialCash = decimal.NewFromInt(100000)

// ErrNoTickers is returned when a run is started without a universe
var ErrNoTickers = errors.New("no tickers")

// Failure records a ticker that could not be fetched or simulated.
// The run carries on without it.
type Failure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

func newFailure(ticker string, err error) Failure {
	return Failure{Ticker: ticker, Error: err.Error(), Err: err}
}

// Result is the outcome of one run over a ticker universe
type Result struct {
	RunID       string               `json:"runId"`
	Limits      risk.Limits          `json:"limits"`
	InitialCash decimal.Decimal      `json:"initialCash"`
	Cash        decimal.Decimal      `json:"cash"`
	TotalAssets decimal.Decimal      `json:"totalAssets"`
	Positions   []portfolio.Position `json:"positions"`
	Events      []portfolio.Event    `json:"events"`
	Skipped     []string             `json:"skipped,omitempty"`
	Failures    []Failure            `json:"failures,omitempty"`
}

// Return is the fractional change of total assets over the initial cash
func (r *Result) Return() float64 {
	if r.InitialCash.IsZero() {
		return 0
	}
	return r.TotalAssets.Sub(r.InitialCash).Div(r.InitialCash).InexactFloat64()
}

// Runner fetches price series and replays them through a shared portfolio
type Runner struct {
	source      feed.Source
	quoter      feed.Quoter
	initialCash decimal.Decimal
	from, to    time.Time
	sinks       []portfolio.Sink
	logger      zerolog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the runner logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger.With().Str("component", "backtest").Logger()
	}
}

// WithInitialCash overrides DefaultInitialCash
func WithInitialCash(cash decimal.Decimal) Option {
	return func(r *Runner) {
		r.initialCash = cash
	}
}

// WithQuoter marks open positions at live quotes instead of the last close
// of their series. Single runs only; sweeps always use the series.
func WithQuoter(q feed.Quoter) Option {
	return func(r *Runner) {
		r.quoter = q
	}
}

// WithWindow restricts every series to from <= t < to. Zero bounds are open.
func WithWindow(from, to time.Time) Option {
	return func(r *Runner) {
		r.from = from
		r.to = to
	}
}

// WithSink forwards every fill of a single run to sink
func WithSink(sink portfolio.Sink) Option {
	return func(r *Runner) {
		if sink != nil {
			r.sinks = append(r.sinks, sink)
		}
	}
}

// NewRunner creates a runner reading from source
func NewRunner(source feed.Source, opts ...Option) *Runner {
	r := &Runner{
		source:      source,
		initialCash: DefaultInitialCash,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run simulates every ticker in order against one portfolio and values
// what is left. Tickers are processed strictly in the given order; later
// tickers size their entries from the cash earlier ones left behind.
func (r *Runner) Run(ctx context.Context, tickers []string, limits risk.Limits) (*Result, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	data, err := r.load(ctx, tickers)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()
	logger.Info().
		Int("tickers", len(tickers)).
		Float64("profit_limit", limits.ProfitLimit).
		Float64("loss_limit", limits.LossLimit).
		Msg("starting backtest")

	opts := []portfolio.Option{portfolio.WithLogger(logger)}
	for _, sink := range r.sinks {
		opts = append(opts, portfolio.WithSink(runSink{runID: runID, sink: sink}))
	}

	result, p := r.simulate(data, limits, logger, opts...)
	result.RunID = runID

	var lookup portfolio.PriceLookup = data.lastClose
	if r.quoter != nil {
		lookup = r.liveLookup(ctx, data, logger)
	}
	if err := value(result, p, lookup); err != nil {
		return nil, err
	}

	logger.Info().
		Str("cash", result.Cash.String()).
		Str("total_assets", result.TotalAssets.String()).
		Int("fills", len(result.Events)).
		Int("failures", len(result.Failures)).
		Msg("backtest complete")
	return result, nil
}

// simulate replays the loaded series through a fresh portfolio. Cash and
// positions are filled in; valuation is left to the caller.
func (r *Runner) simulate(data *universe, limits risk.Limits, logger zerolog.Logger, opts ...portfolio.Option) (*Result, *portfolio.Portfolio) {
	p := portfolio.New(r.initialCash, opts...)
	sim := simulator.New(p, logger)

	result := &Result{
		Limits:      limits,
		InitialCash: r.initialCash,
		Skipped:     data.skipped,
		Failures:    append([]Failure(nil), data.failures...),
	}

	for _, ticker := range data.order {
		series, ok := data.series[ticker]
		if !ok {
			continue
		}
		if _, err := sim.SimulateDay(ticker, series, limits); err != nil {
			logger.Warn().Err(err).Str("ticker", ticker).Msg("simulation failed")
			result.Failures = append(result.Failures, newFailure(ticker, err))
		}
	}

	result.Cash = p.Cash()
	result.Positions = p.Positions()
	result.Events = p.Events()
	return result, p
}

func value(result *Result, p *portfolio.Portfolio, lookup portfolio.PriceLookup) error {
	total, err := p.Valuation(lookup)
	if err != nil {
		return fmt.Errorf("valuation: %w", err)
	}
	result.TotalAssets = total
	return nil
}

// liveLookup prices through the quoter and falls back to the series when
// the quote fails.
func (r *Runner) liveLookup(ctx context.Context, data *universe, logger zerolog.Logger) portfolio.PriceLookup {
	return func(ticker string) (float64, error) {
		price, err := r.quoter.LatestClose(ctx, ticker)
		if err == nil && price > 0 {
			return price, nil
		}
		logger.Warn().Err(err).Str("ticker", ticker).Msg("live quote unavailable, using last close")
		return data.lastClose(ticker)
	}
}

// runSink stamps events with the run they belong to
type runSink struct {
	runID string
	sink  portfolio.Sink
}

func (s runSink) Record(e portfolio.Event) error {
	if rs, ok := s.sink.(RunSink); ok {
		return rs.RecordRun(s.runID, e)
	}
	return s.sink.Record(e)
}

// RunSink is a portfolio.Sink that also wants the run ID
type RunSink interface {
	portfolio.Sink
	RecordRun(runID string, e portfolio.Event) error
}
