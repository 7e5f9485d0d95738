package backtest

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/ihs-daytrader/pkg/feed"
)

// universe is the price data for one run, fetched once up front
type universe struct {
	order    []string
	series   map[string]feed.Series // chronological, windowed
	skipped  []string
	failures []Failure
}

// load fetches every ticker sequentially. A fetch error or an empty
// window is recorded against the ticker; only cancellation aborts.
func (r *Runner) load(ctx context.Context, tickers []string) (*universe, error) {
	data := &universe{
		order:  lo.Uniq(tickers),
		series: make(map[string]feed.Series, len(tickers)),
	}

	for _, ticker := range data.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, err := r.source.Intraday(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn().Err(err).Str("ticker", ticker).Msg("fetch failed")
			data.failures = append(data.failures, newFailure(ticker, err))
			continue
		}

		series = series.Chronological().Between(r.from, r.to)
		if len(series) == 0 {
			r.logger.Info().Str("ticker", ticker).Msg("no samples in window, skipping")
			data.skipped = append(data.skipped, ticker)
			continue
		}
		data.series[ticker] = series
	}

	r.logger.Debug().
		Int("loaded", len(data.series)).
		Int("skipped", len(data.skipped)).
		Int("failed", len(data.failures)).
		Msg("universe loaded")
	return data, nil
}

func (u *universe) lastClose(ticker string) (float64, error) {
	last, ok := u.series[ticker].Last()
	if !ok {
		return 0, fmt.Errorf("%s: %w", ticker, feed.ErrEmptySeries)
	}
	return last.Close, nil
}
