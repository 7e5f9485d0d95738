package feed

import (
	"context"

	"github.com/rs/zerolog"
)

// CachedFeed consults a cache before the wrapped source and stores
// fresh results. Cache errors degrade to a direct fetch.
type CachedFeed struct {
	source   Source
	cache    Cache
	interval string
	logger   zerolog.Logger
}

// NewCachedFeed wraps source with cache
func NewCachedFeed(source Source, cache Cache, interval string, logger zerolog.Logger) *CachedFeed {
	return &CachedFeed{
		source:   source,
		cache:    cache,
		interval: interval,
		logger:   logger.With().Str("component", "feed").Logger(),
	}
}

// Intraday returns the cached series for ticker, fetching on a miss
func (cf *CachedFeed) Intraday(ctx context.Context, ticker string) (Series, error) {
	key := CacheKey(ticker, cf.interval)

	series, ok, err := cf.cache.Load(ctx, key)
	if err != nil {
		cf.logger.Warn().Err(err).Str("ticker", ticker).Msg("cache load failed")
	}
	if ok {
		cf.logger.Debug().Str("ticker", ticker).Int("samples", len(series)).Msg("cache hit")
		return series, nil
	}

	series, err = cf.source.Intraday(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if err := cf.cache.Save(ctx, key, series); err != nil {
		cf.logger.Warn().Err(err).Str("ticker", ticker).Msg("cache save failed")
	}
	return series, nil
}
