package config

import (
	"github.com/rs/zerolog"

	"github.com/ihs-daytrader/pkg/feed"
	"github.com/ihs-daytrader/pkg/tradelog"
)

// MarketData builds the Alpha Vantage feed behind the configured cache.
// The returned close function releases the Redis connection, if any.
func (c *Config) MarketData(logger zerolog.Logger) (feed.Source, *feed.AlphaVantageFeed, func() error) {
	provider := feed.NewAlphaVantageFeed(c.AlphaVantageAPIKey, c.Interval, c.OutputSize)

	if c.RedisAddr != "" {
		cache := feed.NewRedisCache(c.RedisAddr, c.CacheTTL)
		logger.Info().Str("addr", c.RedisAddr).Msg("using redis series cache")
		return feed.NewCachedFeed(provider, cache, c.Interval, logger), provider, cache.Close
	}

	cache := feed.NewFileCache(c.CacheDir)
	return feed.NewCachedFeed(provider, cache, c.Interval, logger), provider, func() error { return nil }
}

// TradeLog opens the trade log when enabled, or returns nil
func (c *Config) TradeLog() (*tradelog.Log, error) {
	if !c.EnableTradeLog {
		return nil, nil
	}
	return tradelog.NewLog(c.TradeLogPath)
}
