package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ihs-daytrader/pkg/backtest"
	"github.com/ihs-daytrader/pkg/risk"
	"github.com/ihs-daytrader/pkg/scanner"
)

// ErrInvalidConfig wraps every fatal configuration problem
var ErrInvalidConfig = errors.New("invalid config")

var (
	validIntervals   = []string{"1min", "5min", "15min", "30min", "60min"}
	validOutputSizes = []string{"compact", "full"}
	validRanks       = []string{scanner.RankVolume, scanner.RankChange}
	validLogFormats  = []string{"console", "json"}
)

// Config holds all configuration values
type Config struct {
	// API Keys
	AlphaVantageAPIKey string

	// Account and strategy
	InitialCash      decimal.Decimal
	ProfitLimit      float64
	LossLimit        float64
	PositionFraction float64

	// Research grid
	ProfitGrid backtest.Range
	LossGrid   backtest.Range

	// Universe
	Tickers      []string
	Blacklist    []string
	UniverseSize int
	UniverseRank string // volume | change

	// Market data
	Interval   string // 1min, 5min, 15min, 30min or 60min
	OutputSize string // compact | full
	CacheDir   string
	RedisAddr  string // Redis replaces the file cache when set
	CacheTTL   time.Duration

	// Output
	TradeLogPath   string
	EnableTradeLog bool
	LogLevel       string
	LogFormat      string // console | json
	HTTPAddr       string
}

// Load loads configuration from .env, an optional CONFIG_FILE and the
// environment, in increasing precedence
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	v.AutomaticEnv()

	initialCash, err := decimal.NewFromString(strings.TrimSpace(v.GetString("INITIAL_CASH")))
	if err != nil {
		return nil, fmt.Errorf("%w: INITIAL_CASH: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		AlphaVantageAPIKey: v.GetString("ALPHAVANTAGE_API_KEY"),

		InitialCash:      initialCash,
		ProfitLimit:      v.GetFloat64("PROFIT_LIMIT"),
		LossLimit:        v.GetFloat64("LOSS_LIMIT"),
		PositionFraction: v.GetFloat64("POSITION_FRACTION"),

		ProfitGrid: backtest.Range{
			Start: v.GetFloat64("PROFIT_GRID_START"),
			Stop:  v.GetFloat64("PROFIT_GRID_STOP"),
			Step:  v.GetFloat64("PROFIT_GRID_STEP"),
		},
		LossGrid: backtest.Range{
			Start: v.GetFloat64("LOSS_GRID_START"),
			Stop:  v.GetFloat64("LOSS_GRID_STOP"),
			Step:  v.GetFloat64("LOSS_GRID_STEP"),
		},

		Tickers:      getList(v, "TICKERS"),
		Blacklist:    getList(v, "BLACKLIST"),
		UniverseSize: v.GetInt("UNIVERSE_SIZE"),
		UniverseRank: strings.ToLower(v.GetString("UNIVERSE_RANK")),

		Interval:   v.GetString("INTERVAL"),
		OutputSize: strings.ToLower(v.GetString("OUTPUT_SIZE")),
		CacheDir:   v.GetString("CACHE_DIR"),
		RedisAddr:  v.GetString("REDIS_ADDR"),
		CacheTTL:   v.GetDuration("CACHE_TTL"),

		TradeLogPath:   v.GetString("TRADE_LOG"),
		EnableTradeLog: v.GetBool("ENABLE_TRADE_LOG"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:      strings.ToLower(v.GetString("LOG_FORMAT")),
		HTTPAddr:       v.GetString("HTTP_ADDR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaultGrid := backtest.DefaultGrid()

	v.SetDefault("ALPHAVANTAGE_API_KEY", "")
	v.SetDefault("INITIAL_CASH", backtest.DefaultInitialCash.String())
	v.SetDefault("PROFIT_LIMIT", risk.DefaultProfitLimit)
	v.SetDefault("LOSS_LIMIT", risk.DefaultLossLimit)
	v.SetDefault("POSITION_FRACTION", risk.DefaultPositionFraction)
	v.SetDefault("PROFIT_GRID_START", defaultGrid.Profit.Start)
	v.SetDefault("PROFIT_GRID_STOP", defaultGrid.Profit.Stop)
	v.SetDefault("PROFIT_GRID_STEP", defaultGrid.Profit.Step)
	v.SetDefault("LOSS_GRID_START", defaultGrid.Loss.Start)
	v.SetDefault("LOSS_GRID_STOP", defaultGrid.Loss.Stop)
	v.SetDefault("LOSS_GRID_STEP", defaultGrid.Loss.Step)
	v.SetDefault("TICKERS", "")
	v.SetDefault("BLACKLIST", "")
	v.SetDefault("UNIVERSE_SIZE", 20)
	v.SetDefault("UNIVERSE_RANK", scanner.RankVolume)
	v.SetDefault("INTERVAL", "5min")
	v.SetDefault("OUTPUT_SIZE", "full")
	v.SetDefault("CACHE_DIR", "data/cache")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", 24*time.Hour)
	v.SetDefault("TRADE_LOG", "trades.log")
	v.SetDefault("ENABLE_TRADE_LOG", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("HTTP_ADDR", ":8080")
}

// Validate checks that required configuration is present and runnable
func (c *Config) Validate(requireAPIKey bool) error {
	if requireAPIKey && c.AlphaVantageAPIKey == "" {
		return fmt.Errorf("%w: ALPHAVANTAGE_API_KEY is required", ErrInvalidConfig)
	}

	if !c.InitialCash.IsPositive() {
		return fmt.Errorf("%w: INITIAL_CASH must be > 0", ErrInvalidConfig)
	}

	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := c.Grid().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.UniverseSize < 0 {
		return fmt.Errorf("%w: UNIVERSE_SIZE must be >= 0", ErrInvalidConfig)
	}

	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"UNIVERSE_RANK", c.UniverseRank, validRanks},
		{"INTERVAL", c.Interval, validIntervals},
		{"OUTPUT_SIZE", c.OutputSize, validOutputSizes},
		{"LOG_FORMAT", c.LogFormat, validLogFormats},
	}
	for _, check := range checks {
		if !lo.Contains(check.allowed, check.value) {
			return fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidConfig, check.key, check.allowed, check.value)
		}
	}

	if c.EnableTradeLog && c.TradeLogPath == "" {
		return fmt.Errorf("%w: TRADE_LOG is required when ENABLE_TRADE_LOG is set", ErrInvalidConfig)
	}

	return nil
}

// Limits returns the single-run strategy parameters
func (c *Config) Limits() risk.Limits {
	return risk.Limits{
		ProfitLimit:      c.ProfitLimit,
		LossLimit:        c.LossLimit,
		PositionFraction: c.PositionFraction,
	}
}

// Grid returns the research sweep grid
func (c *Config) Grid() backtest.Grid {
	return backtest.Grid{Profit: c.ProfitGrid, Loss: c.LossGrid}
}

// IsInBlacklist checks if a ticker is in the blacklist
func (c *Config) IsInBlacklist(ticker string) bool {
	for _, blacklisted := range c.Blacklist {
		if strings.EqualFold(blacklisted, ticker) {
			return true
		}
	}
	return false
}

// getList reads a comma-separated env value or a list from the config file
func getList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).([]interface{}); ok {
		return parseCommaList(strings.Join(lo.Map(raw, func(item interface{}, _ int) string {
			return fmt.Sprint(item)
		}), ","))
	}
	return parseCommaList(v.GetString(key))
}

// parseCommaList parses a comma-separated list and trims whitespace
func parseCommaList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
