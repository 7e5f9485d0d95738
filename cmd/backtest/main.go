package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/backtest"
	"github.com/ihs-daytrader/pkg/config"
	"github.com/ihs-daytrader/pkg/logging"
	"github.com/ihs-daytrader/pkg/scanner"
)

func main() {
	// Parse command-line flags
	tickerFlag := flag.String("ticker", "", "Ticker or comma-separated tickers to backtest")
	tickerFileFlag := flag.String("ticker-file", "", "File with one ticker per line")
	fromFlag := flag.String("from", "", "Only use samples at or after this date (YYYY-MM-DD or RFC3339)")
	toFlag := flag.String("to", "", "Only use samples before this date (YYYY-MM-DD or RFC3339)")
	dayFlag := flag.String("day", "", "Restrict to a single session (YYYY-MM-DD)")
	accountFlag := flag.String("account", "", "Initial cash (default: INITIAL_CASH)")
	profitFlag := flag.Float64("profit", 0, "Profit limit (default: PROFIT_LIMIT)")
	lossFlag := flag.Float64("loss", 0, "Loss limit (default: LOSS_LIMIT)")
	researchFlag := flag.Bool("research", false, "Sweep the profit/loss grid instead of a single run")
	liveQuotesFlag := flag.Bool("live-quotes", false, "Value open positions at the latest provider close")
	outputFlag := flag.String("output", "", "Write results as CSV to this path")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *accountFlag != "" {
		cash, err := decimal.NewFromString(*accountFlag)
		if err != nil {
			log.Fatalf("Invalid -account: %v", err)
		}
		cfg.InitialCash = cash
	}
	if *profitFlag != 0 {
		cfg.ProfitLimit = *profitFlag
	}
	if *lossFlag != 0 {
		cfg.LossLimit = *lossFlag
	}

	// Validate config
	if err := cfg.Validate(true); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	from, to, err := window(*fromFlag, *toFlag, *dayFlag)
	if err != nil {
		log.Fatalf("Invalid window: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tickers, err := resolveTickers(ctx, cfg, *tickerFlag, *tickerFileFlag, logger)
	if err != nil {
		log.Fatalf("Failed to resolve tickers: %v", err)
	}
	if len(tickers) == 0 {
		log.Fatal("No tickers specified. Use -ticker, -ticker-file or set TICKERS in .env")
	}

	source, provider, closeCache := cfg.MarketData(logger)
	defer closeCache()

	opts := []backtest.Option{
		backtest.WithLogger(logger),
		backtest.WithInitialCash(cfg.InitialCash),
		backtest.WithWindow(from, to),
	}
	if *liveQuotesFlag {
		opts = append(opts, backtest.WithQuoter(provider))
	}
	tradeLog, err := cfg.TradeLog()
	if err != nil {
		log.Fatalf("Failed to open trade log: %v", err)
	}
	if tradeLog != nil {
		opts = append(opts, backtest.WithSink(tradeLog))
	}
	runner := backtest.NewRunner(source, opts...)

	fmt.Printf("Starting backtest...\n")
	fmt.Printf("Tickers: %v\n", tickers)
	fmt.Printf("Initial Cash: $%s\n", cfg.InitialCash.StringFixed(2))
	if *researchFlag {
		grid := cfg.Grid()
		fmt.Printf("Research grid: %d profit x %d loss limits\n", len(grid.Profit.Values()), len(grid.Loss.Values()))
	} else {
		fmt.Printf("Profit Limit: %.2f%%, Loss Limit: %.2f%%\n", cfg.ProfitLimit*100, cfg.LossLimit*100)
	}
	fmt.Println()

	if *researchFlag {
		sweep, err := runner.Sweep(ctx, tickers, cfg.Limits(), cfg.Grid())
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		printSweep(sweep)
		if *outputFlag != "" {
			if err := exportSweepCSV(sweep, *outputFlag); err != nil {
				log.Fatalf("Failed to export CSV: %v", err)
			}
		}
		return
	}

	result, err := runner.Run(ctx, tickers, cfg.Limits())
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}
	printResult(result)
	if *outputFlag != "" {
		if err := exportEventsCSV(result, *outputFlag); err != nil {
			log.Fatalf("Failed to export CSV: %v", err)
		}
	}
}

// resolveTickers picks the universe: flags first, then TICKERS, then the
// most-active screener ranked by UNIVERSE_RANK
func resolveTickers(ctx context.Context, cfg *config.Config, tickerFlag, tickerFile string, logger zerolog.Logger) ([]string, error) {
	s := scanner.NewScanner(cfg.Tickers, cfg.Blacklist)

	switch {
	case tickerFlag != "":
		return s.Filter(strings.Split(tickerFlag, ",")), nil
	case tickerFile != "":
		tickers, err := scanner.ReadTickerFile(tickerFile)
		if err != nil {
			return nil, err
		}
		return s.Filter(tickers), nil
	case len(cfg.Tickers) > 0:
		return s.GetTickers(), nil
	}

	logger.Info().Str("rank", cfg.UniverseRank).Int("size", cfg.UniverseSize).Msg("no tickers configured, scanning most active")
	quotes, err := scanner.NewClient(logger).MostActive(ctx, 2)
	if err != nil {
		return nil, err
	}
	return s.Universe(quotes, cfg.UniverseRank, cfg.UniverseSize), nil
}

// window turns the date flags into a [from, to) range
func window(fromStr, toStr, dayStr string) (time.Time, time.Time, error) {
	if dayStr != "" {
		day, err := parseDate(dayStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return day, day.AddDate(0, 0, 1), nil
	}

	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = parseDate(fromStr); err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		if to, err = parseDate(toStr); err != nil {
			return from, to, err
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("-from %s is not before -to %s", fromStr, toStr)
	}
	return from, to, nil
}

// parseDate reads a date in the exchange zone, or an RFC3339 timestamp
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation("2006-01-02", s, location)
}
