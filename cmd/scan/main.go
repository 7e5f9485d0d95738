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

	"github.com/ihs-daytrader/pkg/config"
	"github.com/ihs-daytrader/pkg/logging"
	"github.com/ihs-daytrader/pkg/scanner"
)

func main() {
	pagesFlag := flag.Int("pages", 2, "Most-active screener pages to fetch")
	rankFlag := flag.String("rank", "", "Rank by volume or change (default: UNIVERSE_RANK)")
	sizeFlag := flag.Int("n", 0, "Number of tickers to keep (default: UNIVERSE_SIZE)")
	sp500Flag := flag.String("sp500", "", "Scrape the S&P 500 list into this file instead")
	segmentFlag := flag.Int("segment", 100, "Tickers per batch when printing the S&P 500 list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *rankFlag != "" {
		cfg.UniverseRank = strings.ToLower(*rankFlag)
	}
	if *sizeFlag > 0 {
		cfg.UniverseSize = *sizeFlag
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := scanner.NewClient(logger)
	s := scanner.NewScanner(nil, cfg.Blacklist)

	if *sp500Flag != "" {
		tickers, err := client.SP500Tickers(ctx)
		if err != nil {
			log.Fatalf("Failed to scrape S&P 500: %v", err)
		}
		tickers = s.Filter(tickers)
		if err := scanner.WriteTickerFile(*sp500Flag, tickers); err != nil {
			log.Fatalf("Failed to write ticker file: %v", err)
		}
		fmt.Printf("File '%s' has been created with %d tickers.\n", *sp500Flag, len(tickers))
		for i, batch := range scanner.Segment(tickers, *segmentFlag) {
			fmt.Printf("Batch %d (%d): %s\n", i+1, len(batch), strings.Join(batch, ","))
		}
		return
	}

	quotes, err := client.MostActive(ctx, *pagesFlag)
	if err != nil {
		log.Fatalf("Failed to fetch most active: %v", err)
	}

	universe := s.Universe(quotes, cfg.UniverseRank, cfg.UniverseSize)
	byTicker := make(map[string]scanner.Quote, len(quotes))
	for _, q := range quotes {
		byTicker[q.Ticker] = q
	}

	fmt.Printf("Top %d by %s:\n", len(universe), cfg.UniverseRank)
	fmt.Printf("%-8s %10s %12s\n", "Ticker", "Change %", "Volume (M)")
	for _, ticker := range universe {
		q := byTicker[ticker]
		fmt.Printf("%-8s %10.2f %12.2f\n", ticker, q.ChangePct, q.VolumeMillions)
	}
	fmt.Printf("\nTICKERS=%s\n", strings.Join(universe, ","))
}
