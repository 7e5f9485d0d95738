package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ihs-daytrader/pkg/config"
	"github.com/ihs-daytrader/pkg/tradelog"
)

func main() {
	// Parse command-line flags
	logFlag := flag.String("log", "", "Trade log to analyze (default: TRADE_LOG)")
	runFlag := flag.String("run", "", "Only include this run ID")
	outputFlag := flag.String("output", "", "Output file path (JSON or HTML, default: stdout)")
	formatFlag := flag.String("format", "json", "Output format: json or html")
	flag.Parse()

	path := *logFlag
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		path = cfg.TradeLogPath
	}

	fmt.Println("Analyzing trade log...")
	fmt.Printf("Trade Log: %s\n", path)

	entries, err := tradelog.Read(path)
	if err != nil {
		log.Fatalf("Failed to read trade log: %v", err)
	}
	if *runFlag != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.RunID == *runFlag {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if len(entries) == 0 {
		log.Fatalf("No trades found in %s", path)
	}

	summary := tradelog.Summarize(entries)

	// Output report
	if *outputFlag != "" {
		if *formatFlag == "html" {
			if err := exportHTML(summary, *outputFlag); err != nil {
				log.Fatalf("Failed to export HTML: %v", err)
			}
		} else {
			if err := exportJSON(summary, *outputFlag); err != nil {
				log.Fatalf("Failed to export JSON: %v", err)
			}
		}
		fmt.Printf("Report exported to: %s\n", *outputFlag)
	} else {
		// Print to stdout
		printReport(summary)
	}
}

// printReport prints the summary to stdout
func printReport(summary tradelog.Summary) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("TRADE LOG ANALYSIS REPORT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Runs: %d\n", summary.Runs)
	fmt.Printf("Round Trips: %d\n", summary.RoundTrips)
	fmt.Printf("Wins: %d, Losses: %d\n", summary.Wins, summary.Losses)
	fmt.Printf("Win Rate: %.2f%%\n", summary.WinRate)
	fmt.Printf("Realized P&L: $%s\n", summary.RealizedPnL.StringFixed(2))
	fmt.Printf("Average Win: $%s\n", summary.AverageWin.StringFixed(2))
	fmt.Printf("Average Loss: $%s\n", summary.AverageLoss.StringFixed(2))

	fmt.Println("\nWin Rate by Exit Reason:")
	reasons := make([]string, 0, len(summary.ByReason))
	for reason := range summary.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		stat := summary.ByReason[reason]
		fmt.Printf("  %s - %.2f%% (%d trades)\n", reason, float64(stat.Wins)/float64(stat.Total)*100, stat.Total)
	}

	if summary.BestTrade != nil {
		fmt.Printf("\nBest Trade: %s %d shares, exit @ $%s, P&L: $%s\n",
			summary.BestTrade.Ticker, summary.BestTrade.Shares, summary.BestTrade.ExitPrice, summary.BestTrade.NetPnL.StringFixed(2))
	}
	if summary.WorstTrade != nil {
		fmt.Printf("Worst Trade: %s %d shares, exit @ $%s, P&L: $%s\n",
			summary.WorstTrade.Ticker, summary.WorstTrade.Shares, summary.WorstTrade.ExitPrice, summary.WorstTrade.NetPnL.StringFixed(2))
	}

	if len(summary.Open) > 0 {
		fmt.Println("\nStill Open:")
		for _, position := range summary.Open {
			fmt.Printf("  %s %d shares, cost $%s\n", position.Ticker, position.Shares, position.Cost.StringFixed(2))
		}
	}
}

// exportJSON exports the summary as JSON
func exportJSON(summary tradelog.Summary, filepath string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0644)
}

// exportHTML exports the summary as HTML
func exportHTML(summary tradelog.Summary, filepath string) error {
	var html strings.Builder
	html.WriteString("<!DOCTYPE html>\n<html><head><title>Trade Log Analysis</title></head><body>\n")
	html.WriteString("<h1>Trade Log Analysis Report</h1>\n")
	html.WriteString(fmt.Sprintf("<p>Round Trips: %d</p>\n", summary.RoundTrips))
	html.WriteString(fmt.Sprintf("<p>Win Rate: %.2f%%</p>\n", summary.WinRate))
	html.WriteString(fmt.Sprintf("<p>Realized P&amp;L: $%s</p>\n", summary.RealizedPnL.StringFixed(2)))
	html.WriteString("<table>\n<tr><th>Ticker</th><th>Shares</th><th>Exit</th><th>Reason</th><th>Net P&amp;L</th></tr>\n")
	for _, trade := range summary.Trades {
		html.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			trade.Ticker, trade.Shares, trade.ExitPrice, trade.Reason, trade.NetPnL.StringFixed(2)))
	}
	html.WriteString("</table>\n</body></html>\n")
	return os.WriteFile(filepath, []byte(html.String()), 0644)
}
