package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ihs-daytrader/pkg/backtest"
)

func printResult(result *backtest.Result) {
	fmt.Println("\n=== BACKTEST RESULTS ===")
	fmt.Printf("Run: %s\n", result.RunID)
	fmt.Printf("Fills: %d\n", len(result.Events))
	fmt.Printf("Cash: $%s\n", result.Cash.StringFixed(2))
	for _, position := range result.Positions {
		fmt.Printf("  Holding %s: %d shares @ $%s\n", position.Ticker, position.Shares, position.AvgPrice.StringFixed(4))
	}
	fmt.Printf("Total Assets: $%s\n", result.TotalAssets.StringFixed(2))
	fmt.Printf("Total P&L: $%s (%.2f%%)\n", result.TotalAssets.Sub(result.InitialCash).StringFixed(2), result.Return()*100)
	printProblems(result.Skipped, result.Failures)
}

func printSweep(sweep *backtest.SweepResult) {
	fmt.Println("\n=== RESEARCH RESULTS ===")
	fmt.Printf("Run: %s\n", sweep.RunID)
	fmt.Printf("%-8s %-8s %14s %6s\n", "Profit", "Loss", "Total Assets", "Fills")
	for _, cell := range sweep.Cells {
		fmt.Printf("%-8.3f %-8.2f %14s %6d\n", cell.ProfitLimit, cell.LossLimit, cell.TotalAssets.StringFixed(2), cell.Fills)
		for _, failure := range cell.Failures {
			fmt.Printf("    failed %s: %s\n", failure.Ticker, failure.Error)
		}
	}
	if best, ok := sweep.Best(); ok {
		fmt.Printf("\nBest: profit %.3f, loss %.2f -> $%s\n", best.ProfitLimit, best.LossLimit, best.TotalAssets.StringFixed(2))
	}
	printProblems(sweep.Skipped, sweep.Failures)
}

func printProblems(skipped []string, failures []backtest.Failure) {
	if len(skipped) > 0 {
		fmt.Printf("Skipped (no data): %v\n", skipped)
	}
	for _, failure := range failures {
		fmt.Printf("Failed %s: %s\n", failure.Ticker, failure.Error)
	}
}

// exportEventsCSV writes every fill of a run
func exportEventsCSV(result *backtest.Result, path string) error {
	header := []string{"Time", "Side", "Ticker", "Shares", "Price", "Cash", "Reason"}
	records := make([][]string, 0, len(result.Events))
	for _, e := range result.Events {
		records = append(records, []string{
			e.Time.Format(time.RFC3339),
			string(e.Side),
			e.Ticker,
			strconv.FormatInt(e.Shares, 10),
			e.Price.String(),
			e.Cash.StringFixed(4),
			e.Reason,
		})
	}
	return writeCSV(path, header, records)
}

// exportSweepCSV writes one row per grid cell
func exportSweepCSV(sweep *backtest.SweepResult, path string) error {
	header := []string{"ProfitLimit", "LossLimit", "TotalAssets", "Fills", "Failures"}
	records := make([][]string, 0, len(sweep.Cells))
	for _, cell := range sweep.Cells {
		records = append(records, []string{
			strconv.FormatFloat(cell.ProfitLimit, 'f', 3, 64),
			strconv.FormatFloat(cell.LossLimit, 'f', 2, 64),
			cell.TotalAssets.StringFixed(4),
			strconv.Itoa(cell.Fills),
			strconv.Itoa(len(cell.Failures)),
		})
	}
	return writeCSV(path, header, records)
}

func writeCSV(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	fmt.Printf("\nResults exported to: %s\n", path)
	return nil
}
