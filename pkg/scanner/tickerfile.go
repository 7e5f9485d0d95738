package scanner

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// WriteTickerFile writes one ticker per line, replacing path
func WriteTickerFile(path string, tickers []string) error {
	var sb strings.Builder
	for _, ticker := range tickers {
		sb.WriteString(ticker)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write ticker file: %w", err)
	}
	return nil
}

// ReadTickerFile reads one ticker per line, skipping blank lines
func ReadTickerFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file: %w", err)
	}
	defer file.Close()

	var tickers []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			tickers = append(tickers, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticker file: %w", err)
	}
	return tickers, nil
}
