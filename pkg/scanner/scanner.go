package scanner

import (
	"strings"

	"github.com/samber/lo"
)

// Scanner narrows a candidate ticker list down to a tradable universe
type Scanner struct {
	tickers   []string
	blacklist map[string]bool
}

// NewScanner creates a scanner over tickers, skipping anything in blacklist
func NewScanner(tickers, blacklist []string) *Scanner {
	// Build blacklist map for quick lookup
	blacklistMap := make(map[string]bool, len(blacklist))
	for _, ticker := range blacklist {
		blacklistMap[normalize(ticker)] = true
	}

	return &Scanner{
		tickers:   tickers,
		blacklist: blacklistMap,
	}
}

// GetTickers returns the configured tickers after filtering
func (s *Scanner) GetTickers() []string {
	return s.Filter(s.tickers)
}

// IsBlacklisted checks if a ticker is blacklisted
func (s *Scanner) IsBlacklisted(ticker string) bool {
	return s.blacklist[normalize(ticker)]
}

// Filter drops blank, blacklisted and repeated tickers. The first
// occurrence keeps its position.
func (s *Scanner) Filter(tickers []string) []string {
	cleaned := lo.FilterMap(tickers, func(ticker string, _ int) (string, bool) {
		ticker = normalize(ticker)
		return ticker, ticker != "" && !s.IsBlacklisted(ticker)
	})
	return lo.Uniq(cleaned)
}

// Universe picks up to n tickers from quotes ranked by rank ("volume" or
// "change") and filters them.
func (s *Scanner) Universe(quotes []Quote, rank string, n int) []string {
	var ranked []Quote
	switch rank {
	case RankChange:
		ranked = TopByChange(quotes, len(quotes))
	default:
		ranked = TopByVolume(quotes, len(quotes))
	}

	tickers := s.Filter(lo.Map(ranked, func(q Quote, _ int) string { return q.Ticker }))
	if n > 0 && len(tickers) > n {
		tickers = tickers[:n]
	}
	return tickers
}

// Segment splits tickers into batches of at most size, for providers that
// cap calls per minute.
func Segment(tickers []string, size int) [][]string {
	if len(tickers) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{tickers}
	}
	return lo.Chunk(tickers, size)
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
