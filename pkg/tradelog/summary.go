package tradelog

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ihs-daytrader/pkg/portfolio"
)

// Trade is a completed round trip: every buy of a ticker up to the sell
// that liquidated it
type Trade struct {
	RunID      string          `json:"runId,omitempty"`
	Ticker     string          `json:"ticker"`
	EntryTime  time.Time       `json:"entryTime"`
	ExitTime   time.Time       `json:"exitTime"`
	Shares     int64           `json:"shares"`
	Cost       decimal.Decimal `json:"cost"`
	Proceeds   decimal.Decimal `json:"proceeds"`
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	Reason     string          `json:"reason"`
	NetPnL     decimal.Decimal `json:"netPnl"`
	EntryCount int             `json:"entryCount"`
}

// OpenPosition is a buy never matched by a sell
type OpenPosition struct {
	RunID  string          `json:"runId,omitempty"`
	Ticker string          `json:"ticker"`
	Shares int64           `json:"shares"`
	Cost   decimal.Decimal `json:"cost"`
}

// ReasonStats counts outcomes per exit reason
type ReasonStats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Total  int `json:"total"`
}

// Summary aggregates a trade log
type Summary struct {
	Runs        int                    `json:"runs"`
	RoundTrips  int                    `json:"roundTrips"`
	Wins        int                    `json:"wins"`
	Losses      int                    `json:"losses"`
	WinRate     float64                `json:"winRate"` // percent
	RealizedPnL decimal.Decimal        `json:"realizedPnl"`
	AverageWin  decimal.Decimal        `json:"averageWin"`
	AverageLoss decimal.Decimal        `json:"averageLoss"`
	ByReason    map[string]ReasonStats `json:"byReason"`
	BestTrade   *Trade                 `json:"bestTrade,omitempty"`
	WorstTrade  *Trade                 `json:"worstTrade,omitempty"`
	Trades      []Trade                `json:"trades"`
	Open        []OpenPosition         `json:"openPositions"`
}

type positionKey struct {
	runID  string
	ticker string
}

// Summarize pairs buys with the sell that closes them, per run and ticker.
// A sell with no preceding buy is ignored.
func Summarize(entries []Entry) Summary {
	open := make(map[positionKey]*Trade)
	var trades []Trade

	for _, e := range entries {
		key := positionKey{runID: e.RunID, ticker: e.Ticker}

		switch e.Side {
		case portfolio.SideBuy:
			trade, ok := open[key]
			if !ok {
				trade = &Trade{RunID: e.RunID, Ticker: e.Ticker, EntryTime: e.Time}
				open[key] = trade
			}
			trade.Shares += e.Shares
			trade.Cost = trade.Cost.Add(e.Price.Mul(decimal.NewFromInt(e.Shares)))
			trade.EntryCount++

		case portfolio.SideSell:
			trade, ok := open[key]
			if !ok {
				continue
			}
			delete(open, key)

			trade.ExitTime = e.Time
			trade.ExitPrice = e.Price
			trade.Reason = e.Reason
			trade.Proceeds = e.Price.Mul(decimal.NewFromInt(e.Shares)).Round(portfolio.CashPlaces)
			trade.NetPnL = trade.Proceeds.Sub(trade.Cost)
			trades = append(trades, *trade)
		}
	}

	summary := Summary{
		Runs:       len(lo.Uniq(lo.Map(entries, func(e Entry, _ int) string { return e.RunID }))),
		RoundTrips: len(trades),
		ByReason:   make(map[string]ReasonStats),
		Trades:     trades,
	}

	var totalWin, totalLoss decimal.Decimal
	for i := range trades {
		trade := &trades[i]
		summary.RealizedPnL = summary.RealizedPnL.Add(trade.NetPnL)

		stats := summary.ByReason[trade.Reason]
		stats.Total++
		if trade.NetPnL.IsPositive() {
			summary.Wins++
			stats.Wins++
			totalWin = totalWin.Add(trade.NetPnL)
		} else {
			summary.Losses++
			stats.Losses++
			totalLoss = totalLoss.Add(trade.NetPnL)
		}
		summary.ByReason[trade.Reason] = stats

		if summary.BestTrade == nil || trade.NetPnL.GreaterThan(summary.BestTrade.NetPnL) {
			summary.BestTrade = trade
		}
		if summary.WorstTrade == nil || trade.NetPnL.LessThan(summary.WorstTrade.NetPnL) {
			summary.WorstTrade = trade
		}
	}

	if summary.RoundTrips > 0 {
		summary.WinRate = float64(summary.Wins) / float64(summary.RoundTrips) * 100
	}
	if summary.Wins > 0 {
		summary.AverageWin = totalWin.Div(decimal.NewFromInt(int64(summary.Wins))).Round(portfolio.CashPlaces)
	}
	if summary.Losses > 0 {
		summary.AverageLoss = totalLoss.Div(decimal.NewFromInt(int64(summary.Losses))).Round(portfolio.CashPlaces)
	}

	for key, trade := range open {
		summary.Open = append(summary.Open, OpenPosition{
			RunID:  key.runID,
			Ticker: key.ticker,
			Shares: trade.Shares,
			Cost:   trade.Cost,
		})
	}
	sort.Slice(summary.Open, func(i, j int) bool {
		a, b := summary.Open[i], summary.Open[j]
		if a.RunID != b.RunID {
			return a.RunID < b.RunID
		}
		return a.Ticker < b.Ticker
	})

	return summary
}
