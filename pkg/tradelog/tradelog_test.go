package tradelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ihs-daytrader/pkg/portfolio"
)

var t0 = time.Date(2020, 5, 29, 9, 35, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buy(ticker string, shares int64, price, cash string, at time.Time) portfolio.Event {
	return portfolio.Event{Time: at, Side: portfolio.SideBuy, Ticker: ticker, Shares: shares, Price: d(price), Cash: d(cash)}
}

func sell(ticker string, shares int64, price, cash, reason string, at time.Time) portfolio.Event {
	return portfolio.Event{Time: at, Side: portfolio.SideSell, Ticker: ticker, Shares: shares, Price: d(price), Cash: d(cash), Reason: reason}
}

func TestLog_AppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trades.log")
	log, err := NewLog(path)
	require.NoError(t, err)

	require.NoError(t, log.RecordRun("run-1", buy("AMD", 909, "11", "90001", t0)))
	require.NoError(t, log.Record(sell("AMD", 909, "9", "98182", "Loss Limit", t0.Add(5*time.Minute))))

	// Reopening keeps existing rows and does not repeat the header
	log, err = NewLog(path)
	require.NoError(t, err)
	require.NoError(t, log.RecordRun("run-2", buy("GE", 10, "5.5", "99945", t0)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ts,run_id,event,ticker,shares,price,cash,reason", lines[0])
	assert.Equal(t, "2020-05-29T09:35:00Z,run-1,BUY,AMD,909,11,90001.0000,", lines[1])

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "run-1", entries[0].RunID)
	assert.Equal(t, portfolio.SideBuy, entries[0].Side)
	assert.True(t, entries[0].Time.Equal(t0))
	assert.True(t, entries[0].Cash.Equal(d("90001")))

	assert.Empty(t, entries[1].RunID)
	assert.Equal(t, "Loss Limit", entries[1].Reason)
	assert.True(t, entries[1].Price.Equal(d("9")))

	assert.Equal(t, "GE", entries[2].Ticker)
	assert.True(t, entries[2].Price.Equal(d("5.5")))
}

func TestNewLog_EmptyPath(t *testing.T) {
	_, err := NewLog("")
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad timestamp", "yesterday,r,BUY,A,1,1,1,\n"},
		{"unknown event", "2020-05-29T09:35:00Z,r,HOLD,A,1,1,1,\n"},
		{"bad shares", "2020-05-29T09:35:00Z,r,BUY,A,x,1,1,\n"},
		{"bad price", "2020-05-29T09:35:00Z,r,BUY,A,1,x,1,\n"},
		{"short row", "2020-05-29T09:35:00Z,r,BUY\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{RunID: "r1", Event: buy("AMD", 909, "11", "90001", t0)},
		{RunID: "r1", Event: sell("X", 5, "1", "90006", "Loss Limit", t0)},
		{RunID: "r1", Event: buy("F", 100, "10", "89001", t0.Add(time.Minute))},
		{RunID: "r1", Event: sell("AMD", 909, "9", "97182", "Loss Limit", t0.Add(2*time.Minute))},
		{RunID: "r1", Event: buy("F", 50, "12", "96582", t0.Add(3*time.Minute))},
		{RunID: "r1", Event: sell("F", 150, "11", "98232", "Profit Limit", t0.Add(4*time.Minute))},
		{RunID: "r2", Event: buy("GE", 10, "5", "99950", t0)},
	}

	summary := Summarize(entries)

	assert.Equal(t, 2, summary.Runs)
	assert.Equal(t, 2, summary.RoundTrips)
	assert.Equal(t, 1, summary.Wins)
	assert.Equal(t, 1, summary.Losses)
	assert.InDelta(t, 50.0, summary.WinRate, 1e-9)
	// -1818 on AMD, +50 on F
	assert.True(t, summary.RealizedPnL.Equal(d("-1768")), summary.RealizedPnL.String())
	assert.True(t, summary.AverageWin.Equal(d("50")))
	assert.True(t, summary.AverageLoss.Equal(d("-1818")))

	assert.Equal(t, map[string]ReasonStats{
		"Loss Limit":   {Losses: 1, Total: 1},
		"Profit Limit": {Wins: 1, Total: 1},
	}, summary.ByReason)

	require.NotNil(t, summary.BestTrade)
	assert.Equal(t, "F", summary.BestTrade.Ticker)
	assert.Equal(t, 2, summary.BestTrade.EntryCount)
	assert.True(t, summary.BestTrade.Cost.Equal(d("1600")))
	assert.Equal(t, t0.Add(time.Minute), summary.BestTrade.EntryTime)
	require.NotNil(t, summary.WorstTrade)
	assert.Equal(t, "AMD", summary.WorstTrade.Ticker)

	require.Len(t, summary.Open, 1)
	assert.Equal(t, "r2", summary.Open[0].RunID)
	assert.Equal(t, "GE", summary.Open[0].Ticker)
	assert.True(t, summary.Open[0].Cost.Equal(d("50")))
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.RoundTrips)
	assert.Zero(t, summary.WinRate)
	assert.Nil(t, summary.BestTrade)
	assert.Empty(t, summary.Open)
}
