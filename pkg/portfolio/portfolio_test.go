package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ihs-daytrader/pkg/risk"
)

var t0 = time.Date(2020, 5, 29, 9, 35, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) Record(e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestBuy_CashConservation(t *testing.T) {
	tests := []struct {
		price string
		spend string
	}{
		{"10.25", "10000"},
		{"53.2199", "9876.5432"},
		{"0.0007", "1.5"},
		{"999.99", "1000"},
		{"3", "2.9999"},
	}

	for _, tt := range tests {
		t.Run(tt.price+"/"+tt.spend, func(t *testing.T) {
			p := New(d("100000"))
			before := p.Cash()

			event, err := p.Buy("AMD", d(tt.price), d(tt.spend), t0)
			require.NoError(t, err)

			spent := d(tt.price).Mul(decimal.NewFromInt(event.Shares))
			assert.True(t, before.Sub(p.Cash()).Equal(spent), "spent %s, cash moved %s", spent, before.Sub(p.Cash()))
			assert.True(t, event.Cash.Equal(p.Cash()))
			assert.False(t, p.Cash().IsNegative())
		})
	}
}

func TestBuy_WholeShares(t *testing.T) {
	p := New(d("100000"))
	event, err := p.Buy("GE", d("10.25"), d("10000"), t0)
	require.NoError(t, err)

	assert.Equal(t, int64(975), event.Shares)
	assert.Equal(t, SideBuy, event.Side)
	assert.Equal(t, t0, event.Time)
	assert.True(t, p.Cash().Equal(d("90006.25")))

	position, ok := p.Position("GE")
	require.True(t, ok)
	assert.Equal(t, int64(975), position.Shares)
	assert.True(t, position.AvgPrice.Equal(d("10.25")))
}

func TestBuy_CashStaysAtFourPlaces(t *testing.T) {
	p := New(d("90001.2345"))
	spend := risk.DefaultLimits().Allocate(p.Cash())
	require.True(t, spend.Equal(d("9000.12345")))

	event, err := p.Buy("AMD", d("10"), spend, t0)
	require.NoError(t, err)

	assert.Equal(t, int64(900), event.Shares)
	assert.True(t, p.Cash().Equal(d("81001.2346")), p.Cash().String())
	assert.True(t, p.Cash().Equal(p.Cash().Round(CashPlaces)))
	assert.True(t, event.Cash.Equal(p.Cash()))
}

func TestBuy_MergeUsesTwoPriceMean(t *testing.T) {
	p := New(d("100000"))
	_, err := p.Buy("F", d("10"), d("1000"), t0)
	require.NoError(t, err)
	_, err = p.Buy("F", d("13.33333"), d("1000"), t0.Add(time.Minute))
	require.NoError(t, err)

	position, ok := p.Position("F")
	require.True(t, ok)
	assert.Equal(t, int64(100+75), position.Shares)
	// (10 + 13.33333) / 2 rounded to 4 places, not weighted by shares
	assert.True(t, position.AvgPrice.Equal(d("11.6667")), position.AvgPrice.String())
}

func TestBuy_Errors(t *testing.T) {
	p := New(d("1000"))

	_, err := p.Buy("X", decimal.Zero, d("10"), t0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = p.Buy("X", d("-1"), d("10"), t0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = p.Buy("X", d("1"), d("1000.0001"), t0)
	assert.ErrorIs(t, err, ErrInsufficientCash)

	_, err = p.Buy("X", d("1"), decimal.Zero, t0)
	assert.ErrorIs(t, err, ErrInsufficientCash)

	assert.True(t, p.Cash().Equal(d("1000")))
	assert.Zero(t, p.OpenPositionCount())
	assert.Empty(t, p.Events())
}

func TestSell_FullLiquidation(t *testing.T) {
	p := New(d("100000"))
	_, err := p.Buy("BAC", d("25"), d("10000"), t0)
	require.NoError(t, err)

	event, err := p.Sell("BAC", d("25.5"), t0.Add(time.Minute), "Profit Limit")
	require.NoError(t, err)

	assert.Equal(t, SideSell, event.Side)
	assert.Equal(t, int64(400), event.Shares)
	assert.Equal(t, "Profit Limit", event.Reason)
	assert.True(t, p.Cash().Equal(d("100200")))
	assert.False(t, p.HasPosition("BAC"))
}

func TestSell_Errors(t *testing.T) {
	p := New(d("100000"))

	_, err := p.Sell("UBER", d("30"), t0, "")
	require.ErrorIs(t, err, ErrNoPosition)

	_, err = p.Buy("UBER", d("30"), d("300"), t0)
	require.NoError(t, err)

	_, err = p.Sell("UBER", decimal.Zero, t0, "")
	require.ErrorIs(t, err, ErrInvalidPrice)
	assert.True(t, p.HasPosition("UBER"))
}

func TestRoundTripNeutrality(t *testing.T) {
	prices := []string{"10.25", "3.3333", "57.01", "0.9999", "1234.5678"}

	for _, price := range prices {
		t.Run(price, func(t *testing.T) {
			p := New(d("100000"))
			before := p.Cash()
			spend := d("10000")

			_, err := p.Buy("KO", d(price), spend, t0)
			require.NoError(t, err)
			_, err = p.Sell("KO", d(price), t0, "")
			require.NoError(t, err)

			assert.True(t, p.Cash().Equal(before), "cash %s after round trip", p.Cash())
			assert.Zero(t, p.OpenPositionCount())
		})
	}
}

func TestValuation(t *testing.T) {
	p := New(d("100000"))
	_, err := p.Buy("AAL", d("10"), d("1000"), t0)
	require.NoError(t, err)
	_, err = p.Buy("CCL", d("20"), d("1000"), t0)
	require.NoError(t, err)

	prices := map[string]float64{"AAL": 11, "CCL": 19.5}
	total, err := p.Valuation(func(ticker string) (float64, error) {
		return prices[ticker], nil
	})
	require.NoError(t, err)

	// 98000 cash + 100*11 + 50*19.5
	assert.True(t, total.Equal(d("100075")), total.String())

	_, err = p.Valuation(func(string) (float64, error) {
		return 0, errors.New("feed down")
	})
	assert.Error(t, err)
}

func TestValuation_CashOnly(t *testing.T) {
	p := New(d("123.4567"))
	total, err := p.Valuation(func(string) (float64, error) {
		t.Fatal("lookup called without positions")
		return 0, nil
	})
	require.NoError(t, err)
	assert.True(t, total.Equal(d("123.4567")))
}

func TestSinksReceiveEvents(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	p := New(d("1000"), WithSink(sink), WithSink(nil))

	_, err := p.Buy("SNAP", d("10"), d("100"), t0)
	require.NoError(t, err, "sink failures do not fail the fill")
	_, err = p.Sell("SNAP", d("9"), t0, "Loss Limit")
	require.NoError(t, err)

	require.Len(t, sink.events, 2)
	assert.Equal(t, p.Events(), sink.events)
	assert.Equal(t, []Side{SideBuy, SideSell}, []Side{sink.events[0].Side, sink.events[1].Side})
}

func TestPositions_SortedByTicker(t *testing.T) {
	p := New(d("100000"))
	for _, ticker := range []string{"WFC", "AMD", "KO"} {
		_, err := p.Buy(ticker, d("10"), d("100"), t0)
		require.NoError(t, err)
	}

	positions := p.Positions()
	require.Len(t, positions, 3)
	assert.Equal(t, "AMD", positions[0].Ticker)
	assert.Equal(t, "KO", positions[1].Ticker)
	assert.Equal(t, "WFC", positions[2].Ticker)
}
