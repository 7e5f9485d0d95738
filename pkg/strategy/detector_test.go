package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observeAll(d *Detector, closes []float64) []int {
	var signals []int
	for i, c := range closes {
		if d.Observe(c) {
			signals = append(signals, i)
		}
	}
	return signals
}

func TestDetector_FourUpReversalsSignalOnce(t *testing.T) {
	d := NewDetector()
	closes := []float64{10, 11, 10, 11, 10, 11, 10, 11, 9}

	var states []DetectorState
	var signals []int
	for i, c := range closes {
		if d.Observe(c) {
			signals = append(signals, i)
		}
		states = append(states, d.State())
	}

	require.Equal(t, []int{7}, signals)
	assert.Equal(t, 0, states[7].ReversalCount, "count resets on the signalling tick")
	assert.Equal(t, 3, states[6].ReversalCount)
	assert.Equal(t, TrendDown, d.Trend())
	assert.Equal(t, 0, d.State().ReversalCount)
}

func TestDetector_FirstTickIsBaselineOnly(t *testing.T) {
	d := NewDetector()

	_, ok := d.LastClose()
	assert.False(t, ok)

	assert.False(t, d.Observe(10))
	assert.Equal(t, DetectorState{}, d.State())

	last, ok := d.LastClose()
	assert.True(t, ok)
	assert.Equal(t, 10.0, last)
}

func TestDetector_Transitions(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   DetectorState
	}{
		{
			name:   "up streak",
			closes: []float64{10, 11, 12, 13},
			want:   DetectorState{Trend: TrendUp, CurrentStreak: 2, LocalMax: 11, ReversalCount: 1},
		},
		{
			name:   "down streak does not count reversals",
			closes: []float64{10, 9, 8, 7},
			want:   DetectorState{Trend: TrendDown, CurrentStreak: 2, LocalMin: 9},
		},
		{
			name:   "flat ticks leave state unchanged",
			closes: []float64{10, 11, 11, 11},
			want:   DetectorState{Trend: TrendUp, LocalMax: 11, ReversalCount: 1},
		},
		{
			name:   "streak moves into last streak on reversal",
			closes: []float64{10, 11, 12, 13, 12},
			want:   DetectorState{Trend: TrendDown, LastStreak: 2, LocalMax: 11, LocalMin: 12, ReversalCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			assert.Empty(t, observeAll(d, tt.closes))
			assert.Equal(t, tt.want, d.State())
		})
	}
}

func TestDetector_SignalsRepeatEveryFourReversals(t *testing.T) {
	d := NewDetector()
	closes := []float64{5}
	for i := 0; i < 8; i++ {
		closes = append(closes, 6, 5)
	}

	signals := observeAll(d, closes)
	assert.Equal(t, []int{7, 15}, signals)
}

func TestDetectors_AreIndependent(t *testing.T) {
	a := NewDetector()
	b := NewDetector()

	observeAll(a, []float64{1, 2, 1, 2})
	assert.Equal(t, 2, a.State().ReversalCount)
	assert.Equal(t, DetectorState{}, b.State())
}
