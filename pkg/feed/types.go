package feed

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrEmptySeries is returned when a ticker has no price samples
var ErrEmptySeries = errors.New("empty price series")

// Sample is a single close observation
type Sample struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// Series is a sequence of samples for one ticker
type Series []Sample

// Chronological returns the samples in ascending time order. A series
// delivered newest-first is reversed; any other ordering is sorted.
// The receiver is never modified.
func (s Series) Chronological() Series {
	out := make(Series, len(s))
	copy(out, s)

	if out.isDescending() {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// Between returns the samples with from <= Time < to. A zero bound is open.
func (s Series) Between(from, to time.Time) Series {
	out := make(Series, 0, len(s))
	for _, sample := range s {
		if !from.IsZero() && sample.Time.Before(from) {
			continue
		}
		if !to.IsZero() && !sample.Time.Before(to) {
			continue
		}
		out = append(out, sample)
	}
	return out
}

// Last returns the newest sample by time
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	last := s[0]
	for _, sample := range s[1:] {
		if sample.Time.After(last.Time) {
			last = sample
		}
	}
	return last, true
}

// Closes returns the close prices in series order
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, sample := range s {
		closes[i] = sample.Close
	}
	return closes
}

func (s Series) isDescending() bool {
	if len(s) < 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Time.Before(s[i-1].Time) {
			return false
		}
	}
	return true
}

// Source provides the intraday price series for a ticker
type Source interface {
	Intraday(ctx context.Context, ticker string) (Series, error)
}

// Quoter returns the latest close for a ticker
type Quoter interface {
	LatestClose(ctx context.Context, ticker string) (float64, error)
}
