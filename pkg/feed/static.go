package feed

import (
	"context"
	"fmt"
)

// StaticSource serves series held in memory
type StaticSource map[string]Series

// Intraday returns the stored series for ticker
func (s StaticSource) Intraday(_ context.Context, ticker string) (Series, error) {
	series, ok := s[ticker]
	if !ok {
		return nil, fmt.Errorf("no series for %s", ticker)
	}
	return series, nil
}
