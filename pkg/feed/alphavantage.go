package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
	_ "time/tzdata" // exchange zones named in response metadata
)

const (
	OutputSizeFull    = "full"
	OutputSizeCompact = "compact"
)

// AlphaVantageFeed fetches intraday series from Alpha Vantage
type AlphaVantageFeed struct {
	apiKey     string
	baseURL    string
	interval   string
	outputSize string
	client     *http.Client
}

// NewAlphaVantageFeed creates a new Alpha Vantage feed
func NewAlphaVantageFeed(apiKey, interval, outputSize string) *AlphaVantageFeed {
	if interval == "" {
		interval = "5min"
	}
	if outputSize == "" {
		outputSize = OutputSizeFull
	}
	return &AlphaVantageFeed{
		apiKey:     apiKey,
		baseURL:    "https://www.alphavantage.co",
		interval:   interval,
		outputSize: outputSize,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL points the feed at a different host
func (av *AlphaVantageFeed) SetBaseURL(baseURL string) {
	av.baseURL = baseURL
}

// Interval returns the bar interval requested from the provider
func (av *AlphaVantageFeed) Interval() string {
	return av.interval
}

// Intraday fetches the intraday series for ticker, newest first as the
// provider orders it
func (av *AlphaVantageFeed) Intraday(ctx context.Context, ticker string) (Series, error) {
	return av.fetch(ctx, ticker, av.outputSize)
}

// LatestClose fetches a compact series and returns its newest close
func (av *AlphaVantageFeed) LatestClose(ctx context.Context, ticker string) (float64, error) {
	series, err := av.fetch(ctx, ticker, OutputSizeCompact)
	if err != nil {
		return 0, err
	}
	last, ok := series.Last()
	if !ok {
		return 0, fmt.Errorf("latest close for %s: %w", ticker, ErrEmptySeries)
	}
	return last.Close, nil
}

type intradayBar struct {
	Close string `json:"4. close"`
}

func (av *AlphaVantageFeed) fetch(ctx context.Context, ticker, outputSize string) (Series, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_INTRADAY")
	q.Set("symbol", ticker)
	q.Set("interval", av.interval)
	q.Set("outputsize", outputSize)
	q.Set("apikey", av.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, av.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := av.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return av.parse(ticker, payload)
}

func (av *AlphaVantageFeed) parse(ticker string, payload map[string]json.RawMessage) (Series, error) {
	// Errors and rate-limit notices come back with status 200
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if raw, ok := payload[key]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return nil, fmt.Errorf("API returned %q for %s: %s", key, ticker, msg)
		}
	}

	location := time.UTC
	if raw, ok := payload["Meta Data"]; ok {
		var meta map[string]string
		if err := json.Unmarshal(raw, &meta); err == nil {
			if tz := meta["6. Time Zone"]; tz != "" {
				if loc, err := time.LoadLocation(tz); err == nil {
					location = loc
				}
			}
		}
	}

	raw, ok := payload[fmt.Sprintf("Time Series (%s)", av.interval)]
	if !ok {
		return nil, fmt.Errorf("response for %s has no %s time series", ticker, av.interval)
	}

	var bars map[string]intradayBar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("failed to decode time series: %w", err)
	}

	series := make(Series, 0, len(bars))
	for stamp, bar := range bars {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", stamp, location)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q for %s: %w", stamp, ticker, err)
		}
		closePrice, err := strconv.ParseFloat(bar.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("bad close %q at %s for %s: %w", bar.Close, stamp, ticker, err)
		}
		series = append(series, Sample{Time: ts, Close: closePrice})
	}

	// Newest first, matching the provider's ordering
	sort.Slice(series, func(i, j int) bool {
		return series[i].Time.After(series[j].Time)
	})
	return series, nil
}
