package scanner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

const (
	RankVolume = "volume"
	RankChange = "change"

	// MostActivePageSize is the row count requested per screener page
	MostActivePageSize = 100

	// LastSP500Ticker is the final constituent in the list's alphabetical order
	LastSP500Ticker = "ZTS"

	defaultMostActiveURL = "https://finance.yahoo.com/most-active/"
	defaultSP500URL      = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
)

var tickerPattern = regexp.MustCompile(`[A-Z]+`)

// Quote is one row of the most-active screener
type Quote struct {
	Ticker         string  `json:"ticker"`
	ChangePct      float64 `json:"changePct"`      // Magnitude of the daily % change, sign dropped
	VolumeMillions float64 `json:"volumeMillions"` // Shares traded, in millions
}

// Client scrapes public pages for candidate tickers
type Client struct {
	mostActiveURL string
	sp500URL      string
	httpClient    *http.Client
	logger        zerolog.Logger
}

// NewClient creates a scraping client
func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		mostActiveURL: defaultMostActiveURL,
		sp500URL:      defaultSP500URL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// SetMostActiveURL points the client at another screener
func (c *Client) SetMostActiveURL(url string) {
	c.mostActiveURL = url
}

// SetSP500URL points the client at another constituent list
func (c *Client) SetSP500URL(url string) {
	c.sp500URL = url
}

// MostActive fetches pages of the most-active screener and returns every
// row that parses. Rows with missing or malformed cells are skipped.
func (c *Client) MostActive(ctx context.Context, pages int) ([]Quote, error) {
	if pages <= 0 {
		pages = 1
	}

	var quotes []Quote
	for page := 0; page < pages; page++ {
		url := fmt.Sprintf("%s?count=%d&offset=%d", c.mostActiveURL, MostActivePageSize, page*MostActivePageSize)
		doc, err := c.fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("most active page %d: %w", page, err)
		}

		rows := findAll(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "tr" && hasClass(n, "simpTblRow")
		})
		for _, row := range rows {
			quote, ok := parseQuoteRow(row)
			if !ok {
				c.logger.Debug().Str("row", strings.TrimSpace(textContent(row))).Msg("skipping unparsable row")
				continue
			}
			quotes = append(quotes, quote)
		}
	}

	c.logger.Info().Int("quotes", len(quotes)).Int("pages", pages).Msg("most active fetched")
	return quotes, nil
}

// SP500Tickers scrapes the constituent list. Each external link contributes
// its first run of capitals; scraping stops at LastSP500Ticker.
func (c *Client) SP500Tickers(ctx context.Context) ([]string, error) {
	doc, err := c.fetch(ctx, c.sp500URL)
	if err != nil {
		return nil, fmt.Errorf("sp500 list: %w", err)
	}

	links := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "external") && hasClass(n, "text")
	})

	var tickers []string
	for _, link := range links {
		match := tickerPattern.FindString(textContent(link))
		if match == "" {
			continue
		}
		tickers = append(tickers, match)
		if match == LastSP500Ticker {
			break
		}
	}

	c.logger.Info().Int("tickers", len(tickers)).Msg("sp500 constituents fetched")
	return tickers, nil
}

// TopByChange returns up to n quotes with the largest change, largest first
func TopByChange(quotes []Quote, n int) []Quote {
	return top(quotes, n, func(q Quote) float64 { return q.ChangePct })
}

// TopByVolume returns up to n quotes with the largest volume, largest first
func TopByVolume(quotes []Quote, n int) []Quote {
	return top(quotes, n, func(q Quote) float64 { return q.VolumeMillions })
}

func top(quotes []Quote, n int, key func(Quote) float64) []Quote {
	sorted := make([]Quote, len(quotes))
	copy(sorted, quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func (c *Client) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// parseQuoteRow reads ticker from the first link, change from the fifth
// cell and volume from the sixth
func parseQuoteRow(row *html.Node) (Quote, bool) {
	links := findAll(row, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "a"
	})
	cells := findAll(row, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "td"
	})
	if len(links) == 0 || len(cells) < 6 {
		return Quote{}, false
	}

	ticker := strings.TrimSpace(textContent(links[0]))
	change, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(textContent(cells[4])), "%+-"), 64)
	if err != nil {
		return Quote{}, false
	}
	volume, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(textContent(cells[5])), "M"), 64)
	if err != nil {
		return Quote{}, false
	}
	if ticker == "" {
		return Quote{}, false
	}

	return Quote{Ticker: ticker, ChangePct: change, VolumeMillions: volume}, true
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			found = append(found, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return found
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, field := range strings.Fields(attr.Val) {
			if field == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
