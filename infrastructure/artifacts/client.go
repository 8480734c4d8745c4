package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trendguard/domain"
)

// ErrNotFound reports that an artifact does not exist for the requested
// date. Articles in particular are best-effort and often absent.
var ErrNotFound = errors.New("artifact not found")

// Client fetches daily artifacts from the published data root.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an artifacts client rooted at baseURL; documents are
// resolved under its /data path.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("component", "artifacts").Logger(),
	}
}

// Today returns the current candidate scan document.
func (c *Client) Today(ctx context.Context) (*DailyScan, error) {
	var scan DailyScan
	if err := c.getJSON(ctx, "/data/daily_recommendations.json", &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// History returns the archived scan document for a date.
func (c *Client) History(ctx context.Context, date string) (*DailyScan, error) {
	var scan DailyScan
	if err := c.getJSON(ctx, "/data/history/"+date+".json", &scan); err != nil {
		return nil, err
	}
	if scan.Date == "" {
		scan.Date = date
	}
	return &scan, nil
}

// Article returns the generated commentary for a date, or ErrNotFound when
// no article was published that day.
func (c *Client) Article(ctx context.Context, date string) (*Article, error) {
	var art Article
	if err := c.getJSON(ctx, "/data/articles/"+date+".json", &art); err != nil {
		return nil, err
	}
	if art.Date == "" {
		art.Date = date
	}
	return &art, nil
}

// DateIndex returns the available history dates, most recent first. The
// published index carries a flat array of ISO dates; sorting here makes the
// ordering a guarantee of this client rather than of the publisher.
func (c *Client) DateIndex(ctx context.Context) ([]string, error) {
	var dates []string
	if err := c.getJSON(ctx, "/data/history/index.json", &dates); err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// KnownTickers loads the listed-stock table and returns its ticker set.
func (c *Client) KnownTickers(ctx context.Context) (domain.TickerSet, []ListedStock, error) {
	var listed []ListedStock
	if err := c.getJSON(ctx, "/data/tw_stocks.json", &listed); err != nil {
		return nil, nil, err
	}
	set := make(domain.TickerSet, len(listed))
	for _, s := range listed {
		set[s.Ticker] = struct{}{}
	}
	return set, listed, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("artifact request %s: %w", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("artifact fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("artifact %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("artifact %s: HTTP %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("artifact read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("artifact decode %s: %w", path, err)
	}
	return nil
}
