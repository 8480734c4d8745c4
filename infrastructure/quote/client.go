package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const bodyExcerptLen = 100

// Fetcher is the capability the sync coordinator consumes.
type Fetcher interface {
	// Fetch returns the raw JSON quote snapshot for ticker, or a *Error.
	Fetch(ctx context.Context, ticker string) (json.RawMessage, error)
}

var _ Fetcher = (*Client)(nil)

// Client fetches quote snapshots over HTTP with a circuit breaker in front,
// so a flapping upstream fails fast instead of stalling every caller.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates a quote client for the API at baseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "quote-api",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		log: log.With().Str("component", "quote").Logger(),
		now: time.Now,
	}
}

// Fetch retrieves a fresh snapshot for ticker. Every request carries a
// cache-defeating timestamp parameter so intermediaries never serve a stale
// snapshot for a "refresh" action.
func (c *Client) Fetch(ctx context.Context, ticker string) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, ticker)
	})
	if err != nil {
		var qe *Error
		if errors.As(err, &qe) {
			return nil, qe
		}
		// Open breaker and other transport-level conditions.
		return nil, &Error{Ticker: ticker, Kind: FailureNetwork, Err: err}
	}
	return result.(json.RawMessage), nil
}

func (c *Client) fetch(ctx context.Context, ticker string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("ticker", ticker)
	params.Set("t", fmt.Sprintf("%d", c.now().UnixMilli()))
	fullURL := fmt.Sprintf("%s/api/stock?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &Error{Ticker: ticker, Kind: FailureNetwork, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Ticker: ticker, Kind: FailureNetwork, Err: err}
	}
	defer resp.Body.Close()

	// Read the body as text before any JSON parsing: failure responses may
	// be HTML, and that must classify cleanly instead of blowing up the
	// caller's batch.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Ticker: ticker, Kind: FailureNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyHTTPFailure(ticker, resp.StatusCode, body)
	}

	if !json.Valid(body) {
		c.log.Warn().Str("ticker", ticker).Str("body", excerpt(body)).Msg("2xx response is not JSON")
		return nil, &Error{Ticker: ticker, Kind: FailureMalformed, Status: resp.StatusCode, BodyExcerpt: excerpt(body)}
	}
	return json.RawMessage(body), nil
}

// classifyHTTPFailure turns a non-2xx response into a typed failure. 403 and
// anything self-describing as forbidden counts as rate-limit exhaustion.
func classifyHTTPFailure(ticker string, status int, body []byte) *Error {
	kind := FailureHTTP
	if status == http.StatusForbidden {
		kind = FailureRateLimited
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	var cause error
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		if strings.Contains(strings.ToLower(apiErr.Error), "forbidden") {
			kind = FailureRateLimited
		}
		cause = fmt.Errorf("%s", apiErr.Error)
	}

	return &Error{
		Ticker:      ticker,
		Kind:        kind,
		Status:      status,
		BodyExcerpt: excerpt(body),
		Err:         cause,
	}
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyExcerptLen {
		s = s[:bodyExcerptLen]
	}
	return s
}
