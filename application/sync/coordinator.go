// Package sync refreshes quote snapshots for held tickers that are absent
// from today's candidate list, so the dashboard can render them identically
// to listed ones.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"trendguard/domain"
	"trendguard/infrastructure/docstore"
	"trendguard/infrastructure/quote"
)

// ErrBatchInProgress reports that a refresh batch is already running.
// Batches never overlap; the caller retries after the current one ends.
var ErrBatchInProgress = errors.New("sync batch already in progress")

// DefaultPace is the minimum spacing between quote requests. The upstream
// API rate-limits aggressively, so requests go out strictly one at a time.
const DefaultPace = time.Second

// analysisDocument is the per-ticker snapshot written to the remote store.
type analysisDocument struct {
	Ticker        string          `json:"ticker"`
	QuoteSnapshot json.RawMessage `json:"quoteSnapshot"`
	FetchedAt     string          `json:"fetchedAt"`
}

// Result summarizes one refresh batch.
type Result struct {
	Synced []string
	Failed map[string]error
	// RateLimited is set when the batch aborted on a 403/forbidden class
	// failure. Remaining counts tickers never attempted.
	RateLimited bool
	Remaining   int
	Notice      string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPacer overrides the request pacer.
func WithPacer(l *rate.Limiter) Option {
	return func(c *Coordinator) { c.pacer = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIdentityCheck installs a guard consulted before each ticker. When it
// reports a different user (or none), the batch stops without writing.
func WithIdentityCheck(fn func() (string, bool)) Option {
	return func(c *Coordinator) { c.identity = fn }
}

// Coordinator runs strictly sequential quote-refresh batches.
type Coordinator struct {
	fetcher  quote.Fetcher
	docs     docstore.Store
	log      zerolog.Logger
	pacer    *rate.Limiter
	now      func() time.Time
	identity func() (string, bool)

	running atomic.Bool
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(fetcher quote.Fetcher, docs docstore.Store, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		docs:    docs,
		log:     log.With().Str("component", "sync").Logger(),
		pacer:   rate.NewLimiter(rate.Every(DefaultPace), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Running reports whether a batch is active.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// Run refreshes every holding absent from today's candidate list, one
// ticker at a time in holding order. A rate-limit rejection aborts the
// remainder of the batch; any other per-ticker failure is recorded and the
// loop moves on. Cancelling ctx (sign-out) stops the loop before the next
// ticker and suppresses further writes.
func (c *Coordinator) Run(ctx context.Context, userID string, holdings []domain.Holding, listed domain.TickerSet) (*Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}
	defer c.running.Store(false)

	unlisted := domain.Unlisted(holdings, listed)
	result := &Result{Failed: make(map[string]error)}
	c.log.Info().Str("user", userID).Int("unlisted", len(unlisted)).Msg("quote refresh batch started")

	for i, h := range unlisted {
		if !c.identityStillValid(userID) {
			c.log.Info().Str("user", userID).Msg("identity changed mid-batch, stopping")
			result.Remaining = len(unlisted) - i
			return result, nil
		}
		// The pacer spaces requests out; the first ticker passes straight
		// through a fresh limiter.
		if err := c.pacer.Wait(ctx); err != nil {
			result.Remaining = len(unlisted) - i
			return result, err
		}

		raw, err := c.fetcher.Fetch(ctx, h.Ticker)
		if err != nil {
			if quote.IsRateLimited(err) {
				result.RateLimited = true
				result.Remaining = len(unlisted) - i
				result.Notice = fmt.Sprintf("quote API rate limited at %s, %d tickers not refreshed", h.Ticker, result.Remaining)
				c.log.Warn().Str("ticker", h.Ticker).Int("remaining", result.Remaining).Msg("rate limited, aborting batch")
				return result, nil
			}
			result.Failed[h.Ticker] = err
			c.log.Warn().Err(err).Str("ticker", h.Ticker).Msg("quote fetch failed, continuing")
			continue
		}

		if err := c.writeSnapshot(ctx, userID, h.Ticker, raw); err != nil {
			result.Failed[h.Ticker] = err
			continue
		}
		result.Synced = append(result.Synced, h.Ticker)
	}

	c.log.Info().Str("user", userID).Int("synced", len(result.Synced)).Int("failed", len(result.Failed)).Msg("quote refresh batch finished")
	return result, nil
}

func (c *Coordinator) identityStillValid(userID string) bool {
	if c.identity == nil {
		return true
	}
	current, signedIn := c.identity()
	return signedIn && current == userID
}

func (c *Coordinator) writeSnapshot(ctx context.Context, userID, ticker string, raw json.RawMessage) error {
	doc := analysisDocument{
		Ticker:        ticker,
		QuoteSnapshot: raw,
		FetchedAt:     c.now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", ticker, err)
	}

	err = c.docs.Set(ctx, docstore.AnalysisDocKey(userID, ticker), payload, false)
	if err != nil {
		if errors.Is(err, docstore.ErrPermissionDenied) {
			c.log.Error().Str("ticker", ticker).Msg("snapshot write denied, check access rules")
		} else {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("snapshot write failed, continuing")
		}
		return fmt.Errorf("write snapshot %s: %w", ticker, err)
	}
	return nil
}
