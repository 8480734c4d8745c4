// Package history maintains the bounded local record of which tickers
// appeared on each recent scan day and derives the per-ticker appearance
// index from it.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"trendguard/domain"
	"trendguard/infrastructure/artifacts"
)

// Source provides the published history artifacts.
type Source interface {
	// DateIndex returns available scan dates, most recent first.
	DateIndex(ctx context.Context) ([]string, error)
	// History returns the archived scan for one date.
	History(ctx context.Context, date string) (*artifacts.DailyScan, error)
}

var _ Source = (*artifacts.Client)(nil)

// Cache persists the date→tickers record between runs.
type Cache interface {
	Load() map[string][]string
	Save(map[string][]string) error
}

// Service fills the history cache incrementally: dates already cached are
// never re-downloaded, and a past day's list never changes.
type Service struct {
	source Source
	cache  Cache
	log    zerolog.Logger
}

// NewService creates a history service.
func NewService(source Source, cache Cache, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		cache:  cache,
		log:    log.With().Str("component", "history").Logger(),
	}
}

// Refresh brings the cache up to date for the recent window and returns the
// derived ticker→dates index. Missing dates are fetched in parallel; these
// are static archived files, not the rate-limited quote API. An individual
// date failure leaves that date absent and never blocks the others.
func (s *Service) Refresh(ctx context.Context) (domain.TickerHistoryIndex, error) {
	dates, err := s.source.DateIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load date index: %w", err)
	}
	window := dates
	if len(window) > domain.HistoryWindowDays {
		window = window[:domain.HistoryWindowDays]
	}

	cached := s.cache.Load()
	missing := domain.MissingDates(window, cached)
	s.log.Debug().Int("window", len(window)).Int("cached", len(cached)).Int("missing", len(missing)).Msg("history refresh")

	s.fetchMissing(ctx, missing, cached)

	evicted := domain.TrimRetention(cached, domain.HistoryRetentionDays)
	if evicted > 0 {
		s.log.Debug().Int("evicted", evicted).Msg("history cache trimmed")
	}
	if err := s.cache.Save(cached); err != nil {
		// The cache is rebuildable; a failed save costs re-downloads, not
		// correctness.
		s.log.Warn().Err(err).Msg("history cache persist failed")
	}

	return domain.BuildTickerIndex(window, cached), nil
}

// fetchMissing downloads the given dates concurrently and merges the ticker
// lists into cached. The merge is order-independent: each date writes only
// its own key.
func (s *Service) fetchMissing(ctx context.Context, missing []string, cached map[string][]string) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, date := range missing {
		wg.Add(1)
		go func(date string) {
			defer wg.Done()
			scan, err := s.source.History(ctx, date)
			if err != nil {
				s.log.Warn().Err(err).Str("date", date).Msg("history date fetch failed, skipping")
				return
			}
			tickers := scan.Tickers()
			mu.Lock()
			cached[date] = tickers
			mu.Unlock()
		}(date)
	}
	wg.Wait()
}
