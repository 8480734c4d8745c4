package domain

import "sort"

// Dates are ISO calendar days ("2006-01-02"), so lexicographic order is
// chronological order.

const (
	// HistoryWindowDays is how many recent scan days feed the derived
	// per-ticker appearance index.
	HistoryWindowDays = 30

	// HistoryRetentionDays is the hard cap on cached date keys. Eviction is
	// by recency of the date value itself, not access time.
	HistoryRetentionDays = 60
)

// DateTickerSet records which tickers appeared in one day's scan. A past
// day's list is immutable once fetched.
type DateTickerSet struct {
	Date    string   `json:"date"`
	Tickers []string `json:"tickers"`
}

// MissingDates returns the dates in window that are absent from cached,
// preserving window order.
func MissingDates(window []string, cached map[string][]string) []string {
	var missing []string
	for _, d := range window {
		if _, ok := cached[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// TrimRetention drops all but the keep most recent date keys from cache.
// It mutates the map in place and returns the number of evicted keys.
func TrimRetention(cache map[string][]string, keep int) int {
	if len(cache) <= keep {
		return 0
	}
	dates := make([]string, 0, len(cache))
	for d := range cache {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	evicted := 0
	for _, d := range dates[keep:] {
		delete(cache, d)
		evicted++
	}
	return evicted
}

// TickerHistoryIndex maps ticker → dates on which it appeared, most recent
// first. It is derived from the window, never persisted.
type TickerHistoryIndex map[string][]string

// BuildTickerIndex inverts the cached date→tickers sets restricted to the
// given window. The window is iterated in its given order (most recent
// first), so each ticker's date list comes out most recent first too. Dates
// absent from the cache are simply skipped.
func BuildTickerIndex(window []string, cached map[string][]string) TickerHistoryIndex {
	index := make(TickerHistoryIndex)
	for _, d := range window {
		for _, t := range cached[d] {
			index[t] = append(index[t], d)
		}
	}
	return index
}

// Dates returns the appearance dates for a ticker. A ticker that never
// appeared yields an empty, non-nil slice.
func (idx TickerHistoryIndex) Dates(ticker string) []string {
	if dates, ok := idx[ticker]; ok {
		return dates
	}
	return []string{}
}
