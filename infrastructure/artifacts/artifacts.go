// Package artifacts reads the published daily scan artifacts: today's
// candidate document, per-date history documents, optional per-date article
// documents, the date index, and the listed-stock table. These are static
// JSON files regenerated once per day, so fetches are cheap and can run in
// parallel, unlike the live quote API.
package artifacts

import "trendguard/domain"

// DailyScan is one day's published candidate list.
type DailyScan struct {
	Date      string             `json:"date"`
	UpdatedAt string             `json:"updated_at,omitempty"`
	Stocks    []domain.ScanEntry `json:"stocks"`
}

// Tickers returns the scan's ticker list in document order.
func (s *DailyScan) Tickers() []string {
	out := make([]string, 0, len(s.Stocks))
	for _, e := range s.Stocks {
		out = append(out, e.Ticker)
	}
	return out
}

// Article is the generated commentary published alongside a day's scan.
// Not every scan day has one.
type Article struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ListedStock is one row of the listed-stock table. The recognizer uses the
// full table as its known-ticker set.
type ListedStock struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}
