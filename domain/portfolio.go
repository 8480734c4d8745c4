// Package domain holds the pure portfolio and scan-history types shared by
// the application services. Nothing in here performs I/O.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Holding is a single portfolio entry keyed by ticker.
type Holding struct {
	Ticker    string          `json:"ticker"`
	Name      string          `json:"name"`
	CostBasis decimal.Decimal `json:"cost"`
	Shares    int64           `json:"shares"`
}

// Validate checks the holding invariants: non-empty ticker, non-negative
// cost basis and share count.
func (h Holding) Validate() error {
	if strings.TrimSpace(h.Ticker) == "" {
		return fmt.Errorf("holding has empty ticker")
	}
	if h.CostBasis.IsNegative() {
		return fmt.Errorf("holding %s: negative cost basis %s", h.Ticker, h.CostBasis)
	}
	if h.Shares < 0 {
		return fmt.Errorf("holding %s: negative share count %d", h.Ticker, h.Shares)
	}
	return nil
}

// UnrealizedPL returns the profit/loss amount and percentage for the holding
// at the given price. The percentage is zero when the cost basis is zero
// (imports from recognized screenshots start with zero cost).
func (h Holding) UnrealizedPL(price decimal.Decimal) (amount, pct decimal.Decimal) {
	diff := price.Sub(h.CostBasis)
	amount = diff.Mul(decimal.NewFromInt(h.Shares))
	if h.CostBasis.IsPositive() {
		pct = diff.Div(h.CostBasis).Mul(decimal.NewFromInt(100))
	}
	return amount, pct
}

// TickerSet is a set of ticker symbols.
type TickerSet map[string]struct{}

// NewTickerSet builds a set from the given tickers.
func NewTickerSet(tickers ...string) TickerSet {
	s := make(TickerSet, len(tickers))
	for _, t := range tickers {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether the set contains t.
func (s TickerSet) Has(t string) bool {
	_, ok := s[t]
	return ok
}

// Tickers returns the ticker of every holding, in input order.
func Tickers(holdings []Holding) []string {
	out := make([]string, len(holdings))
	for i, h := range holdings {
		out[i] = h.Ticker
	}
	return out
}

// MergeRemote reconciles the remote snapshot with the local in-memory list
// at sign-in. Remote holdings are authoritative; local holdings whose ticker
// is absent from the remote list are appended so edits made before login
// completed are not lost. No ticker appears twice in the result.
func MergeRemote(remote, local []Holding) []Holding {
	merged := make([]Holding, 0, len(remote)+len(local))
	seen := make(TickerSet, len(remote))
	for _, h := range remote {
		if seen.Has(h.Ticker) {
			continue
		}
		seen[h.Ticker] = struct{}{}
		merged = append(merged, h)
	}
	for _, h := range local {
		if seen.Has(h.Ticker) {
			continue
		}
		seen[h.Ticker] = struct{}{}
		merged = append(merged, h)
	}
	return merged
}

// MergeAdd appends the incoming holdings whose ticker is not already present.
// Existing holdings are left untouched: first write wins per ticker.
func MergeAdd(existing, incoming []Holding) []Holding {
	seen := make(TickerSet, len(existing))
	for _, h := range existing {
		seen[h.Ticker] = struct{}{}
	}
	merged := existing
	for _, h := range incoming {
		if seen.Has(h.Ticker) {
			continue
		}
		seen[h.Ticker] = struct{}{}
		merged = append(merged, h)
	}
	return merged
}

// Unlisted returns the holdings whose ticker does not appear in today's
// candidate list. These need an on-demand quote refresh.
func Unlisted(holdings []Holding, listed TickerSet) []Holding {
	var out []Holding
	for _, h := range holdings {
		if !listed.Has(h.Ticker) {
			out = append(out, h)
		}
	}
	return out
}
