package importer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"trendguard/domain"
)

// Recognizer extracts ticker candidates from raw recognized text.
type Recognizer interface {
	// ExtractCandidates returns the tickers found in rawText, restricted to
	// the known set, in order of first appearance.
	ExtractCandidates(rawText string, known domain.TickerSet) []string
}

var _ Recognizer = (*PatternRecognizer)(nil)

// PatternRecognizer matches 4-6 digit ticker codes. Restricting matches to
// the known ticker set keeps arbitrary numbers in a screenshot (prices,
// share counts, dates) from importing as phantom holdings.
type PatternRecognizer struct {
	codePattern *regexp.Regexp
}

// NewPatternRecognizer creates the default recognizer.
func NewPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{
		codePattern: regexp.MustCompile(`\b\d{4,6}\b`),
	}
}

// ExtractCandidates implements Recognizer.
func (p *PatternRecognizer) ExtractCandidates(rawText string, known domain.TickerSet) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, code := range p.codePattern.FindAllString(rawText, -1) {
		if !known.Has(code) {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// Recognize runs the recognizer over each text block and converts the
// candidates to holdings. Tickers are also picked up when a stock's full
// name appears verbatim in the text, since broker screenshots often show
// names without codes. Duplicates across blocks collapse; cost and shares
// are always zeroed for the user to fill in.
func (r *Reconciler) Recognize(rec Recognizer, texts []string, names map[string]string) ([]domain.Holding, Policy) {
	known := make(domain.TickerSet, len(names))
	for t := range names {
		known[t] = struct{}{}
	}

	var holdings []domain.Holding
	seen := make(map[string]struct{})
	add := func(ticker string) {
		if _, dup := seen[ticker]; dup {
			return
		}
		seen[ticker] = struct{}{}
		holdings = append(holdings, domain.Holding{
			Ticker:    ticker,
			Name:      names[ticker],
			CostBasis: decimal.Zero,
			Shares:    0,
		})
	}

	for _, text := range texts {
		for _, ticker := range rec.ExtractCandidates(text, known) {
			add(ticker)
		}
		for ticker, name := range names {
			if name != "" && strings.Contains(text, name) {
				add(ticker)
			}
		}
	}

	if len(holdings) > 0 {
		r.log.Info().Int("count", len(holdings)).Msg("recognized holdings from screenshot text")
	}
	return holdings, PolicyUnion
}
