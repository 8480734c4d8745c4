// Package importer normalizes heterogeneous import sources (manual entry,
// pasted delimited text, recognized screenshot text) into validated holdings
// before they reach the portfolio store.
package importer

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trendguard/domain"
)

// Policy is the merge behavior suggested by an import source. The user
// confirms or flips it before the import is applied.
type Policy string

const (
	// PolicyOverwrite replaces the whole portfolio. Default for delimited
	// imports, which are usually a full broker export.
	PolicyOverwrite Policy = "overwrite"
	// PolicyUnion adds only tickers not already held. Default for
	// recognized-text imports.
	PolicyUnion Policy = "union"
)

// Header synonyms on the first field mark a row as a header, not data.
var headerStoplist = map[string]struct{}{
	"股號":     {},
	"股票代號": {},
	"代號":     {},
	"ticker": {},
	"symbol": {},
	"code":   {},
}

// Reconciler validates and parses import candidates.
type Reconciler struct {
	log zerolog.Logger
}

// NewReconciler creates an import reconciler.
func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{log: log.With().Str("component", "importer").Logger()}
}

// Manual validates a single hand-entered holding. Ticker and name must be
// non-empty, cost must parse as a decimal and shares as an integer.
func (r *Reconciler) Manual(ticker, name, cost, shares string) (domain.Holding, error) {
	ticker = strings.TrimSpace(ticker)
	name = strings.TrimSpace(name)
	if ticker == "" || name == "" {
		return domain.Holding{}, fmt.Errorf("manual entry needs ticker and name")
	}

	costDec, err := decimal.NewFromString(strings.TrimSpace(cost))
	if err != nil {
		return domain.Holding{}, fmt.Errorf("manual entry %s: bad cost %q: %w", ticker, cost, err)
	}
	shareCount, err := strconv.ParseInt(strings.TrimSpace(shares), 10, 64)
	if err != nil {
		return domain.Holding{}, fmt.Errorf("manual entry %s: bad share count %q: %w", ticker, shares, err)
	}

	h := domain.Holding{Ticker: ticker, Name: name, CostBasis: costDec, Shares: shareCount}
	if err := h.Validate(); err != nil {
		return domain.Holding{}, err
	}
	return h, nil
}

// ParseDelimited parses pasted broker-export text, one holding per row with
// fields ticker, name, cost, shares. Quoted commas are honored, header rows
// are skipped, thousands separators are stripped, and malformed rows are
// dropped individually so the valid remainder still imports.
func (r *Reconciler) ParseDelimited(text string) ([]domain.Holding, Policy) {
	var holdings []domain.Holding
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h, ok := r.parseRow(line)
		if !ok {
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings, PolicyOverwrite
}

func (r *Reconciler) parseRow(line string) (domain.Holding, bool) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	fields, err := reader.Read()
	if err != nil {
		r.log.Debug().Err(err).Str("row", line).Msg("unparsable import row dropped")
		return domain.Holding{}, false
	}
	if len(fields) < 4 {
		return domain.Holding{}, false
	}

	ticker := strings.TrimSpace(fields[0])
	if _, isHeader := headerStoplist[strings.ToLower(ticker)]; isHeader {
		return domain.Holding{}, false
	}
	if ticker == "" {
		return domain.Holding{}, false
	}

	cost, err := decimal.NewFromString(stripThousands(fields[2]))
	if err != nil {
		r.log.Debug().Str("row", line).Msg("import row with bad cost dropped")
		return domain.Holding{}, false
	}
	shares, err := strconv.ParseInt(stripThousands(fields[3]), 10, 64)
	if err != nil {
		r.log.Debug().Str("row", line).Msg("import row with bad share count dropped")
		return domain.Holding{}, false
	}

	return domain.Holding{
		Ticker:    ticker,
		Name:      strings.TrimSpace(fields[1]),
		CostBasis: cost,
		Shares:    shares,
	}, true
}

func stripThousands(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}
