package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holding(ticker, name, cost string, shares int64) Holding {
	return Holding{
		Ticker:    ticker,
		Name:      name,
		CostBasis: decimal.RequireFromString(cost),
		Shares:    shares,
	}
}

func TestMergeRemote(t *testing.T) {
	t.Run("remote_wins_on_conflict", func(t *testing.T) {
		remote := []Holding{holding("2330", "台積電", "580", 1000)}
		local := []Holding{
			holding("2330", "TSMC stale", "500", 500),
			holding("2603", "長榮", "150", 2000),
		}

		merged := MergeRemote(remote, local)

		require.Len(t, merged, 2)
		assert.Equal(t, "台積電", merged[0].Name)
		assert.True(t, merged[0].CostBasis.Equal(decimal.RequireFromString("580")))
		assert.Equal(t, "2603", merged[1].Ticker)
	})

	t.Run("union_keeps_every_ticker", func(t *testing.T) {
		remote := []Holding{holding("2330", "台積電", "580", 1000)}
		local := []Holding{holding("2454", "聯發科", "900", 100)}

		merged := MergeRemote(remote, local)

		tickers := Tickers(merged)
		assert.ElementsMatch(t, []string{"2330", "2454"}, tickers)
	})

	t.Run("no_duplicate_tickers", func(t *testing.T) {
		remote := []Holding{
			holding("2330", "台積電", "580", 1000),
			holding("2330", "dup", "1", 1),
		}
		merged := MergeRemote(remote, []Holding{holding("2330", "local", "2", 2)})

		require.Len(t, merged, 1)
		assert.Equal(t, "台積電", merged[0].Name)
	})

	t.Run("empty_sides", func(t *testing.T) {
		assert.Empty(t, MergeRemote(nil, nil))
		assert.Len(t, MergeRemote(nil, []Holding{holding("2330", "x", "0", 0)}), 1)
		assert.Len(t, MergeRemote([]Holding{holding("2330", "x", "0", 0)}, nil), 1)
	})
}

func TestMergeAdd(t *testing.T) {
	existing := []Holding{holding("2330", "台積電", "580", 1000)}
	incoming := []Holding{
		holding("2330", "replacement", "1", 1),
		holding("2609", "陽明", "60", 3000),
	}

	merged := MergeAdd(existing, incoming)

	require.Len(t, merged, 2)
	// First write wins: the existing 2330 entry is untouched.
	assert.Equal(t, "台積電", merged[0].Name)
	assert.Equal(t, "2609", merged[1].Ticker)

	t.Run("idempotent", func(t *testing.T) {
		again := MergeAdd(merged, incoming)
		assert.Equal(t, merged, again)
	})
}

func TestReplaceAllThenMergeAdd(t *testing.T) {
	// Overwrite fully discards prior state: an empty replacement followed by
	// a merge-add yields exactly the added list.
	incoming := []Holding{
		holding("2330", "台積電", "580", 1000),
		holding("2603", "長榮", "150", 2000),
	}

	var portfolio []Holding // replaceAll([])
	portfolio = MergeAdd(portfolio, incoming)

	assert.Equal(t, incoming, portfolio)
}

func TestUnlisted(t *testing.T) {
	holdings := []Holding{
		holding("2330", "台積電", "580", 1000),
		holding("2603", "長榮", "150", 2000),
		holding("8069", "元太", "200", 500),
	}
	listed := NewTickerSet("2330")

	unlisted := Unlisted(holdings, listed)

	assert.Equal(t, []string{"2603", "8069"}, Tickers(unlisted))
}

func TestHoldingValidate(t *testing.T) {
	assert.NoError(t, holding("2330", "台積電", "0", 0).Validate())
	assert.Error(t, holding("", "x", "1", 1).Validate())
	assert.Error(t, holding("2330", "x", "-1", 1).Validate())
	assert.Error(t, Holding{Ticker: "2330", Shares: -5}.Validate())
}

func TestUnrealizedPL(t *testing.T) {
	h := holding("2330", "台積電", "500", 1000)

	amount, pct := h.UnrealizedPL(decimal.RequireFromString("550"))
	assert.True(t, amount.Equal(decimal.NewFromInt(50000)), "amount %s", amount)
	assert.True(t, pct.Equal(decimal.NewFromInt(10)), "pct %s", pct)

	t.Run("zero_cost_basis", func(t *testing.T) {
		h := holding("8069", "元太", "0", 100)
		_, pct := h.UnrealizedPL(decimal.NewFromInt(200))
		assert.True(t, pct.IsZero())
	})
}
