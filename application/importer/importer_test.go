package importer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendguard/domain"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(zerolog.Nop())
}

func TestManual(t *testing.T) {
	r := newTestReconciler()

	t.Run("valid_entry", func(t *testing.T) {
		h, err := r.Manual(" 2330 ", "台積電", "580.5", "1000")
		require.NoError(t, err)
		assert.Equal(t, "2330", h.Ticker)
		assert.Equal(t, "台積電", h.Name)
		assert.True(t, h.CostBasis.Equal(decimal.RequireFromString("580.5")))
		assert.Equal(t, int64(1000), h.Shares)
	})

	t.Run("empty_ticker_rejected", func(t *testing.T) {
		_, err := r.Manual("", "台積電", "580", "1000")
		assert.Error(t, err)
	})

	t.Run("empty_name_rejected", func(t *testing.T) {
		_, err := r.Manual("2330", "  ", "580", "1000")
		assert.Error(t, err)
	})

	t.Run("unparsable_cost_rejected", func(t *testing.T) {
		_, err := r.Manual("2330", "台積電", "abc", "1000")
		assert.Error(t, err)
	})

	t.Run("fractional_shares_rejected", func(t *testing.T) {
		_, err := r.Manual("2330", "台積電", "580", "10.5")
		assert.Error(t, err)
	})

	t.Run("negative_cost_rejected", func(t *testing.T) {
		_, err := r.Manual("2330", "台積電", "-580", "1000")
		assert.Error(t, err)
	})
}

func TestParseDelimited(t *testing.T) {
	r := newTestReconciler()

	t.Run("header_and_valid_rows", func(t *testing.T) {
		text := "股號,名稱,成本,股數\n2330,台積電,580.5,1000\n2317,鴻海,105,2000\n"
		holdings, policy := r.ParseDelimited(text)
		require.Len(t, holdings, 2)
		assert.Equal(t, PolicyOverwrite, policy)
		assert.Equal(t, "2330", holdings[0].Ticker)
		assert.Equal(t, int64(2000), holdings[1].Shares)
	})

	t.Run("quoted_commas_and_thousands_separators", func(t *testing.T) {
		text := `2330,"台積電",580.5,"1,000"`
		holdings, _ := r.ParseDelimited(text)
		require.Len(t, holdings, 1)
		assert.Equal(t, int64(1000), holdings[0].Shares)
	})

	t.Run("malformed_rows_dropped_individually", func(t *testing.T) {
		text := "2330,台積電,580.5,1000\n2317,鴻海,not-a-number,2000\nshort,row\n2603,長榮,190,500"
		holdings, _ := r.ParseDelimited(text)
		require.Len(t, holdings, 2)
		assert.Equal(t, "2330", holdings[0].Ticker)
		assert.Equal(t, "2603", holdings[1].Ticker)
	})

	t.Run("ascii_header_synonyms_skipped", func(t *testing.T) {
		text := "Ticker,Name,Cost,Shares\n2330,TSMC,580,1000"
		holdings, _ := r.ParseDelimited(text)
		require.Len(t, holdings, 1)
	})

	t.Run("alternate_header_variants_skipped", func(t *testing.T) {
		for _, header := range []string{"股票代號", "代號"} {
			holdings, _ := r.ParseDelimited(header + ",名稱,成本,股數\n2330,台積電,580,1000")
			assert.Len(t, holdings, 1, "header %q", header)
		}
	})

	t.Run("empty_input", func(t *testing.T) {
		holdings, _ := r.ParseDelimited("  \n\n ")
		assert.Empty(t, holdings)
	})
}

func TestPatternRecognizer(t *testing.T) {
	rec := NewPatternRecognizer()
	known := domain.NewTickerSet("2330", "2317", "00878")

	t.Run("only_known_codes_match", func(t *testing.T) {
		text := "庫存 2330 台積電 580.5 現價 1000 股 2317 鴻海 9999"
		got := rec.ExtractCandidates(text, known)
		assert.Equal(t, []string{"2330", "2317"}, got)
	})

	t.Run("five_digit_etf_codes_match", func(t *testing.T) {
		got := rec.ExtractCandidates("00878 國泰永續高股息", known)
		assert.Equal(t, []string{"00878"}, got)
	})

	t.Run("duplicates_collapse", func(t *testing.T) {
		got := rec.ExtractCandidates("2330 ... 2330 ... 2330", known)
		assert.Equal(t, []string{"2330"}, got)
	})

	t.Run("no_matches", func(t *testing.T) {
		assert.Empty(t, rec.ExtractCandidates("no codes here", known))
	})
}

func TestRecognize(t *testing.T) {
	r := newTestReconciler()
	rec := NewPatternRecognizer()
	names := map[string]string{"2330": "台積電", "2317": "鴻海", "2603": "長榮"}

	t.Run("candidates_across_images_collapse", func(t *testing.T) {
		holdings, policy := r.Recognize(rec, []string{"2330 580.5", "2330 2317"}, names)
		assert.Equal(t, PolicyUnion, policy)
		require.Len(t, holdings, 2)
		for _, h := range holdings {
			assert.True(t, h.CostBasis.IsZero())
			assert.Zero(t, h.Shares)
			assert.NotEmpty(t, h.Name)
		}
	})

	t.Run("full_name_match_without_code", func(t *testing.T) {
		holdings, _ := r.Recognize(rec, []string{"長榮 190.0 500股"}, names)
		require.Len(t, holdings, 1)
		assert.Equal(t, "2603", holdings[0].Ticker)
		assert.Equal(t, "長榮", holdings[0].Name)
	})

	t.Run("nothing_recognized", func(t *testing.T) {
		holdings, _ := r.Recognize(rec, []string{"盤後分析文章"}, names)
		assert.Empty(t, holdings)
	})
}
