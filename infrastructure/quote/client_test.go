package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, zerolog.Nop())
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestClientFetch(t *testing.T) {
	t.Run("success_returns_raw_json", func(t *testing.T) {
		var gotTicker, gotBuster string
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotTicker = r.URL.Query().Get("ticker")
			gotBuster = r.URL.Query().Get("t")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"price": 123.5, "name": "台積電"}`))
		})

		raw, err := c.Fetch(context.Background(), "2330")
		require.NoError(t, err)
		assert.Equal(t, "2330", gotTicker)
		assert.Equal(t, "1700000000000", gotBuster)

		var snapshot map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &snapshot))
		assert.Contains(t, snapshot, "price")
	})

	t.Run("forbidden_status_is_rate_limited", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Forbidden", http.StatusForbidden)
		})

		_, err := c.Fetch(context.Background(), "2330")
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))

		var qe *Error
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, http.StatusForbidden, qe.Status)
		assert.Equal(t, "2330", qe.Ticker)
	})

	t.Run("forbidden_error_body_is_rate_limited", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": "request Forbidden by upstream"}`))
		})

		_, err := c.Fetch(context.Background(), "2330")
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("html_failure_body_classifies_without_panic", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html><body>Bad Gateway</body></html>"))
		})

		_, err := c.Fetch(context.Background(), "2330")
		var qe *Error
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, FailureHTTP, qe.Kind)
		assert.Equal(t, http.StatusBadGateway, qe.Status)
		assert.Contains(t, qe.BodyExcerpt, "<html>")
		assert.False(t, IsRateLimited(err))
	})

	t.Run("ok_status_with_non_json_body_is_malformed", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>login page</html>"))
		})

		_, err := c.Fetch(context.Background(), "2330")
		var qe *Error
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, FailureMalformed, qe.Kind)
	})

	t.Run("unreachable_server_is_network_failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := NewClient(srv.URL, zerolog.Nop())

		_, err := c.Fetch(context.Background(), "2330")
		var qe *Error
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, FailureNetwork, qe.Kind)
	})
}

func TestErrorExcerptTruncation(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, excerpt(long), bodyExcerptLen)
}

func TestIsRateLimitedOnWrappedError(t *testing.T) {
	inner := &Error{Ticker: "2330", Kind: FailureRateLimited, Status: 403}
	assert.True(t, IsRateLimited(inner))
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.False(t, IsRateLimited(nil))
}
