package fundweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchScrapesPenceAndConverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GB00B41YBW71", r.URL.Query().Get("s"))
		w.Write([]byte(`<tr><td>Sell</td><td>254.30p</td></tr>`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	quote, err := c.Fetch(context.Background(), "GB00B41YBW71")
	require.NoError(t, err)
	assert.InDelta(t, 2.543, quote.Price, 1e-9)
	assert.Equal(t, "GBP", quote.Currency)
	assert.Equal(t, "fundweb", quote.Source)
	assert.False(t, quote.Stale)
}

func TestFetchRejectsImplausibleNAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 50000.00p = 500 pounds/unit, far outside fund NAV bounds.
		w.Write([]byte(`{"price":"50000.00"}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	_, err := c.Fetch(context.Background(), "GB00B41YBW71")
	assert.Error(t, err)
}

func TestFetchPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	_, err := c.Fetch(context.Background(), "GB00MISSING0")
	assert.Error(t, err)
}

func writeFallbackTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fund_fallback.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFallbackAdapterServesStaleQuote(t *testing.T) {
	path := writeFallbackTable(t, `
version = "2026-08-01"

[funds]
GB00B41YBW71 = 2.543
"0P0000X1Y2" = 1.101
`)

	a, err := NewFallbackAdapter(path, zerolog.Nop())
	require.NoError(t, err)

	quote, err := a.Fetch(context.Background(), "GB00B41YBW71")
	require.NoError(t, err)
	assert.Equal(t, 2.543, quote.Price)
	assert.True(t, quote.Stale, "fallback quotes must be tagged stale")
	assert.Equal(t, "fundfallback", quote.Source)
}

func TestFallbackAdapterUnknownFund(t *testing.T) {
	path := writeFallbackTable(t, `
version = "2026-08-01"

[funds]
GB00B41YBW71 = 2.543
`)

	a, err := NewFallbackAdapter(path, zerolog.Nop())
	require.NoError(t, err)

	_, err = a.Fetch(context.Background(), "GB00UNLISTED")
	assert.Error(t, err)
}

func TestFallbackAdapterMissingFileStartsEmpty(t *testing.T) {
	a, err := NewFallbackAdapter(filepath.Join(t.TempDir(), "absent.toml"), zerolog.Nop())
	require.NoError(t, err)

	_, err = a.Fetch(context.Background(), "GB00B41YBW71")
	assert.Error(t, err)
}
