package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ewanhart/nestegg/internal/clientdata"
	"github.com/ewanhart/nestegg/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return clientdata.NewRepository(db.Conn())
}

func TestGetBatchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "gbp", r.URL.Query().Get("vs_currencies"))
		ids := r.URL.Query().Get("ids")
		assert.Contains(t, ids, "bitcoin")
		assert.Contains(t, ids, "ethereum")
		w.Write([]byte(`{"bitcoin":{"gbp":39500.12},"ethereum":{"gbp":2100.50}}`))
	}))
	defer srv.Close()

	c := NewClient(nil, "GBP", zerolog.Nop())
	c.SetBaseURL(srv.URL)

	prices, err := c.GetBatchPrices(context.Background(), []string{"BTC", "eth"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 39500.12, prices["BTC"])
	assert.Equal(t, 2100.50, prices["ETH"])
}

func TestGetBatchPricesSkipsUnknownSymbols(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"bitcoin":{"gbp":39500.12}}`))
	}))
	defer srv.Close()

	c := NewClient(nil, "GBP", zerolog.Nop())
	c.SetBaseURL(srv.URL)

	prices, err := c.GetBatchPrices(context.Background(), []string{"BTC", "NOTACOIN"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 1, calls)
}

func TestGetBatchPricesServesFromFreshCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"bitcoin":{"gbp":39500.12}}`))
	}))
	defer srv.Close()

	c := NewClient(setupCacheRepo(t), "GBP", zerolog.Nop())
	c.SetBaseURL(srv.URL)

	_, err := c.GetBatchPrices(context.Background(), []string{"BTC"})
	require.NoError(t, err)

	prices, err := c.GetBatchPrices(context.Background(), []string{"BTC"})
	require.NoError(t, err)
	assert.Equal(t, 39500.12, prices["BTC"])
	assert.Equal(t, 1, calls, "second lookup must be a cache hit")
}

func TestGetBatchPricesStaleFallbackOnAPIFailure(t *testing.T) {
	repo := setupCacheRepo(t)

	// Seed an already-expired entry, then make the API fail.
	require.NoError(t, repo.Store("coingecko_prices", "BTC", map[string]float64{"price": 38000}, -time.Minute))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(repo, "GBP", zerolog.Nop())
	c.SetBaseURL(srv.URL)

	prices, err := c.GetBatchPrices(context.Background(), []string{"BTC"})
	require.NoError(t, err)
	assert.Equal(t, 38000.0, prices["BTC"])
}

func TestGetBatchPricesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(nil, "GBP", zerolog.Nop())
	c.SetBaseURL(srv.URL)

	_, err := c.GetBatchPrices(context.Background(), []string{"BTC"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestKnownSymbol(t *testing.T) {
	assert.True(t, KnownSymbol("btc"))
	assert.True(t, KnownSymbol("ATOM"))
	assert.False(t, KnownSymbol("AAPL"))
}
