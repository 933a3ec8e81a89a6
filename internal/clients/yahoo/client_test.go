package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBatchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL,VOD.L", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","currency":"USD","regularMarketPrice":189.95},
			{"symbol":"VOD.L","currency":"GBp","regularMarketPrice":1004.50}
		],"error":null}}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	quotes, err := c.GetBatchQuotes(context.Background(), []string{"AAPL", "VOD.L"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, 189.95, quotes["AAPL"].Price)
	assert.Equal(t, "USD", quotes["AAPL"].Currency)
	assert.False(t, quotes["AAPL"].IsMinorUnit())

	assert.Equal(t, 1004.50, quotes["VOD.L"].Price)
	assert.True(t, quotes["VOD.L"].IsMinorUnit(), "GBp quotes must be flagged as pence")
}

func TestGetBatchQuotesEmptyInput(t *testing.T) {
	c := NewClient(zerolog.Nop())

	quotes, err := c.GetBatchQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestGetQuoteMissingSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	_, err := c.GetQuote(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestGetBatchQuotesSkipsNonPositivePrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"HALTED","currency":"USD","regularMarketPrice":0},
			{"symbol":"AAPL","currency":"USD","regularMarketPrice":189.95}
		],"error":null}}`))
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	quotes, err := c.GetBatchQuotes(context.Background(), []string{"HALTED", "AAPL"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Contains(t, quotes, "AAPL")
}

func TestGetBatchQuotesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(zerolog.Nop())
	c.SetBaseURL(srv.URL)

	_, err := c.GetBatchQuotes(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, ErrRateLimited)
}
