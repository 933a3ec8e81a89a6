// Package coingecko fetches cryptocurrency spot prices in the reporting
// currency, with persistent caching and stale-data fallback. It is the
// primary crypto price source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ewanhart/nestegg/internal/clientdata"
	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrRateLimited is returned on HTTP 429. It wraps the domain sentinel so
// callers apply their backoff policy instead of treating the source as
// hard-down.
var ErrRateLimited = fmt.Errorf("coingecko: %w", domain.ErrRateLimited)

// symbolToID maps ticker symbols to CoinGecko coin IDs. The API is keyed
// by coin ID, not ticker. Symbols outside this table cannot be priced here.
var symbolToID = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"SOL":   "solana",
	"XRP":   "ripple",
	"LTC":   "litecoin",
	"BCH":   "bitcoin-cash",
	"DOGE":  "dogecoin",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"XLM":   "stellar",
	"UNI":   "uniswap",
	"AVAX":  "avalanche-2",
	"ATOM":  "cosmos",
}

// idToSymbol is the reverse mapping, for translating responses back.
var idToSymbol = func() map[string]string {
	m := make(map[string]string, len(symbolToID))
	for sym, id := range symbolToID {
		m[id] = sym
	}
	return m
}()

// Client is a CoinGecko API client
type Client struct {
	baseURL    string
	client     *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository
	vsCurrency string
}

// NewClient creates a new CoinGecko client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, vsCurrency string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("client", "coingecko").Logger(),
		cacheRepo:  cacheRepo,
		vsCurrency: strings.ToLower(vsCurrency),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// KnownSymbol reports whether a ticker symbol can be priced by this client.
func KnownSymbol(symbol string) bool {
	_, ok := symbolToID[strings.ToUpper(symbol)]
	return ok
}

// cachedPrice is the structure stored in the cache.
type cachedPrice struct {
	Price float64 `json:"price"`
}

// GetBatchPrices fetches spot prices for several symbols in one API call,
// serving individual symbols from fresh cache where possible. The result is
// keyed by upper-case symbol and expressed in the client's vs-currency.
// Symbols that could not be priced are simply absent from the result.
func (c *Client) GetBatchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))

	var missing []string
	for _, raw := range symbols {
		sym := strings.ToUpper(raw)
		if _, ok := symbolToID[sym]; !ok {
			c.log.Warn().Str("symbol", sym).Msg("Symbol has no CoinGecko ID mapping")
			continue
		}
		if price, ok := c.getFromCache(sym, true); ok {
			prices[sym] = price
			continue
		}
		missing = append(missing, sym)
	}

	if len(missing) == 0 {
		return prices, nil
	}

	fetched, err := c.fetchPrices(ctx, missing)
	if err != nil {
		// Degrade per symbol: stale cache entries still beat nothing.
		stale := 0
		for _, sym := range missing {
			if price, ok := c.getFromCache(sym, false); ok {
				prices[sym] = price
				stale++
			}
		}
		if stale > 0 {
			c.log.Warn().
				Err(err).
				Int("stale", stale).
				Msg("API failed, served stale cached crypto prices")
			return prices, nil
		}
		return prices, err
	}

	for sym, price := range fetched {
		prices[sym] = price
		if c.cacheRepo != nil {
			if err := c.cacheRepo.Store("coingecko_prices", sym, cachedPrice{Price: price}, clientdata.TTLCryptoPrice); err != nil {
				c.log.Warn().Err(err).Str("symbol", sym).Msg("Failed to cache crypto price")
			}
		}
	}

	return prices, nil
}

// GetPrice fetches the spot price for one symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	sym := strings.ToUpper(symbol)
	prices, err := c.GetBatchPrices(ctx, []string{sym})
	if err != nil {
		return 0, err
	}

	price, ok := prices[sym]
	if !ok {
		return 0, fmt.Errorf("no price returned for symbol %s", sym)
	}

	return price, nil
}

// fetchPrices performs the actual /simple/price call for a set of symbols.
func (c *Client) fetchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		ids = append(ids, symbolToID[sym])
	}

	params := url.Values{}
	params.Add("ids", strings.Join(ids, ","))
	params.Add("vs_currencies", c.vsCurrency)

	reqURL := c.baseURL + "/simple/price?" + params.Encode()
	c.log.Debug().Str("url", reqURL).Msg("Fetching crypto prices")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	// Response shape: {"bitcoin":{"gbp":39500.12},...}
	var result map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	prices := make(map[string]float64, len(result))
	for id, values := range result {
		sym, ok := idToSymbol[id]
		if !ok {
			continue
		}
		price, ok := values[c.vsCurrency]
		if !ok || price <= 0 {
			c.log.Warn().Str("symbol", sym).Msg("No usable price in response")
			continue
		}
		prices[sym] = price
	}

	c.log.Info().
		Int("requested", len(symbols)).
		Int("returned", len(prices)).
		Msg("Fetched crypto prices")

	return prices, nil
}

// getFromCache retrieves a cached price, optionally requiring freshness.
func (c *Client) getFromCache(symbol string, freshOnly bool) (float64, bool) {
	if c.cacheRepo == nil {
		return 0, false
	}

	var (
		data json.RawMessage
		err  error
	)
	if freshOnly {
		data, err = c.cacheRepo.GetIfFresh("coingecko_prices", symbol)
	} else {
		data, err = c.cacheRepo.Get("coingecko_prices", symbol)
	}
	if err != nil || data == nil {
		return 0, false
	}

	var cached cachedPrice
	if err := json.Unmarshal(data, &cached); err != nil {
		return 0, false
	}

	return cached.Price, true
}
