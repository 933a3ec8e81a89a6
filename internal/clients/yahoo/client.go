// Package yahoo is a Yahoo Finance quote client. It serves general
// equities/ETFs, London-listed stocks (quoted in pence), and a small curated
// set of crypto pairs used only as a fallback source.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"

// Client is a Yahoo Finance API client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Quote is one instrument's current price with its native currency as
// reported by the provider. Prices in GBp are NOT converted here; the caller
// applies currency normalization.
type Quote struct {
	Symbol   string
	Price    float64
	Currency string
}

// IsMinorUnit reports whether the provider quoted this instrument in pence.
func (q Quote) IsMinorUnit() bool {
	return q.Currency == "GBp" || strings.EqualFold(q.Currency, "GBX")
}

// quoteResponse models the provider payload. The response is typed and
// validated here at the client boundary so nothing downstream branches on
// loosely-shaped maps.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			Currency           string  `json:"currency"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuote fetches the current quote for one symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	quotes, err := c.GetBatchQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}

	q, ok := quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}

	return &q, nil
}

// GetBatchQuotes fetches quotes for several symbols in a single call.
// Symbols missing from the response are simply absent from the result map.
func (c *Client) GetBatchQuotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,currency,regularMarketPrice")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// The quote endpoint rejects non-browser user agents.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yahoo API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo API error: %s", result.QuoteResponse.Error.Description)
	}

	quotes := make(map[string]Quote, len(result.QuoteResponse.Result))
	for _, r := range result.QuoteResponse.Result {
		if r.RegularMarketPrice <= 0 {
			c.log.Warn().Str("symbol", r.Symbol).Msg("Skipping quote with non-positive price")
			continue
		}
		quotes[r.Symbol] = Quote{
			Symbol:   r.Symbol,
			Price:    r.RegularMarketPrice,
			Currency: r.Currency,
		}
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(quotes)).
		Msg("Fetched quotes")

	return quotes, nil
}
