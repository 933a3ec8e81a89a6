// Package fundweb prices UK funds by scraping their public fund information
// pages. Most UK platform funds have no API coverage; the NAV printed on the
// fund page, extracted by a cascade of regex strategies, is the only live
// source. A TOML-versioned hardcoded table backs the scrape up.
package fundweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://markets.ft.com/data/funds/tearsheet/summary"

// Fund NAVs outside these bounds, in pounds per unit, are treated as
// extraction errors rather than real prices.
const (
	minFundPrice = 0.01
	maxFundPrice = 100.0
)

// Client scrapes fund NAVs from fund information pages.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new fund page scrape client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "fundweb").Logger(),
	}
}

// SetBaseURL overrides the page endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Name identifies this source in quotes and logs.
func (c *Client) Name() string { return "fundweb" }

// Crypto reports that this source never serves crypto identifiers.
func (c *Client) Crypto() bool { return false }

// Fetch scrapes the fund page for an ISIN or SEDOL and returns its NAV in
// pounds. Fund pages quote in pence; the conversion is decimal-exact.
func (c *Client) Fetch(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	html, err := c.fetchPage(ctx, identifier)
	if err != nil {
		return nil, err
	}

	pence, strategyName, err := extractPence(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract price for %s: %w", identifier, err)
	}

	price := decimal.NewFromFloat(pence).Div(decimal.NewFromInt(100)).InexactFloat64()
	if price < minFundPrice || price > maxFundPrice {
		return nil, fmt.Errorf("extracted price %.4f for %s outside plausible fund NAV range", price, identifier)
	}

	c.log.Debug().
		Str("identifier", identifier).
		Str("strategy", strategyName).
		Float64("price", price).
		Msg("Extracted fund price")

	return &domain.PriceQuote{
		Identifier: identifier,
		Price:      price,
		Currency:   domain.ReportingCurrency,
		Source:     c.Name(),
		FetchedAt:  time.Now(),
	}, nil
}

// fetchPage retrieves the raw fund page HTML.
func (c *Client) fetchPage(ctx context.Context, identifier string) (string, error) {
	reqURL := fmt.Sprintf("%s?s=%s", c.baseURL, identifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch fund page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fund page returned status %d for %s", resp.StatusCode, identifier)
	}

	// Fund pages run large; the price block sits well inside 1MB.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read fund page: %w", err)
	}

	return string(body), nil
}
