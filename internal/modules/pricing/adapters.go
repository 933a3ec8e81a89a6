package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/ewanhart/nestegg/internal/clients/coingecko"
	"github.com/ewanhart/nestegg/internal/clients/yahoo"
	"github.com/ewanhart/nestegg/internal/domain"
)

// yahooAdapter wraps the yahoo client into the adapter contract, normalizing
// quote currency on the way out.
type yahooAdapter struct {
	client   *yahoo.Client
	currency Normalizer
}

// NewYahooAdapter adapts the yahoo client for router chains.
func NewYahooAdapter(client *yahoo.Client, currency Normalizer) Adapter {
	return &yahooAdapter{client: client, currency: currency}
}

func (a *yahooAdapter) Name() string { return "yahoo" }

func (a *yahooAdapter) Crypto() bool { return false }

func (a *yahooAdapter) Fetch(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	q, err := a.client.GetQuote(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return &domain.PriceQuote{
		Identifier: identifier,
		Price:      a.currency.Normalize(q.Price, q.Currency, q.IsMinorUnit()),
		Currency:   domain.ReportingCurrency,
		Source:     a.Name(),
		FetchedAt:  time.Now(),
	}, nil
}

// coingeckoAdapter wraps the coingecko client into the adapter contract.
// The client already quotes in the reporting currency.
type coingeckoAdapter struct {
	client *coingecko.Client
}

// NewCoinGeckoAdapter adapts the coingecko client for router chains.
func NewCoinGeckoAdapter(client *coingecko.Client) Adapter {
	return &coingeckoAdapter{client: client}
}

func (a *coingeckoAdapter) Name() string { return "coingecko" }

func (a *coingeckoAdapter) Crypto() bool { return true }

func (a *coingeckoAdapter) Fetch(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	price, err := a.client.GetPrice(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return &domain.PriceQuote{
		Identifier: identifier,
		Price:      price,
		Currency:   domain.ReportingCurrency,
		Source:     a.Name(),
		FetchedAt:  time.Now(),
	}, nil
}

// yahooCryptoAdapter serves crypto through yahoo's BTC-GBP style pairs.
// Fallback only; it covers the curated pair set, nothing else.
type yahooCryptoAdapter struct {
	client *yahoo.Client
}

// NewYahooCryptoAdapter adapts yahoo crypto pairs for the crypto chain.
func NewYahooCryptoAdapter(client *yahoo.Client) Adapter {
	return &yahooCryptoAdapter{client: client}
}

func (a *yahooCryptoAdapter) Name() string { return "yahoo-crypto" }

func (a *yahooCryptoAdapter) Crypto() bool { return true }

func (a *yahooCryptoAdapter) Fetch(ctx context.Context, identifier string) (*domain.PriceQuote, error) {
	pair, ok := CryptoPair(identifier)
	if !ok {
		return nil, fmt.Errorf("no curated pair for crypto symbol %s", identifier)
	}

	q, err := a.client.GetQuote(ctx, pair)
	if err != nil {
		return nil, err
	}

	return &domain.PriceQuote{
		Identifier: identifier,
		Price:      q.Price,
		Currency:   domain.ReportingCurrency,
		Source:     a.Name(),
		FetchedAt:  time.Now(),
	}, nil
}
