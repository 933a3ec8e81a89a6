package pricing

import (
	"context"
	"time"

	"github.com/ewanhart/nestegg/internal/clients/yahoo"
	"github.com/ewanhart/nestegg/internal/domain"
)

// Adapter is one price source. Implementations are stateless request/parse
// clients; retry and backoff policy lives in the router, not here.
type Adapter interface {
	// Name identifies the source in quotes and logs.
	Name() string
	// Crypto reports whether this source serves crypto identifiers. The
	// router refuses adapters whose tag contradicts the chain's asset class.
	Crypto() bool
	// Fetch resolves one identifier to a quote in the reporting currency.
	Fetch(ctx context.Context, identifier string) (*domain.PriceQuote, error)
}

// HoldingsStore is the slice of the holdings repository the updater needs.
// Used to enable testing with mocks.
type HoldingsStore interface {
	DistinctSymbols() (map[string]string, error)
	UpdatePriceForSymbol(symbol string, price float64, updatedAt time.Time) (int64, error)
}

// CryptoBatcher resolves many crypto symbols in one provider call.
type CryptoBatcher interface {
	GetBatchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// QuoteBatcher resolves many market symbols in one provider call.
type QuoteBatcher interface {
	GetBatchQuotes(ctx context.Context, symbols []string) (map[string]yahoo.Quote, error)
}

// Normalizer converts raw provider prices into the reporting currency.
type Normalizer interface {
	Normalize(raw float64, sourceCurrency string, minorUnitHint bool) float64
}
