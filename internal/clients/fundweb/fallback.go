package fundweb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// fallbackFile is the on-disk shape of the hardcoded fund price table.
// Prices are pounds per unit. Updated by hand when a fund page scrape breaks
// for an extended period.
type fallbackFile struct {
	Version string             `toml:"version"`
	Funds   map[string]float64 `toml:"funds"`
}

// FallbackAdapter serves hardcoded fund prices from a TOML table. It sits
// last in the UK fund chain; everything it returns is tagged stale.
type FallbackAdapter struct {
	version string
	funds   map[string]float64
	log     zerolog.Logger
}

// NewFallbackAdapter loads the fund price table from path. A missing file is
// not an error: the adapter starts empty and every lookup misses.
func NewFallbackAdapter(path string, log zerolog.Logger) (*FallbackAdapter, error) {
	a := &FallbackAdapter{
		funds: map[string]float64{},
		log:   log.With().Str("client", "fundfallback").Logger(),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		a.log.Warn().Str("path", path).Msg("No fund fallback table found, starting empty")
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fund fallback table: %w", err)
	}

	var file fallbackFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fund fallback table: %w", err)
	}

	a.version = file.Version
	a.funds = file.Funds
	if a.funds == nil {
		a.funds = map[string]float64{}
	}

	a.log.Info().
		Str("version", a.version).
		Int("funds", len(a.funds)).
		Msg("Loaded fund fallback table")

	return a, nil
}

// Name identifies this source in quotes and logs.
func (a *FallbackAdapter) Name() string { return "fundfallback" }

// Crypto reports that this source never serves crypto identifiers.
func (a *FallbackAdapter) Crypto() bool { return false }

// Fetch returns the hardcoded price for an identifier, tagged stale. Only
// reached after every live strategy has failed.
func (a *FallbackAdapter) Fetch(_ context.Context, identifier string) (*domain.PriceQuote, error) {
	price, ok := a.funds[identifier]
	if !ok {
		return nil, fmt.Errorf("no fallback price for %s", identifier)
	}

	a.log.Warn().
		Str("identifier", identifier).
		Float64("price", price).
		Str("table_version", a.version).
		Msg("Serving hardcoded fallback fund price")

	return &domain.PriceQuote{
		Identifier: identifier,
		Price:      price,
		Currency:   domain.ReportingCurrency,
		Source:     a.Name(),
		Stale:      true,
		FetchedAt:  time.Now(),
	}, nil
}
