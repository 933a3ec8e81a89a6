// Package networth aggregates holdings and cash into net worth totals.
package networth

import (
	"fmt"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

// HoldingsReader is the slice of the holdings repository this service needs.
type HoldingsReader interface {
	GetCurrentHoldings() ([]domain.Holding, error)
	GetAllCash() (map[string]float64, error)
}

// Service computes net worth from current holdings and cash balances.
// All inputs are already in the reporting currency.
type Service struct {
	holdings HoldingsReader
	log      zerolog.Logger
}

// NewService creates a new net worth service.
func NewService(holdings HoldingsReader, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		log:      log.With().Str("service", "networth").Logger(),
	}
}

// Calculate returns total net worth and the per-platform breakdown.
// Cash pseudo-entries among the holdings are skipped; cash value comes from
// the balances table so it is never double counted.
func (s *Service) Calculate() (float64, map[string]float64, error) {
	holdings, err := s.holdings.GetCurrentHoldings()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	cash, err := s.holdings.GetAllCash()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load cash balances: %w", err)
	}

	breakdown := make(map[string]float64)
	for _, h := range holdings {
		if h.IsCash() {
			continue
		}
		breakdown[h.Platform] += h.MarketValue()
	}
	for platform, amount := range cash {
		breakdown[platform] += amount
	}

	var total float64
	for _, value := range breakdown {
		total += value
	}

	return total, breakdown, nil
}
