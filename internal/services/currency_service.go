// Package services contains business logic shared across modules.
package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FXFreshness is the maximum age of a cached FX rate before a refresh is
// attempted.
const FXFreshness = time.Hour

// RateClient is the contract for FX rate lookups.
// Used to enable testing with mocks.
type RateClient interface {
	GetRate(fromCurrency, toCurrency string) (float64, error)
}

// fallbackRates are approximate GBP-per-unit constants used when every FX
// lookup fails. Degraded but non-fatal: a roughly-converted price beats a
// missing one on a personal dashboard.
var fallbackRates = map[string]float64{
	"USD": 0.79,
	"EUR": 0.85,
	"CHF": 0.88,
	"CAD": 0.58,
	"AUD": 0.52,
	"JPY": 0.0053,
	"HKD": 0.10,
}

// FallbackCurrencies lists the foreign currencies with hardcoded fallback
// rates, which doubles as the set worth archiving daily.
func FallbackCurrencies() []string {
	currencies := make([]string, 0, len(fallbackRates))
	for c := range fallbackRates {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	return currencies
}

// cachedRate is one FX rate with its fetch time.
type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// CurrencyService normalizes raw provider prices into the reporting currency.
// It owns a small in-memory FX cache with a bounded freshness window.
type CurrencyService struct {
	client RateClient
	log    zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedRate
}

// NewCurrencyService creates a new currency normalization service.
func NewCurrencyService(client RateClient, log zerolog.Logger) *CurrencyService {
	return &CurrencyService{
		client: client,
		log:    log.With().Str("service", "currency").Logger(),
		now:    time.Now,
		cache:  make(map[string]cachedRate),
	}
}

// SetClock overrides the service clock. Used by tests.
func (s *CurrencyService) SetClock(now func() time.Time) {
	s.now = now
}

// isMinorUnit reports whether the currency code denotes pence rather than
// pounds. UK providers quote listed instruments as GBp or GBX.
func isMinorUnit(currency string) bool {
	switch strings.ToUpper(currency) {
	case "GBX", "GBP_PENCE":
		return true
	}
	return currency == "GBp"
}

// Normalize converts a raw provider price into the reporting currency.
// It never fails: when no FX rate can be obtained the hardcoded approximate
// constant is used and the degradation is logged at warning level.
func (s *CurrencyService) Normalize(raw float64, sourceCurrency string, minorUnitHint bool) float64 {
	currency := strings.TrimSpace(sourceCurrency)
	if currency == "" {
		currency = domain.ReportingCurrency
	}

	price := raw
	if minorUnitHint || isMinorUnit(currency) {
		// Pence to pounds. Decimal division keeps 1004.50 -> 10.045 exact.
		price = decimal.NewFromFloat(raw).Div(decimal.NewFromInt(100)).InexactFloat64()
		currency = domain.ReportingCurrency
	}

	if strings.EqualFold(currency, domain.ReportingCurrency) {
		return price
	}

	return price * s.rateToReporting(strings.ToUpper(currency))
}

// rateToReporting returns the GBP-per-unit rate for a foreign currency,
// serving from the in-memory cache while it is inside the freshness window.
func (s *CurrencyService) rateToReporting(currency string) float64 {
	s.mu.Lock()
	cached, ok := s.cache[currency]
	s.mu.Unlock()

	if ok && s.now().Sub(cached.fetchedAt) < FXFreshness {
		return cached.rate
	}

	if s.client != nil {
		rate, err := s.client.GetRate(currency, domain.ReportingCurrency)
		if err == nil && rate > 0 {
			s.mu.Lock()
			s.cache[currency] = cachedRate{rate: rate, fetchedAt: s.now()}
			s.mu.Unlock()
			return rate
		}
		s.log.Warn().
			Err(err).
			Str("from", currency).
			Str("to", domain.ReportingCurrency).
			Msg("FX lookup failed")
	}

	// Refresh failed. An expired cached rate is still closer to reality than
	// the hardcoded constant, so prefer it.
	if ok {
		s.log.Warn().
			Str("from", currency).
			Float64("rate", cached.rate).
			Time("fetched_at", cached.fetchedAt).
			Msg("Using stale cached FX rate")
		return cached.rate
	}

	fallback, ok := fallbackRates[currency]
	if !ok {
		s.log.Warn().
			Str("from", currency).
			Msg("No fallback FX rate known, passing price through unconverted")
		return 1.0
	}

	s.log.Warn().
		Str("from", currency).
		Float64("rate", fallback).
		Msg("Currency conversion degraded, using hardcoded fallback rate")
	return fallback
}
