// Package domain contains the core types shared across the pricing and
// history modules. It has no infrastructure dependencies.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportingCurrency is the single currency all prices and totals are
// normalized to before they are stored or served.
const ReportingCurrency = "GBP"

// SanityCeiling is the maximum plausible price, in reporting currency, for a
// single unit of any instrument. Fetched prices at or above this are rejected.
const SanityCeiling = 1_000_000.0

// AssetClass categorizes an identifier to select which price sources apply.
type AssetClass string

const (
	AssetEquityTicker   AssetClass = "equity_ticker"
	AssetISINUS         AssetClass = "isin_us"
	AssetISINIntl       AssetClass = "isin_intl"
	AssetISINUKFund     AssetClass = "isin_uk_fund"
	AssetSEDOLUKFund    AssetClass = "sedol_uk_fund"
	AssetCrypto         AssetClass = "crypto"
	AssetUKEquity       AssetClass = "uk_equity"
	AssetUKFundFallback AssetClass = "uk_fund_fallback"
	AssetUnknown        AssetClass = "unknown"
)

// IsCrypto reports whether this class must be priced by crypto-only sources.
func (c AssetClass) IsCrypto() bool {
	return c == AssetCrypto
}

// IsUKFund reports whether this class is priced from fund NAV pages.
func (c AssetClass) IsUKFund() bool {
	return c == AssetISINUKFund || c == AssetSEDOLUKFund || c == AssetUKFundFallback
}

// PriceQuote is the normalized result of one successful price lookup.
// Price is always in the reporting currency. Quotes are consumed immediately
// by the caller and never persisted as their own entity.
type PriceQuote struct {
	Identifier string    `json:"identifier"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	Source     string    `json:"source"`
	Stale      bool      `json:"stale,omitempty"` // true for dated fallback values
	FetchedAt  time.Time `json:"fetched_at"`
}

// Plausible reports whether the quoted price passes the sanity bounds.
func (q *PriceQuote) Plausible() bool {
	return q.Price > 0 && q.Price < SanityCeiling
}

// Holding is one position on one platform. Current price is mutated
// exclusively by the batch price updater; quantity and average cost belong to
// the CRUD layer.
type Holding struct {
	ID           int64     `json:"id"`
	Platform     string    `json:"platform"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	AvgCost      float64   `json:"avg_cost"`
	CurrentPrice float64   `json:"current_price"`
	LastUpdated  time.Time `json:"last_updated"`
}

// IsCash reports whether this holding is a cash pseudo-entry. Cash rows are
// skipped by the price updater; their value lives in the cash balances table.
func (h *Holding) IsCash() bool {
	return strings.EqualFold(h.Symbol, "cash")
}

// MarketValue returns quantity times current price, in reporting currency.
func (h *Holding) MarketValue() float64 {
	return h.Quantity * h.CurrentPrice
}

// Snapshot is one timestamped net-worth sample in a tier's append-only log.
// Immutable once written; only the retention compactor deletes rows.
type Snapshot struct {
	ID        int64              `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Total     float64            `json:"total"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// Tier is a named snapshot cadence with its own storage log.
type Tier string

const (
	Tier15Min  Tier = "15m"
	Tier6Hour  Tier = "6h"
	Tier12Hour Tier = "12h"
	TierDaily  Tier = "daily"
)

// AllTiers lists every retention tier, finest first.
var AllTiers = []Tier{Tier15Min, Tier6Hour, Tier12Hour, TierDaily}

// ParseTier returns the tier for a string, or false if unrecognized.
func ParseTier(s string) (Tier, bool) {
	switch Tier(s) {
	case Tier15Min, Tier6Hour, Tier12Hour, TierDaily:
		return Tier(s), true
	}
	return "", false
}

// Aligned reports whether t sits on this tier's cadence boundary. The caller
// is responsible for converting t to the reporting timezone first; downstream
// consumers assume evenly spaced samples, so a tier never fires off-boundary.
func (tier Tier) Aligned(t time.Time) bool {
	switch tier {
	case Tier15Min:
		return t.Minute()%15 == 0
	case Tier6Hour:
		return t.Hour()%6 == 0 && t.Minute() == 0
	case Tier12Hour:
		return t.Hour()%12 == 0 && t.Minute() == 0
	case TierDaily:
		return t.Hour() == 0 && t.Minute() == 0
	}
	return false
}

// PriceUpdateState is the result of one batch price update run. The scheduler
// owns the previous state and threads it through calls; there is no global
// "last updated" variable.
type PriceUpdateState struct {
	RunID       uuid.UUID `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Updated     int       `json:"updated"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
}

// NewPriceUpdateState starts tracking a batch update run.
func NewPriceUpdateState(now time.Time) *PriceUpdateState {
	return &PriceUpdateState{
		RunID:     uuid.New(),
		StartedAt: now,
	}
}
