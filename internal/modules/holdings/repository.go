// Package holdings is the storage layer for positions and cash balances.
// Price updates are the only mutation owned here; position CRUD belongs to
// the platform-sync side of the dashboard and is out of scope.
package holdings

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

// Repository provides holdings and cash balance queries over portfolio.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new holdings repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "holdings").Logger(),
	}
}

// GetCurrentHoldings returns every position across all platforms, cash
// pseudo-entries included. Callers filter with Holding.IsCash.
func (r *Repository) GetCurrentHoldings() ([]domain.Holding, error) {
	rows, err := r.db.Query(`
		SELECT id, platform, symbol, quantity, avg_cost, current_price, last_updated
		FROM holdings
		ORDER BY platform, symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		var lastUpdated int64
		if err := rows.Scan(&h.ID, &h.Platform, &h.Symbol, &h.Quantity, &h.AvgCost, &h.CurrentPrice, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.LastUpdated = time.Unix(lastUpdated, 0).UTC()
		holdings = append(holdings, h)
	}

	return holdings, rows.Err()
}

// DistinctSymbols returns each non-cash symbol once, with one platform that
// holds it. The platform rides along as the classifier hint; when several
// platforms hold the same symbol an arbitrary one is used, which is fine
// because hints only break ties for otherwise-unclassifiable identifiers.
func (r *Repository) DistinctSymbols() (map[string]string, error) {
	rows, err := r.db.Query(`
		SELECT symbol, MIN(platform)
		FROM holdings
		WHERE LOWER(symbol) != 'cash'
		GROUP BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct symbols: %w", err)
	}
	defer rows.Close()

	symbols := make(map[string]string)
	for rows.Next() {
		var symbol, platform string
		if err := rows.Scan(&symbol, &platform); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols[symbol] = platform
	}

	return symbols, rows.Err()
}

// UpdatePriceForSymbol writes a new current price to every holdings row that
// shares the symbol, on every platform. The timestamp guard keeps updates
// monotonic: a row already carrying a newer price is left untouched.
// Returns the number of rows updated.
func (r *Repository) UpdatePriceForSymbol(symbol string, price float64, updatedAt time.Time) (int64, error) {
	ts := updatedAt.Unix()

	result, err := r.db.Exec(`
		UPDATE holdings
		SET current_price = ?, last_updated = ?
		WHERE symbol = ? AND last_updated < ?`,
		price, ts, symbol, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", symbol, err)
	}

	return updated, nil
}

// GetPlatformCash returns the cash balance for one platform, zero if none
// is recorded.
func (r *Repository) GetPlatformCash(platform string) (float64, error) {
	var amount float64
	err := r.db.QueryRow(`SELECT amount FROM cash_balances WHERE platform = ?`, platform).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query cash for %s: %w", platform, err)
	}

	return amount, nil
}

// GetAllCash returns every platform's cash balance.
func (r *Repository) GetAllCash() (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT platform, amount FROM cash_balances`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash balances: %w", err)
	}
	defer rows.Close()

	cash := make(map[string]float64)
	for rows.Next() {
		var platform string
		var amount float64
		if err := rows.Scan(&platform, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan cash balance: %w", err)
		}
		cash[platform] = amount
	}

	return cash, rows.Err()
}

// UpsertHolding inserts or replaces one position row. Exists for seeding and
// the platform-sync layer above this subsystem.
func (r *Repository) UpsertHolding(h domain.Holding) error {
	_, err := r.db.Exec(`
		INSERT INTO holdings (platform, symbol, quantity, avg_cost, current_price, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost`,
		h.Platform, h.Symbol, h.Quantity, h.AvgCost, h.CurrentPrice, h.LastUpdated.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s/%s: %w", h.Platform, h.Symbol, err)
	}

	return nil
}

// SetPlatformCash records a platform's cash balance.
func (r *Repository) SetPlatformCash(platform string, amount float64, at time.Time) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO cash_balances (platform, amount, updated_at)
		VALUES (?, ?, ?)`,
		platform, amount, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to set cash for %s: %w", platform, err)
	}

	return nil
}
