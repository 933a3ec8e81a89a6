// Package history owns the tiered snapshot logs: recording aligned net-worth
// samples, range queries for charts, and retention compaction.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

// tierTables maps each tier to its append-only log table. Table names never
// come from user input; the map doubles as validation.
var tierTables = map[domain.Tier]string{
	domain.Tier15Min:  "snapshots_15m",
	domain.Tier6Hour:  "snapshots_6h",
	domain.Tier12Hour: "snapshots_12h",
	domain.TierDaily:  "snapshots_daily",
}

// Repository provides snapshot and metadata storage over history.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "history").Logger(),
	}
}

func tableFor(tier domain.Tier) (string, error) {
	table, ok := tierTables[tier]
	if !ok {
		return "", fmt.Errorf("unknown snapshot tier: %s", tier)
	}
	return table, nil
}

// Insert appends one snapshot to a tier's log. Re-recording the same aligned
// timestamp replaces the row, so a tick that fires twice stays harmless.
func (r *Repository) Insert(tier domain.Tier, s domain.Snapshot) error {
	table, err := tableFor(tier)
	if err != nil {
		return err
	}

	breakdown, err := json.Marshal(s.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (ts, total, breakdown) VALUES (?, ?, ?)", table)
	if _, err := r.db.Exec(query, s.Timestamp.Unix(), s.Total, string(breakdown)); err != nil {
		return fmt.Errorf("failed to insert snapshot into %s: %w", table, err)
	}

	return nil
}

// QueryRange returns a tier's snapshots with from <= ts < to, ascending.
func (r *Repository) QueryRange(tier domain.Tier, from, to time.Time) ([]domain.Snapshot, error) {
	table, err := tableFor(tier)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT id, ts, total, breakdown FROM %s WHERE ts >= ? AND ts < ? ORDER BY ts ASC", table)
	rows, err := r.db.Query(query, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		var ts int64
		var breakdown string
		if err := rows.Scan(&s.ID, &ts, &s.Total, &breakdown); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0).UTC()
		if err := json.Unmarshal([]byte(breakdown), &s.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// DeleteIDs removes snapshots in one transaction. All-or-nothing: a failure
// rolls the whole batch back so the log never ends up partially thinned.
func (r *Repository) DeleteIDs(tier domain.Tier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	table, err := tableFor(tier)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("failed to delete snapshot %d from %s: %w", id, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete transaction: %w", err)
	}

	return nil
}

// GetMeta reads one metadata value, empty string if absent.
func (r *Repository) GetMeta(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta writes one metadata value.
func (r *Repository) SetMeta(key, value string) error {
	if _, err := r.db.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// UpsertExchangeRate archives one day's FX rate for historical valuation.
func (r *Repository) UpsertExchangeRate(from, to string, date time.Time, rate float64) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO exchange_rates (from_currency, to_currency, date, rate)
		VALUES (?, ?, ?, ?)`,
		from, to, day.Unix(), rate)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate %s->%s: %w", from, to, err)
	}
	return nil
}

// GetLatestExchangeRate returns the most recently archived rate for a pair,
// false if the pair has never been archived.
func (r *Repository) GetLatestExchangeRate(from, to string) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRow(`
		SELECT rate FROM exchange_rates
		WHERE from_currency = ? AND to_currency = ?
		ORDER BY date DESC LIMIT 1`,
		from, to).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read exchange rate %s->%s: %w", from, to, err)
	}
	return rate, true, nil
}
