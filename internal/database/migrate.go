package database

import (
	"fmt"
)

// migratePortfolio creates the holdings store tables.
const migratePortfolio = `
CREATE TABLE IF NOT EXISTS holdings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	platform      TEXT    NOT NULL,
	symbol        TEXT    NOT NULL,
	quantity      REAL    NOT NULL DEFAULT 0,
	avg_cost      REAL    NOT NULL DEFAULT 0,
	current_price REAL    NOT NULL DEFAULT 0,
	last_updated  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (platform, symbol)
);
CREATE INDEX IF NOT EXISTS idx_holdings_symbol ON holdings (symbol);

CREATE TABLE IF NOT EXISTS cash_balances (
	platform   TEXT    PRIMARY KEY,
	amount     REAL    NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
`

// migrateHistory creates one append-only snapshot log per retention tier,
// plus the exchange rate cache and a small metadata table.
const migrateHistory = `
CREATE TABLE IF NOT EXISTS snapshots_15m (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        INTEGER NOT NULL UNIQUE,
	total     REAL    NOT NULL,
	breakdown TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots_6h (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        INTEGER NOT NULL UNIQUE,
	total     REAL    NOT NULL,
	breakdown TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots_12h (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        INTEGER NOT NULL UNIQUE,
	total     REAL    NOT NULL,
	breakdown TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots_daily (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts        INTEGER NOT NULL UNIQUE,
	total     REAL    NOT NULL,
	breakdown TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS exchange_rates (
	from_currency TEXT    NOT NULL,
	to_currency   TEXT    NOT NULL,
	date          INTEGER NOT NULL,
	rate          REAL    NOT NULL,
	PRIMARY KEY (from_currency, to_currency, date)
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// migrateCache creates JSON blob tables for cached client responses.
const migrateCache = `
CREATE TABLE IF NOT EXISTS exchangerate (
	pair       TEXT    PRIMARY KEY,
	data       TEXT    NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS coingecko_prices (
	symbol     TEXT    PRIMARY KEY,
	data       TEXT    NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS yahoo_quotes (
	symbol     TEXT    PRIMARY KEY,
	data       TEXT    NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// Migrate applies the schema for this database based on its name.
// All statements are idempotent (CREATE ... IF NOT EXISTS).
func (db *DB) Migrate() error {
	var schema string
	switch db.name {
	case "portfolio":
		schema = migratePortfolio
	case "history":
		schema = migrateHistory
	case "cache":
		schema = migrateCache
	default:
		return fmt.Errorf("no schema registered for database %q", db.name)
	}

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database %s: %w", db.name, err)
	}

	return nil
}
