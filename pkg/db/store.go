// Package db is the durable game store: parcels, wallets, the
// processed-transaction ledger, the marketplace watch-list, events and daily
// statistics. Every mutation runs inside an explicit transaction; partial
// writes are never visible to the scheduled jobs that share the store.
package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Store struct {
	conn   *sqlx.DB
	logger *zap.Logger
}

// Open opens or creates the sqlite database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite allows one writer; serializing connections here keeps the
	// busy-timeout path out of the picture for concurrent jobs.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Tx wraps one store transaction. All typed accessors hang off it so a
// caller cannot accidentally mutate outside a transaction.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error. Reads go through the same path; a consistent snapshot is cheap.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parcels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_address TEXT,
		building_type TEXT,
		building_variant TEXT,
		purchase_amount REAL,
		purchase_date INTEGER,
		last_fee_payment INTEGER,
		last_fee_check INTEGER,
		last_fee_amount REAL,
		fee_frequency INTEGER,
		next_fee_date INTEGER,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		energy_production REAL NOT NULL DEFAULT 0,
		energy_consumption REAL NOT NULL DEFAULT 0,
		zkaspa_production REAL NOT NULL DEFAULT 0,
		zkaspa_balance REAL NOT NULL DEFAULT 0,
		is_for_sale INTEGER NOT NULL DEFAULT 0,
		sale_price REAL
	);

	CREATE TABLE IF NOT EXISTS wallets (
		address TEXT PRIMARY KEY,
		total_amount REAL NOT NULL,
		transaction_count INTEGER NOT NULL,
		last_transaction_id TEXT,
		last_transaction_timestamp INTEGER
	);

	CREATE TABLE IF NOT EXISTS processed_transactions (
		transaction_id TEXT PRIMARY KEY,
		processed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS building_types (
		name TEXT PRIMARY KEY,
		min_amount REAL NOT NULL,
		max_amount REAL NOT NULL DEFAULT 0,
		fee_amount REAL NOT NULL DEFAULT 0,
		fee_frequency INTEGER NOT NULL DEFAULT 0,
		building_category TEXT NOT NULL DEFAULT '',
		energy_production REAL NOT NULL DEFAULT 0,
		energy_consumption REAL NOT NULL DEFAULT 0,
		zkaspa_production REAL NOT NULL DEFAULT 0,
		max_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS building_variants (
		building_type TEXT NOT NULL,
		variant TEXT NOT NULL,
		probability REAL NOT NULL,
		PRIMARY KEY (building_type, variant)
	);

	CREATE TABLE IF NOT EXISTS fee_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parcel_id INTEGER NOT NULL,
		payment_date INTEGER NOT NULL,
		amount REAL NOT NULL,
		building_type TEXT,
		transaction_id TEXT,
		FOREIGN KEY (parcel_id) REFERENCES parcels(id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		energy_multiplier REAL NOT NULL DEFAULT 1,
		zkaspa_multiplier REAL NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS daily_stats (
		date TEXT PRIMARY KEY,
		total_energy_production REAL NOT NULL DEFAULT 0,
		total_energy_consumption REAL NOT NULL DEFAULT 0,
		total_zkaspa REAL NOT NULL DEFAULT 0,
		predicted_zkaspa_production REAL NOT NULL DEFAULT 0,
		actual_zkaspa_production REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS wallets_to_monitor (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		expected_amount REAL NOT NULL,
		parcel_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		FOREIGN KEY (parcel_id) REFERENCES parcels(id)
	);

	CREATE TABLE IF NOT EXISTS game_parameters (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_parcels_owner ON parcels(owner_address);
	CREATE INDEX IF NOT EXISTS idx_parcels_building_type ON parcels(building_type);
	CREATE INDEX IF NOT EXISTS idx_parcels_next_fee ON parcels(next_fee_date);
	CREATE INDEX IF NOT EXISTS idx_watch_status ON wallets_to_monitor(status);
	`
	_, err := s.conn.Exec(schema)
	return err
}
