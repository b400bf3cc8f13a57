package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite handle holding facilities, bookings, reservations,
// service windows, members and vouchers.
type Store struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewStore opens (creating if needed) the database at path and ensures the
// schema. Use ":memory:" for tests.
func NewStore(path string, logger *zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY and keeps :memory: databases stable across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &Store{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS facilities (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT UNIQUE NOT NULL,
            category TEXT NOT NULL,
            room_type TEXT NOT NULL DEFAULT '',
            capacity INTEGER NOT NULL DEFAULT 0,
            member_rate TEXT NOT NULL DEFAULT '0',
            guest_rate TEXT NOT NULL DEFAULT '0',
            sort_order INTEGER NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            is_booked BOOLEAN NOT NULL DEFAULT 0,
            is_out_of_service BOOLEAN NOT NULL DEFAULT 0,
            is_reserved BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            facility_id INTEGER NOT NULL REFERENCES facilities(id),
            member_id INTEGER NOT NULL REFERENCES members(id),
            category TEXT NOT NULL,
            starts_at DATETIME NOT NULL,
            ends_at DATETIME NOT NULL,
            tier TEXT NOT NULL DEFAULT 'member',
            guests INTEGER NOT NULL DEFAULT 0,
            total TEXT NOT NULL DEFAULT '0',
            paid TEXT NOT NULL DEFAULT '0',
            pending TEXT NOT NULL DEFAULT '0',
            payment_status TEXT NOT NULL DEFAULT 'unpaid',
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            facility_id INTEGER NOT NULL REFERENCES facilities(id),
            admin_id INTEGER NOT NULL,
            starts_at DATETIME NOT NULL,
            ends_at DATETIME NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS service_windows (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            facility_id INTEGER NOT NULL REFERENCES facilities(id),
            reason TEXT NOT NULL DEFAULT '',
            starts_at DATETIME NOT NULL,
            ends_at DATETIME,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            dr_amount TEXT NOT NULL DEFAULT '0',
            cr_amount TEXT NOT NULL DEFAULT '0',
            balance TEXT NOT NULL DEFAULT '0',
            total_bookings INTEGER NOT NULL DEFAULT 0,
            last_booking_at DATETIME,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS vouchers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            voucher_no TEXT UNIQUE NOT NULL,
            booking_id INTEGER NOT NULL,
            category TEXT NOT NULL,
            amount TEXT NOT NULL,
            payment_mode TEXT NOT NULL DEFAULT '',
            voucher_type TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_facility ON bookings(facility_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_member ON bookings(member_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_window ON bookings(starts_at, ends_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_facility ON reservations(facility_id)`,
		`CREATE INDEX IF NOT EXISTS idx_service_windows_facility ON service_windows(facility_id)`,
		`CREATE INDEX IF NOT EXISTS idx_vouchers_booking ON vouchers(booking_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.DB.Close()
}
