package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Viishveesh/mediconnect/internal/model"
)

// DB wraps sql.DB for the scheduling core.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Users (directory collaborator data; profiles live elsewhere)
		`CREATE TABLE IF NOT EXISTS users (
			email TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'patient',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Typed calendar intervals
		`CREATE TABLE IF NOT EXISTS intervals (
			id TEXT PRIMARY KEY,
			doctor_id TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			kind TEXT NOT NULL,
			reason TEXT,
			source TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Schedule settings, one row per doctor
		`CREATE TABLE IF NOT EXISTS schedule_settings (
			doctor_id TEXT PRIMARY KEY,
			work_start TEXT NOT NULL,
			work_end TEXT NOT NULL,
			working_days TEXT NOT NULL,
			consultation_minutes INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Appointments; the UNIQUE constraint is the booking arbiter
		`CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			doctor_id TEXT NOT NULL,
			doctor_name TEXT NOT NULL,
			patient_email TEXT NOT NULL,
			patient_name TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			booked_at DATETIME NOT NULL,
			UNIQUE(doctor_id, date, time)
		)`,

		// Persisted OAuth credentials for external calendars
		`CREATE TABLE IF NOT EXISTS google_credentials (
			doctor_id TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			token_uri TEXT NOT NULL,
			client_id TEXT NOT NULL,
			client_secret TEXT NOT NULL,
			expiry DATETIME,
			updated_at DATETIME NOT NULL
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_intervals_doctor_times ON intervals(doctor_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_intervals_kind ON intervals(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_doctor_date ON appointments(doctor_id, date)`,
		// Re-syncing an external calendar must never duplicate an interval
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_intervals_external_dedup
			ON intervals(doctor_id, start_time, end_time, source)
			WHERE kind = 'external-busy'`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// isUniqueViolation reports whether err is a sqlite unique-constraint error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// storeErr wraps transient persistence failures so callers can classify them
// as retryable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, model.ErrStoreUnavailable, err)
}

// Ping verifies the connection with a bounded timeout.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
