package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the SQLite connection. All durable state lives here: goals,
// habits, profiles, premium records, tracking and audit rows.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyDone   = errors.New("already completed today")
	ErrNotActive     = errors.New("item is not active")
	ErrLimitExceeded = errors.New("free tier limit exceeded")
)

// NewDB opens (or creates) the database at path and ensures the schema.
func NewDB(path string, logger zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     conn,
		logger: logger.With().Str("component", "db").Logger(),
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	instance.logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			owner_id INTEGER PRIMARY KEY,
			name TEXT,
			country TEXT,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			eod_time TEXT NOT NULL DEFAULT '',
			onboarded BOOLEAN NOT NULL DEFAULT 0,
			last_activity DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Item ids are scoped to the owner and assigned MAX+1, so an id
		// freed by deletion can be handed to a new item.
		`CREATE TABLE IF NOT EXISTS goals (
			owner_id INTEGER NOT NULL,
			goal_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			target_days INTEGER NOT NULL,
			streak INTEGER NOT NULL DEFAULT 0,
			start_date TEXT NOT NULL,
			last_checkin TEXT NOT NULL DEFAULT '',
			completed_date TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			reminder_times TEXT NOT NULL DEFAULT '',
			motivation TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner_id, goal_id)
		)`,

		`CREATE TABLE IF NOT EXISTS habits (
			owner_id INTEGER NOT NULL,
			habit_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			streak INTEGER NOT NULL DEFAULT 0,
			start_date TEXT NOT NULL,
			last_completed TEXT NOT NULL DEFAULT '',
			completed_date TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			reminder_times TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner_id, habit_id)
		)`,

		`CREATE TABLE IF NOT EXISTS premium_users (
			owner_id INTEGER PRIMARY KEY,
			subscription_type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			payment_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS daily_tracking (
			owner_id INTEGER NOT NULL,
			track_date TEXT NOT NULL,
			goals_completed INTEGER NOT NULL DEFAULT 0,
			habits_completed INTEGER NOT NULL DEFAULT 0,
			total_goals INTEGER NOT NULL DEFAULT 0,
			total_habits INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (owner_id, track_date)
		)`,

		`CREATE TABLE IF NOT EXISTS achievements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			badge_type TEXT NOT NULL,
			badge_name TEXT NOT NULL,
			earned_date TEXT NOT NULL,
			week_number INTEGER NOT NULL,
			year INTEGER NOT NULL,
			completion_rate REAL NOT NULL,
			UNIQUE (owner_id, week_number, year)
		)`,

		`CREATE TABLE IF NOT EXISTS mood_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			mood TEXT NOT NULL,
			note TEXT,
			entry_date TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(owner_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_status ON habits(owner_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_premium_active ON premium_users(is_active, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_date ON daily_tracking(track_date)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_owner ON mood_entries(owner_id, entry_date)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_owner ON audit_log(owner_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
