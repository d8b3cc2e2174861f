package config

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create groups table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS groups (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			president_id VARCHAR(36) NOT NULL,
			contribution NUMERIC(12,2) NOT NULL CHECK (contribution > 0),
			frequency VARCHAR(10) NOT NULL,
			invite_code VARCHAR(20) UNIQUE NOT NULL,
			archived_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create members table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS members (
			id VARCHAR(36) PRIMARY KEY,
			group_id VARCHAR(36) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL,
			status VARCHAR(10) NOT NULL,
			queue_position INTEGER NOT NULL,
			missed_payment_count INTEGER NOT NULL DEFAULT 0 CHECK (missed_payment_count >= 0),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (group_id, user_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create payment_cycles table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS payment_cycles (
			id VARCHAR(36) PRIMARY KEY,
			group_id VARCHAR(36) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			start_date TIMESTAMP NOT NULL,
			due_date TIMESTAMP NOT NULL,
			status VARCHAR(10) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CHECK (start_date < due_date)
		)
	`)
	if err != nil {
		return err
	}

	// Create payment_logs table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS payment_logs (
			id VARCHAR(36) PRIMARY KEY,
			cycle_id VARCHAR(36) NOT NULL REFERENCES payment_cycles(id) ON DELETE CASCADE,
			group_id VARCHAR(36) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			member_id VARCHAR(36) NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			status VARCHAR(10) NOT NULL,
			marked_at TIMESTAMP,
			verified_at TIMESTAMP,
			reminder_count INTEGER NOT NULL DEFAULT 0,
			last_reminded_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (cycle_id, member_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create activity_logs table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_logs (
			id VARCHAR(36) PRIMARY KEY,
			group_id VARCHAR(36) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			actor_id VARCHAR(36) NOT NULL,
			actor_name VARCHAR(255) NOT NULL,
			action VARCHAR(40) NOT NULL,
			target_id VARCHAR(36) NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create notifications table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			group_id VARCHAR(36) NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			type VARCHAR(40) NOT NULL,
			title VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			cleared_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance. The partial unique index keeps
	// queue positions unique among active members only; locked members keep
	// their old position without blocking appends.
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_members_active_queue ON members(group_id, queue_position) WHERE status = 'active'",
		"CREATE INDEX IF NOT EXISTS idx_members_group_id ON members(group_id)",
		"CREATE INDEX IF NOT EXISTS idx_cycles_group_status ON payment_cycles(group_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_logs_cycle_id ON payment_logs(cycle_id)",
		"CREATE INDEX IF NOT EXISTS idx_logs_cycle_status ON payment_logs(cycle_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_activity_group_created ON activity_logs(group_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			slog.Warn("failed to create index", "error", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
