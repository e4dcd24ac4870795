package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// DemoUserID is the single identity this demo system operates against.
const DemoUserID = 1

// DemoUserEmail identifies the demo user row seeded by migrations.
const DemoUserEmail = "demo@example.com"

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					email TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS plaid_items (
					item_id TEXT PRIMARY KEY,
					user_id INTEGER NOT NULL,
					access_token TEXT UNIQUE NOT NULL,
					institution_id TEXT,
					institution_name TEXT,
					cursor TEXT NOT NULL DEFAULT '',
					last_sync DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (user_id) REFERENCES users(id)
				)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					account_id TEXT PRIMARY KEY,
					item_id TEXT NOT NULL,
					name TEXT,
					official_name TEXT,
					type TEXT,
					subtype TEXT,
					balance_available REAL,
					balance_current REAL,
					balance_limit REAL,
					currency TEXT DEFAULT 'USD',
					FOREIGN KEY (item_id) REFERENCES plaid_items(item_id)
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					provider_transaction_id TEXT PRIMARY KEY,
					user_id INTEGER NOT NULL,
					account_id TEXT,
					amount REAL NOT NULL,
					date DATETIME NOT NULL,
					name TEXT NOT NULL,
					merchant_name TEXT,
					category TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (user_id) REFERENCES users(id),
					FOREIGN KEY (account_id) REFERENCES accounts(account_id)
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,

				`CREATE TABLE IF NOT EXISTS conversations (
					thread_id TEXT PRIMARY KEY,
					user_id INTEGER NOT NULL,
					messages TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (user_id) REFERENCES users(id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute migration query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed demo user",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(
				`INSERT OR IGNORE INTO users (id, email) VALUES (?, ?)`,
				DemoUserID, DemoUserEmail,
			)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}
	}

	return nil
}
