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
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration. Each step is idempotent
// and applied in order up to the target version.
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
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					dedup_key TEXT UNIQUE NOT NULL,
					user_id TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL,
					amount TEXT NOT NULL DEFAULT '0',
					direction TEXT NOT NULL,
					occurred_at DATETIME NOT NULL,
					raw_text TEXT,
					bank_name TEXT,
					account TEXT,
					merchant TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_occurred ON transactions(occurred_at)`,
				`CREATE INDEX idx_transactions_category ON transactions(category)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					description TEXT,
					type TEXT NOT NULL DEFAULT 'expense',
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_categories_name ON categories(name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add bank patterns table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS bank_patterns (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					sender_match TEXT NOT NULL,
					amount_match TEXT,
					account_match TEXT,
					merchant_match TEXT,
					balance_match TEXT,
					debit_keywords TEXT,
					credit_keywords TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add enrichment columns",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE transactions ADD COLUMN enrich_amount TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_category TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_subcategory TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_merchant TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_method TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_location TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_reference TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_confidence REAL`,
				`ALTER TABLE transactions ADD COLUMN enrich_flags TEXT`,
				`ALTER TABLE transactions ADD COLUMN enrich_insight TEXT`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Seed default categories",
		Up: func(tx *sql.Tx) error {
			seeds := []struct {
				name, description, categoryType string
			}{
				{"Food & Dining", "Restaurants, cafes, food delivery and groceries", "expense"},
				{"Shopping", "Retail and online purchases", "expense"},
				{"Transport", "Fuel, ride hailing, public transit", "expense"},
				{"Bills & Utilities", "Electricity, phone, internet, subscriptions", "expense"},
				{"Entertainment", "Movies, streaming, events", "expense"},
				{"Health", "Pharmacy, doctors, insurance", "expense"},
				{"Salary", "Regular employment income", "income"},
				{"Refunds", "Reversals and merchant refunds", "income"},
				{"Other", "Transactions with no inferred category", "expense"},
			}

			for _, seed := range seeds {
				_, err := tx.Exec(
					`INSERT OR IGNORE INTO categories (name, description, type) VALUES (?, ?, ?)`,
					seed.name, seed.description, seed.categoryType)
				if err != nil {
					return fmt.Errorf("failed to seed category %q: %w", seed.name, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies pending migrations up to the expected schema version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
