package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/harishnv/smartspend/internal/enrich"
	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/pattern"
	"github.com/harishnv/smartspend/internal/service"
	"github.com/harishnv/smartspend/internal/storage"
)

// defaultDatabasePath returns the configured database path, falling back to
// the XDG-style default under the user's home directory.
func defaultDatabasePath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "smartspend", "smartspend.db"), nil
}

// openStorage opens the database and brings the schema up to date. The
// caller owns Close.
func openStorage(ctx context.Context) (service.Storage, error) {
	dbPath, err := defaultDatabasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadRegistry builds the bank pattern registry from storage, seeding the
// built-in pattern set on first use so the database remains the source of
// truth for patterns afterwards.
func loadRegistry(ctx context.Context, store service.Storage) (*pattern.Registry, error) {
	patterns, err := store.GetBankPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank patterns: %w", err)
	}

	if len(patterns) == 0 {
		patterns = pattern.DefaultPatterns()
		for i := range patterns {
			if err := store.SaveBankPattern(ctx, &patterns[i]); err != nil {
				return nil, fmt.Errorf("failed to seed bank pattern %q: %w", patterns[i].Name, err)
			}
		}
		slog.Info("Seeded built-in bank patterns", "count", len(patterns))
	}

	return pattern.NewRegistry(patterns)
}

// newEnricher builds the enrichment analyzer from configuration. With no
// provider configured, enrichment stays disabled and ingestion runs on
// heuristics alone.
func newEnricher(logger *slog.Logger) (*enrich.Analyzer, error) {
	cfg := enrich.Config{
		Provider:  viper.GetString("enrichment.provider"),
		APIKey:    viper.GetString("enrichment.api_key"),
		Model:     viper.GetString("enrichment.model"),
		RateLimit: viper.GetInt("enrichment.rate_limit"),
		Enabled:   viper.GetBool("enrichment.enabled"),
	}
	if t := viper.GetDuration("enrichment.timeout"); t > 0 {
		cfg.Timeout = t
	} else {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Enabled && cfg.APIKey == "" {
		slog.Warn("Enrichment enabled but no API key configured; continuing without enrichment")
		cfg.Enabled = false
	}

	return enrich.NewAnalyzer(cfg, logger)
}

// parseDateFlag parses an optional YYYY-MM-DD flag value into a time bound.
func parseDateFlag(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date (use YYYY-MM-DD): %w", name, err)
	}
	return &parsed, nil
}

func directionSign(d model.Direction) string {
	if d == model.DirectionIncome {
		return "+"
	}
	return "-"
}
