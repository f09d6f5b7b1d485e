// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/harishnv/smartspend/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Limit     int
}

// Storage defines the contract for our persistence layer. The pipeline
// depends on this interface, never on a concrete store, so tests can run
// against an in-memory database.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetExistingDedupKeys(ctx context.Context) (map[string]struct{}, error)
	UpdateTransactionDirection(ctx context.Context, transactionID string, direction model.Direction) error
	DeleteAllTransactions(ctx context.Context) (int64, error)
	GetTransactionCount(ctx context.Context) (int, error)

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType) (*model.Category, error)

	// Bank pattern operations
	SaveBankPattern(ctx context.Context, pattern *model.BankPattern) error
	GetBankPatterns(ctx context.Context) ([]model.BankPattern, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MessageSource supplies the raw inbox. The device-level collaborator that
// actually reads messages lives outside the pipeline.
type MessageSource interface {
	Messages(ctx context.Context) ([]model.RawMessage, error)
}

// RunStats summarizes one ingestion run. Skipped counts messages that were
// never processed because the run was canceled mid-flight.
type RunStats struct {
	Duration            time.Duration
	Processed           int
	Created             int
	Duplicates          int
	Skipped             int
	Unrecognized        int
	EnrichmentFailures  int
	EnrichmentSucceeded int
}

// RetryOptions configures retry behavior for remote calls.
type RetryOptions struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}
