// Package testutil provides shared helpers for tests that need a real
// storage backend. All databases are in-memory and cleaned up with the test.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/service"
	"github.com/harishnv/smartspend/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store. Migration seeds the
// default category set, so tests can reference categories like "Food" and
// "Other" without further setup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return store
}

// NewTransaction builds a persistable expense transaction with sane defaults.
// Tests override fields via the mutate callback.
func NewTransaction(t *testing.T, mutate func(*model.Transaction)) model.Transaction {
	t.Helper()

	txn := model.Transaction{
		ID:        uuid.NewString(),
		DedupKey:  uuid.NewString(),
		Category:  model.CategoryOther,
		Amount:    decimal.NewFromInt(500),
		Direction: model.DirectionExpense,
		Date:      time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		RawText:   "Rs 500.00 debited from A/c XX1234",
		BankName:  "testbank",
	}
	if mutate != nil {
		mutate(&txn)
	}
	return txn
}
