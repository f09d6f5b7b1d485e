package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harishnv/smartspend/internal/common"
	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/pattern"
	"github.com/harishnv/smartspend/internal/service"
	"github.com/harishnv/smartspend/internal/testutil"
)

type stubEnricher struct {
	result *model.Enrichment
	err    error
	calls  atomic.Int64
}

func (s *stubEnricher) Enabled() bool { return true }

func (s *stubEnricher) Analyze(_ context.Context, _ string) (*model.Enrichment, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestEngine(t *testing.T, enricher Enricher) (*Engine, service.Storage) {
	t.Helper()

	store := testutil.SetupTestDB(t)
	registry, err := pattern.NewRegistry(pattern.DefaultPatterns())
	require.NoError(t, err)

	return New(store, registry, enricher, Config{UserID: "user-1"}), store
}

func testMessages() []model.RawMessage {
	return []model.RawMessage{
		{
			Sender:     "AD-ICICIB",
			Body:       "Rs 500.00 debited from A/c XX1234 at AMAZON on 12-03-26. Avl Bal Rs 10,000.00",
			ReceivedAt: time.Date(2026, 3, 12, 10, 30, 0, 0, time.UTC),
		},
		{
			Sender:     "VM-HDFCBK",
			Body:       "Rs 1,200.00 debited from A/c XX5678 at BIG BAZAAR on 14-03-26.",
			ReceivedAt: time.Date(2026, 3, 14, 18, 5, 0, 0, time.UTC),
		},
		{
			Sender:     "BZ-SBIN",
			Body:       "Rs 50,000.00 credited to A/c ending 4321 by NEFT.",
			ReceivedAt: time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestIngest_MixedBatch(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	stats, err := eng.Ingest(ctx, testMessages())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Created)
	assert.Zero(t, stats.Duplicates)
	assert.Zero(t, stats.Unrecognized)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	assert.Equal(t, model.DirectionExpense, transactions[0].Direction)
	assert.True(t, transactions[0].Amount.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, "ICICI Bank", transactions[0].BankName)
	assert.Equal(t, "1234", transactions[0].Account)
	assert.Equal(t, "AMAZON", transactions[0].Merchant)
	assert.Equal(t, model.CategoryOther, transactions[0].Category)

	assert.Equal(t, model.DirectionExpense, transactions[1].Direction)
	assert.Equal(t, "HDFC Bank", transactions[1].BankName)

	assert.Equal(t, model.DirectionIncome, transactions[2].Direction)
	assert.True(t, transactions[2].Amount.Equal(decimal.RequireFromString("50000.00")))
	assert.Equal(t, "State Bank of India", transactions[2].BankName)
	assert.Equal(t, "4321", transactions[2].Account)
}

func TestIngest_RescanIsIdempotent(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	first, err := eng.Ingest(ctx, testMessages())
	require.NoError(t, err)
	require.Equal(t, 3, first.Created)

	second, err := eng.Ingest(ctx, testMessages())
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 3, second.Duplicates)

	count, err := store.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngest_InBatchDuplicateFirstWins(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	msg := testMessages()[0]
	stats, err := eng.Ingest(ctx, []model.RawMessage{msg, msg})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Duplicates)

	count, err := store.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngest_UnrecognizedSenderStillIngested(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	stats, err := eng.Ingest(ctx, []model.RawMessage{{
		Sender:     "XY-FOOBAR",
		Body:       "INR 450 spent on your card.",
		ReceivedAt: time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Unrecognized)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Empty(t, transactions[0].BankName)
	assert.True(t, transactions[0].Amount.Equal(decimal.NewFromInt(450)), "generic amount extraction still applies")
	assert.Equal(t, model.DirectionExpense, transactions[0].Direction)
}

func TestIngest_EmptyBatch(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	stats, err := eng.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
	assert.Zero(t, stats.Created)
}

func TestIngest_EnrichmentFailureIsNonFatal(t *testing.T) {
	enricher := &stubEnricher{err: errors.New("enrichment unavailable: timeout")}
	eng, store := newTestEngine(t, enricher)
	ctx := context.Background()

	stats, err := eng.Ingest(ctx, testMessages())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Created)
	assert.Equal(t, 3, stats.EnrichmentFailures)
	assert.Zero(t, stats.EnrichmentSucceeded)
	assert.Equal(t, int64(3), enricher.calls.Load())

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	for _, txn := range transactions {
		assert.Nil(t, txn.Enrichment)
		assert.Equal(t, model.CategoryOther, txn.Category)
	}
}

func TestIngest_EnrichmentMerge(t *testing.T) {
	enricher := &stubEnricher{result: &model.Enrichment{
		Category:   "Shopping",
		Merchant:   "Amazon India",
		Confidence: 0.9,
		Amount:     decimal.NullDecimal{Decimal: decimal.NewFromInt(999), Valid: true},
	}}
	eng, store := newTestEngine(t, enricher)
	ctx := context.Background()

	stats, err := eng.Ingest(ctx, testMessages()[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EnrichmentSucceeded)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	txn := transactions[0]
	// A sane enrichment amount overrides the heuristic extraction.
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(999)))
	// Merchant override applies; category resolves against the known set.
	assert.Equal(t, "Amazon India", txn.Merchant)
	assert.Equal(t, "Shopping", txn.Category)
	// Direction stays heuristic.
	assert.Equal(t, model.DirectionExpense, txn.Direction)
	require.NotNil(t, txn.Enrichment)
}

func TestIngest_EnrichmentFillsMissingAmount(t *testing.T) {
	enricher := &stubEnricher{result: &model.Enrichment{
		Amount: decimal.NullDecimal{Decimal: decimal.RequireFromString("250.75"), Valid: true},
	}}
	eng, store := newTestEngine(t, enricher)
	ctx := context.Background()

	_, err := eng.Ingest(ctx, []model.RawMessage{{
		Sender:     "XY-FOOBAR",
		Body:       "Payment of two hundred fifty made at CHEMIST.",
		ReceivedAt: time.Date(2026, 3, 21, 12, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.True(t, transactions[0].Amount.Equal(decimal.RequireFromString("250.75")))
}

func TestIngest_EnrichmentNegativeAmountIgnored(t *testing.T) {
	enricher := &stubEnricher{result: &model.Enrichment{
		Amount: decimal.NullDecimal{Decimal: decimal.NewFromInt(-42), Valid: true},
	}}
	eng, store := newTestEngine(t, enricher)
	ctx := context.Background()

	_, err := eng.Ingest(ctx, testMessages()[:1])
	require.NoError(t, err)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.True(t, transactions[0].Amount.Equal(decimal.RequireFromString("500.00")))
}

func TestIngest_UnknownEnrichmentCategoryFallsBackToOther(t *testing.T) {
	enricher := &stubEnricher{result: &model.Enrichment{Category: "Cryptocurrency"}}
	eng, store := newTestEngine(t, enricher)
	ctx := context.Background()

	_, err := eng.Ingest(ctx, testMessages()[:1])
	require.NoError(t, err)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, model.CategoryOther, transactions[0].Category)
}

func TestIngest_RunGuard(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	eng.running.Store(true)
	_, err := eng.Ingest(context.Background(), testMessages())
	require.ErrorIs(t, err, common.ErrIngestionActive)

	_, err = eng.Reclassify(context.Background())
	require.ErrorIs(t, err, common.ErrIngestionActive)

	eng.running.Store(false)
	_, err = eng.Ingest(context.Background(), testMessages())
	require.NoError(t, err)
}

func TestIngest_ProgressReported(t *testing.T) {
	store := testutil.SetupTestDB(t)
	registry, err := pattern.NewRegistry(pattern.DefaultPatterns())
	require.NoError(t, err)

	var reports atomic.Int64
	eng := New(store, registry, nil, Config{
		ProgressFunc: func(_, total int) {
			assert.Equal(t, 3, total)
			reports.Add(1)
		},
	})

	_, err = eng.Ingest(context.Background(), testMessages())
	require.NoError(t, err)
	assert.Equal(t, int64(3), reports.Load())
}

func TestIngest_CancellationSkipsPendingWork(t *testing.T) {
	store := testutil.SetupTestDB(t)
	registry, err := pattern.NewRegistry(pattern.DefaultPatterns())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A single worker slot serializes the batch. The first message to finish
	// cancels the run while it still holds the slot, so the waiting workers
	// can only observe the cancellation.
	eng := New(store, registry, nil, Config{
		UserID:               "user-1",
		MaxEnrichmentWorkers: 1,
		ProgressFunc: func(done, _ int) {
			if done == 1 {
				cancel()
				time.Sleep(50 * time.Millisecond)
			}
		},
	})

	stats, err := eng.Ingest(ctx, testMessages())
	require.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, stats.Created)
	assert.Zero(t, stats.Duplicates, "unprocessed messages are not duplicates")
	assert.Equal(t, 2, stats.Skipped)

	count, err := store.GetTransactionCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "a canceled run persists nothing")
}

func TestReclassify_RepairsDirection(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	wrong := testutil.NewTransaction(t, func(txn *model.Transaction) {
		txn.RawText = "Rs 9,000.00 credited to A/c XX1234 by IMPS."
		txn.Direction = model.DirectionExpense
	})
	right := testutil.NewTransaction(t, func(txn *model.Transaction) {
		txn.RawText = "Rs 300 debited from A/c XX1234."
		txn.Direction = model.DirectionExpense
	})
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{wrong, right}))

	updated, err := eng.Reclassify(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	repaired, err := store.GetTransactionByID(ctx, wrong.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DirectionIncome, repaired.Direction)

	untouched, err := store.GetTransactionByID(ctx, right.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DirectionExpense, untouched.Direction)
}

func TestReclassify_UsesBankPatternKeywords(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	// "cashback" is a credit keyword only through the Paytm pattern, not the
	// built-in sets.
	stats, err := eng.Ingest(ctx, []model.RawMessage{{
		Sender:     "VM-PYTM",
		Body:       "You have got cashback Rs 30 in your wallet.",
		ReceivedAt: time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Created)

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	require.Equal(t, model.DirectionIncome, transactions[0].Direction)

	// Reclassification resolves the stored bank name back to its pattern, so
	// the same keywords apply and the record stays put.
	updated, err := eng.Reclassify(ctx)
	require.NoError(t, err)
	assert.Zero(t, updated)

	after, err := store.GetTransactionByID(ctx, transactions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.DirectionIncome, after.Direction)
}

func TestReclassify_IsIdempotent(t *testing.T) {
	eng, store := newTestEngine(t, nil)
	ctx := context.Background()

	txn := testutil.NewTransaction(t, func(txn *model.Transaction) {
		txn.RawText = "Rs 9,000.00 credited to A/c XX1234 by IMPS."
		txn.Direction = model.DirectionExpense
	})
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{txn}))

	updated, err := eng.Reclassify(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, updated)

	updated, err = eng.Reclassify(ctx)
	require.NoError(t, err)
	assert.Zero(t, updated)
}
