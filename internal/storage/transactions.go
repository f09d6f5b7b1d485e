package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/common"
	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/service"
)

// SaveTransactions persists a batch of transactions in a single database
// transaction. The write is all-or-nothing; rows whose dedup key already
// exists are silently ignored, which is what makes re-ingestion idempotent.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	version, err := s.schemaVersion(tx)
	if err != nil {
		return err
	}

	var stmt *sql.Stmt
	if version >= 3 {
		stmt, err = tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (
				id, dedup_key, user_id, category, amount, direction,
				occurred_at, raw_text, bank_name, account, merchant,
				enrich_amount, enrich_category, enrich_subcategory,
				enrich_merchant, enrich_method, enrich_location,
				enrich_reference, enrich_confidence, enrich_flags, enrich_insight
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
	} else {
		stmt, err = tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (
				id, dedup_key, user_id, category, amount, direction,
				occurred_at, raw_text, bank_name, account, merchant
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
	}
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		core := []any{
			txn.ID,
			txn.DedupKey,
			txn.UserID,
			txn.Category,
			txn.Amount.String(),
			string(txn.Direction),
			txn.Date.UTC(),
			txn.RawText,
			txn.BankName,
			txn.Account,
			txn.Merchant,
		}

		if version >= 3 {
			core = append(core, enrichmentArgs(txn.Enrichment)...)
		}

		if _, err := stmt.ExecContext(ctx, core...); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// enrichmentArgs flattens the optional enrichment struct into column values.
func enrichmentArgs(e *model.Enrichment) []any {
	if e == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	}

	var amount any
	if e.Amount.Valid {
		amount = e.Amount.Decimal.String()
	}

	var flags any
	if len(e.AnomalyFlags) > 0 {
		if b, err := json.Marshal(e.AnomalyFlags); err == nil {
			flags = string(b)
		}
	}

	return []any{
		amount,
		nullable(e.Category),
		nullable(e.Subcategory),
		nullable(e.Merchant),
		nullable(e.Method),
		nullable(e.Location),
		nullable(e.ReferenceNumber),
		e.Confidence,
		flags,
		nullable(e.Insight),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const txnCoreColumns = `id, dedup_key, user_id, category, amount, direction, occurred_at, raw_text, bank_name, account, merchant`

const txnEnrichColumns = `enrich_amount, enrich_category, enrich_subcategory, enrich_merchant, enrich_method, enrich_location, enrich_reference, enrich_confidence, enrich_flags, enrich_insight`

// GetTransactions returns transactions matching the filter, ordered by
// occurrence time ascending.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	version, err := s.schemaVersion(s.db)
	if err != nil {
		return nil, err
	}

	columns := txnCoreColumns
	if version >= 3 {
		columns += ", " + txnEnrichColumns
	}

	var conditions []string
	var args []any
	if filter.StartDate != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}

	query := "SELECT " + columns + " FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at ASC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows, version >= 3)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// GetTransactionByID returns a single transaction or common.ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	version, err := s.schemaVersion(s.db)
	if err != nil {
		return nil, err
	}

	columns := txnCoreColumns
	if version >= 3 {
		columns += ", " + txnEnrichColumns
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM transactions WHERE id = ?", id)
	txn, err := scanTransaction(row, version >= 3)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
		}
		return nil, err
	}
	return txn, nil
}

// GetExistingDedupKeys returns the set of dedup keys already persisted.
func (s *SQLiteStorage) GetExistingDedupKeys(ctx context.Context) (map[string]struct{}, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT dedup_key FROM transactions")
	if err != nil {
		return nil, fmt.Errorf("failed to query dedup keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan dedup key: %w", err)
		}
		keys[key] = struct{}{}
	}

	return keys, rows.Err()
}

// UpdateTransactionDirection updates a single transaction's direction in
// place, leaving every other field untouched.
func (s *SQLiteStorage) UpdateTransactionDirection(ctx context.Context, transactionID string, direction model.Direction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET direction = ? WHERE id = ?",
		string(direction), transactionID)
	if err != nil {
		return fmt.Errorf("failed to update direction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
	}
	return nil
}

// DeleteAllTransactions removes every transaction and returns the count.
func (s *SQLiteStorage) DeleteAllTransactions(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return result.RowsAffected()
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, withEnrichment bool) (*model.Transaction, error) {
	var (
		txn       model.Transaction
		amount    string
		direction string
		rawText   sql.NullString
		bankName  sql.NullString
		account   sql.NullString
		merchant  sql.NullString
		occurred  time.Time
	)

	dest := []any{
		&txn.ID, &txn.DedupKey, &txn.UserID, &txn.Category, &amount,
		&direction, &occurred, &rawText, &bankName, &account, &merchant,
	}

	var (
		eAmount     sql.NullString
		eCategory   sql.NullString
		eSub        sql.NullString
		eMerchant   sql.NullString
		eMethod     sql.NullString
		eLocation   sql.NullString
		eReference  sql.NullString
		eConfidence sql.NullFloat64
		eFlags      sql.NullString
		eInsight    sql.NullString
	)
	if withEnrichment {
		dest = append(dest,
			&eAmount, &eCategory, &eSub, &eMerchant, &eMethod,
			&eLocation, &eReference, &eConfidence, &eFlags, &eInsight)
	}

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		// Amount defaults to zero rather than dropping the record.
		parsed = decimal.Zero
	}

	txn.Amount = parsed
	txn.Direction = model.ParseDirection(direction)
	txn.Date = occurred
	txn.RawText = rawText.String
	txn.BankName = bankName.String
	txn.Account = account.String
	txn.Merchant = merchant.String

	if withEnrichment && anyValid(eAmount, eCategory, eSub, eMerchant, eMethod, eLocation, eReference, eFlags, eInsight) {
		enrichment := &model.Enrichment{
			Category:        eCategory.String,
			Subcategory:     eSub.String,
			Merchant:        eMerchant.String,
			Method:          eMethod.String,
			Location:        eLocation.String,
			ReferenceNumber: eReference.String,
			Insight:         eInsight.String,
			Confidence:      eConfidence.Float64,
		}
		if eAmount.Valid {
			if d, parseErr := decimal.NewFromString(eAmount.String); parseErr == nil {
				enrichment.Amount = decimal.NullDecimal{Decimal: d, Valid: true}
			}
		}
		if eFlags.Valid {
			var flags []string
			if jsonErr := json.Unmarshal([]byte(eFlags.String), &flags); jsonErr == nil {
				enrichment.AnomalyFlags = flags
			}
		}
		txn.Enrichment = enrichment
	}

	return &txn, nil
}

func anyValid(cols ...sql.NullString) bool {
	for _, c := range cols {
		if c.Valid {
			return true
		}
	}
	return false
}
