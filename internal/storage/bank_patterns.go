package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harishnv/smartspend/internal/model"
)

// SaveBankPattern upserts one bank pattern. The registry seeds patterns at
// initialization; the pipeline itself never deletes them.
func (s *SQLiteStorage) SaveBankPattern(ctx context.Context, pattern *model.BankPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if !pattern.Valid() {
		return fmt.Errorf("%w: pattern %q has an empty sender matcher", ErrInvalidPattern, pattern.Name)
	}

	debit, err := json.Marshal(pattern.DebitKeywords)
	if err != nil {
		return fmt.Errorf("failed to marshal debit keywords: %w", err)
	}
	credit, err := json.Marshal(pattern.CreditKeywords)
	if err != nil {
		return fmt.Errorf("failed to marshal credit keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bank_patterns (
			name, sender_match, amount_match, account_match,
			merchant_match, balance_match, debit_keywords, credit_keywords
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			sender_match = excluded.sender_match,
			amount_match = excluded.amount_match,
			account_match = excluded.account_match,
			merchant_match = excluded.merchant_match,
			balance_match = excluded.balance_match,
			debit_keywords = excluded.debit_keywords,
			credit_keywords = excluded.credit_keywords`,
		pattern.Name, pattern.SenderMatch, pattern.AmountMatch, pattern.AccountMatch,
		pattern.MerchantMatch, pattern.BalanceMatch, string(debit), string(credit))
	if err != nil {
		return fmt.Errorf("failed to save bank pattern: %w", err)
	}
	return nil
}

// GetBankPatterns returns all patterns in registration (insertion) order.
func (s *SQLiteStorage) GetBankPatterns(ctx context.Context) ([]model.BankPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, sender_match, amount_match, account_match,
		       merchant_match, balance_match, debit_keywords, credit_keywords
		FROM bank_patterns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.BankPattern
	for rows.Next() {
		var (
			p              model.BankPattern
			amount         sql.NullString
			account        sql.NullString
			merchant       sql.NullString
			balance        sql.NullString
			debit, credit  sql.NullString
		)
		if err := rows.Scan(&p.Name, &p.SenderMatch, &amount, &account, &merchant, &balance, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan bank pattern: %w", err)
		}

		p.AmountMatch = amount.String
		p.AccountMatch = account.String
		p.MerchantMatch = merchant.String
		p.BalanceMatch = balance.String
		if debit.Valid {
			_ = json.Unmarshal([]byte(debit.String), &p.DebitKeywords)
		}
		if credit.Valid {
			_ = json.Unmarshal([]byte(credit.String), &p.CreditKeywords)
		}

		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}
