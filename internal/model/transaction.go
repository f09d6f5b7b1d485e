// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether money moved into or out of the account.
type Direction string

const (
	// DirectionIncome represents money entering the account.
	DirectionIncome Direction = "income"
	// DirectionExpense represents money leaving the account.
	DirectionExpense Direction = "expense"
)

// ParseDirection maps a stored direction value to a Direction. Unknown values
// fall back to expense, the conservative default for a budgeting tool.
func ParseDirection(s string) Direction {
	if Direction(strings.ToLower(strings.TrimSpace(s))) == DirectionIncome {
		return DirectionIncome
	}
	return DirectionExpense
}

// RawMessage is one bank notification as delivered by the device inbox.
// It is ephemeral and never persisted.
type RawMessage struct {
	ReceivedAt time.Time
	Sender     string
	Body       string
}

// DedupKey derives the idempotency key for a raw message: sender plus the
// whitespace-normalized body plus the timestamp rounded to the minute.
// Re-scanning the same inbox always produces the same keys.
func (m RawMessage) DedupKey() string {
	body := strings.ToLower(strings.Join(strings.Fields(m.Body), " "))
	data := fmt.Sprintf("%s:%s:%s",
		strings.ToLower(strings.TrimSpace(m.Sender)),
		body,
		m.ReceivedAt.UTC().Truncate(time.Minute).Format(time.RFC3339))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ExtractedFields holds whatever could be pulled out of a message body.
// Every field is optional; absence is an expected outcome, not an error.
type ExtractedFields struct {
	Amount   decimal.NullDecimal
	Balance  decimal.NullDecimal
	Account  string
	Merchant string
}

// Transaction is a derived financial transaction. Core fields are always
// populated by the ingestion pipeline; Enrichment is best-effort and absent
// whenever the remote analysis capability was unavailable.
type Transaction struct {
	Date       time.Time
	CreatedAt  time.Time
	Enrichment *Enrichment
	ID         string
	UserID     string
	Category   string
	Direction  Direction
	DedupKey   string
	RawText    string
	BankName   string
	Account    string
	Merchant   string
	Amount     decimal.Decimal
}

// Enrichment carries remote-model-derived metadata augmenting a transaction
// beyond heuristic extraction. All fields are best-effort.
type Enrichment struct {
	Amount          decimal.NullDecimal
	Category        string
	Subcategory     string
	Merchant        string
	Method          string
	Location        string
	ReferenceNumber string
	Insight         string
	AnomalyFlags    []string
	Confidence      float64
}
