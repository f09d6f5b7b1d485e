package pattern

import "github.com/harishnv/smartspend/internal/model"

// Shared sub-matchers. Most Indian banks use near-identical amount and
// balance phrasing, so the per-bank patterns only diverge where the formats
// actually differ.
const (
	rupeeAmount    = `(?:Rs\.?|INR|₹)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`
	maskedAccount  = `(?:A/c|Acct|Account)\s*(?:No\.?\s*)?(?:[Xx\*]+)?(\d{3,4})`
	trailerBalance = `(?:Avl\s*Bal|Avail(?:able)?\s*Bal(?:ance)?|Bal)[.:]?\s*(?:Rs\.?|INR|₹)?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`
	atMerchant     = `(?:at|to|towards|for)\s+([A-Za-z][A-Za-z0-9@&._ -]{2,40}?)(?:\s+on\b|\s+via\b|\.|,|$)`
)

var (
	debitKeywords  = []string{"debited", "withdrawn", "spent", "paid", "purchased", "deducted"}
	creditKeywords = []string{"credited", "deposited", "received", "refunded"}
)

// DefaultPatterns returns the seed registry: patterns for the banks the
// product ships support for. Registration order matters; first match wins.
func DefaultPatterns() []model.BankPattern {
	return []model.BankPattern{
		{
			Name:           "ICICI Bank",
			SenderMatch:    `ICICI`,
			AmountMatch:    rupeeAmount,
			AccountMatch:   maskedAccount,
			MerchantMatch:  atMerchant,
			BalanceMatch:   trailerBalance,
			DebitKeywords:  debitKeywords,
			CreditKeywords: creditKeywords,
		},
		{
			Name:           "HDFC Bank",
			SenderMatch:    `HDFC`,
			AmountMatch:    rupeeAmount,
			AccountMatch:   maskedAccount,
			MerchantMatch:  `(?:Info:|at|to)\s*([A-Za-z][A-Za-z0-9@&._ -]{2,40}?)(?:\s+on\b|\.|,|$)`,
			BalanceMatch:   trailerBalance,
			DebitKeywords:  debitKeywords,
			CreditKeywords: creditKeywords,
		},
		{
			Name:           "State Bank of India",
			SenderMatch:    `SBI|SBIN`,
			AmountMatch:    rupeeAmount,
			AccountMatch:   `A/c\s*(?:ending\s*)?(?:[Xx\*]+)?(\d{3,4})`,
			MerchantMatch:  atMerchant,
			BalanceMatch:   trailerBalance,
			DebitKeywords:  debitKeywords,
			CreditKeywords: []string{"credited", "deposited", "received", "refunded", "transferred to your"},
		},
		{
			Name:           "Axis Bank",
			SenderMatch:    `AXIS`,
			AmountMatch:    rupeeAmount,
			AccountMatch:   maskedAccount,
			MerchantMatch:  atMerchant,
			BalanceMatch:   trailerBalance,
			DebitKeywords:  debitKeywords,
			CreditKeywords: creditKeywords,
		},
		{
			Name:           "Kotak Mahindra Bank",
			SenderMatch:    `KOTAK`,
			AmountMatch:    rupeeAmount,
			AccountMatch:   maskedAccount,
			MerchantMatch:  atMerchant,
			BalanceMatch:   trailerBalance,
			DebitKeywords:  debitKeywords,
			CreditKeywords: creditKeywords,
		},
		{
			Name:           "Paytm Payments Bank",
			SenderMatch:    `PAYTM|PYTM`,
			AmountMatch:    rupeeAmount,
			AccountMatch:   maskedAccount,
			MerchantMatch:  `(?:to|at)\s+([A-Za-z][A-Za-z0-9@&._ -]{2,40}?)(?:\s+on\b|\.|,|$)`,
			BalanceMatch:   trailerBalance,
			DebitKeywords:  []string{"paid", "debited", "sent", "spent"},
			CreditKeywords: []string{"received", "credited", "refunded", "cashback"},
		},
	}
}
