package model

// BankPattern bundles the text matchers used to parse one bank's message
// format. Patterns are created at seed time and immutable thereafter.
type BankPattern struct {
	Name           string
	SenderMatch    string
	AmountMatch    string
	AccountMatch   string
	MerchantMatch  string
	BalanceMatch   string
	DebitKeywords  []string
	CreditKeywords []string
}

// Valid reports whether the pattern satisfies the registry invariant:
// the sender matcher must be non-empty.
func (p BankPattern) Valid() bool {
	return p.SenderMatch != ""
}
