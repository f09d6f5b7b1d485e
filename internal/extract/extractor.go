// Package extract pulls typed fields out of raw bank notification text.
package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/model"
)

// genericAmount is the best-effort matcher used when no bank pattern matched
// the sender: a currency-prefixed numeric token.
var genericAmount = regexp.MustCompile(`(?i)(?:Rs\.?|INR|₹|\$|USD|EUR|€|£)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// Extractor applies a bank pattern's sub-matchers to message bodies.
// Extraction is deterministic and has no side effects; compiled matchers are
// cached across calls.
type Extractor struct {
	cache map[string]*regexp.Regexp
	mu    sync.RWMutex
}

// New creates an Extractor with an empty matcher cache.
func New() *Extractor {
	return &Extractor{cache: make(map[string]*regexp.Regexp)}
}

// Fields extracts amount, masked account, merchant and balance from a
// message body. With no pattern, only the generic amount extraction runs.
// Each sub-matcher is applied independently; one matcher missing or failing
// never aborts the others.
func (e *Extractor) Fields(body string, p *model.BankPattern) model.ExtractedFields {
	var fields model.ExtractedFields

	if p == nil {
		fields.Amount = parseAmount(firstGroup(genericAmount, body))
		return fields
	}

	fields.Amount = parseAmount(e.match(p.AmountMatch, body))
	if !fields.Amount.Valid {
		// Bank-specific matcher missed; fall back to the generic token.
		fields.Amount = parseAmount(firstGroup(genericAmount, body))
	}
	fields.Account = e.match(p.AccountMatch, body)
	fields.Merchant = strings.TrimSpace(e.match(p.MerchantMatch, body))
	fields.Balance = parseAmount(e.match(p.BalanceMatch, body))

	return fields
}

// match applies one sub-matcher, returning the first capture group or the
// empty string on a miss. A malformed matcher counts as a miss.
func (e *Extractor) match(expr, body string) string {
	if expr == "" {
		return ""
	}

	re := e.compiled(expr)
	if re == nil {
		return ""
	}
	return firstGroup(re, body)
}

func (e *Extractor) compiled(expr string) *regexp.Regexp {
	e.mu.RLock()
	re, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return re
	}

	full := expr
	if !strings.HasPrefix(full, "(?i)") {
		full = "(?i)" + full
	}

	re, err := regexp.Compile(full)
	if err != nil {
		re = nil
	}

	e.mu.Lock()
	e.cache[expr] = re
	e.mu.Unlock()
	return re
}

func firstGroup(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// parseAmount converts a matched amount token to a decimal, stripping
// thousands separators. Malformed or negative tokens yield an absent amount,
// never an error.
func parseAmount(token string) decimal.NullDecimal {
	token = strings.ReplaceAll(strings.TrimSpace(token), ",", "")
	if token == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(token)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: d, Valid: true}
}
