// Package classify resolves transaction direction from noisy bank
// notification text.
//
// Bank messages routinely contain both debit-like and credit-like wording in
// one sentence: a debit notice may mention "credited" only inside a dispute
// hotline clause. Classification therefore weights keyword occurrences by
// position (earlier is stronger) and suppresses occurrences that sit inside
// a contact or dispute clause, which describe calling a number rather than
// the money movement itself.
package classify

import (
	"regexp"
	"sync"

	"github.com/harishnv/smartspend/internal/model"
)

// Tunable scan constants. positionDecay controls how quickly late keyword
// occurrences lose weight; suppressionWindow is the character distance
// within which a contact phrase neutralizes a keyword; suppressionFactor is
// what remains of a suppressed occurrence's weight.
const (
	positionDecay     = 64.0
	suppressionWindow = 40
	suppressionFactor = 0.05
)

var (
	debitKeywords  = []string{"debited", "withdrawn", "spent", "paid", "purchased", "deducted"}
	creditKeywords = []string{"credited", "deposited", "received", "refunded"}

	// Phrases marking a secondary mention: helpline, dispute and contact
	// clauses. A directional keyword near one of these is describing an
	// unrelated action, not the transaction.
	suppressors = []string{"dispute", "call", "customer care", "helpline", "contact", "sms block", "toll free"}
)

var (
	regexOnce    sync.Once
	debitRegexs  []*regexp.Regexp
	creditRegexs []*regexp.Regexp
	suppRegexs   []*regexp.Regexp
	extraCache   sync.Map // keyword string -> *regexp.Regexp
)

func compileAll() {
	debitRegexs = compileKeywords(debitKeywords)
	creditRegexs = compileKeywords(creditKeywords)
	suppRegexs = compileKeywords(suppressors)
}

func compileKeywords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

// Result carries the resolved direction plus the raw signal strengths. The
// scores are tie-breaking internals and are never persisted.
type Result struct {
	Direction    model.Direction
	DebitSignal  float64
	CreditSignal float64
}

// Classify determines transaction direction for a message body. The function
// is pure and deterministic; empty or keyword-less text resolves to expense,
// the conservative default when the subject is "your account".
func Classify(body string) Result {
	return ClassifyWith(body, nil, nil)
}

// ClassifyWith classifies with additional bank-specific directional keywords
// appended to the built-in sets.
func ClassifyWith(body string, extraDebit, extraCredit []string) Result {
	regexOnce.Do(compileAll)

	spans := suppressorSpans(body)

	debit := signal(body, debitRegexs, spans) + signal(body, compileExtra(extraDebit), spans)
	credit := signal(body, creditRegexs, spans) + signal(body, compileExtra(extraCredit), spans)

	direction := model.DirectionExpense
	if credit > debit {
		direction = model.DirectionIncome
	}

	return Result{
		Direction:    direction,
		DebitSignal:  debit,
		CreditSignal: credit,
	}
}

// Direction is a convenience wrapper returning only the resolved direction.
func Direction(body string) model.Direction {
	return Classify(body).Direction
}

func compileExtra(words []string) []*regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if cached, ok := extraCache.Load(w); ok {
			out = append(out, cached.(*regexp.Regexp))
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		extraCache.Store(w, re)
		out = append(out, re)
	}
	return out
}

func suppressorSpans(body string) [][]int {
	var spans [][]int
	for _, re := range suppRegexs {
		spans = append(spans, re.FindAllStringIndex(body, -1)...)
	}
	return spans
}

// signal sums the weighted strength of every keyword occurrence. Weight
// decays with character offset so the earliest unambiguous keyword acts as
// the primary transaction indicator, and drops toward zero for occurrences
// inside a contact clause.
func signal(body string, regexs []*regexp.Regexp, suppressed [][]int) float64 {
	var total float64
	for _, re := range regexs {
		for _, loc := range re.FindAllStringIndex(body, -1) {
			weight := 1.0 / (1.0 + float64(loc[0])/positionDecay)
			if nearAny(loc, suppressed) {
				weight *= suppressionFactor
			}
			total += weight
		}
	}
	return total
}

// nearAny reports whether a keyword span falls within the suppression window
// of any suppressor span.
func nearAny(loc []int, spans [][]int) bool {
	for _, s := range spans {
		gap := 0
		switch {
		case s[0] >= loc[1]:
			gap = s[0] - loc[1]
		case loc[0] >= s[1]:
			gap = loc[0] - s[1]
		}
		if gap <= suppressionWindow {
			return true
		}
	}
	return false
}
