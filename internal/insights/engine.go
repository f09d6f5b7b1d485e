// Package insights derives spending analytics from transaction history:
// aggregate totals, trend labels, anomaly flags and recommendations. The
// output snapshot is disposable and always recomputable from the stored
// transactions.
package insights

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/service"
)

const (
	// trendBand is the relative month-over-month delta within which the
	// trend counts as stable.
	trendBand = 0.10
	// defaultWindowMonths is the trailing window assumed when no explicit
	// window is requested and history is empty.
	defaultWindowMonths = 6
	topN                = 5
)

// Generator produces SpendingInsights snapshots. Generation is read-only
// and may run concurrently with ingestion; a fresh request supersedes a
// stale in-flight one by canceling its context, and the superseded run is
// simply discarded.
type Generator struct {
	storage    service.Storage
	cancelPrev context.CancelFunc
	mu         sync.Mutex
}

// NewGenerator creates an insights generator backed by the given storage.
func NewGenerator(storage service.Storage) *Generator {
	return &Generator{storage: storage}
}

// Generate computes an insights snapshot for the requested window. Nil
// bounds mean "all history". An empty transaction set yields a well-formed
// zeroed snapshot, never an error.
func (g *Generator) Generate(ctx context.Context, windowStart, windowEnd *time.Time) (*model.SpendingInsights, error) {
	g.mu.Lock()
	if g.cancelPrev != nil {
		g.cancelPrev()
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.cancelPrev = cancel
	g.mu.Unlock()
	defer cancel()

	transactions, err := g.storage.GetTransactions(runCtx, service.TransactionFilter{
		StartDate: windowStart,
		EndDate:   windowEnd,
	})
	if err != nil {
		return nil, err
	}

	if err := runCtx.Err(); err != nil {
		return nil, err
	}

	return Compute(transactions, windowStart, windowEnd, time.Now()), nil
}

// Compute derives insights from an in-memory transaction set. It is pure:
// the same inputs always produce the same snapshot (modulo generated IDs).
func Compute(transactions []model.Transaction, windowStart, windowEnd *time.Time, now time.Time) *model.SpendingInsights {
	out := &model.SpendingInsights{
		GeneratedAt:       now,
		Trend:             model.TrendUnknown,
		CategoryBreakdown: make(map[string]decimal.Decimal),
	}

	if len(transactions) == 0 {
		return out
	}

	merchantTotals := make(map[string]decimal.Decimal)
	monthlyExpense := make(map[string]decimal.Decimal)
	monthlyIncome := make(map[string]decimal.Decimal)

	for _, txn := range transactions {
		switch txn.Direction {
		case model.DirectionIncome:
			out.TotalIncome = out.TotalIncome.Add(txn.Amount)
			month := txn.Date.Format("2006-01")
			monthlyIncome[month] = monthlyIncome[month].Add(txn.Amount)
		case model.DirectionExpense:
			out.TotalExpense = out.TotalExpense.Add(txn.Amount)
			out.CategoryBreakdown[txn.Category] = out.CategoryBreakdown[txn.Category].Add(txn.Amount)
			if txn.Merchant != "" {
				merchantTotals[txn.Merchant] = merchantTotals[txn.Merchant].Add(txn.Amount)
			}
			month := txn.Date.Format("2006-01")
			monthlyExpense[month] = monthlyExpense[month].Add(txn.Amount)
		}
	}
	out.Net = out.TotalIncome.Sub(out.TotalExpense)

	days := windowDays(transactions, windowStart, windowEnd, now)
	out.DailyAverage = out.TotalExpense.Div(decimal.NewFromInt(days)).Round(2)
	out.WeeklyAverage = out.DailyAverage.Mul(decimal.NewFromInt(7)).Round(2)
	out.MonthlyAverage = out.DailyAverage.Mul(decimal.NewFromInt(30)).Round(2)

	out.MonthlyTotals = sortedMonthly(monthlyExpense)
	out.Trend = trendLabel(out.MonthlyTotals)
	out.TopCategories = ranked(out.CategoryBreakdown, topN)
	out.TopMerchants = ranked(merchantTotals, topN)
	out.ExpenseDelta = periodDelta(out.MonthlyTotals)
	out.IncomeDelta = periodDelta(sortedMonthly(monthlyIncome))

	out.Anomalies = detectAnomalies(transactions, now)
	out.Recommendations = recommend(out, now)

	return out
}

// windowDays computes the day span the averages are taken over, defaulting
// to the observed transaction span when no explicit window is given.
func windowDays(transactions []model.Transaction, start, end *time.Time, now time.Time) int64 {
	var first, last time.Time
	switch {
	case start != nil && end != nil:
		first, last = *start, *end
	case len(transactions) > 0:
		first = transactions[0].Date
		last = transactions[len(transactions)-1].Date
		for _, txn := range transactions {
			if txn.Date.Before(first) {
				first = txn.Date
			}
			if txn.Date.After(last) {
				last = txn.Date
			}
		}
	default:
		first = now.AddDate(0, -defaultWindowMonths, 0)
		last = now
	}

	days := int64(last.Sub(first).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days
}

func sortedMonthly(byMonth map[string]decimal.Decimal) []model.MonthlyTotal {
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months) // 2006-01 labels sort chronologically

	out := make([]model.MonthlyTotal, 0, len(months))
	for _, m := range months {
		out = append(out, model.MonthlyTotal{Month: m, Amount: byMonth[m]})
	}
	return out
}

// trendLabel compares the most recent month against the prior one.
func trendLabel(monthly []model.MonthlyTotal) model.TrendLabel {
	if len(monthly) < 2 {
		return model.TrendUnknown
	}

	current := monthly[len(monthly)-1].Amount
	previous := monthly[len(monthly)-2].Amount
	if previous.IsZero() {
		if current.IsZero() {
			return model.TrendStable
		}
		return model.TrendIncreasing
	}

	delta, _ := current.Sub(previous).Div(previous).Float64()
	switch {
	case delta > trendBand:
		return model.TrendIncreasing
	case delta < -trendBand:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

func ranked(totals map[string]decimal.Decimal, n int) []model.RankedEntry {
	entries := make([]model.RankedEntry, 0, len(totals))
	for name, amount := range totals {
		entries = append(entries, model.RankedEntry{Name: name, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Amount.Equal(entries[j].Amount) {
			return entries[i].Amount.GreaterThan(entries[j].Amount)
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func periodDelta(monthly []model.MonthlyTotal) model.PeriodDelta {
	var delta model.PeriodDelta
	if len(monthly) == 0 {
		return delta
	}

	delta.Current = monthly[len(monthly)-1].Amount
	if len(monthly) > 1 {
		delta.Previous = monthly[len(monthly)-2].Amount
	}

	if !delta.Previous.IsZero() {
		pct, _ := delta.Current.Sub(delta.Previous).Div(delta.Previous).Float64()
		delta.Percent = pct * 100
	} else if !delta.Current.IsZero() {
		delta.Percent = 100
	}
	return delta
}
