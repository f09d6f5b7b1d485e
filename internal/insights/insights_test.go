package insights

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/testutil"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func expense(amount int64, day int, category, merchant string) model.Transaction {
	return model.Transaction{
		ID:        fmt.Sprintf("e-%s-%d-%d", category, day, amount),
		Category:  category,
		Merchant:  merchant,
		Amount:    decimal.NewFromInt(amount),
		Direction: model.DirectionExpense,
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1),
	}
}

func income(amount int64, day int) model.Transaction {
	return model.Transaction{
		ID:        fmt.Sprintf("i-%d-%d", day, amount),
		Category:  "Salary",
		Amount:    decimal.NewFromInt(amount),
		Direction: model.DirectionIncome,
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1),
	}
}

func TestCompute_EmptyHistory(t *testing.T) {
	got := Compute(nil, nil, nil, testNow)

	require.NotNil(t, got)
	assert.Equal(t, model.TrendUnknown, got.Trend)
	assert.True(t, got.TotalIncome.IsZero())
	assert.True(t, got.TotalExpense.IsZero())
	assert.True(t, got.Net.IsZero())
	assert.NotNil(t, got.CategoryBreakdown)
	assert.Empty(t, got.CategoryBreakdown)
	assert.Empty(t, got.Anomalies)
	assert.Empty(t, got.Recommendations)
	assert.Equal(t, testNow, got.GeneratedAt)
}

func TestCompute_Totals(t *testing.T) {
	transactions := []model.Transaction{
		income(50000, 1),
		expense(500, 2, "Food & Dining", "SWIGGY"),
		expense(1200, 3, "Transport", "UBER"),
		expense(300, 4, "Food & Dining", "SWIGGY"),
	}

	got := Compute(transactions, nil, nil, testNow)

	assert.True(t, got.TotalIncome.Equal(decimal.NewFromInt(50000)))
	assert.True(t, got.TotalExpense.Equal(decimal.NewFromInt(2000)))
	assert.True(t, got.Net.Equal(decimal.NewFromInt(48000)))

	assert.True(t, got.CategoryBreakdown["Food & Dining"].Equal(decimal.NewFromInt(800)))
	assert.True(t, got.CategoryBreakdown["Transport"].Equal(decimal.NewFromInt(1200)))

	require.NotEmpty(t, got.TopCategories)
	assert.Equal(t, "Transport", got.TopCategories[0].Name)
	require.NotEmpty(t, got.TopMerchants)
	assert.Equal(t, "UBER", got.TopMerchants[0].Name)

	// 4 days of history: 2000 / 4.
	assert.True(t, got.DailyAverage.Equal(decimal.NewFromInt(500)), "daily average was %s", got.DailyAverage)
}

func TestCompute_TrendLabels(t *testing.T) {
	monthExpense := func(month string, amount int64) model.Transaction {
		date, _ := time.Parse("2006-01", month)
		return model.Transaction{
			ID:        fmt.Sprintf("t-%s-%d", month, amount),
			Category:  "Shopping",
			Amount:    decimal.NewFromInt(amount),
			Direction: model.DirectionExpense,
			Date:      date.AddDate(0, 0, 10),
		}
	}

	tests := []struct {
		name         string
		transactions []model.Transaction
		want         model.TrendLabel
	}{
		{
			name:         "single month is unknown",
			transactions: []model.Transaction{monthExpense("2026-03", 1000)},
			want:         model.TrendUnknown,
		},
		{
			name: "within band is stable",
			transactions: []model.Transaction{
				monthExpense("2026-02", 1000),
				monthExpense("2026-03", 1050),
			},
			want: model.TrendStable,
		},
		{
			name: "beyond band is increasing",
			transactions: []model.Transaction{
				monthExpense("2026-02", 1000),
				monthExpense("2026-03", 1500),
			},
			want: model.TrendIncreasing,
		},
		{
			name: "shrinking beyond band is decreasing",
			transactions: []model.Transaction{
				monthExpense("2026-02", 1000),
				monthExpense("2026-03", 700),
			},
			want: model.TrendDecreasing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.transactions, nil, nil, testNow)
			assert.Equal(t, tt.want, got.Trend)
		})
	}
}

func TestDetectAnomalies_FlatHistoryNoFlags(t *testing.T) {
	// Every amount equals the category mean: nothing to flag.
	var transactions []model.Transaction
	for day := 1; day <= 6; day++ {
		transactions = append(transactions, expense(500, day, "Food & Dining", "SWIGGY"))
	}

	anomalies := detectAnomalies(transactions, testNow)
	for _, a := range anomalies {
		assert.NotEqual(t, model.AnomalyUnusualAmount, a.Type)
	}
}

func TestDetectAnomalies_OutlierFlagged(t *testing.T) {
	transactions := []model.Transaction{
		expense(500, 1, "Food & Dining", "SWIGGY"),
		expense(500, 2, "Food & Dining", "SWIGGY"),
		expense(500, 3, "Food & Dining", "SWIGGY"),
		expense(500, 4, "Food & Dining", "SWIGGY"),
		expense(500, 5, "Food & Dining", "SWIGGY"),
		expense(5000, 6, "Food & Dining", "SWIGGY"),
	}

	anomalies := detectAnomalies(transactions, testNow)

	var amountFlags []model.Anomaly
	for _, a := range anomalies {
		if a.Type == model.AnomalyUnusualAmount {
			amountFlags = append(amountFlags, a)
		}
	}
	require.Len(t, amountFlags, 1)

	flag := amountFlags[0]
	assert.True(t, flag.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "Food & Dining", flag.Category)
	assert.Greater(t, flag.Severity, 0.0)
	assert.LessOrEqual(t, flag.Severity, 1.0)
	assert.Equal(t, model.MetadataNumber, flag.Metadata["category_mean"].Kind)
}

func TestDetectAnomalies_SeverityMonotonic(t *testing.T) {
	base := []model.Transaction{
		expense(500, 1, "Food & Dining", "SWIGGY"),
		expense(500, 2, "Food & Dining", "SWIGGY"),
		expense(500, 3, "Food & Dining", "SWIGGY"),
		expense(500, 4, "Food & Dining", "SWIGGY"),
		expense(500, 5, "Food & Dining", "SWIGGY"),
	}

	severityFor := func(outlier int64) float64 {
		t.Helper()
		anomalies := detectAnomalies(append(base, expense(outlier, 6, "Food & Dining", "SWIGGY")), testNow)
		for _, a := range anomalies {
			if a.Type == model.AnomalyUnusualAmount {
				return a.Severity
			}
		}
		t.Fatalf("no amount anomaly for outlier %d", outlier)
		return 0
	}

	smaller := severityFor(2500)
	larger := severityFor(4500)
	assert.Greater(t, larger, smaller, "severity must grow with deviation")
	assert.LessOrEqual(t, severityFor(1000000), 1.0, "severity is clamped")
}

func TestDetectAnomalies_InsufficientHistorySkipped(t *testing.T) {
	transactions := []model.Transaction{
		expense(500, 1, "Food & Dining", "SWIGGY"),
		expense(5000, 2, "Food & Dining", "SWIGGY"),
	}

	for _, a := range detectAnomalies(transactions, testNow) {
		assert.NotEqual(t, model.AnomalyUnusualAmount, a.Type)
	}
}

func TestDetectAnomalies_NewMerchant(t *testing.T) {
	transactions := []model.Transaction{
		expense(5000, 1, "Shopping", "CROMA"),
		expense(200, 2, "Food & Dining", "NEW CAFE"),
	}

	anomalies := detectAnomalies(transactions, testNow)

	var merchants []string
	for _, a := range anomalies {
		if a.Type == model.AnomalyUnusualMerchant {
			merchants = append(merchants, a.Merchant)
		}
	}
	// Large first-time merchant flagged, small one is routine.
	assert.Contains(t, merchants, "CROMA")
	assert.NotContains(t, merchants, "NEW CAFE")
}

func TestRecommend_NegativeNetIsCritical(t *testing.T) {
	transactions := []model.Transaction{
		income(10000, 1),
		expense(15000, 2, "Shopping", "CROMA"),
	}

	got := Compute(transactions, nil, nil, testNow)

	require.NotEmpty(t, got.Recommendations)
	first := got.Recommendations[0]
	assert.Equal(t, model.RecommendationCashflow, first.Type)
	assert.Equal(t, model.PriorityCritical, first.Priority)
}

func TestRecommend_SortedByPriority(t *testing.T) {
	// Negative net plus a month-over-month spike: critical must sort first.
	transactions := []model.Transaction{
		income(1000, 1),
		expense(1000, -20, "Shopping", "CROMA"), // February
		expense(5000, 10, "Shopping", "CROMA"),  // March spike
	}

	got := Compute(transactions, nil, nil, testNow)
	require.GreaterOrEqual(t, len(got.Recommendations), 2)

	for i := 1; i < len(got.Recommendations); i++ {
		assert.LessOrEqual(t,
			got.Recommendations[i-1].Priority.Rank(),
			got.Recommendations[i].Priority.Rank())
	}
	assert.Equal(t, model.PriorityCritical, got.Recommendations[0].Priority)
}

func TestRecommend_SpikeCarriesPotentialSavings(t *testing.T) {
	transactions := []model.Transaction{
		income(100000, 1),
		expense(1000, -20, "Shopping", "CROMA"), // February
		expense(5000, 10, "Shopping", "CROMA"),  // March
	}

	got := Compute(transactions, nil, nil, testNow)

	var spike *model.Recommendation
	for i := range got.Recommendations {
		if got.Recommendations[i].Type == model.RecommendationBudgeting {
			spike = &got.Recommendations[i]
			break
		}
	}
	require.NotNil(t, spike, "expected a budgeting recommendation")
	require.True(t, spike.PotentialSavings.Valid)
	assert.True(t, spike.PotentialSavings.Decimal.Equal(decimal.NewFromInt(4000)))
}

func TestGenerator_EmptyStorage(t *testing.T) {
	store := testutil.SetupTestDB(t)

	got, err := NewGenerator(store).Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TrendUnknown, got.Trend)
	assert.True(t, got.Net.IsZero())
}
