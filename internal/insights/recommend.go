package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/model"
)

const (
	// categorySpikeThreshold is the month-over-month category growth (30%)
	// that triggers a budgeting recommendation.
	categorySpikeThreshold = 0.30
	// concentrationThreshold is the share of total spend one category may
	// hold before a spending recommendation fires.
	concentrationThreshold = 0.40
	// savingsRateTarget is the minimum net/income ratio below which a saving
	// recommendation fires.
	savingsRateTarget = 0.10
)

// recommend derives rule-based suggestions from the aggregated snapshot.
// Rules are deterministic; the result is sorted by priority, then potential
// savings descending, so output order is stable across runs.
func recommend(in *model.SpendingInsights, now time.Time) []model.Recommendation {
	var recs []model.Recommendation

	if in.Net.IsNegative() {
		recs = append(recs, model.Recommendation{
			ID:          uuid.NewString(),
			Type:        model.RecommendationCashflow,
			Priority:    model.PriorityCritical,
			Title:       "Spending exceeds income",
			Description: fmt.Sprintf("Expenses exceed income by %s over this period. Review recurring payments and large purchases.", in.Net.Neg().StringFixed(2)),
			Actionable:  true,
			CreatedAt:   now,
		})
	}

	recs = append(recs, categorySpikes(in, now)...)

	if rec := concentration(in, now); rec != nil {
		recs = append(recs, *rec)
	}

	if in.TotalIncome.IsPositive() && !in.Net.IsNegative() {
		rate, _ := in.Net.Div(in.TotalIncome).Float64()
		if rate < savingsRateTarget {
			recs = append(recs, model.Recommendation{
				ID:          uuid.NewString(),
				Type:        model.RecommendationSaving,
				Priority:    model.PriorityLow,
				Title:       "Savings rate below 10%",
				Description: fmt.Sprintf("Only %.1f%% of income is left after expenses. Aim for at least 10%%.", rate*100),
				Actionable:  true,
				CreatedAt:   now,
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() < recs[j].Priority.Rank()
		}
		return savings(recs[i]).GreaterThan(savings(recs[j]))
	})

	return recs
}

// categorySpikes flags categories whose latest-month spend rose more than
// categorySpikeThreshold over the trailing average of the prior months.
// Potential savings is the excess over that trailing average.
func categorySpikes(in *model.SpendingInsights, now time.Time) []model.Recommendation {
	if len(in.MonthlyTotals) < 2 {
		return nil
	}

	currentMonth := in.MonthlyTotals[len(in.MonthlyTotals)-1].Amount
	priorCount := len(in.MonthlyTotals) - 1
	var priorSum decimal.Decimal
	for _, m := range in.MonthlyTotals[:priorCount] {
		priorSum = priorSum.Add(m.Amount)
	}
	priorAvg := priorSum.Div(decimal.NewFromInt(int64(priorCount)))
	if !priorAvg.IsPositive() {
		return nil
	}

	growth, _ := currentMonth.Sub(priorAvg).Div(priorAvg).Float64()
	if growth <= categorySpikeThreshold {
		return nil
	}

	// The monthly series is aggregate; attribute the spike to the heaviest
	// categories so the advice names something actionable.
	excess := currentMonth.Sub(priorAvg).Round(2)
	categories := make([]string, 0, len(in.TopCategories))
	for i, c := range in.TopCategories {
		if i >= 3 {
			break
		}
		categories = append(categories, c.Name)
	}

	return []model.Recommendation{{
		ID:       uuid.NewString(),
		Type:     model.RecommendationBudgeting,
		Priority: model.PriorityHigh,
		Title:    "Monthly spending jumped",
		Description: fmt.Sprintf("This month's spend of %s is %.0f%% above your %d-month average of %s.",
			currentMonth.StringFixed(2), growth*100, priorCount, priorAvg.StringFixed(2)),
		Categories:       categories,
		PotentialSavings: decimal.NewNullDecimal(excess),
		Actionable:       true,
		CreatedAt:        now,
	}}
}

// concentration flags a single category dominating total spend.
func concentration(in *model.SpendingInsights, now time.Time) *model.Recommendation {
	if len(in.TopCategories) == 0 || !in.TotalExpense.IsPositive() {
		return nil
	}

	top := in.TopCategories[0]
	share, _ := top.Amount.Div(in.TotalExpense).Float64()
	if share <= concentrationThreshold {
		return nil
	}

	return &model.Recommendation{
		ID:       uuid.NewString(),
		Type:     model.RecommendationSpending,
		Priority: model.PriorityMedium,
		Title:    fmt.Sprintf("%s dominates your spending", top.Name),
		Description: fmt.Sprintf("%s accounts for %.0f%% of total expenses (%s). Consider setting a category budget.",
			top.Name, share*100, top.Amount.StringFixed(2)),
		Categories: []string{top.Name},
		Actionable: true,
		CreatedAt:  now,
	}
}

func savings(r model.Recommendation) decimal.Decimal {
	if r.PotentialSavings.Valid {
		return r.PotentialSavings.Decimal
	}
	return decimal.Zero
}
