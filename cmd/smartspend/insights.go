package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harishnv/smartspend/internal/insights"
	"github.com/harishnv/smartspend/internal/model"
)

func insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Generate a spending insights report",
		Long: `Aggregate the stored transaction history into a spending report:
totals, averages, trend, top categories and merchants, detected
anomalies and recommendations.

Examples:
  smartspend insights
  smartspend insights --from 2026-01-01 --to 2026-03-31`,
		RunE: runInsights,
	}

	cmd.Flags().String("from", "", "window start (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("to", "", "window end (YYYY-MM-DD, inclusive)")

	return cmd
}

func runInsights(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	start, err := parseDateFlag(from, "from")
	if err != nil {
		return err
	}
	end, err := parseDateFlag(to, "to")
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	report, err := insights.NewGenerator(store).Generate(ctx, start, end)
	if err != nil {
		return err
	}

	printInsights(cmd, report)
	return nil
}

func printInsights(cmd *cobra.Command, in *model.SpendingInsights) {
	cmd.Printf("Spending insights (generated %s)\n\n", in.GeneratedAt.Format("2006-01-02 15:04"))
	cmd.Printf("  income:   %s\n", in.TotalIncome.StringFixed(2))
	cmd.Printf("  expense:  %s\n", in.TotalExpense.StringFixed(2))
	cmd.Printf("  net:      %s\n", in.Net.StringFixed(2))
	cmd.Printf("  averages: %s/day  %s/week  %s/month\n",
		in.DailyAverage.StringFixed(2), in.WeeklyAverage.StringFixed(2), in.MonthlyAverage.StringFixed(2))
	cmd.Printf("  trend:    %s\n", in.Trend)

	if len(in.MonthlyTotals) > 0 {
		cmd.Printf("\nMonthly expense totals:\n")
		for _, m := range in.MonthlyTotals {
			cmd.Printf("  %s  %s\n", m.Month, m.Amount.StringFixed(2))
		}
	}

	if len(in.TopCategories) > 0 {
		cmd.Printf("\nTop categories:\n")
		for _, c := range in.TopCategories {
			cmd.Printf("  %-20s %s\n", c.Name, c.Amount.StringFixed(2))
		}
	}

	if len(in.TopMerchants) > 0 {
		cmd.Printf("\nTop merchants:\n")
		for _, m := range in.TopMerchants {
			cmd.Printf("  %-20s %s\n", m.Name, m.Amount.StringFixed(2))
		}
	}

	if len(in.Anomalies) > 0 {
		cmd.Printf("\nAnomalies:\n")
		for _, a := range in.Anomalies {
			cmd.Printf("  [%.2f] %s: %s\n", a.Severity, a.Type, a.Description)
		}
	}

	if len(in.Recommendations) > 0 {
		cmd.Printf("\nRecommendations:\n")
		for _, r := range in.Recommendations {
			line := r.Title
			if r.PotentialSavings.Valid {
				line += " (potential savings: " + r.PotentialSavings.Decimal.StringFixed(2) + ")"
			}
			cmd.Printf("  [%s] %s\n", strings.ToUpper(string(r.Priority)), line)
			cmd.Printf("      %s\n", r.Description)
		}
	}
}
