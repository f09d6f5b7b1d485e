package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harishnv/smartspend/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "Inspect or clear stored transactions",
	}

	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsClearCmd())

	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored transactions",
		Long: `List stored transactions in chronological order.

Examples:
  smartspend transactions list
  smartspend transactions list --category Food --limit 20
  smartspend transactions list --from 2026-03-01 --to 2026-03-31`,
		RunE: runTransactionsList,
	}

	cmd.Flags().String("category", "", "filter by category")
	cmd.Flags().Int("limit", 0, "maximum rows (0 = no limit)")
	cmd.Flags().String("from", "", "window start (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("to", "", "window end (YYYY-MM-DD, inclusive)")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
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

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{
		StartDate: start,
		EndDate:   end,
		Category:  category,
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	if len(transactions) == 0 {
		cmd.Println("No transactions found.")
		return nil
	}

	for _, txn := range transactions {
		merchant := txn.Merchant
		if merchant == "" {
			merchant = "-"
		}
		cmd.Printf("%s  %s%10s  %-12s %-20s %s\n",
			txn.Date.Format("2006-01-02"),
			directionSign(txn.Direction),
			txn.Amount.StringFixed(2),
			txn.BankName,
			txn.Category,
			merchant)
	}
	cmd.Printf("\n%d transaction(s)\n", len(transactions))

	return nil
}

func transactionsClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored transactions",
		Long: `Delete every stored transaction. Categories and bank patterns
are kept. This cannot be undone; a re-scan of the original inbox
dump rebuilds the history.`,
		RunE: runTransactionsClear,
	}

	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	return cmd
}

func runTransactionsClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	count, err := store.GetTransactionCount(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		cmd.Println("Nothing to delete.")
		return nil
	}

	if !yes {
		cmd.Printf("Delete all %d transaction(s)? [y/N]: ", count)
		reader := bufio.NewReader(os.Stdin)
		answer, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("failed to read confirmation: %w", readErr)
		}
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			cmd.Println("Aborted.")
			return nil
		}
	}

	deleted, err := store.DeleteAllTransactions(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Deleted %d transaction(s)\n", deleted)
	return nil
}
