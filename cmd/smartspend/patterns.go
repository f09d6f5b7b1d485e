package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harishnv/smartspend/internal/pattern"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage registered bank patterns",
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsSeedCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered bank patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("Failed to close database", "error", closeErr)
				}
			}()

			patterns, err := store.GetBankPatterns(ctx)
			if err != nil {
				return err
			}

			if len(patterns) == 0 {
				cmd.Println("No bank patterns registered. Run 'smartspend patterns seed' or 'smartspend scan'.")
				return nil
			}

			for _, p := range patterns {
				cmd.Printf("%-10s sender=%s\n", p.Name, p.SenderMatch)
				cmd.Printf("           debit=[%s] credit=[%s]\n",
					strings.Join(p.DebitKeywords, ", "), strings.Join(p.CreditKeywords, ", "))
			}
			cmd.Printf("\n%d pattern(s)\n", len(patterns))
			return nil
		},
	}
}

func patternsSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Register or refresh the built-in bank patterns",
		Long: `Upsert the built-in bank pattern set into the database. Existing
patterns with the same name are overwritten; custom patterns under
other names are untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("Failed to close database", "error", closeErr)
				}
			}()

			patterns := pattern.DefaultPatterns()
			for i := range patterns {
				if err := store.SaveBankPattern(ctx, &patterns[i]); err != nil {
					return err
				}
			}

			cmd.Printf("Seeded %d bank pattern(s)\n", len(patterns))
			return nil
		},
	}
}
