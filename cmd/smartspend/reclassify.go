package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/harishnv/smartspend/internal/engine"
)

func reclassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify",
		Short: "Re-run direction classification over stored transactions",
		Long: `Re-apply the direction classifier to the original text of every
stored transaction and repair any direction that now classifies
differently. Useful after classifier keyword updates. No other
transaction fields are touched.`,
		RunE: runReclassify,
	}
}

func runReclassify(cmd *cobra.Command, _ []string) error {
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

	registry, err := loadRegistry(ctx, store)
	if err != nil {
		return err
	}

	eng := engine.New(store, registry, nil, engine.Config{})
	updated, err := eng.Reclassify(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Reclassification complete: %d transaction(s) updated\n", updated)
	return nil
}
