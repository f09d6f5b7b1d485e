package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harishnv/smartspend/internal/engine"
	"github.com/harishnv/smartspend/internal/model"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Ingest bank messages from an inbox dump",
		Long: `Read a JSON inbox dump, parse each bank notification with the
registered bank patterns, classify direction, optionally enrich via the
configured analysis provider, and persist new transactions.

Re-scanning the same dump is safe: messages already ingested are skipped.

Examples:
  smartspend scan --input inbox.json
  smartspend scan --input inbox.json --workers 10`,
		RunE: runScan,
	}

	cmd.Flags().StringP("input", "i", "", "path to the JSON inbox dump (required)")
	cmd.Flags().Int("workers", 5, "concurrent message workers")
	_ = cmd.MarkFlagRequired("input")

	_ = viper.BindPFlag("scan.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

// inboxMessage is the wire shape of one message in the inbox dump.
type inboxMessage struct {
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	inputPath, _ := cmd.Flags().GetString("input")

	messages, err := readInbox(inputPath)
	if err != nil {
		return err
	}
	slog.Info("Loaded inbox dump", "path", inputPath, "messages", len(messages))

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

	enricher, err := newEnricher(slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = enricher.Close() }()

	bar := progressbar.NewOptions(len(messages),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning messages..."),
	)

	eng := engine.New(store, registry, enricher, engine.Config{
		UserID:               viper.GetString("user.id"),
		MaxEnrichmentWorkers: viper.GetInt("scan.workers"),
		ProgressFunc: func(done, _ int) {
			_ = bar.Set(done)
		},
	})

	stats, err := eng.Ingest(ctx, messages)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	cmd.Printf("Scan complete in %s\n", stats.Duration.Round(time.Millisecond))
	cmd.Printf("  processed:     %d\n", stats.Processed)
	cmd.Printf("  created:       %d\n", stats.Created)
	cmd.Printf("  duplicates:    %d\n", stats.Duplicates)
	cmd.Printf("  unrecognized:  %d\n", stats.Unrecognized)
	if stats.Skipped > 0 {
		cmd.Printf("  skipped:       %d\n", stats.Skipped)
	}
	if enricher.Enabled() {
		cmd.Printf("  enriched:      %d (%d failed)\n", stats.EnrichmentSucceeded, stats.EnrichmentFailures)
	}

	return nil
}

// readInbox loads and decodes the inbox dump file.
func readInbox(path string) ([]model.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox dump: %w", err)
	}

	var raw []inboxMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse inbox dump: %w", err)
	}

	messages := make([]model.RawMessage, 0, len(raw))
	for _, m := range raw {
		messages = append(messages, model.RawMessage{
			Sender:     m.Sender,
			Body:       m.Body,
			ReceivedAt: m.ReceivedAt,
		})
	}
	return messages, nil
}
