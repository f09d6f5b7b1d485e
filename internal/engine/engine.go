// Package engine implements the ingestion orchestrator that turns raw bank
// messages into deduplicated, classified transactions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/harishnv/smartspend/internal/classify"
	"github.com/harishnv/smartspend/internal/common"
	"github.com/harishnv/smartspend/internal/extract"
	"github.com/harishnv/smartspend/internal/model"
	"github.com/harishnv/smartspend/internal/service"
)

// Config holds configuration options for the ingestion engine.
type Config struct {
	// ProgressFunc, when set, is called after each message finishes its
	// pure processing phase.
	ProgressFunc func(done, total int)
	UserID       string
	// MaxEnrichmentWorkers bounds concurrent enrichment calls.
	MaxEnrichmentWorkers int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{MaxEnrichmentWorkers: 5}
}

// Engine orchestrates ingestion: pattern lookup, field extraction, direction
// classification, optional enrichment, dedup and a single batched write.
type Engine struct {
	storage   service.Storage
	patterns  PatternFinder
	extractor *extract.Extractor
	enricher  Enricher
	config    Config
	running   atomic.Bool
}

// New creates an ingestion engine. The enricher may be nil when enrichment
// is not configured at all.
func New(storage service.Storage, patterns PatternFinder, enricher Enricher, config Config) *Engine {
	if config.MaxEnrichmentWorkers <= 0 {
		config.MaxEnrichmentWorkers = DefaultConfig().MaxEnrichmentWorkers
	}
	return &Engine{
		storage:   storage,
		patterns:  patterns,
		extractor: extract.New(),
		enricher:  enricher,
		config:    config,
	}
}

// processed is the per-message outcome of the pure pipeline phases.
type processed struct {
	txn        *model.Transaction
	dedupKey   string
	unmatched  bool
	enriched   bool
	enrichFail bool
}

// Ingest runs one ingestion pass over the raw inbox. Runs are serialized per
// engine: a second trigger while one is active fails with
// common.ErrIngestionActive rather than interleaving, which keeps the dedup
// check race-free. The final persistence write is one atomic batch.
func (e *Engine) Ingest(ctx context.Context, messages []model.RawMessage) (service.RunStats, error) {
	var stats service.RunStats

	if !e.running.CompareAndSwap(false, true) {
		return stats, common.ErrIngestionActive
	}
	defer e.running.Store(false)

	start := time.Now()
	stats.Processed = len(messages)

	if len(messages) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	existing, err := e.storage.GetExistingDedupKeys(ctx)
	if err != nil {
		stats.Duration = time.Since(start)
		return stats, common.NewUserError("could not read existing transactions", err)
	}

	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		stats.Duration = time.Since(start)
		return stats, common.NewUserError("could not read categories", err)
	}
	known := make(map[string]string, len(categories))
	for _, cat := range categories {
		known[strings.ToLower(cat.Name)] = cat.Name
	}

	results := e.processAll(ctx, messages, existing)

	// Sequential assembly: in-batch duplicates resolve first-wins, so the
	// outcome does not depend on worker scheduling.
	seen := make(map[string]struct{}, len(results))
	batch := make([]model.Transaction, 0, len(results))
	for _, r := range results {
		if r.txn == nil {
			// An empty dedup key means the worker never ran (cancellation
			// before it started), not a duplicate.
			if r.dedupKey == "" {
				stats.Skipped++
				continue
			}
			stats.Duplicates++
			continue
		}
		if _, dup := seen[r.dedupKey]; dup {
			stats.Duplicates++
			continue
		}
		seen[r.dedupKey] = struct{}{}

		if r.unmatched {
			stats.Unrecognized++
		}
		if r.enriched {
			stats.EnrichmentSucceeded++
		}
		if r.enrichFail {
			stats.EnrichmentFailures++
		}

		r.txn.Category = resolveCategory(r.txn, known)
		batch = append(batch, *r.txn)
	}

	// A canceled run persists nothing; partial results would make the run
	// stats and the store disagree about what was ingested.
	if err := ctx.Err(); err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	if len(batch) > 0 {
		if err := e.storage.SaveTransactions(ctx, batch); err != nil {
			// All-or-nothing: the failed run reports zero new transactions.
			stats.Duration = time.Since(start)
			return stats, common.NewUserError("could not save transactions", err)
		}
		stats.Created = len(batch)
	}

	stats.Duration = time.Since(start)
	slog.Info("Ingestion run complete",
		"processed", stats.Processed,
		"created", stats.Created,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
		"unrecognized", stats.Unrecognized,
		"enrichment_failures", stats.EnrichmentFailures,
		"duration", stats.Duration)

	return stats, nil
}

// processAll runs the pure per-message phases concurrently with a bounded
// worker pool. Results are matched back by index, not arrival order.
func (e *Engine) processAll(ctx context.Context, messages []model.RawMessage, existing map[string]struct{}) []processed {
	results := make([]processed, len(messages))
	sem := make(chan struct{}, e.config.MaxEnrichmentWorkers)
	var wg sync.WaitGroup
	var done atomic.Int64

	for i, msg := range messages {
		wg.Add(1)
		go func(idx int, message model.RawMessage) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			results[idx] = e.processOne(ctx, message, existing)

			if e.config.ProgressFunc != nil {
				e.config.ProgressFunc(int(done.Add(1)), len(messages))
			}
		}(i, msg)
	}

	wg.Wait()
	return results
}

// processOne executes steps 1-5 of the per-message algorithm: pattern
// lookup, extraction, classification, enrichment and the dedup pre-check.
func (e *Engine) processOne(ctx context.Context, msg model.RawMessage, existing map[string]struct{}) processed {
	key := msg.DedupKey()
	if _, dup := existing[key]; dup {
		return processed{dedupKey: key}
	}

	bankPattern := e.patterns.Find(msg.Sender)
	fields := e.extractor.Fields(msg.Body, bankPattern)

	txn := &model.Transaction{
		ID:        uuid.NewString(),
		UserID:    e.config.UserID,
		DedupKey:  key,
		Direction: e.classifyDirection(msg.Body, bankPattern),
		Date:      msg.ReceivedAt,
		RawText:   msg.Body,
		Account:   fields.Account,
		Merchant:  fields.Merchant,
	}
	if bankPattern != nil {
		txn.BankName = bankPattern.Name
	}
	if fields.Amount.Valid {
		txn.Amount = fields.Amount.Decimal
	}

	out := processed{txn: txn, dedupKey: key, unmatched: bankPattern == nil}

	if e.enricher != nil && e.enricher.Enabled() {
		enrichment, err := e.enricher.Analyze(ctx, msg.Body)
		if err != nil {
			// Unavailability is non-fatal; the heuristic result stands.
			out.enrichFail = true
		} else {
			out.enriched = true
			txn.Enrichment = enrichment
			mergeEnrichment(txn, enrichment)
		}
	}

	return out
}

// classifyDirection resolves direction for a message body. Classification
// always sees the full text; a known bank pattern contributes its extra
// directional keywords. Both ingest and reclassify go through here so the
// two paths can never disagree about the same text.
func (e *Engine) classifyDirection(body string, bankPattern *model.BankPattern) model.Direction {
	if bankPattern != nil {
		return classify.ClassifyWith(body, bankPattern.DebitKeywords, bankPattern.CreditKeywords).Direction
	}
	return classify.Direction(body)
}

// mergeEnrichment applies enrichment overrides. Amount and merchant override
// heuristic extraction whenever present and numerically sane; direction is
// never overridden. Enrichment supplies categorization and metadata, not
// direction authority.
func mergeEnrichment(txn *model.Transaction, e *model.Enrichment) {
	if e == nil {
		return
	}
	if e.Amount.Valid && e.Amount.Decimal.IsPositive() {
		txn.Amount = e.Amount.Decimal
	}
	if e.Merchant != "" {
		txn.Merchant = e.Merchant
	}
}

// resolveCategory maps the enrichment category onto the registered category
// set; anything unknown lands in "Other", a valid terminal state.
func resolveCategory(txn *model.Transaction, known map[string]string) string {
	if txn.Enrichment != nil && txn.Enrichment.Category != "" {
		if name, ok := known[strings.ToLower(txn.Enrichment.Category)]; ok {
			return name
		}
	}
	return model.CategoryOther
}

// Reclassify re-runs direction classification against each stored
// transaction's original text and repairs the direction in place where it
// differs. Classification is identical to the ingest path: when the stored
// bank name resolves to a registered pattern, that pattern's directional
// keywords participate, so a correctly stored record is never flipped. No
// other field changes. Returns the number of updated records.
func (e *Engine) Reclassify(ctx context.Context) (int, error) {
	if !e.running.CompareAndSwap(false, true) {
		return 0, common.ErrIngestionActive
	}
	defer e.running.Store(false)

	transactions, err := e.storage.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return 0, common.NewUserError("could not read transactions", err)
	}

	updated := 0
	for _, txn := range transactions {
		if txn.RawText == "" {
			continue
		}

		direction := e.classifyDirection(txn.RawText, e.patterns.FindByName(txn.BankName))
		if direction == txn.Direction {
			continue
		}

		if err := e.storage.UpdateTransactionDirection(ctx, txn.ID, direction); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return updated, fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
		}

		slog.Debug("reclassified transaction",
			"transaction_id", txn.ID,
			"from", txn.Direction,
			"to", direction)
		updated++
	}

	return updated, nil
}
