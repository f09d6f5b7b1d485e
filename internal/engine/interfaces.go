package engine

import (
	"context"

	"github.com/harishnv/smartspend/internal/model"
)

// Enricher defines the contract for the optional remote analysis step.
// Implementations must never fail with anything other than an
// unavailability error; the engine treats any error as "proceed without
// enrichment".
type Enricher interface {
	Enabled() bool
	Analyze(ctx context.Context, body string) (*model.Enrichment, error)
}

// PatternFinder resolves bank patterns: by message sender at ingest time,
// and by stored bank name when reclassifying. Both return nil when the bank
// is unregistered.
type PatternFinder interface {
	Find(sender string) *model.BankPattern
	FindByName(name string) *model.BankPattern
}
