package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/avast/retry-go"
	"github.com/shopspring/decimal"

	"github.com/harishnv/smartspend/internal/model"
)

// Analyzer is the enrichment adapter. It wraps a provider client with rate
// limiting, a per-call timeout and a short transient-failure retry, and
// normalizes the provider's response into a model.Enrichment.
type Analyzer struct {
	client  Client
	limiter *rateLimiter
	logger  *slog.Logger
	timeout time.Duration
}

// NewAnalyzer builds an analyzer for the configured provider. With
// enrichment disabled, the analyzer is still valid: every Analyze call
// reports ErrUnavailable and ingestion proceeds on heuristics alone.
func NewAnalyzer(cfg Config, logger *slog.Logger) (*Analyzer, error) {
	a := &Analyzer{
		logger:  logger,
		timeout: cfg.Timeout,
	}
	if a.timeout <= 0 {
		a.timeout = 10 * time.Second
	}

	if !cfg.Enabled {
		return a, nil
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment client: %w", err)
	}

	a.client = client
	a.limiter = newRateLimiter(cfg.RateLimit)
	return a, nil
}

// Enabled reports whether a provider is configured.
func (a *Analyzer) Enabled() bool {
	return a.client != nil
}

// Analyze submits message text for remote analysis. It never blocks beyond
// the configured timeout and never returns an error other than one wrapping
// ErrUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, body string) (*model.Enrichment, error) {
	if a.client == nil {
		return nil, fmt.Errorf("%w: disabled by configuration", ErrUnavailable)
	}

	if err := a.limiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var resp AnalysisResponse
	err := retry.Do(
		func() error {
			var callErr error
			resp, callErr = a.client.Analyze(callCtx, body)
			return callErr
		},
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.Context(callCtx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		a.logger.Debug("enrichment call failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return normalize(resp), nil
}

// Close releases the rate limiter's background goroutine.
func (a *Analyzer) Close() error {
	if a.limiter != nil {
		a.limiter.Close()
	}
	return nil
}

// normalize converts a provider response into the domain enrichment shape,
// discarding numerically insane values instead of propagating them.
func normalize(resp AnalysisResponse) *model.Enrichment {
	e := &model.Enrichment{
		Category:        resp.Category,
		Subcategory:     resp.Subcategory,
		Merchant:        resp.Merchant,
		Method:          resp.Method,
		Location:        resp.Location,
		ReferenceNumber: resp.ReferenceNumber,
		Insight:         resp.Insight,
		AnomalyFlags:    resp.AnomalyFlags,
		Confidence:      clamp01(resp.Confidence),
	}

	if resp.Amount > 0 && !math.IsNaN(resp.Amount) && !math.IsInf(resp.Amount, 0) {
		e.Amount = decimal.NullDecimal{Decimal: decimal.NewFromFloat(resp.Amount), Valid: true}
	}

	return e
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
