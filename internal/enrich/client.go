// Package enrich forwards message text to a remote analysis capability and
// normalizes its structured response. Every failure mode at this boundary —
// timeout, quota, malformed response, disabled configuration — collapses to
// ErrUnavailable; enrichment degrades metadata only, never correctness.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable signals that enrichment could not be obtained. Callers
// proceed on heuristic results alone.
var ErrUnavailable = errors.New("enrichment unavailable")

// Client defines the interface for remote analysis providers.
type Client interface {
	Analyze(ctx context.Context, body string) (AnalysisResponse, error)
}

// AnalysisResponse is the provider's structured analysis of one message.
type AnalysisResponse struct {
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory"`
	Merchant        string   `json:"merchant"`
	Method          string   `json:"method"`
	Location        string   `json:"location"`
	ReferenceNumber string   `json:"reference"`
	Insight         string   `json:"insight"`
	AnomalyFlags    []string `json:"anomaly_flags"`
	Amount          float64  `json:"amount"`
	Confidence      float64  `json:"confidence"`
}

// Config holds configuration for the enrichment adapter. The API key and
// model identifier come from the external configuration collaborator.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	RateLimit int
	Enabled   bool
}

// newClient builds the provider client for the configured backend.
func newClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported enrichment provider: %s", cfg.Provider)
	}
}
