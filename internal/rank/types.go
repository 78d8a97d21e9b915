// Package rank provides an optional LLM-backed ranking collaborator for
// consensus windows. Its output is untrusted: callers sanitize it against
// the deterministic aggregator's result and fall back to that result
// whenever the collaborator fails or returns nothing usable.
package rank

import (
	"context"

	"github.com/xiaethan/sync/internal/schedule"
)

// Ranker produces an AggregationResult-shaped ranking for validated
// entries.
type Ranker interface {
	// Rank asks the backend to rank consensus windows for the entries.
	Rank(ctx context.Context, entries []schedule.ValidatedEntry) (schedule.AggregationResult, error)

	// Available returns true if the ranker is configured and ready.
	Available() bool
}

// Config holds ranking backend configuration.
type Config struct {
	Enabled   bool   `koanf:"enabled"`
	Model     string `koanf:"model"`
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	MaxTokens int    `koanf:"max_tokens"`
	Timeout   int    `koanf:"timeout"` // seconds
}
