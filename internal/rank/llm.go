package rank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaethan/sync/internal/schedule"
)

// Default configuration values.
const (
	defaultBaseURL    = "https://api.openai.com"
	defaultModel      = "gpt-4o-mini"
	defaultMaxTokens  = 1024
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 1 * time.Second
)

// Rate limiter defaults: 30 requests per minute with small bursts.
const (
	defaultRateLimit = 30.0 / 60.0
	defaultBurst     = 5
)

// llmRanker implements Ranker against an OpenAI-compatible chat API.
type llmRanker struct {
	model      string
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewLLMRanker creates a ranking client for an OpenAI-compatible endpoint.
func NewLLMRanker(cfg Config) (Ranker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ranking API key required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &llmRanker{
		model:      model,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
	}, nil
}

// rankPrompt is the system prompt for consensus ranking.
const rankPrompt = `You rank overlapping availability windows for a group of people.

You receive a JSON list of validated participant entries, each with time
intervals in 24-hour HH:MM form and optional location mentions.

Respond with a JSON object:
- "windows": up to 3 objects with "start", "end" (HH:MM), "participant_ids",
  "participant_names" (parallel arrays), and "confidence" (0.0 to 1.0, the
  fraction of participants covered), best window first
- "locations": optional array of {"name", "participant_ids", "confidence"}
  for locations mentioned by two or more participants
- "total_participants": the number of entries' distinct participants

Only report windows where two or more participants genuinely overlap.
Respond ONLY with the JSON object, no additional text.`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Rank asks the LLM backend for a ranking of the validated entries.
func (r *llmRanker) Rank(ctx context.Context, entries []schedule.ValidatedEntry) (schedule.AggregationResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("failed to marshal entries: %w", err)
	}

	req := chatRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: rankPrompt},
			{Role: "user", Content: string(payload)},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return schedule.AggregationResult{}, ctx.Err()
			}
		}

		result, err := r.doRequest(ctx, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return schedule.AggregationResult{}, err
		}
	}
	return schedule.AggregationResult{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (r *llmRanker) doRequest(ctx context.Context, req chatRequest) (schedule.AggregationResult, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return schedule.AggregationResult{}, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return schedule.AggregationResult{}, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return schedule.AggregationResult{}, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp chatError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return schedule.AggregationResult{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return schedule.AggregationResult{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return schedule.AggregationResult{}, fmt.Errorf("empty response from API")
	}

	return parseRankingJSON(chatResp.Choices[0].Message.Content)
}

// Available returns true if the ranker is configured.
func (r *llmRanker) Available() bool {
	return r.apiKey != ""
}

// parseRankingJSON parses the LLM response body into an AggregationResult.
// LLMs sometimes wrap JSON in markdown code fences; those are stripped.
func parseRankingJSON(content string) (schedule.AggregationResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result schedule.AggregationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return schedule.AggregationResult{}, fmt.Errorf("non-JSON ranking response: %w", err)
	}
	return result, nil
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

var _ Ranker = (*llmRanker)(nil)
