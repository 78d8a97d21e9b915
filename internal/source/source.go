// Package source retrieves participant messages from a chat platform.
//
// A Source supplies, for a scope, every human-authored text message since a
// given instant, in chronological order. System notices and bot messages are
// filtered out before they reach the pipeline.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/xiaethan/sync/internal/schedule"
)

// Source fetches the messages for a scope authored at or after since.
type Source interface {
	Messages(ctx context.Context, scope string, since time.Time) ([]schedule.Message, error)
}

// Config holds chat-platform connection settings.
type Config struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
	Timeout int    `koanf:"timeout"`
}

const defaultHTTPTimeout = 15 * time.Second

// httpSource reads message history from a REST chat API.
type httpSource struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTP creates a Source backed by a chat platform's history endpoint.
func NewHTTP(cfg Config) (Source, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source base URL required")
	}
	timeout := defaultHTTPTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &httpSource{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// wireMessage is the chat platform's history entry shape.
type wireMessage struct {
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Bot        bool      `json:"bot"`
	System     bool      `json:"system"`
}

type historyResponse struct {
	Messages []wireMessage `json:"messages"`
}

func (s *httpSource) Messages(ctx context.Context, scope string, since time.Time) ([]schedule.Message, error) {
	endpoint := fmt.Sprintf("%s/v1/channels/%s/messages?after=%s",
		s.baseURL, url.PathEscape(scope), strconv.FormatInt(since.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("message fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("message fetch failed (%d): %s", resp.StatusCode, string(body))
	}

	var history historyResponse
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}

	messages := make([]schedule.Message, 0, len(history.Messages))
	for _, m := range history.Messages {
		if m.Bot || m.System {
			continue
		}
		if m.Content == "" {
			continue
		}
		if m.Timestamp.Before(since) {
			continue
		}
		messages = append(messages, schedule.Message{
			ParticipantID: m.AuthorID,
			DisplayName:   m.AuthorName,
			Text:          m.Content,
			Timestamp:     m.Timestamp,
		})
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

var _ Source = (*httpSource)(nil)
