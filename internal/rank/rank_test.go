package rank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaethan/sync/internal/schedule"
)

func testEntries() []schedule.ValidatedEntry {
	return []schedule.ValidatedEntry{
		{
			ParticipantID: "u1",
			DisplayName:   "Alice",
			Intervals:     []schedule.TimeInterval{{Start: "18:00", End: "22:00", Confidence: 0.9}},
			Status:        schedule.StatusValid,
		},
		{
			ParticipantID: "u2",
			DisplayName:   "Bob",
			Intervals:     []schedule.TimeInterval{{Start: "17:00", End: "21:00", Confidence: 0.9}},
			Status:        schedule.StatusValid,
		},
	}
}

func chatReply(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	require.NoError(t, err)
	return body
}

func TestLLMRanker_Rank(t *testing.T) {
	ranking := `{"windows":[{"start":"18:00","end":"21:00","participant_ids":["u1","u2"],"participant_names":["Alice","Bob"],"confidence":1.0}],"total_participants":2}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "u1")

		w.Write(chatReply(t, ranking))
	}))
	defer server.Close()

	ranker, err := NewLLMRanker(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := ranker.Rank(context.Background(), testEntries())
	require.NoError(t, err)
	require.Len(t, result.Windows, 1)
	assert.Equal(t, "18:00", result.Windows[0].Start)
	assert.Equal(t, "21:00", result.Windows[0].End)
	assert.Equal(t, 2, result.TotalParticipants)
}

func TestLLMRanker_MarkdownFences(t *testing.T) {
	ranking := "```json\n{\"windows\":[],\"total_participants\":0}\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, ranking))
	}))
	defer server.Close()

	ranker, err := NewLLMRanker(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := ranker.Rank(context.Background(), testEntries())
	require.NoError(t, err)
	assert.Empty(t, result.Windows)
}

func TestLLMRanker_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(chatReply(t, `{"windows":[],"total_participants":2}`))
	}))
	defer server.Close()

	ranker, err := NewLLMRanker(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	result, err := ranker.Rank(context.Background(), testEntries())
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalParticipants)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLLMRanker_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	ranker, err := NewLLMRanker(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = ranker.Rank(context.Background(), testEntries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewLLMRanker_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMRanker(Config{})
	require.Error(t, err)
}

func TestSanitize(t *testing.T) {
	deterministic := schedule.AggregationResult{
		Windows: []schedule.ConsensusWindow{{
			Start: "18:00", End: "21:00",
			ParticipantIDs:   []string{"u1", "u2"},
			ParticipantNames: []string{"Alice", "Bob"},
			Confidence:       1.0,
		}},
		TotalParticipants: 2,
	}

	t.Run("valid windows pass through", func(t *testing.T) {
		ranked := schedule.AggregationResult{
			Windows: []schedule.ConsensusWindow{{
				Start: "19:00", End: "20:00",
				ParticipantIDs:   []string{"u1", "u2"},
				ParticipantNames: []string{"Alice", "Bob"},
				Confidence:       0.8,
			}},
		}
		out := Sanitize(ranked, deterministic)
		require.Len(t, out.Windows, 1)
		assert.Equal(t, "19:00", out.Windows[0].Start)
		assert.Equal(t, 2, out.TotalParticipants)
	})

	t.Run("invalid clocks dropped", func(t *testing.T) {
		ranked := schedule.AggregationResult{
			Windows: []schedule.ConsensusWindow{
				{Start: "7pm", End: "21:00", ParticipantIDs: []string{"u1"}},
				{Start: "25:00", End: "26:00", ParticipantIDs: []string{"u1"}},
				{Start: "21:00", End: "18:00", ParticipantIDs: []string{"u1"}},
			},
		}
		out := Sanitize(ranked, deterministic)
		assert.Equal(t, deterministic, out)
	})

	t.Run("confidence clamped", func(t *testing.T) {
		ranked := schedule.AggregationResult{
			Windows: []schedule.ConsensusWindow{{
				Start: "18:00", End: "21:00",
				ParticipantIDs: []string{"u1", "u1", "u2"},
				Confidence:     1.7,
			}},
		}
		out := Sanitize(ranked, deterministic)
		require.Len(t, out.Windows, 1)
		assert.Equal(t, 1.0, out.Windows[0].Confidence)
		assert.Equal(t, []string{"u1", "u2"}, out.Windows[0].ParticipantIDs)
	})

	t.Run("empty ranking falls back to deterministic", func(t *testing.T) {
		out := Sanitize(schedule.AggregationResult{}, deterministic)
		assert.Equal(t, deterministic, out)
	})

	t.Run("empty ranking with empty deterministic stays empty", func(t *testing.T) {
		out := Sanitize(schedule.AggregationResult{}, schedule.AggregationResult{})
		assert.Empty(t, out.Windows)
		assert.NotNil(t, out.Windows)
	})

	t.Run("nameless locations dropped", func(t *testing.T) {
		ranked := schedule.AggregationResult{
			Windows: []schedule.ConsensusWindow{{
				Start: "18:00", End: "21:00", ParticipantIDs: []string{"u1", "u2"},
			}},
			Locations: []schedule.ConsensusLocation{
				{Name: "", ParticipantIDs: []string{"u1", "u2"}},
				{Name: "library", ParticipantIDs: []string{"u1", "u2"}, Confidence: 2.0},
			},
		}
		out := Sanitize(ranked, deterministic)
		require.Len(t, out.Locations, 1)
		assert.Equal(t, "library", out.Locations[0].Name)
		assert.Equal(t, 1.0, out.Locations[0].Confidence)
	})
}
