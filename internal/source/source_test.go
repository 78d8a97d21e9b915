package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Messages(t *testing.T) {
	since := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/channels/general/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.URL.Query().Get("after"))

		w.Write([]byte(`{"messages":[
			{"author_id":"u2","author_name":"Bob","content":"around 7pm works","timestamp":"2026-08-29T12:10:00Z"},
			{"author_id":"u1","author_name":"Alice","content":"free after 6pm","timestamp":"2026-08-29T12:05:00Z"},
			{"author_id":"bot1","author_name":"Reminder","content":"poll closes soon","timestamp":"2026-08-29T12:06:00Z","bot":true},
			{"author_id":"sys","author_name":"","content":"Alice joined","timestamp":"2026-08-29T12:01:00Z","system":true},
			{"author_id":"u3","author_name":"Carol","content":"late reply","timestamp":"2026-08-29T11:00:00Z"},
			{"author_id":"u4","author_name":"Dave","content":"","timestamp":"2026-08-29T12:20:00Z"}
		]}`))
	}))
	defer server.Close()

	src, err := NewHTTP(Config{BaseURL: server.URL, Token: "secret"})
	require.NoError(t, err)

	messages, err := src.Messages(context.Background(), "general", since)
	require.NoError(t, err)

	// Bot, system, empty, and pre-session messages are filtered out;
	// the rest come back in chronological order.
	require.Len(t, messages, 2)
	assert.Equal(t, "u1", messages[0].ParticipantID)
	assert.Equal(t, "free after 6pm", messages[0].Text)
	assert.Equal(t, "u2", messages[1].ParticipantID)
}

func TestHTTPSource_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	src, err := NewHTTP(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = src.Messages(context.Background(), "general", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewHTTP_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTP(Config{})
	require.Error(t, err)
}
