package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiaethan/sync/internal/orchestrator"
	"github.com/xiaethan/sync/internal/schedule"
	"github.com/xiaethan/sync/internal/session"
)

// fakeScheduler is a canned Scheduler implementation.
type fakeScheduler struct {
	sessions map[string]*session.Session
	statuses map[string]orchestrator.Status
	notified []string
	stopped  orchestrator.FinalResult
}

func (f *fakeScheduler) Start(scope, title string) (*session.Session, error) {
	if _, ok := f.sessions[scope]; ok {
		return nil, session.ErrActiveSession
	}
	sess := &session.Session{ID: "sess-1", Scope: scope, Title: title, State: session.StateActive}
	f.sessions[scope] = sess
	return sess, nil
}

func (f *fakeScheduler) Status(scope string) (orchestrator.Status, error) {
	st, ok := f.statuses[scope]
	if !ok {
		return orchestrator.Status{}, session.ErrNoSession
	}
	return st, nil
}

func (f *fakeScheduler) Stop(ctx context.Context, scope string) (orchestrator.FinalResult, error) {
	if _, ok := f.statuses[scope]; !ok {
		return orchestrator.FinalResult{}, session.ErrNoSession
	}
	return f.stopped, nil
}

func (f *fakeScheduler) Notify(scope string) {
	f.notified = append(f.notified, scope)
}

func newTestServer(t *testing.T, sched *fakeScheduler) *Server {
	t.Helper()
	s, err := NewServer(sched, zap.NewNop(), nil)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, &fakeScheduler{sessions: map[string]*session.Session{}, statuses: map[string]orchestrator.Status{}})

	rec := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, &fakeScheduler{sessions: map[string]*session.Session{}, statuses: map[string]orchestrator.Status{}})

	rec := do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StartSession(t *testing.T) {
	sched := &fakeScheduler{sessions: map[string]*session.Session{}, statuses: map[string]orchestrator.Status{}}
	s := newTestServer(t, sched)

	rec := do(s, http.MethodPost, "/api/v1/sessions", `{"scope":"general","title":"friday"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "sess-1")

	// Second start for the same scope conflicts.
	rec = do(s, http.MethodPost, "/api/v1/sessions", `{"scope":"general"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Missing scope is a bad request.
	rec = do(s, http.MethodPost, "/api/v1/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Status(t *testing.T) {
	sched := &fakeScheduler{
		sessions: map[string]*session.Session{},
		statuses: map[string]orchestrator.Status{
			"general": {SessionID: "sess-1", Scope: "general", Collecting: true},
		},
	}
	s := newTestServer(t, sched)

	rec := do(s, http.MethodGet, "/api/v1/sessions/general", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"collecting":true`)

	rec = do(s, http.MethodGet, "/api/v1/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StopAndNotify(t *testing.T) {
	sched := &fakeScheduler{
		sessions: map[string]*session.Session{},
		statuses: map[string]orchestrator.Status{"general": {SessionID: "sess-1"}},
		stopped: orchestrator.FinalResult{
			Result: schedule.AggregationResult{
				Windows: []schedule.ConsensusWindow{{
					Start: "18:00", End: "21:00",
					ParticipantIDs:   []string{"u1", "u2"},
					ParticipantNames: []string{"Alice", "Bob"},
					Confidence:       1.0,
				}},
				TotalParticipants: 2,
			},
			Completed: true,
		},
	}
	s := newTestServer(t, sched)

	rec := do(s, http.MethodPost, "/api/v1/sessions/general/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"18:00"`)
	assert.Contains(t, rec.Body.String(), `"completed":true`)

	rec = do(s, http.MethodPost, "/api/v1/sessions/general/notify", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"general"}, sched.notified)

	rec = do(s, http.MethodPost, "/api/v1/sessions/unknown/stop", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Export(t *testing.T) {
	result := schedule.AggregationResult{
		Windows: []schedule.ConsensusWindow{{
			Start: "18:00", End: "21:00",
			ParticipantIDs:   []string{"u1", "u2"},
			ParticipantNames: []string{"Alice", "Bob"},
			Confidence:       1.0,
		}},
		TotalParticipants: 2,
	}
	sched := &fakeScheduler{
		sessions: map[string]*session.Session{},
		statuses: map[string]orchestrator.Status{
			"general":    {SessionID: "sess-1", Title: "Friday plans", Result: &result},
			"collecting": {SessionID: "sess-2", Collecting: true},
		},
	}
	s := newTestServer(t, sched)

	rec := do(s, http.MethodGet, "/api/v1/sessions/general/export?date=2026-09-04", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "DTSTART:20260904T180000Z")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Friday plans")

	// No result yet: nothing to export.
	rec = do(s, http.MethodGet, "/api/v1/sessions/collecting/export", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/sessions/general/export?date=next-friday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
