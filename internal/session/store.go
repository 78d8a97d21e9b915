// Package session tracks availability-collection sessions.
//
// A session is the window during which one scope's messages are gathered
// and aggregated. At most one session is active per scope at a time; the
// store enforces that invariant and caches each session's latest result.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaethan/sync/internal/schedule"
)

var (
	// ErrActiveSession is returned when a scope already has an active session.
	ErrActiveSession = errors.New("session already active for scope")
	// ErrNoSession is returned when a scope has no active session.
	ErrNoSession = errors.New("no active session for scope")
)

// State classifies a session.
type State string

const (
	StateActive     State = "active"
	StateTerminated State = "terminated"
)

// Session is one scope's collection window. All fields except the
// result cache and run guard are immutable after creation.
type Session struct {
	ID        string    `json:"id"`
	Scope     string    `json:"scope"`
	Title     string    `json:"title,omitempty"`
	StartedAt time.Time `json:"started_at"`
	State     State     `json:"state"`

	mu      sync.Mutex
	result  *schedule.AggregationResult
	runGate chan struct{}
}

// SetResult replaces the session's cached aggregation result.
func (s *Session) SetResult(result schedule.AggregationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &result
}

// Result returns the latest cached result, or false if no run has
// completed yet.
func (s *Session) Result() (schedule.AggregationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return schedule.AggregationResult{}, false
	}
	return *s.result, true
}

// gate returns the session's run semaphore, creating it on first use.
func (s *Session) gate() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runGate == nil {
		s.runGate = make(chan struct{}, 1)
	}
	return s.runGate
}

// TryBeginRun marks an aggregation run as in flight. It returns false
// if a run is already executing for this session; callers that observe
// false must skip their run entirely.
func (s *Session) TryBeginRun() bool {
	select {
	case s.gate() <- struct{}{}:
		return true
	default:
		return false
	}
}

// BeginRun waits for any in-flight run to finish, then marks a new one.
func (s *Session) BeginRun(ctx context.Context) error {
	select {
	case s.gate() <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EndRun clears the in-flight marker set by TryBeginRun or BeginRun.
func (s *Session) EndRun() {
	select {
	case <-s.gate():
	default:
	}
}

// Store holds the active session per scope.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create starts a new session for scope. It fails with ErrActiveSession
// if one is already active.
func (st *Store) Create(scope, title string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[scope]; ok {
		return nil, ErrActiveSession
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Scope:     scope,
		Title:     title,
		StartedAt: time.Now().UTC(),
		State:     StateActive,
	}
	st.sessions[scope] = sess
	return sess, nil
}

// Get returns the active session for scope.
func (st *Store) Get(scope string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[scope]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Terminate removes scope's active session and returns it marked
// terminated. The scope is immediately free for a new session.
func (st *Store) Terminate(scope string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[scope]
	if !ok {
		return nil, ErrNoSession
	}
	delete(st.sessions, scope)
	sess.State = StateTerminated
	return sess, nil
}

// Each calls fn for every active session. fn must not call back into
// the store.
func (st *Store) Each(fn func(*Session)) {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	for _, sess := range sessions {
		fn(sess)
	}
}

// Count returns the number of active sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
