// Package orchestrator owns session lifecycle and drives the
// extraction, validation, and aggregation pipeline.
//
// Incoming message notifications are debounced per scope so a burst of
// chat activity triggers a single re-aggregation once the scope has
// been quiet. At most one aggregation runs at a time per session; a
// notification arriving mid-run is absorbed by the next debounce cycle.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiaethan/sync/internal/aggregate"
	"github.com/xiaethan/sync/internal/extract"
	"github.com/xiaethan/sync/internal/rank"
	"github.com/xiaethan/sync/internal/schedule"
	"github.com/xiaethan/sync/internal/session"
	"github.com/xiaethan/sync/internal/source"
	"github.com/xiaethan/sync/internal/validate"
)

// Config holds orchestrator timing settings.
type Config struct {
	DebounceSeconds int `koanf:"debounce_seconds"`
	PollSeconds     int `koanf:"poll_seconds"`
}

// DefaultConfig returns a 3s debounce with polling disabled.
func DefaultConfig() Config {
	return Config{DebounceSeconds: 3}
}

// Deps are the orchestrator's collaborators. Ranker may be nil.
type Deps struct {
	Store      *session.Store
	Source     source.Source
	Extractor  *extract.Extractor
	Validator  *validate.Validator
	Aggregator *aggregate.Aggregator
	Ranker     rank.Ranker
}

// Orchestrator coordinates sessions, message retrieval, and the
// aggregation pipeline.
type Orchestrator struct {
	cfg       Config
	store     *session.Store
	source    source.Source
	extractor *extract.Extractor
	validator *validate.Validator
	aggregate *aggregate.Aggregator
	ranker    rank.Ranker
	debouncer *session.Debouncer
	logger    *zap.Logger

	done chan struct{}
}

// New creates an Orchestrator from its collaborators.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Orchestrator, error) {
	if deps.Store == nil || deps.Source == nil || deps.Extractor == nil ||
		deps.Validator == nil || deps.Aggregator == nil {
		return nil, fmt.Errorf("missing orchestrator dependency")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DebounceSeconds <= 0 {
		cfg.DebounceSeconds = DefaultConfig().DebounceSeconds
	}

	o := &Orchestrator{
		cfg:       cfg,
		store:     deps.Store,
		source:    deps.Source,
		extractor: deps.Extractor,
		validator: deps.Validator,
		aggregate: deps.Aggregator,
		ranker:    deps.Ranker,
		debouncer: session.NewDebouncer(time.Duration(cfg.DebounceSeconds) * time.Second),
		logger:    logger,
		done:      make(chan struct{}),
	}
	if cfg.PollSeconds > 0 {
		go o.pollLoop(time.Duration(cfg.PollSeconds) * time.Second)
	}
	return o, nil
}

// Close stops the poll loop and drops pending debounced runs.
func (o *Orchestrator) Close() {
	close(o.done)
	o.debouncer.Stop()
}

// Start opens a new session for scope. It fails if one is already
// active there.
func (o *Orchestrator) Start(scope, title string) (*session.Session, error) {
	sess, err := o.store.Create(scope, title)
	if err != nil {
		return nil, err
	}

	activeSessions.Inc()
	o.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("scope", scope))
	return sess, nil
}

// Status describes the active session for scope.
type Status struct {
	SessionID  string                      `json:"session_id"`
	Scope      string                      `json:"scope"`
	Title      string                      `json:"title,omitempty"`
	StartedAt  time.Time                   `json:"started_at"`
	Collecting bool                        `json:"collecting"`
	Result     *schedule.AggregationResult `json:"result,omitempty"`
}

// Status returns the latest result for scope's active session, or a
// still-collecting marker when no run has completed yet.
func (o *Orchestrator) Status(scope string) (Status, error) {
	sess, err := o.store.Get(scope)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		SessionID: sess.ID,
		Scope:     sess.Scope,
		Title:     sess.Title,
		StartedAt: sess.StartedAt,
	}
	if result, ok := sess.Result(); ok {
		st.Result = &result
	} else {
		st.Collecting = true
	}
	return st, nil
}

// FinalResult is a stopped session's outcome. Completed is false when no
// aggregation ever finished for the session, which is distinct from a
// completed run that found no consensus.
type FinalResult struct {
	Result    schedule.AggregationResult `json:"result"`
	Completed bool                       `json:"completed"`
}

// Stop terminates scope's session after one final aggregation and
// returns the final result. A debounced or polled run already in flight
// is waited out first so the final pass sees every message.
func (o *Orchestrator) Stop(ctx context.Context, scope string) (FinalResult, error) {
	sess, err := o.store.Get(scope)
	if err != nil {
		return FinalResult{}, err
	}

	o.debouncer.Cancel(scope)
	if err := sess.BeginRun(ctx); err != nil {
		o.logger.Warn("gave up waiting for in-flight aggregation",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	} else {
		err := o.aggregateOnce(ctx, sess)
		sess.EndRun()
		if err != nil {
			o.logger.Warn("final aggregation failed, returning last known result",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		}
	}

	if _, err := o.store.Terminate(scope); err != nil {
		return FinalResult{}, err
	}
	activeSessions.Dec()
	o.logger.Info("session stopped", zap.String("session_id", sess.ID))

	result, ok := sess.Result()
	return FinalResult{Result: result, Completed: ok}, nil
}

// Notify records chat activity for scope and schedules a debounced
// re-aggregation. Unknown scopes are ignored.
func (o *Orchestrator) Notify(scope string) {
	sess, err := o.store.Get(scope)
	if err != nil {
		return
	}

	o.debouncer.Schedule(scope, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := o.runAggregation(ctx, sess); err != nil {
			o.logger.Warn("aggregation run failed",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		}
	})
}

func (o *Orchestrator) pollLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			o.store.Each(func(sess *session.Session) {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := o.runAggregation(ctx, sess); err != nil {
					o.logger.Warn("poll aggregation failed",
						zap.String("session_id", sess.ID),
						zap.Error(err))
				}
				cancel()
			})
		}
	}
}

// runAggregation executes one pipeline pass for sess, skipping it
// entirely when another run is already in flight.
func (o *Orchestrator) runAggregation(ctx context.Context, sess *session.Session) error {
	if !sess.TryBeginRun() {
		o.logger.Debug("aggregation already in flight",
			zap.String("session_id", sess.ID))
		return nil
	}
	defer sess.EndRun()

	return o.aggregateOnce(ctx, sess)
}

// aggregateOnce runs the pipeline for sess. The caller must hold the
// session's run guard. A failure leaves the previous result untouched.
func (o *Orchestrator) aggregateOnce(ctx context.Context, sess *session.Session) error {
	messages, err := o.source.Messages(ctx, sess.Scope, sess.StartedAt)
	if err != nil {
		aggregationRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	entries := make([]schedule.ParticipantEntry, 0, len(messages))
	for _, msg := range messages {
		extracted := o.extractor.Extract(msg.Text)
		if len(extracted.Intervals) == 0 && len(extracted.Locations) == 0 {
			continue
		}
		entries = append(entries, schedule.ParticipantEntry{
			ParticipantID: msg.ParticipantID,
			DisplayName:   msg.DisplayName,
			RawText:       msg.Text,
			Intervals:     schedule.Merge(extracted.Intervals),
			Locations:     extracted.Locations,
		})
	}

	outcome := o.validator.Validate(entries)
	for _, flagged := range outcome.Flagged {
		o.logger.Debug("entry flagged",
			zap.String("participant_id", flagged.ParticipantID),
			zap.Strings("flags", flagged.Flags))
	}

	result := o.aggregate.Aggregate(outcome.Validated)

	if o.ranker != nil && o.ranker.Available() {
		ranked, err := o.ranker.Rank(ctx, outcome.Validated)
		if err != nil {
			o.logger.Warn("ranking failed, using deterministic result",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		} else {
			result = rank.Sanitize(ranked, result)
		}
	}

	sess.SetResult(result)
	aggregationRuns.WithLabelValues("ok").Inc()
	o.logger.Info("aggregation complete",
		zap.String("session_id", sess.ID),
		zap.Int("messages", len(messages)),
		zap.Int("validated", len(outcome.Validated)),
		zap.Int("windows", len(result.Windows)))
	return nil
}
