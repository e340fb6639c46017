package stopwatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// DefaultAutoFlushMinimum is the smallest unflushed delta an autoflush
// will submit.
const DefaultAutoFlushMinimum = 30 * time.Second

// Timer is the study stopwatch state machine. It is not safe for concurrent
// use; Loop serializes every call onto one goroutine.
type Timer struct {
	state    domain.TimerState
	store    StateStore
	sink     Sink
	clock    Clock
	log      *slog.Logger
	newID    func() string
	minFlush int64
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(t *Timer) { t.clock = c }
}

// WithLogger sets the logger used for persistence and flush events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) { t.log = l }
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(t *Timer) { t.newID = fn }
}

// WithAutoFlushMinimum sets how much unsaved time AutoFlush waits for.
func WithAutoFlushMinimum(d time.Duration) Option {
	return func(t *Timer) { t.minFlush = int64(d / time.Second) }
}

// NewTimer returns an idle timer. Call Load before any other operation.
func NewTimer(store StateStore, sink Sink, opts ...Option) *Timer {
	t := &Timer{
		store:    store,
		sink:     sink,
		clock:    SystemClock{},
		log:      slog.Default(),
		newID:    uuid.NewString,
		minFlush: int64(DefaultAutoFlushMinimum / time.Second),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoadResult describes what startup reconciliation did.
type LoadResult struct {
	// Recovered is the record submitted for an interrupted run, if any.
	Recovered *domain.StudySession
	// RestoredSeconds is the paused elapsed value restored into memory.
	RestoredSeconds int64
	// Interrupted is set when a running shadow was found, even if it was
	// too short to produce a record.
	Interrupted bool
}

// Load reconciles the persisted shadow with a fresh process. An interrupted
// run is converted into one record spanning [start, now) and the shadow is
// cleared whatever happens to that record. A paused shadow is restored as
// unflushed elapsed time.
func (t *Timer) Load(ctx context.Context) LoadResult {
	var res LoadResult
	t.state = domain.TimerState{}

	sh, err := ReadShadow(ctx, t.store)
	if err != nil {
		t.log.Warn("reading timer state", "error", err)
	}

	switch {
	case sh.Interrupted():
		res.Interrupted = true
		now := t.clock.Now().UTC()
		recovered := domain.TimerState{StartedAt: &sh.StartedAt}.ElapsedAt(now)
		if recovered > 0 {
			rec := domain.StudySession{
				ID:              t.newID(),
				StartTime:       sh.StartedAt,
				EndTime:         &now,
				DurationSeconds: recovered,
			}
			t.sink.Send(rec)
			res.Recovered = &rec
			t.log.Info("recovered interrupted session",
				"session_id", rec.ID, "duration_seconds", recovered)
		}
		if err := ClearShadow(ctx, t.store); err != nil {
			t.log.Warn("clearing recovered timer state", "error", err)
		}
	case sh.HasElapsed:
		t.state.ElapsedSeconds = sh.Elapsed
		res.RestoredSeconds = sh.Elapsed
		t.log.Debug("restored paused timer", "elapsed_seconds", sh.Elapsed)
	}
	return res
}

// Start moves Idle or Paused to Running. The start instant is back-dated
// by the elapsed time so one clock read yields the running total.
func (t *Timer) Start(ctx context.Context) {
	if t.state.Running {
		return
	}
	now := t.clock.Now().UTC()
	started := now.Add(-time.Duration(t.state.ElapsedSeconds) * time.Second)
	t.state.Running = true
	t.state.StartedAt = &started

	if err := writeRunning(ctx, t.store, started); err != nil {
		t.log.Warn("persisting timer start", "error", err)
	}
	t.log.Debug("timer started", "elapsed_seconds", t.state.ElapsedSeconds)
}

// Stop moves Running to Paused and flushes the unsaved delta. Calling Stop
// on a timer that is not running does nothing.
func (t *Timer) Stop(ctx context.Context) {
	if !t.state.Running {
		return
	}
	now := t.clock.Now().UTC()
	t.state.ElapsedSeconds = t.state.ElapsedAt(now)
	t.state.Running = false
	t.state.StartedAt = nil

	if err := writeStopped(ctx, t.store, t.state.ElapsedSeconds); err != nil {
		t.log.Warn("persisting timer stop", "error", err)
	}
	t.log.Debug("timer stopped", "elapsed_seconds", t.state.ElapsedSeconds)

	if t.state.ElapsedSeconds > t.state.LastSavedSeconds {
		t.flush(now, "stop")
	}
}

// Reset stops a running timer, then returns to Idle and clears the shadow.
// Everything counted so far has been flushed by then, so the high-water
// mark is rebased to zero along with the counter.
func (t *Timer) Reset(ctx context.Context) {
	t.Stop(ctx)
	t.state.ElapsedSeconds = 0
	t.state.LastSavedSeconds = 0

	if err := ClearShadow(ctx, t.store); err != nil {
		t.log.Warn("persisting timer reset", "error", err)
	}
	t.log.Debug("timer reset")
}

// Tick recomputes elapsed from the clock and persists it. No-op unless
// running.
func (t *Timer) Tick(ctx context.Context) {
	if !t.state.Running {
		return
	}
	t.state.ElapsedSeconds = t.state.ElapsedAt(t.clock.Now())
	if err := writeElapsed(ctx, t.store, t.state.ElapsedSeconds); err != nil {
		t.log.Warn("persisting elapsed time", "error", err)
	}
}

// AutoFlush submits the unsaved delta when it has reached the minimum.
// It reports whether a record was dispatched.
func (t *Timer) AutoFlush(ctx context.Context) bool {
	if !t.state.Running {
		return false
	}
	now := t.clock.Now().UTC()
	t.state.ElapsedSeconds = t.state.ElapsedAt(now)
	if t.state.Unsaved() < t.minFlush {
		return false
	}
	t.flush(now, "autoflush")
	return true
}

// Abandon is the exit path: the unsaved remainder is handed to the sink's
// beacon and the shadow is cleared so the next start does not recover the
// same interval again.
func (t *Timer) Abandon(ctx context.Context) {
	now := t.clock.Now().UTC()
	if t.state.Running {
		t.state.ElapsedSeconds = t.state.ElapsedAt(now)
		t.state.Running = false
		t.state.StartedAt = nil
	}

	if delta := t.state.Unsaved(); delta > 0 {
		rec := domain.NewStudySession(t.newID(), now, delta)
		if err := t.sink.Beacon(rec); err != nil {
			t.log.Warn("final flush failed", "session_id", rec.ID,
				"duration_seconds", delta, "error", err)
		} else {
			t.log.Info("final flush queued", "session_id", rec.ID, "duration_seconds", delta)
		}
		t.state.LastSavedSeconds = t.state.ElapsedSeconds
	}

	if err := ClearShadow(ctx, t.store); err != nil {
		t.log.Warn("clearing timer state on exit", "error", err)
	}
}

// Snapshot returns a copy of the current state.
func (t *Timer) Snapshot() domain.TimerState {
	s := t.state
	if s.StartedAt != nil {
		started := *s.StartedAt
		s.StartedAt = &started
	}
	return s
}

// flush dispatches the unsaved delta as a record ending at now and advances
// the high-water mark. Delivery outcome does not roll it back.
func (t *Timer) flush(now time.Time, reason string) {
	delta := t.state.Unsaved()
	rec := domain.NewStudySession(t.newID(), now, delta)
	t.sink.Send(rec)
	t.state.LastSavedSeconds = t.state.ElapsedSeconds
	t.log.Info("study session flushed", "reason", reason,
		"session_id", rec.ID, "duration_seconds", delta)
}
