package domain

import "time"

// TimerState is the in-memory state of the study stopwatch.
//
// While Running, StartedAt is set and back-dated so that
// now - StartedAt == ElapsedSeconds at the moment of start. ElapsedSeconds is
// always recomputed from StartedAt rather than incremented.
//
// LastSavedSeconds is the high-water mark of seconds already handed to the
// backend. It is process-local and never persisted.
type TimerState struct {
	ElapsedSeconds   int64
	Running          bool
	StartedAt        *time.Time
	LastSavedSeconds int64
}

// Phase derives the state-machine phase from the raw fields.
func (s TimerState) Phase() TimerPhase {
	switch {
	case s.Running:
		return PhaseRunning
	case s.ElapsedSeconds > 0:
		return PhasePaused
	default:
		return PhaseIdle
	}
}

// Unsaved returns the seconds not yet flushed to the backend.
func (s TimerState) Unsaved() int64 {
	if s.ElapsedSeconds <= s.LastSavedSeconds {
		return 0
	}
	return s.ElapsedSeconds - s.LastSavedSeconds
}

// ElapsedAt computes whole seconds elapsed since StartedAt at now.
// Returns ElapsedSeconds unchanged when the timer has no start instant.
func (s TimerState) ElapsedAt(now time.Time) int64 {
	if s.StartedAt == nil {
		return s.ElapsedSeconds
	}
	ms := now.Sub(*s.StartedAt).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms / 1000
}
