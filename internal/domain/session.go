package domain

import (
	"fmt"
	"time"
)

// StudySession is a finalized interval of study time as submitted to the
// backend. ID is generated by the client and doubles as an idempotency key.
type StudySession struct {
	ID              string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds int64
	CreatedAt       time.Time
}

// NewStudySession builds a record covering the delta seconds that end at end.
func NewStudySession(id string, end time.Time, delta int64) StudySession {
	end = end.UTC()
	return StudySession{
		ID:              id,
		StartTime:       end.Add(-time.Duration(delta) * time.Second),
		EndTime:         &end,
		DurationSeconds: delta,
	}
}

// Validate checks the invariants a record must satisfy before it is stored.
func (s StudySession) Validate() error {
	if s.StartTime.IsZero() {
		return fmt.Errorf("start time is required")
	}
	if s.DurationSeconds < 0 {
		return fmt.Errorf("duration must be non-negative, got %d", s.DurationSeconds)
	}
	if s.EndTime != nil && s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("end time %s is before start time %s",
			s.EndTime.Format(time.RFC3339), s.StartTime.Format(time.RFC3339))
	}
	return nil
}

// PendingSession is a record that could not be delivered and waits in the
// local outbox for a later replay.
type PendingSession struct {
	Session    StudySession
	Attempts   int
	LastError  string
	EnqueuedAt time.Time
	UpdatedAt  time.Time
}
