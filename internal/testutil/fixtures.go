package testutil

import (
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/google/uuid"
)

// SessionOption customises a fixture study session.
type SessionOption func(*domain.StudySession)

func WithStartTime(t time.Time) SessionOption {
	return func(s *domain.StudySession) {
		s.StartTime = t.UTC()
		end := s.StartTime.Add(time.Duration(s.DurationSeconds) * time.Second)
		s.EndTime = &end
	}
}

func WithoutEndTime() SessionOption {
	return func(s *domain.StudySession) {
		s.EndTime = nil
	}
}

func WithCreatedAt(t time.Time) SessionOption {
	return func(s *domain.StudySession) {
		s.CreatedAt = t.UTC()
	}
}

// NewTestSession returns a session of the given length that ended a minute ago.
func NewTestSession(seconds int64, opts ...SessionOption) *domain.StudySession {
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := domain.NewStudySession(uuid.New().String(), now.Add(-time.Minute), seconds)
	s.CreatedAt = now
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}
