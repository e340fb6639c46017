package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// ErrInvalidSession is returned when a submitted record fails validation.
var ErrInvalidSession = errors.New("invalid study session")

type StudySessionService interface {
	// Record stores session, assigning its ID and creation time. A non-empty
	// clientID makes the call idempotent: a repeat returns the stored record
	// with created=false.
	Record(ctx context.Context, session *domain.StudySession, clientID string) (created bool, err error)
	ListRecent(ctx context.Context, limit int) ([]*domain.StudySession, error)
	Total(ctx context.Context) (int64, error)
	Stats(ctx context.Context, now time.Time) (*domain.StudyStats, error)
	Export(ctx context.Context) ([]*domain.StudySession, error)
}
