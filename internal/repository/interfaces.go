package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// KeyValueRepo is the local string-keyed store that shadows timer state.
type KeyValueRepo interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// StudySessionRepo stores finalized study sessions on the backend.
type StudySessionRepo interface {
	Create(ctx context.Context, s *domain.StudySession, clientID string) error
	GetByID(ctx context.Context, id string) (*domain.StudySession, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.StudySession, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.StudySession, error)
	ListAll(ctx context.Context) ([]*domain.StudySession, error)
	SumSince(ctx context.Context, from time.Time) (int64, error)
	SumBetween(ctx context.Context, from, to time.Time) (int64, error)
	Total(ctx context.Context) (int64, error)
}

// PendingSessionRepo is the client outbox of undelivered records.
type PendingSessionRepo interface {
	Enqueue(ctx context.Context, s domain.StudySession, lastErr string) error
	List(ctx context.Context, limit int) ([]*domain.PendingSession, error)
	MarkFailed(ctx context.Context, id string, lastErr string) error
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
