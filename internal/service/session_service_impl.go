package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/studyclock/internal/db"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/repository"
)

// RecentLimit is how many sessions ListRecent returns by default.
const RecentLimit = 10

type studySessionService struct {
	sessions repository.StudySessionRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
	now      func() time.Time
}

func NewStudySessionService(sessions repository.StudySessionRepo, uow db.UnitOfWork, observers ...UseCaseObserver) StudySessionService {
	return &studySessionService{
		sessions: sessions,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
		now:      time.Now,
	}
}

func (s *studySessionService) Record(ctx context.Context, session *domain.StudySession, clientID string) (created bool, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"duration_seconds": session.DurationSeconds,
		"client_id":        clientID,
	}
	defer func() {
		fields["created"] = created
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "record-study-session",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if verr := session.Validate(); verr != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSession, verr)
	}
	session.ID = uuid.New().String()
	session.CreatedAt = s.now().UTC()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteStudySessionRepo(tx)

		if clientID != "" {
			existing, gerr := txSessions.GetByClientID(ctx, clientID)
			if gerr == nil {
				*session = *existing
				return nil
			}
			if !errors.Is(gerr, repository.ErrNotFound) {
				return gerr
			}
		}

		if cerr := txSessions.Create(ctx, session, clientID); cerr != nil {
			return cerr
		}
		created = true
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent request with the same client id won the insert.
		existing, gerr := s.sessions.GetByClientID(ctx, clientID)
		if gerr != nil {
			return false, gerr
		}
		*session = *existing
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return created, nil
}

func (s *studySessionService) ListRecent(ctx context.Context, limit int) ([]*domain.StudySession, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	return s.sessions.ListRecent(ctx, limit)
}

func (s *studySessionService) Total(ctx context.Context) (int64, error) {
	return s.sessions.Total(ctx)
}

// Stats buckets sessions by start time into calendar windows of now's
// location. Weeks start on Monday.
func (s *studySessionService) Stats(ctx context.Context, now time.Time) (stats *domain.StudyStats, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "study-stats",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
		})
	}()

	w := domain.StatsWindows(now)
	out := &domain.StudyStats{}

	windows := []struct {
		from time.Time
		dst  *int64
	}{
		{w.TodayStart, &out.Today},
		{w.WeekStart, &out.Week},
		{w.MonthStart, &out.Month},
		{w.YearStart, &out.Year},
	}
	for _, win := range windows {
		if *win.dst, err = s.sessions.SumSince(ctx, win.from); err != nil {
			return nil, err
		}
	}

	out.Last7Days = make([]domain.DailyTotal, 0, 7)
	for i := 6; i >= 0; i-- {
		day := w.TodayStart.AddDate(0, 0, -i)
		secs, serr := s.sessions.SumBetween(ctx, day, day.AddDate(0, 0, 1))
		if serr != nil {
			return nil, serr
		}
		out.Last7Days = append(out.Last7Days, domain.DailyTotal{Day: day, Seconds: secs})
	}
	return out, nil
}

// Export returns every session, newest start first.
func (s *studySessionService) Export(ctx context.Context) ([]*domain.StudySession, error) {
	return s.sessions.ListAll(ctx)
}
