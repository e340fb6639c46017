package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/studyclock/internal/db"
	"github.com/alexanderramin/studyclock/internal/domain"
)

// SQLitePendingSessionRepo implements PendingSessionRepo on pending_sessions.
type SQLitePendingSessionRepo struct {
	db db.DBTX
}

func NewSQLitePendingSessionRepo(conn db.DBTX) *SQLitePendingSessionRepo {
	return &SQLitePendingSessionRepo{db: conn}
}

// Enqueue stores s for a later replay. Enqueuing the same record twice keeps
// the original row and its attempt count.
func (r *SQLitePendingSessionRepo) Enqueue(ctx context.Context, s domain.StudySession, lastErr string) error {
	now := nowUTC()
	query := `INSERT INTO pending_sessions
		(id, start_time, end_time, duration_seconds, attempts, last_error, enqueued_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_error = excluded.last_error, updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		formatTime(s.StartTime),
		nullableTimeToString(s.EndTime),
		s.DurationSeconds,
		lastErr,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("enqueueing pending session: %w", err)
	}
	return nil
}

// List returns up to limit pending records, oldest first.
func (r *SQLitePendingSessionRepo) List(ctx context.Context, limit int) ([]*domain.PendingSession, error) {
	query := `SELECT id, start_time, end_time, duration_seconds, attempts, last_error, enqueued_at, updated_at
		FROM pending_sessions ORDER BY enqueued_at, id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.PendingSession
	for rows.Next() {
		var p domain.PendingSession
		var startStr, enqueuedStr, updatedStr string
		var endStr sql.NullString
		if err := rows.Scan(&p.Session.ID, &startStr, &endStr, &p.Session.DurationSeconds,
			&p.Attempts, &p.LastError, &enqueuedStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scanning pending session: %w", err)
		}
		if p.Session.StartTime, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("parsing start_time: %w", err)
		}
		if p.EnqueuedAt, err = parseTime(enqueuedStr); err != nil {
			return nil, fmt.Errorf("parsing enqueued_at: %w", err)
		}
		if p.UpdatedAt, err = parseTime(updatedStr); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		p.Session.EndTime = parseNullableTime(endStr)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending sessions: %w", err)
	}
	return out, nil
}

func (r *SQLitePendingSessionRepo) MarkFailed(ctx context.Context, id string, lastErr string) error {
	query := `UPDATE pending_sessions SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, lastErr, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("marking pending session failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pending session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLitePendingSessionRepo) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing pending session: %w", err)
	}
	return nil
}

func (r *SQLitePendingSessionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pending sessions: %w", err)
	}
	return n, nil
}
