package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/studyclock/internal/db"
	"github.com/alexanderramin/studyclock/internal/domain"
)

// SQLiteStudySessionRepo implements StudySessionRepo using a SQLite database.
type SQLiteStudySessionRepo struct {
	db db.DBTX
}

func NewSQLiteStudySessionRepo(conn db.DBTX) *SQLiteStudySessionRepo {
	return &SQLiteStudySessionRepo{db: conn}
}

const studySessionColumns = `id, start_time, end_time, duration_seconds, created_at`

// Create inserts s. clientID, when non-empty, must be unique; a repeat
// returns ErrDuplicate.
func (r *SQLiteStudySessionRepo) Create(ctx context.Context, s *domain.StudySession, clientID string) error {
	query := `INSERT INTO study_sessions (id, client_id, start_time, end_time, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		nullableString(clientID),
		formatTime(s.StartTime),
		nullableTimeToString(s.EndTime),
		s.DurationSeconds,
		formatTime(s.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("study session %s: %w", clientID, ErrDuplicate)
		}
		return fmt.Errorf("inserting study session: %w", err)
	}
	return nil
}

func (r *SQLiteStudySessionRepo) GetByID(ctx context.Context, id string) (*domain.StudySession, error) {
	query := `SELECT ` + studySessionColumns + ` FROM study_sessions WHERE id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteStudySessionRepo) GetByClientID(ctx context.Context, clientID string) (*domain.StudySession, error) {
	query := `SELECT ` + studySessionColumns + ` FROM study_sessions WHERE client_id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, query, clientID))
}

func (r *SQLiteStudySessionRepo) ListRecent(ctx context.Context, limit int) ([]*domain.StudySession, error) {
	query := `SELECT ` + studySessionColumns + ` FROM study_sessions
		ORDER BY created_at DESC, start_time DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent study sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

func (r *SQLiteStudySessionRepo) ListAll(ctx context.Context) ([]*domain.StudySession, error) {
	query := `SELECT ` + studySessionColumns + ` FROM study_sessions ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing study sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

// SumSince totals duration_seconds of sessions that started at or after from.
func (r *SQLiteStudySessionRepo) SumSince(ctx context.Context, from time.Time) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(duration_seconds), 0) FROM study_sessions WHERE start_time >= ?`
	if err := r.db.QueryRowContext(ctx, query, formatTime(from)).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing study sessions: %w", err)
	}
	return total, nil
}

// SumBetween totals sessions that started in [from, to).
func (r *SQLiteStudySessionRepo) SumBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(duration_seconds), 0) FROM study_sessions
		WHERE start_time >= ? AND start_time < ?`
	if err := r.db.QueryRowContext(ctx, query, formatTime(from), formatTime(to)).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing study sessions in range: %w", err)
	}
	return total, nil
}

func (r *SQLiteStudySessionRepo) Total(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(duration_seconds), 0) FROM study_sessions`).Scan(&total); err != nil {
		return 0, fmt.Errorf("totalling study sessions: %w", err)
	}
	return total, nil
}

func (r *SQLiteStudySessionRepo) scanSession(row *sql.Row) (*domain.StudySession, error) {
	var s domain.StudySession
	var startStr, createdStr string
	var endStr sql.NullString

	if err := row.Scan(&s.ID, &startStr, &endStr, &s.DurationSeconds, &createdStr); err != nil {
		return nil, wrapNoRows(err, "study session")
	}
	return populateSession(&s, startStr, endStr, createdStr)
}

func (r *SQLiteStudySessionRepo) scanSessions(rows *sql.Rows) ([]*domain.StudySession, error) {
	var sessions []*domain.StudySession
	for rows.Next() {
		var s domain.StudySession
		var startStr, createdStr string
		var endStr sql.NullString

		if err := rows.Scan(&s.ID, &startStr, &endStr, &s.DurationSeconds, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning study session row: %w", err)
		}
		session, err := populateSession(&s, startStr, endStr, createdStr)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating study sessions: %w", err)
	}
	return sessions, nil
}

// populateSession fills in parsed time fields after scanning raw strings.
func populateSession(s *domain.StudySession, startStr string, endStr sql.NullString, createdStr string) (*domain.StudySession, error) {
	var err error
	s.StartTime, err = parseTime(startStr)
	if err != nil {
		return nil, fmt.Errorf("parsing start_time: %w", err)
	}
	s.CreatedAt, err = parseTime(createdStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	s.EndTime = parseNullableTime(endStr)
	return s, nil
}
