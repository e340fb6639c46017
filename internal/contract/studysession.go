package contract

import (
	"fmt"
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// CreateSessionRequest is the body of POST /study-sessions.
type CreateSessionRequest struct {
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds" validate:"required,gte=0"`
	ClientID        string `json:"client_id,omitempty" validate:"omitempty,max=64"`
}

// NewCreateSessionRequest encodes a record for submission. The record ID
// is sent as the idempotency key.
func NewCreateSessionRequest(s domain.StudySession) CreateSessionRequest {
	req := CreateSessionRequest{
		StartTime:       FormatTimestamp(s.StartTime),
		DurationSeconds: &s.DurationSeconds,
		ClientID:        s.ID,
	}
	if s.EndTime != nil {
		req.EndTime = FormatTimestamp(*s.EndTime)
	}
	return req
}

// ToDomain decodes the request. The returned session has no ID.
func (r CreateSessionRequest) ToDomain() (domain.StudySession, error) {
	start, err := ParseTimestamp(r.StartTime)
	if err != nil {
		return domain.StudySession{}, fmt.Errorf("start_time: %w", err)
	}
	s := domain.StudySession{StartTime: start}
	if r.DurationSeconds != nil {
		s.DurationSeconds = *r.DurationSeconds
	}
	if r.EndTime != "" {
		end, err := ParseTimestamp(r.EndTime)
		if err != nil {
			return domain.StudySession{}, fmt.Errorf("end_time: %w", err)
		}
		s.EndTime = &end
	}
	return s, nil
}

// CreateSessionResponse is returned by POST /study-sessions.
type CreateSessionResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// SessionView is one element of GET /study-sessions.
type SessionView struct {
	ID              string  `json:"id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationSeconds int64   `json:"duration_seconds"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

func NewSessionView(s *domain.StudySession) SessionView {
	v := SessionView{
		ID:              s.ID,
		StartTime:       FormatTimestamp(s.StartTime),
		EndTime:         FormatOptionalTimestamp(s.EndTime),
		DurationSeconds: s.DurationSeconds,
	}
	if !s.CreatedAt.IsZero() {
		v.CreatedAt = FormatTimestamp(s.CreatedAt)
	}
	return v
}

func (v SessionView) ToDomain() (domain.StudySession, error) {
	start, err := ParseTimestamp(v.StartTime)
	if err != nil {
		return domain.StudySession{}, fmt.Errorf("session %s start_time: %w", v.ID, err)
	}
	s := domain.StudySession{ID: v.ID, StartTime: start, DurationSeconds: v.DurationSeconds}
	if v.EndTime != nil {
		end, err := ParseTimestamp(*v.EndTime)
		if err != nil {
			return domain.StudySession{}, fmt.Errorf("session %s end_time: %w", v.ID, err)
		}
		s.EndTime = &end
	}
	if v.CreatedAt != "" {
		if created, err := ParseTimestamp(v.CreatedAt); err == nil {
			s.CreatedAt = created
		}
	}
	return s, nil
}

// TotalResponse is returned by GET /study-sessions/total.
type TotalResponse struct {
	TotalSeconds int64 `json:"total_seconds"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ExportSession is one row of GET /export/stats.
type ExportSession struct {
	Date              string  `json:"date"`
	StartTime         string  `json:"start_time"`
	EndTime           *string `json:"end_time"`
	DurationSeconds   int64   `json:"duration_seconds"`
	DurationFormatted string  `json:"duration_formatted"`
}

// ExportResponse is the body of GET /export/stats.
type ExportResponse struct {
	ExportedAt       string          `json:"exported_at"`
	TotalSessions    int             `json:"total_sessions"`
	TotalTimeSeconds int64           `json:"total_time_seconds"`
	Sessions         []ExportSession `json:"sessions"`
}

// NewExportResponse lists sessions in the given order. Dates are calendar
// days of the start time in loc.
func NewExportResponse(sessions []*domain.StudySession, exportedAt time.Time, loc *time.Location) ExportResponse {
	resp := ExportResponse{
		ExportedAt:    FormatTimestamp(exportedAt),
		TotalSessions: len(sessions),
		Sessions:      make([]ExportSession, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.TotalTimeSeconds += s.DurationSeconds
		resp.Sessions = append(resp.Sessions, ExportSession{
			Date:              s.StartTime.In(loc).Format(time.DateOnly),
			StartTime:         FormatTimestamp(s.StartTime),
			EndTime:           FormatOptionalTimestamp(s.EndTime),
			DurationSeconds:   s.DurationSeconds,
			DurationFormatted: FormatDuration(s.DurationSeconds),
		})
	}
	return resp
}
