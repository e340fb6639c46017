package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alexanderramin/studyclock/internal/contract"
	"github.com/alexanderramin/studyclock/internal/service"
)

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.log)
}

// handleCreateSession accepts the body as JSON whatever the content type,
// since unload-time beacons arrive as text/plain.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", s.log)
		return
	}

	var req contract.CreateSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.log)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr, s.log)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), s.log)
		return
	}

	session, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.log)
		return
	}

	created, err := s.sessions.Record(r.Context(), &session, req.ClientID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSession) {
			writeError(w, http.StatusBadRequest, err.Error(), s.log)
			return
		}
		internalError(w, err, s.log)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, contract.CreateSessionResponse{ID: session.ID, Success: true}, s.log)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListRecent(r.Context(), service.RecentLimit)
	if err != nil {
		internalError(w, err, s.log)
		return
	}
	views := make([]contract.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, contract.NewSessionView(sess))
	}
	writeJSON(w, http.StatusOK, views, s.log)
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.sessions.Total(r.Context())
	if err != nil {
		internalError(w, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, contract.TotalResponse{TotalSeconds: total}, s.log)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sessions.Stats(r.Context(), s.now().In(s.loc))
	if err != nil {
		internalError(w, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, contract.NewStatsResponse(*stats), s.log)
}

func (s *Server) handleExportStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.Export(r.Context())
	if err != nil {
		internalError(w, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, contract.NewExportResponse(sessions, s.now(), s.loc), s.log)
}
