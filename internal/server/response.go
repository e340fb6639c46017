package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexanderramin/studyclock/internal/contract"
)

func writeJSON(w http.ResponseWriter, status int, data any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, log *slog.Logger) {
	writeJSON(w, status, contract.ErrorResponse{Error: message}, log)
}

func writeValidationError(w http.ResponseWriter, verr *ValidationError, log *slog.Logger) {
	writeJSON(w, http.StatusBadRequest, contract.ErrorResponse{
		Error:   "validation failed",
		Details: verr.Fields,
	}, log)
}

func internalError(w http.ResponseWriter, err error, log *slog.Logger) {
	log.Error("unhandled error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error", log)
}
