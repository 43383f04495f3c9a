package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	sqlite3 "modernc.org/sqlite"

	"spendlog/internal/core"
)

// successEnvelope always carries a "data" member, even when the payload is
// null (delete responses), so clients can rely on the shape.
type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  []core.FieldError `json:"errors,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, fields []core.FieldError) {
	writeJSON(w, status, errorEnvelope{Success: false, Message: message, Errors: fields})
}

// writeServiceError maps a service failure onto an HTTP status and envelope.
// Raw SQLite constraint errors are classified here as well in case one slips
// past the storage layer.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "Validation error", ve.Fields)
	case errors.Is(err, core.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Validation error", []core.FieldError{
			{Field: "id", Message: core.MsgInvalidID},
		})
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found", nil)
	case errors.Is(err, core.ErrDuplicateID), isConstraintErr(err):
		writeError(w, http.StatusConflict, "Duplicate expense ID", nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", nil)
	}
}

func isConstraintErr(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == 1555 || code == 2067
}
