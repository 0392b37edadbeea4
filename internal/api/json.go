package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/berkana/internal/apperr"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// ok builds a mutation success body.
func ok(fields map[string]any) map[string]any {
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields["success"] = true
	return fields
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged
// and their detail is not returned.
func (h *Handler) fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		args := append([]any{slog.String("error", err.Error())}, attrs...)
		h.logger.Error(op+" failed", args...)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody(msg))
}
