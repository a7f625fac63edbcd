package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fundbook/internal/auth"
	"fundbook/internal/core"
)

const maxBodyBytes = 1 << 20

// envelope is the response shape the web client expects. GrandTotal rides
// along only on the withdrawal list.
type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	GrandTotal *core.Money `json:"grandTotal,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *core.ValidationError
	var notFound *core.NotFoundError
	var unavailable *core.StoreUnavailableError

	switch {
	case errors.As(err, &notFound):
		slog.DebugContext(r.Context(), "not found", "error", err)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		slog.DebugContext(r.Context(), "validation error", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &unavailable):
		slog.ErrorContext(r.Context(), "store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable, try again later")
	case errors.Is(err, auth.ErrInvalidCredentials):
		slog.WarnContext(r.Context(), "invalid credentials")
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// withAuth requires a valid bearer session token.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, auth.ErrMissingToken.Error())
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
			return
		}
		if _, err := s.sessions.Validate(token); err != nil {
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}
		next(w, r)
	}
}
