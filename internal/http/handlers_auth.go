package http

import (
	"log/slog"
	"net/http"
	"strings"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if err := s.verifier.Verify(username, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := s.sessions.Generate(username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Login succeeded", "username", username)
	writeSuccess(w, http.StatusOK, loginResponse{Token: token})
}
