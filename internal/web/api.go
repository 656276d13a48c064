package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/comigor/leo-go/internal/logger"
	"github.com/comigor/leo-go/internal/session"
)

// statusFor maps session precondition errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, managerFrom(r.Context()).Snapshot())
}

func (s *Server) handleComposer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m := managerFrom(r.Context())
	if err := m.SetComposer(payload.Text); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	m := managerFrom(r.Context())
	m.ToggleSidebar()
	respondJSON(w, http.StatusOK, m.Snapshot())
}

// handleSend sends the composer text, or the given message when present,
// and answers once the reply has been resolved.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := managerFrom(r.Context())
	if payload.Message != nil {
		if err := m.SetComposer(*payload.Message); err != nil {
			respondError(w, statusFor(err), err.Error())
			return
		}
	}
	if err := m.Send(r.Context()); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, m.Snapshot())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Warn("write response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
