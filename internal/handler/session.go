package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/progresspoint/internal/service"
)

// SessionHandler serves meditation and study sessions and the technique
// catalog.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

func NewSessionHandler(ss *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: ss, logger: logger}
}

func (h *SessionHandler) ListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.sessions.ListTracks(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *SessionHandler) LogMeditation(w http.ResponseWriter, r *http.Request) {
	var req service.NewMeditationSession
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.sessions.LogMeditation(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *SessionHandler) ListStudy(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListStudySessions(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) LogStudy(w http.ResponseWriter, r *http.Request) {
	var req service.NewStudySession
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.sessions.LogStudy(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *SessionHandler) Techniques(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Techniques())
}
