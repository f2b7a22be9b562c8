package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/progresspoint/internal/service"
)

type StoryHandler struct {
	stories *service.StoryService
	logger  *slog.Logger
}

func NewStoryHandler(ss *service.StoryService, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{stories: ss, logger: logger}
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	story, err := h.stories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.stories.ToggleFavorite(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w)
}

func (h *StoryHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.Favorites(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}
