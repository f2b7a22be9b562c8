package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/progresspoint/internal/service"
)

type HabitHandler struct {
	habits *service.HabitService
	logger *slog.Logger
}

func NewHabitHandler(hs *service.HabitService, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{habits: hs, logger: logger}
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	habits, err := h.habits.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	habit, err := h.habits.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.NewHabit
	if !decodeJSON(w, r, &req) {
		return
	}
	habit, err := h.habits.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

type checkRequest struct {
	Date    string `json:"date"`
	Checked *bool  `json:"checked"`
}

func (h *HabitHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req checkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Checked == nil {
		writeErrorMessage(w, http.StatusBadRequest, "checked is required")
		return
	}
	if err := h.habits.Check(r.Context(), id, req.Date, *req.Checked); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w)
}

func (h *HabitHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	p, err := h.habits.Progress(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HabitHandler) Checks(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	dates, err := h.habits.Checks(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}
