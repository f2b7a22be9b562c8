package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/progresspoint/internal/model"
	"github.com/dukerupert/progresspoint/internal/service"
)

type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

func NewTaskHandler(ts *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, logger: logger}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.tasks.List(r.Context(), q.Get("date"), model.Priority(q.Get("priority")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.NewTask
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.tasks.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var patch model.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	task, err := h.tasks.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w)
}

type replicateRequest struct {
	TaskID     int64  `json:"taskId"`
	TargetDate string `json:"targetDate"`
	EndDate    string `json:"endDate"`
}

func (h *TaskHandler) Replicate(w http.ResponseWriter, r *http.Request) {
	var req replicateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaskID <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "taskId is required")
		return
	}
	copies, err := h.tasks.Replicate(r.Context(), req.TaskID, req.TargetDate, req.EndDate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, copies)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Stats(r.Context(), r.PathValue("date"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *TaskHandler) Streak(w http.ResponseWriter, r *http.Request) {
	n, err := h.tasks.Streak(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"streak": n})
}
