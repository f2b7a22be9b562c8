package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/progresspoint/internal/backup"
	"github.com/dukerupert/progresspoint/internal/store"
)

const backupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	backups *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backups: bs, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := backupListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, backupListLimit)
	}
	list, err := h.backups.List(limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list backups", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if list == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Run takes a backup synchronously and answers with the new record id.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.RunNow(r.Context())
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, backup.ErrInProgress):
		writeErrorMessage(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "manual backup", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}
