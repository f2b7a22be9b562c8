package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/progresspoint/internal/middleware"
	"github.com/dukerupert/progresspoint/internal/service"
)

// maxBodyBytes bounds request bodies; every payload here is a few fields.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto status codes: validation 400, not
// found 404, anything else 500. Only 500s are logged here; the request
// logger already records the status of the rest.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *service.ValidationError
	var nf *service.NotFoundError
	var se *service.StorageError
	switch {
	case errors.As(err, &ve):
		writeErrorMessage(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nf):
		writeErrorMessage(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &se):
		logger.ErrorContext(r.Context(), "storage failure", "op", se.Op, "error", se.Err, "request_id", middleware.RequestID(r.Context()))
		writeErrorMessage(w, http.StatusInternalServerError, "failed to "+se.Op)
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err, "request_id", middleware.RequestID(r.Context()))
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decodeJSON reads the request body into v, answering 400 itself on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// parseIDParam reads the {id} path value, answering 400 itself when it is
// not a positive integer.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
