package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fleetledger/internal/core"
	"fleetledger/internal/storage"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	RecordID string `json:"record_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses: bad record data becomes
// 422 with the offending record and field, a missing entity becomes 404,
// anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dataErr *core.DataError
	switch {
	case errors.As(err, &dataErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:    "invalid record data",
			RecordID: dataErr.RecordID,
			Field:    dataErr.Field,
			Reason:   dataErr.Reason,
		})
	case errors.Is(err, core.ErrMissingVehicle):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: core.ErrMissingVehicle.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeFieldError(w http.ResponseWriter, field, reason string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{
		Error:  "invalid record data",
		Field:  field,
		Reason: reason,
	})
}
