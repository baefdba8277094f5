package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fleetledger/internal/core"
)

const maxBodySize = 1 << 20 // 1 MiB

// recordEntryRequest is the JSON body of POST /ledger. Amount is a decimal
// string ("123.45"), date is YYYY-MM-DD.
type recordEntryRequest struct {
	ID          string `json:"id,omitempty"`
	VehicleID   string `json:"vehicle_id"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type recordEntryResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleRecordEntry(w http.ResponseWriter, r *http.Request) {
	var req recordEntryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeFieldError(w, "amount", err.Error())
		return
	}

	date, err := parseEntryDate(req.Date)
	if err != nil {
		writeFieldError(w, "date", "expected YYYY-MM-DD")
		return
	}

	rec := core.LedgerRecord{
		ID:          sanitizeInput(req.ID),
		VehicleID:   sanitizeInput(req.VehicleID),
		Kind:        core.RecordKind(sanitizeInput(req.Kind)),
		Category:    sanitizeInput(req.Category),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Description: sanitizeInput(req.Description),
	}

	id, err := s.ledger.RecordEntry(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateVehicle(r.Context(), rec.VehicleID)

	slog.InfoContext(r.Context(), "Ledger entry recorded",
		"id", id,
		"vehicle_id", rec.VehicleID,
		"kind", rec.Kind,
		"amount_cents", rec.Amount.Cents)

	writeJSON(w, http.StatusCreated, recordEntryResponse{ID: id})
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing entry id"})
		return
	}

	removed, err := s.ledger.RemoveEntry(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateVehicle(r.Context(), removed.VehicleID)

	slog.InfoContext(r.Context(), "Ledger entry removed",
		"id", id,
		"vehicle_id", removed.VehicleID)

	w.WriteHeader(http.StatusNoContent)
}
