package http

import (
	"log/slog"
	"net/http"
)

func (s *Server) handleVehicleSummary(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("id")

	if summary, found := s.reportCache.VehicleSummary(vehicleID); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "vehicle_id", vehicleID)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.reports.VehicleSummary(r.Context(), vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.SetVehicleSummary(vehicleID, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleVehicleMonthly(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("id")

	if buckets, found := s.reportCache.VehicleMonthly(vehicleID); found {
		slog.DebugContext(r.Context(), "Monthly cache hit", "vehicle_id", vehicleID)
		writeJSON(w, http.StatusOK, buckets)
		return
	}

	buckets, err := s.reports.VehicleMonthly(r.Context(), vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.SetVehicleMonthly(vehicleID, buckets)
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleVehicleProjection(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("id")

	if proj, found := s.reportCache.VehicleProjection(vehicleID); found {
		slog.DebugContext(r.Context(), "Projection cache hit", "vehicle_id", vehicleID)
		writeJSON(w, http.StatusOK, proj)
		return
	}

	proj, err := s.reports.VehicleProjection(r.Context(), vehicleID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.SetVehicleProjection(vehicleID, proj)
	writeJSON(w, http.StatusOK, proj)
}

func (s *Server) handleInvestorSummary(w http.ResponseWriter, r *http.Request) {
	investorID := r.PathValue("id")
	withProjections := r.URL.Query().Get("projections") == "true"

	if report, found := s.reportCache.InvestorSummary(investorID, withProjections); found {
		slog.DebugContext(r.Context(), "Investor cache hit",
			"investor_id", investorID, "projections", withProjections)
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.reports.InvestorSummary(r.Context(), investorID, withProjections)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.SetInvestorSummary(investorID, withProjections, report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if reports, found := s.reportCache.Portfolio(); found {
		slog.DebugContext(r.Context(), "Portfolio cache hit")
		writeJSON(w, http.StatusOK, reports)
		return
	}

	reports, err := s.reports.Portfolio(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.SetPortfolio(reports)
	writeJSON(w, http.StatusOK, reports)
}
