package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fleetledger/internal/cache"
	"fleetledger/internal/services"
	"fleetledger/internal/storage"
)

type contextKey string

const requestIDKey contextKey = "request_id"

type Server struct {
	http.Server
	ledger  *services.LedgerService
	reports *services.ReportService
	storage *storage.SQLiteRepository
	limiter *writeLimiter

	// Report read caches, invalidated on ledger writes
	reportCache *cache.ReportCache

	shutdownOnce sync.Once
}

// NewServer configures routes and report caches, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger *services.LedgerService, reports *services.ReportService, repo *storage.SQLiteRepository, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:      ledger,
		reports:     reports,
		storage:     repo,
		limiter:     newWriteLimiter(writeLimitPolicy()),
		reportCache: cache.NewReportCache(cacheTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /ledger", s.withSecurityHeaders(s.handleRecordEntry))
	mux.HandleFunc("DELETE /ledger/{id}", s.withSecurityHeaders(s.handleRemoveEntry))

	mux.HandleFunc("GET /reports/vehicles/{id}", s.withSecurityHeaders(s.handleVehicleSummary))
	mux.HandleFunc("GET /reports/vehicles/{id}/monthly", s.withSecurityHeaders(s.handleVehicleMonthly))
	mux.HandleFunc("GET /reports/vehicles/{id}/projection", s.withSecurityHeaders(s.handleVehicleProjection))
	mux.HandleFunc("GET /reports/investors/{id}", s.withSecurityHeaders(s.handleInvestorSummary))
	mux.HandleFunc("GET /reports/investors", s.withSecurityHeaders(s.handlePortfolio))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// The limit policy decides which methods are throttled.
		if s.limiter.applies(r.Method) && !s.limiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.storage != nil {
		if err := s.storage.Ping(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateVehicle drops every cached report a write to this vehicle's
// ledger could have changed.
func (s *Server) invalidateVehicle(ctx context.Context, vehicleID string) {
	vehicle, err := s.storage.GetVehicle(ctx, vehicleID)
	if err != nil {
		slog.WarnContext(ctx, "Cannot resolve vehicle for cache invalidation",
			"vehicle_id", vehicleID, "error", err)
		s.reportCache.InvalidateVehicle(vehicleID, "")
		return
	}
	s.reportCache.InvalidateVehicle(vehicleID, vehicle.InvestorID)
}
