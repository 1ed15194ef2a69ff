package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/metrics"
)

// Report files are named run-YYYY-MM-DD.json.
const (
	reportPrefix = "run-"
	reportSuffix = ".json"
)

// ReportReader reads saved run reports.
type ReportReader interface {
	Latest(prefix, suffix string) (string, error)
	ReadJSON(name string, v any) error
}

// Trigger starts a pipeline run in the background.
type Trigger interface {
	Trigger() bool
	Running() bool
}

// Server wires HTTP handlers to the report directory and the run trigger.
type Server struct {
	router  chi.Router
	reports ReportReader
	trigger Trigger
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reports ReportReader, trigger Trigger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		reports: reports,
		trigger: trigger,
		logger:  logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/reports/latest", s.latestReport)
	r.Post("/runs", s.startRun)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"status": "ok"}
	if s.trigger != nil {
		status["running"] = s.trigger.Running()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) latestReport(w http.ResponseWriter, _ *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusNotFound, "no reports")
		return
	}
	name, err := s.reports.Latest(reportPrefix, reportSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "no reports")
		return
	}
	if err != nil {
		s.logger.Error("list reports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list reports failed")
		return
	}
	var report json.RawMessage
	if err := s.reports.ReadJSON(name, &report); err != nil {
		s.logger.Error("read report failed", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read report failed")
		return
	}
	w.Header().Set("X-Report-Name", name)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) startRun(w http.ResponseWriter, _ *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "runs are disabled")
		return
	}
	if !s.trigger.Trigger() {
		writeError(w, http.StatusConflict, "run already in progress")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Debug("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
