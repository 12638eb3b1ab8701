// Package httpserver exposes the service's operational endpoints:
// process liveness, pipeline readiness with window freshness, and
// Prometheus metrics.
package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "nuisance-watch"

// readinessTimeout bounds each /readyz probe so a wedged pipeline
// cannot stall the kubelet.
const readinessTimeout = 2 * time.Second

// PipelineStatus is what the clustering pipeline reports to the
// operational endpoints: whether it is ready, and when it last
// published a window.
type PipelineStatus interface {
	CheckReadiness(ctx context.Context) error
	LastWindow() (time.Time, bool)
}

// Server serves /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	status     PipelineStatus
	logger     *slog.Logger
}

// NewServer wires the operational routes around the pipeline's status.
func NewServer(addr string, status PipelineStatus, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		status: status,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleHealthz is pure liveness: the process is up and serving.
// Pipeline state belongs to /readyz.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// handleReadyz reports whether the pipeline has published a window,
// and when ready, how fresh the last window is.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.status.CheckReadiness(ctx); err != nil {
		s.respond(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	body := map[string]string{"status": "ready"}
	if last, ok := s.status.LastWindow(); ok {
		body["last_window"] = last.Format(time.RFC3339)
	}
	s.respond(w, http.StatusOK, body)
}

func (s *Server) respond(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write operational response failed", "error", err)
	}
}
