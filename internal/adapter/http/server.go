package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/dscovr-mag-etl/internal/converter"
)

// ConversionService runs conversions and reports readiness. Satisfied by
// *converter.Converter.
type ConversionService interface {
	Convert(ctx context.Context, inputPath, outputPath string) (converter.Report, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and on-demand conversion
// HTTP endpoints.
type Server struct {
	httpServer *http.Server
	service    ConversionService
	defaultIn  string
	defaultOut string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /convert routes. defaultIn and defaultOut are used when a convert
// request does not name paths.
func NewServer(addr string, service ConversionService, defaultIn, defaultOut string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:    service,
		defaultIn:  defaultIn,
		defaultOut: defaultOut,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /convert", s.handleConvert)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// convertRequest optionally overrides the configured paths.
type convertRequest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Input == "" {
		req.Input = s.defaultIn
	}
	if req.Output == "" {
		req.Output = s.defaultOut
	}

	report, err := s.service.Convert(r.Context(), req.Input, req.Output)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{
			"error": err.Error(),
			"kind":  converter.Kind(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// statusFor maps conversion error kinds onto HTTP status codes: bad
// source data is the caller's problem, a write failure is ours.
func statusFor(err error) int {
	switch {
	case errors.Is(err, converter.ErrSchema), errors.Is(err, converter.ErrAlignment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, converter.ErrIO):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
