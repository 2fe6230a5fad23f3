// Package rpcapi implements the kernel's wire protocol adapter: a
// single POST /rpc dispatch endpoint plus a GET /stream/*path endpoint
// for raw byte access. Adapted from the teacher's pkg/api/server.go
// (mux wiring, logging/CORS middleware, graceful shutdown), generalized
// from health/status-only endpoints to kernel operation dispatch.
package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vfscore/vfskernel/internal/metrics"
	"github.com/vfscore/vfskernel/internal/svcerrors"
	"github.com/vfscore/vfskernel/pkg/kernel"
)

// Config configures the HTTP server.
type Config struct {
	Address       string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	EnableCORS    bool
	EnableMetrics bool
}

// DefaultConfig mirrors the teacher's DefaultServerConfig defaults.
func DefaultConfig() Config {
	return Config{
		Address:      "localhost:8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		EnableCORS:   true,
	}
}

// Server exposes pkg/kernel operations over HTTP.
type Server struct {
	httpServer *http.Server
	kernel     *kernel.Kernel
	metrics    *metrics.Collector
	log        *slog.Logger
	cfg        Config
}

// New builds a Server dispatching requests to k.
func New(k *kernel.Kernel, cfg Config, collector *metrics.Collector, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{kernel: k, metrics: collector, log: log, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/health/live", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	if cfg.EnableMetrics && collector != nil {
		if h := collector.Handler(); h != nil {
			mux.Handle("/metrics", h)
		}
	}

	handler := s.loggingMiddleware(mux)
	if cfg.EnableCORS {
		handler = s.corsMiddleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start runs the server, blocking until it stops.
func (s *Server) Start() error {
	s.log.Info("starting rpc server", "address", s.cfg.Address)
	return s.httpServer.ListenAndServe()
}

// StartBackground runs Start in a goroutine, logging a fatal-shaped
// error if the listener dies for any reason other than Shutdown.
func (s *Server) StartBackground() {
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			s.log.Error("rpc server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down rpc server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"alive": true, "timestamp": time.Now()})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ready": true, "timestamp": time.Now()})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondErr maps err (a vfserrors.Error when it came from the kernel)
// to an HTTP status and JSON error body via svcerrors, matching SPEC_FULL
// §4.14's "ENOENT -> 404, EEXIST -> 409, ..." rule exactly.
func respondErr(w http.ResponseWriter, component, operation string, err error) {
	se := svcerrors.FromPOSIX(err, component, operation)
	respondJSON(w, se.HTTPStatus(), map[string]any{
		"error":     se.Message,
		"category":  se.Category,
		"component": se.Component,
		"operation": se.Operation,
	})
}

func badRequest(w http.ResponseWriter, format string, args ...any) {
	respondJSON(w, http.StatusBadRequest, map[string]any{"error": fmt.Sprintf(format, args...)})
}
