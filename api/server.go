// Package api - Thin HTTP layer over the pricing engine
// The API is ONLY responsible for: input decoding, engine calls, output serialization.
// The API NEVER performs pricing arithmetic.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"commodity-pricing/core/engine"
	"commodity-pricing/internal/logging"
	"commodity-pricing/internal/metrics"
)

// maxBodyBytes bounds request bodies; import batches are the largest
const maxBodyBytes = 8 << 20

const shutdownTimeout = 10 * time.Second

// Options configure a Server
type Options struct {
	Version            string
	Logger             *zap.Logger
	Metrics            *metrics.Metrics
	AllowedOrigins     []string
	RateLimitPerMinute int
}

// Server is the API server
type Server struct {
	engine    *engine.Engine
	router    chi.Router
	opts      Options
	logger    *zap.Logger
	validate  *validator.Validate
	startedAt time.Time
}

// NewServer creates a server around an engine
func NewServer(e *engine.Engine, opts Options) *Server {
	s := &Server{
		engine:    e,
		router:    chi.NewRouter(),
		opts:      opts,
		logger:    logging.OrNop(opts.Logger),
		validate:  newValidator(),
		startedAt: time.Now().UTC(),
	}
	s.registerRoutes()
	return s
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.Use(s.middlewareStack()...)

	// Core endpoints
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/price-simulations/calculate", s.handleSimulate)
		r.Get("/break-even/current", s.handleBreakEven)
		r.Post("/import/products", s.handleImport)
	})

	// Supporting endpoints
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	s.router.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "NOT_FOUND", "route not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "METHOD_NOT_ALLOWED", "method not allowed", http.StatusMethodNotAllowed)
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version":    s.opts.Version,
		"started_at": s.startedAt.Format(time.RFC3339),
	}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, ErrorBody{Error: ErrorDetail{Code: code, Message: message}}, status)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr), zap.String("version", s.opts.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
