// Package api provides the HTTP REST API for the zmapd scan controller.
// It wires the service facade onto versioned endpoints for scanning,
// engine introspection, and blocklist management.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ostrand/zmapd/internal/api/handlers"
	"github.com/ostrand/zmapd/internal/config"
	"github.com/ostrand/zmapd/internal/logging"
	"github.com/ostrand/zmapd/internal/metrics"
	"github.com/ostrand/zmapd/internal/zmap"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 30 * time.Second
)

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	zmap       *zmap.ZMap
	logger     *slog.Logger
	metrics    *metrics.Metrics
	registry   *handlers.ScanRegistry
	startTime  time.Time
}

// New creates a new API server instance around the given facade.
func New(cfg *config.Config, z *zmap.ZMap, m *metrics.Metrics) *Server {
	logger := logging.Default().WithComponent("api")

	server := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		zmap:      z,
		logger:    logger.Logger,
		metrics:   m,
		registry:  handlers.NewScanRegistry(),
		startTime: time.Now(),
	}

	server.setupRoutes()
	server.setupMiddleware()

	server.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.API.ListenAddr, strconv.Itoa(cfg.API.Port)),
		Handler:      server.router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	return server
}

// Start starts the API server and blocks until ctx is canceled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server", "address", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	scanHandler := handlers.NewScanHandler(s.zmap, s.registry, s.logger)
	infoHandler := handlers.NewInfoHandler(s.zmap, s.logger)
	listsHandler := handlers.NewListsHandler(s.zmap, s.logger)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// mux returns 404 on a method mismatch unless a handler is set;
	// the subrouter does not inherit it from the root router.
	s.router.MethodNotAllowedHandler = s.methodNotAllowedHandler()
	api.MethodNotAllowedHandler = s.router.MethodNotAllowedHandler

	// Scan execution and observability
	api.HandleFunc("/scan", scanHandler.RunScan).Methods("POST")
	api.HandleFunc("/scans", scanHandler.ListScans).Methods("GET")

	// Engine introspection
	api.HandleFunc("/probe-modules", infoHandler.ProbeModules).Methods("GET")
	api.HandleFunc("/output-modules", infoHandler.OutputModules).Methods("GET")
	api.HandleFunc("/output-fields", infoHandler.OutputFields).Methods("GET")
	api.HandleFunc("/interfaces", infoHandler.Interfaces).Methods("GET")
	api.HandleFunc("/version", infoHandler.Version).Methods("GET")

	// Blocklist and allowlist files
	api.HandleFunc("/blocklist", listsHandler.CreateBlocklist).Methods("POST")
	api.HandleFunc("/allowlist", listsHandler.CreateAllowlist).Methods("POST")
	api.HandleFunc("/standard-blocklist", listsHandler.GenerateStandardBlocklist).Methods("POST")

	// Health and metrics
	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	if s.metrics != nil {
		api.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.router.HandleFunc("/", s.indexHandler).Methods("GET")
}

// setupMiddleware configures middleware for the API server.
func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)

	if s.config.API.EnableCORS {
		corsOptions := gorillahandlers.AllowedOrigins(s.config.API.CORSOrigins)
		corsHeaders := gorillahandlers.AllowedHeaders([]string{"Content-Type"})
		corsMethods := gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
		s.router.Use(gorillahandlers.CORS(corsOptions, corsHeaders, corsMethods))
	}
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}

// methodNotAllowedHandler answers requests whose path matched a route
// but whose method did not.
func (s *Server) methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "method not allowed",
		})
	})
}

// indexHandler returns basic service information.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service": "zmapd",
		"version": "v1",
		"endpoints": map[string]string{
			"scan":          "/api/v1/scan",
			"probe_modules": "/api/v1/probe-modules",
			"health":        "/api/v1/health",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// healthHandler provides a basic health check endpoint.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// Middleware functions.

// recoveryMiddleware recovers from panics and returns a 500 error.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic in API handler",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration,
			"remote_addr", r.RemoteAddr)

		if s.metrics != nil {
			s.metrics.HTTPRequest(r.Method, strconv.Itoa(wrapped.statusCode), duration)
		}
	})
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
