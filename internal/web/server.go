// Package web provides the HTTP server and handlers for the catalog sync UI.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"woosync/internal/catalog"
	"woosync/internal/config"
	"woosync/internal/history"
	"woosync/internal/logging"
	"woosync/internal/namecache"
)

// Server is the HTTP server for the catalog sync application.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server

	// products is nil when WooCommerce credentials are not configured; the
	// sync/backup/cache surfaces respond 503 in that case.
	products catalog.ProductAPI
	names    *namecache.Cache
	exporter *catalog.Exporter
	runs     *history.Store
}

// NewServer creates a new Server instance. products, names and exporter may
// all be nil when the remote store is not configured; the transform surface
// still works.
func NewServer(cfg *config.Config, products catalog.ProductAPI, names *namecache.Cache, exporter *catalog.Exporter, runs *history.Store) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		products: products,
		names:    names,
		exporter: exporter,
		runs:     runs,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/transform", s.handleTransform)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/sync", s.handleSync)
		r.Post("/backup", s.handleBackupStart)
		r.Get("/backup/status", s.handleBackupStatus)
		r.Get("/backup/download", s.handleBackupDownload)
		r.Post("/cache/refresh", s.handleCacheRefresh)
		r.Get("/history", s.handleHistory)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with the request id attached.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request failed", "status", status, "message", message)
	writeJSON(w, status, map[string]string{"error": message})
}
