// Package web provides the HTTP API for the POS back office: product import,
// catalog export, backups and the cash-drawer session.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/pos/internal/backup"
	"github.com/JonMunkholm/pos/internal/config"
	"github.com/JonMunkholm/pos/internal/core"
	"github.com/JonMunkholm/pos/internal/session"
	poswm "github.com/JonMunkholm/pos/internal/web/middleware"
)

// Deps are the services the server exposes. Backups and Scheduler are nil
// when the catalog is not a local SQLite file; Sessions may be nil to turn
// the session endpoints off.
type Deps struct {
	Service   *core.Service
	Backups   *backup.Manager
	Scheduler *backup.Scheduler
	Sessions  *session.Manager
}

// Server is the HTTP server for the back office.
type Server struct {
	cfg       *config.Config
	service   *core.Service
	backups   *backup.Manager
	scheduler *backup.Scheduler
	sessions  *session.Manager

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		service:   deps.Service,
		backups:   deps.Backups,
		scheduler: deps.Scheduler,
		sessions:  deps.Sessions,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(poswm.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(poswm.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	importLimit := passthrough
	if s.cfg.Rate.Enabled {
		importLimit = s.newRateLimiter(s.cfg.Rate.ImportLimit).middleware
	}
	requireKey := poswm.APIKeyAuth(&s.cfg.Security)

	s.router.Route("/api", func(r chi.Router) {
		// Reads and previews share the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/dialects", s.handleListDialects)
			r.Get("/import/template", s.handleDownloadTemplate)
			r.With(importLimit).Post("/import/preview", s.handlePreview)

			r.Get("/products", s.handleListProducts)
			r.Get("/export/products", s.handleExportProducts)
			r.Get("/imports", s.handleImportHistory)

			r.Get("/backups", s.handleListBackups)
			r.Get("/backups/settings", s.handleGetBackupSettings)

			if s.sessions != nil {
				r.Get("/session", s.handleGetSession)
			}
		})

		// Writes. Commits and restores run under their own deadlines.
		r.Group(func(r chi.Router) {
			r.Use(requireKey)

			r.With(importLimit).Post("/import/commit", s.handleCommit)

			r.Post("/backups", s.handleCreateBackup)
			r.Post("/backups/restore", s.handleRestoreBackup)
			r.Put("/backups/settings", s.handleUpdateBackupSettings)

			if s.sessions != nil {
				r.Post("/session/open", s.handleOpenSession)
				r.Post("/session/close", s.handleCloseSession)
				r.Post("/session/cash", s.handleRecordCash)
			}
		})
	})
}

func passthrough(next http.Handler) http.Handler { return next }

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
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
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealth reports catalog reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":  "ok",
		"imports": s.service.LimiterStatus(),
	}
	if err := s.service.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}
	if s.scheduler != nil {
		body["backups"] = s.scheduler.Status()
	}
	writeJSONStatus(w, status, body)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
