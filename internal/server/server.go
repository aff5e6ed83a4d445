// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and a logger, then:
//
//	Server.New() creates: llm.Client + history backend → session.Manager
//	                      (one AnalysisController per session)
//	                      → AnalysisHandler (JSON) + ShellHandler (HTML)
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/devhelper-ai/internal/auth"
	"github.com/sakif/devhelper-ai/internal/config"
	"github.com/sakif/devhelper-ai/internal/handler"
	"github.com/sakif/devhelper-ai/internal/llm"
	"github.com/sakif/devhelper-ai/internal/middleware"
	"github.com/sakif/devhelper-ai/internal/render"
	"github.com/sakif/devhelper-ai/internal/repository"
	"github.com/sakif/devhelper-ai/internal/repository/memory"
	sqliteRepo "github.com/sakif/devhelper-ai/internal/repository/sqlite"
	"github.com/sakif/devhelper-ai/internal/service"
	"github.com/sakif/devhelper-ai/internal/session"
)

// sweepInterval is how often idle sessions are checked for.
const sweepInterval = time.Minute

var _ service.Generator = (*llm.Client)(nil)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// With HISTORY_BACKEND=sqlite the Server owns a database connection (db).
// Start() closes it during graceful shutdown. With the memory backend db is nil.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	tokens   *auth.TokenService
	sessions *session.Manager
	llm      *llm.Client
}

// New creates a new Server from cfg.
//
// WIRING:
//  1. Session tokens (auth.NewTokenService) — a random secret when none is configured
//  2. The model client (llm.NewClient)
//  3. The history backend — a fresh memory.Store per session, or one shared
//     sqlite database partitioned by session ID
//  4. session.Manager, whose factory builds an AnalysisController per session
//  5. Handlers and routes
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		var err error
		if secret, err = auth.RandomSecret(); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set — sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenService(secret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	client, err := llm.NewClient(llm.Config{
		Endpoint: cfg.GeminiEndpoint,
		APIKey:   cfg.GeminiAPIKey,
		Timeout:  cfg.GeminiTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	if !client.HasKey() {
		logger.Warn("GEMINI_API_KEY not set — every analysis will fail")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		tokens: tokens,
		llm:    client,
	}

	policy := service.HistoryPolicy{AutoLimit: cfg.HistoryAutoLimit, SaveLimit: cfg.HistorySaveLimit}
	var historyFor func(sessionID string) repository.HistoryRepository
	var onEvict session.EvictFunc

	switch cfg.HistoryBackend {
	case config.BackendSQLite:
		db, err := sqliteRepo.New(sqliteRepo.MemoryDSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.db = db
		historyFor = func(id string) repository.HistoryRepository { return db.ForSession(id) }
		onEvict = db.Forget
	default:
		historyFor = func(string) repository.HistoryRepository { return memory.New() }
	}

	s.sessions = session.NewManager(func(id string) *service.AnalysisController {
		return service.NewAnalysisController(client, historyFor(id), policy, logger.With(slog.String("session", id)))
	}, cfg.SessionTTL, onEvict, logger)

	if err := s.setupRoutes(); err != nil {
		s.closeDB()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the fully wired router. Used by tests via httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                    → Page (HTML), ?tab=editor|history|settings
// POST   /analyze             → Analyze from the editor form
// POST   /save                → Save from the editor form
// GET    /history/{id}        → Load a history entry into the editor
// POST   /preferences         → Theme / tips toggles
// GET    /static/*            → Static files (CSS)
// GET    /healthz             → Liveness
// GET    /api/languages       → Supported languages
// POST   /api/analyze         → Submit (JSON)
// GET    /api/history         → History (JSON)
// POST   /api/history         → SaveCurrent (JSON)
// GET    /api/history/{id}    → LoadEntry (JSON)
// GET    /api/state           → Busy / result / error / history (JSON)
// GET    /api/settings        → Settings tab (JSON)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
// 5. Session — only on page and API routes, so static files don't mint sessions
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	s.router.Get("/healthz", handler.Health(s.sessions))

	settings := handler.Settings{
		Model:            s.config.GeminiModel,
		APIConfigured:    s.llm.HasKey(),
		HistoryBackend:   s.config.HistoryBackend,
		HistoryAutoLimit: s.config.HistoryAutoLimit,
		HistorySaveLimit: s.config.HistorySaveLimit,
	}

	shell, err := handler.NewShellHandler(
		s.config.TemplateDir, s.sessions, render.NewMarkdown(), settings, s.config.DefaultLanguage, s.logger,
	)
	if err != nil {
		return fmt.Errorf("creating shell handler: %w", err)
	}
	api := handler.NewAnalysisHandler(s.sessions, s.config.DefaultLanguage, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Session(s.tokens, s.logger))

		r.Get("/", shell.HandlePage)
		r.Post("/analyze", shell.HandleAnalyze)
		r.Post("/save", shell.HandleSave)
		r.Get("/history/{id}", shell.HandleLoad)
		r.Post("/preferences", shell.HandlePreferences)

		r.Route("/api", func(r chi.Router) {
			r.Get("/languages", api.HandleLanguages)
			r.Post("/analyze", api.HandleAnalyze)
			r.Get("/history", api.HandleListHistory)
			r.Post("/history", api.HandleSave)
			r.Get("/history/{id}", api.HandleLoadEntry)
			r.Get("/state", api.HandleState)
			r.Get("/settings", shell.HandleSettings)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the idle-session sweeper
// 4. Close the database connection, if any
//
// WriteTimeout is generous because /analyze waits on the model.
func (s *Server) Start() error {
	defer s.closeDB()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.sessions.Run(sweepCtx, sweepInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("history", s.config.HistoryBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases the database. Only needed when Start was never called.
func (s *Server) Close() error {
	return s.closeDB()
}

func (s *Server) closeDB() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
