// Package server is the composition root: it opens the database, builds the
// engine, the console session manager and the snippet service, and mounts
// their handlers on one chi router.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/webconsole/internal/auth"
	"github.com/sakif/webconsole/internal/config"
	"github.com/sakif/webconsole/internal/console"
	"github.com/sakif/webconsole/internal/executor"
	"github.com/sakif/webconsole/internal/handler"
	"github.com/sakif/webconsole/internal/middleware"
	sqliteRepo "github.com/sakif/webconsole/internal/repository/sqlite"
	"github.com/sakif/webconsole/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every long-lived dependency behind it.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *console.Manager
}

// New wires a Server around runner. The caller keeps ownership of runner;
// the Server owns the database and the session manager and releases them
// in Close.
func New(cfg config.Config, logger *slog.Logger, runner executor.ScriptRunner) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Warn("SESSION_SECRET not set, using an ephemeral secret: tokens will not survive a restart")
	}

	tokens, err := auth.NewTokenService(secret, cfg.Console.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	engine := executor.WithTimeout(executor.NewEngine(runner, logger), cfg.ExecutionTimeout)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: console.NewManager(engine, cfg.Console, logger),
	}
	s.setupRoutes(engine, tokens)
	s.sessions.Start()

	return s, nil
}

// setupRoutes mounts every endpoint.
//
//	GET    /healthz
//	GET    /api/languages
//	POST   /api/execute
//	POST   /api/sessions
//	*      /api/sessions/{id}/...   (session token required)
//	*      /api/snippets/...
func (s *Server) setupRoutes(engine executor.Executor, tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	executeHandler := handler.NewExecuteHandler(engine, s.logger)
	sessionHandler := handler.NewSessionHandler(s.sessions, tokens, s.logger)
	snippetService := service.NewSnippetService(s.db, auth.NewKeyService(), engine, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/languages", handler.HandleLanguages)
		r.Post("/execute", executeHandler.HandleExecute)

		r.Post("/sessions", sessionHandler.HandleCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(auth.RequireSession(tokens))
			r.Get("/", sessionHandler.HandleGet)
			r.Delete("/", sessionHandler.HandleDelete)
			r.Put("/language", sessionHandler.HandleSelectLanguage)
			r.Get("/source", sessionHandler.HandleGetSource)
			r.Put("/source", sessionHandler.HandleSetSource)
			r.Delete("/source", sessionHandler.HandleClearSource)
			r.Post("/run", sessionHandler.HandleRun)
			r.Get("/history", sessionHandler.HandleHistory)
			r.Delete("/history", sessionHandler.HandleClearHistory)
		})

		r.Get("/snippets", snippetHandler.HandleList)
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets/{id}", snippetHandler.HandleGet)
		r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
		r.Post("/snippets/{id}/run", snippetHandler.HandleRun)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok","sessions":` + fmt.Sprint(s.sessions.Len()) + `}`))
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		s.Close()
		return fmt.Errorf("listening on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. In-flight requests get
// shutdownTimeout to finish. The Server is closed when Serve returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("database", s.config.DBPath),
			slog.String("runner", s.config.Runner),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Close stops the session janitor and closes the database. It is safe to
// call more than once.
func (s *Server) Close() error {
	s.sessions.Stop()
	return s.db.Close()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Run builds the configured script runner and a Server around it, then
// serves until the process is signalled.
func Run(cfg config.Config, logger *slog.Logger) error {
	runner, closeRunner, err := NewScriptRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRunner(); err != nil {
			logger.Warn("closing script runner", slog.String("error", err.Error()))
		}
	}()

	srv, err := New(cfg, logger, runner)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Start()
}
