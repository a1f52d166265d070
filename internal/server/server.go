// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects the session store, the
// upstream API client, the page handlers and middleware. It decides
// - which URL patterns map to which handler functions
// - what middleware runs on which routes
// - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  session store (sqlite | redis | memory) → session.Manager
//	  api.Client (+ metrics) → handler.Pages → page handlers
//	  view.Registry per page kind (swept in the background)
//
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/vidshare/internal/api"
	"github.com/sakif/vidshare/internal/auth"
	"github.com/sakif/vidshare/internal/config"
	"github.com/sakif/vidshare/internal/handler"
	"github.com/sakif/vidshare/internal/middleware"
	"github.com/sakif/vidshare/internal/repository"
	redisRepo "github.com/sakif/vidshare/internal/repository/redis"
	sqliteRepo "github.com/sakif/vidshare/internal/repository/sqlite"
	"github.com/sakif/vidshare/internal/session"
	"github.com/sakif/vidshare/internal/view"
	"github.com/sakif/vidshare/web"
)

// sweepInterval is how often expired page instances are dropped.
const sweepInterval = time.Minute

// shutdownTimeout gives in-flight requests time to complete.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the session store connection. Start closes it once the HTTP
// server has stopped, flushing pending writes and releasing the file lock.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	store    repository.SessionRepository
	registry *prometheus.Registry
	janitors []func(context.Context) error
}

// New creates a Server from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore opens the configured session backend.
func openStore(ctx context.Context, cfg config.SessionConfig) (repository.SessionRepository, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		store, err := redisRepo.New(ctx, redisRepo.Options{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, fmt.Errorf("opening redis session store: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		return session.NewMemoryStore(), nil
	default:
		if cfg.SQLitePath != ":memory:" {
			// os.MkdirAll is a no-op when the directory exists (like `mkdir -p`).
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	}
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /, /feed                      → Feed (?search=, ?p=)
// GET    /login, /signup               → forms
// POST   /login, /signup, /signup/otp  → submits (rate limited per IP)
// POST   /logout                       → clear the session
// GET    /user-profile                 → Profile          [guarded]
// POST   /user-profile/upload[/open|/close]                [guarded]
// GET    /video/{id}                   → Video detail
// POST   /video/{id}/like, /comments   → actions
// GET    /healthz, /metrics, /static/*
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, RealIP: chi's built-ins; RealIP feeds the rate limiter
// 2. Logger: request-scoped slog logger with a uuid request id
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Metrics: counts requests by route pattern
// 5. Session: puts the visitor's *session.Session on the context
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.NewHTTPMetrics(s.registry).Middleware)

	// === Static Files ===
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening static assets: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	// === Pages ===
	client, err := api.New(api.Config{
		BaseURL:       s.config.API.BaseURL,
		Timeout:       s.config.API.Timeout,
		UploadTimeout: s.config.Upload.Timeout,
	}, api.WithMetrics(api.NewMetrics(s.registry)), api.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("creating api client: %w", err)
	}

	renderer, err := handler.NewRenderer(web.FS, s.logger)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	pages := handler.NewPages(client, renderer, handler.Options{
		RenderWait:     s.config.View.RenderWait,
		MaxUploadBytes: s.config.Upload.MaxBytes,
		UploadDir:      s.config.Upload.Dir,
	}, s.logger)

	ttl, limit := s.config.View.InstanceTTL, s.config.View.MaxInstances
	feeds := view.NewRegistry[*view.Feed](ttl, limit)
	videos := view.NewRegistry[*view.VideoDetail](ttl, limit)
	profiles := view.NewRegistry[*view.Profile](ttl, limit)
	s.janitors = append(s.janitors,
		func(ctx context.Context) error { return feeds.Run(ctx, sweepInterval) },
		func(ctx context.Context) error { return videos.Run(ctx, sweepInterval) },
		func(ctx context.Context) error { return profiles.Run(ctx, sweepInterval) },
	)

	feedHandler := handler.NewFeedHandler(pages, feeds)
	videoHandler := handler.NewVideoHandler(pages, videos)
	profileHandler := handler.NewProfileHandler(pages, profiles)
	authHandler := handler.NewAuthHandler(pages, view.NewAuthenticator())

	limiter := middleware.NewRateLimiter(s.config.RateLimit.Requests, s.config.RateLimit.Window, s.config.RateLimit.Burst)
	sessions := session.NewManager(s.store, s.config.Session.CookieSecure, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/", feedHandler.HandleFeed)
		r.Get("/feed", feedHandler.HandleFeed)

		r.Get("/login", authHandler.HandleLoginPage)
		r.Get("/signup", authHandler.HandleSignupPage)
		r.Post("/logout", authHandler.HandleLogout)
		r.With(limiter.Middleware).Post("/login", authHandler.HandleLogin)
		r.With(limiter.Middleware).Post("/signup", authHandler.HandleRegister)
		r.With(limiter.Middleware).Post("/signup/otp", authHandler.HandleRequestOTP)

		r.Route("/video/{id}", func(r chi.Router) {
			r.Get("/", videoHandler.HandleVideo)
			r.Post("/like", videoHandler.HandleLike)
			r.Post("/comments", videoHandler.HandleComment)
		})

		// Route guard: anonymous visitors are redirected before any fetch.
		r.Route(handler.ProfilePath, func(r chi.Router) {
			r.Use(auth.RequireSession)
			r.Get("/", profileHandler.HandleProfile)
			r.Post("/upload", profileHandler.HandleUpload)
			r.Post("/upload/open", profileHandler.HandleOpenUpload)
			r.Post("/upload/close", profileHandler.HandleCloseUpload)
		})
	})

	return nil
}

// Start runs the HTTP server and the page-instance janitors until ctx is
// cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the session store (flushes WAL, releases file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No ReadTimeout/WriteTimeout: uploads stream large bodies and are
		// bounded by upload.max_bytes instead.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.HTTP.Port)),
			slog.String("api", s.config.API.BaseURL),
			slog.String("session_backend", s.config.Session.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	for _, janitor := range s.janitors {
		g.Go(func() error { return janitor(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
