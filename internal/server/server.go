// Package server wires handlers, middleware and routes into one HTTP
// server.
//
// DEPENDENCY FLOW:
// cmd/server opens the infrastructure (SQLite, optional Redis and Neo4j)
// and hands it over in Deps. New builds the services and handlers from
// it, so this is the only place where the layers meet:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// The Server owns the database from then on and closes it on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/config"
	"github.com/sakif/code-compass/internal/handler"
	"github.com/sakif/code-compass/internal/middleware"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/notify"
	sqliteRepo "github.com/sakif/code-compass/internal/repository/sqlite"
	"github.com/sakif/code-compass/internal/service"
	"github.com/sakif/code-compass/internal/validate"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Deps is everything New needs from the outside. Hub, Projector and
// GitHub are optional.
type Deps struct {
	Config    *config.Config
	DB        *sqliteRepo.DB
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Hub       *notify.Hub
	Projector service.GraphProjector
	GitHub    handler.GitHubOAuth
	Logger    *slog.Logger
}

// Server is the HTTP server and the resources it owns.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	hub     *notify.Hub
	started time.Time
}

// New builds the services and handlers and mounts every route.
func New(d Deps) (*Server, error) {
	if d.Config == nil || d.DB == nil || d.Tokens == nil || d.Passwords == nil || d.Logger == nil {
		return nil, errors.New("server: config, database, tokens, passwords and logger are required")
	}
	hub := d.Hub
	if hub == nil {
		hub = notify.NewHub(nil, d.Logger)
	}

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     d.Config,
		logger:  d.Logger,
		db:      d.DB,
		hub:     hub,
		started: time.Now(),
	}
	s.setupRoutes(d)
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the notification hub the routes publish to.
func (s *Server) Hub() *notify.Hub { return s.hub }

// setupRoutes mounts middleware and routes.
//
// MIDDLEWARE ORDER:
// 1. RequestID, RealIP: request identity for the log line
// 2. Recoverer: a panic becomes a 500 instead of a dead process
// 3. Logger: one line per request
// 4. CORS: answers preflights before any route runs
//
// The request timeout only wraps /api; /ws connections are long-lived.
func (s *Server) setupRoutes(d Deps) {
	cfg := d.Config
	v := validate.New()
	resp := handler.NewResponder(d.Logger, cfg.IsDevelopment())

	// === Services ===
	catalog := service.NewCatalogService(d.DB.Templates(), d.Projector, v, d.Logger)
	projects := service.NewProjectService(d.DB.Projects(), v, d.Logger)
	glossary := service.NewGlossaryService(d.DB.Glossary(), v, d.Logger)
	progressSvc := service.NewProgressService(d.DB.Users(), d.DB.Templates(), s.hub, cfg.Progress.MergeMode, v, d.Logger)
	authSvc := service.NewAuthService(d.DB.Users(), d.Tokens, d.Passwords, v, d.Logger)
	users := service.NewUserService(d.DB.Users(), v, d.Logger)

	// === Handlers ===
	templateHandler := handler.NewTemplateHandler(catalog, v, resp)
	projectHandler := handler.NewProjectHandler(projects, v, resp)
	glossaryHandler := handler.NewGlossaryHandler(glossary, v, resp)
	userHandler := handler.NewUserHandler(progressSvc, users, resp)
	authHandler := handler.NewAuthHandler(authSvc, d.GitHub, cfg.Server.ClientURL, resp, d.Logger)
	healthHandler := handler.NewHealthHandler(d.DB, s.started)
	wsHandler := handler.NewWebsocketHandler(
		notify.NewServer(s.hub, progressSvc, cfg.Server.AllowedOrigins, d.Logger),
		resp,
	)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(d.Logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.NotFound(resp.NotFound)
	s.router.MethodNotAllowed(resp.MethodNotAllowed)

	requireUser := auth.RequireAuth(d.Tokens)
	requireAdmin := chi.Chain(requireUser, auth.RequireRole(model.RoleAdmin))

	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.With(requireUser).Get("/ws", wsHandler.HandleUpgrade)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.With(requireUser).Get("/me", authHandler.HandleMe)
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templateHandler.HandleList)
			r.Get("/categories/stats", templateHandler.HandleCategoryStats)
			r.Get("/slug/{slug}", templateHandler.HandleGetBySlug)
			r.Get("/{id}", templateHandler.HandleGetByID)
			r.Get("/{id}/graph", templateHandler.HandleGraph)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin...)
				r.Post("/", templateHandler.HandleCreate)
				r.Put("/{id}", templateHandler.HandleUpdate)
				r.Delete("/{id}", templateHandler.HandleDelete)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.HandleList)
			r.Get("/featured/list", projectHandler.HandleFeatured)
			r.Get("/{id}", projectHandler.HandleGet)
			r.Get("/{id}/stats", projectHandler.HandleStats)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin...)
				r.Post("/", projectHandler.HandleCreate)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)
			})
		})

		r.Route("/glossary", func(r chi.Router) {
			r.Get("/", glossaryHandler.HandleList)
			r.Get("/search", glossaryHandler.HandleSearch)
			r.Get("/categories", glossaryHandler.HandleCategories)
			r.With(requireAdmin...).Post("/", glossaryHandler.HandleCreate)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/progress", userHandler.HandleListProgress)
			r.Put("/progress", userHandler.HandleUpdateProgress)
			r.Get("/progress/{templateId}", userHandler.HandleGetProgress)
			r.Get("/stats", userHandler.HandleStats)
			r.Get("/profile", userHandler.HandleGetProfile)
			r.Put("/profile", userHandler.HandleUpdateProfile)
			r.Put("/preferences", userHandler.HandleUpdatePreferences)
		})
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully:
// stop accepting connections, wait for in-flight requests, close the
// database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("env", s.cfg.App.Env),
			slog.String("database", s.cfg.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
