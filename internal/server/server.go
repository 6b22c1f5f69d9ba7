// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where handlers,
// middleware, and routes are connected. main.go stays minimal; everything
// the server owns (database, blob store) is created here and closed on
// shutdown.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB → UserService/BucketListService → handlers → routes
//	storage.Store → UploadHandler + the services' URL resolver
//
// Handlers never touch the database directly, services never touch HTTP.
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

	"github.com/sakif/wanderlist/internal/auth"
	"github.com/sakif/wanderlist/internal/handler"
	"github.com/sakif/wanderlist/internal/middleware"
	sqliteRepo "github.com/sakif/wanderlist/internal/repository/sqlite"
	"github.com/sakif/wanderlist/internal/service"
	"github.com/sakif/wanderlist/internal/storage"
)

// Config holds server configuration, populated from the environment by
// cmd/server via envconfig.
type Config struct {
	Port               int    `envconfig:"PORT" default:"8080"`
	BaseURL            string `envconfig:"BASE_URL"` // public origin; defaults to http://localhost:{port}
	DBPath             string `envconfig:"DB_PATH" default:"data/wanderlist.db"`
	StorageDir         string `envconfig:"STORAGE_DIR" default:"data/blobs"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`
	GitHubClientID     string `envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `envconfig:"GITHUB_CALLBACK_URL"`
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it during graceful
// shutdown so the WAL is flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config: opens the database,
// creates the blob store, builds the token service and OAuth provider, and
// wires every handler to its route.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = cfg.BaseURL + "/auth/github/callback"
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /auth/github/login                       → redirect to provider
//	GET    /auth/github/callback                    → complete sign-in, issue session
//	POST   /auth/logout                             → clear session cookie
//	POST   /api/users/sync                          → pre-session user upsert
//	GET    /api/me                                  → current profile        [auth]
//	GET    /api/users/{externalID}/items            → list items by subject
//	GET    /api/users/{externalID}/items/completed  → completed items by subject
//	GET    /api/users/{externalID}/stats            → dashboard counts
//	GET    /api/users/{externalID}/profile-image    → avatar lookup
//	POST   /api/items                               → create item            [auth]
//	DELETE /api/items/{id}                          → delete item            [auth+owner]
//	POST   /api/items/{id}/toggle                   → flip completion        [auth+owner]
//	PUT    /api/items/{id}/completed                → set completion         [auth+owner]
//	POST   /api/items/{id}/photo                    → attach item photo      [auth+owner]
//	POST   /api/profile/avatar                      → attach avatar          [auth]
//	POST   /api/uploads                             → issue upload URL       [auth]
//	PUT    /storage/upload/{token}                  → byte transfer          [signed token]
//	GET    /storage/blobs/{storageID}               → durable retrieval
func (s *Server) setupRoutes() error {
	// Global middleware — runs on every request, in order.
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	blobs, err := storage.New(s.config.StorageDir, s.config.BaseURL, s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}

	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	userService := service.NewUserService(s.db, blobs, s.logger)
	itemService := service.NewBucketListService(s.db, s.db, blobs, s.logger)

	authHandler := handler.NewAuthHandler(github, tokens, userService, s.logger)
	itemHandler := handler.NewItemHandler(itemService, s.logger)
	profileHandler := handler.NewProfileHandler(userService, s.logger)
	uploadHandler := handler.NewUploadHandler(blobs, s.logger)

	// Session establishment
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// Blob storage surface: the upload URL is authorized by its embedded
	// signed token, retrieval URLs are public by design.
	s.router.Put("/storage/upload/{token}", uploadHandler.HandleUpload)
	s.router.Get("/storage/blobs/{storageID}", uploadHandler.HandleServeBlob)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/users/sync", authHandler.HandleSyncUser)

		// Public reads keyed by a caller-supplied subject id. The only
		// check is the store lookup; unknown subjects get empty results.
		// OptionalAuth attaches the caller's identity when a valid session
		// cookie rides along, without ever blocking an anonymous read.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))

			r.Get("/users/{externalID}/items", itemHandler.HandleListForSubject)
			r.Get("/users/{externalID}/items/completed", itemHandler.HandleListCompletedForSubject)
			r.Get("/users/{externalID}/stats", itemHandler.HandleStatsForSubject)
			r.Get("/users/{externalID}/profile-image", profileHandler.HandleGetProfileImage)
		})

		// Everything that mutates requires a session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)
			r.Post("/items", itemHandler.HandleCreate)
			r.Delete("/items/{id}", itemHandler.HandleDelete)
			r.Post("/items/{id}/toggle", itemHandler.HandleToggle)
			r.Put("/items/{id}/completed", itemHandler.HandleSetCompleted)
			r.Post("/items/{id}/photo", itemHandler.HandleAttachPhoto)
			r.Post("/profile/avatar", profileHandler.HandleAttachAvatar)
			r.Post("/uploads", uploadHandler.HandleRequestUploadURL)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
// 1. Stop accepting new connections on SIGINT/SIGTERM
// 2. Wait up to 30s for in-flight requests to finish
// 3. Close the database connection (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
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
