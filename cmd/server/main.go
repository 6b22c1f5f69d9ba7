// Package main is the entry point for the wanderlist server.
//
// The main package is kept minimal — its job is to:
// 1. Read configuration (a .env file plus environment variables)
// 2. Create the logger
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.).
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/sakif/wanderlist/internal/server"
)

func main() {
	// slog.NewTextHandler outputs human-readable structured logs. In
	// production you'd raise the level to Info or Warn to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// A .env file is optional — real deployments set the environment
	// directly, so a missing file is not an error.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded configuration from .env")
	}

	// envconfig fills the Config struct from environment variables using
	// the struct tags on server.Config (defaults, required markers).
	var cfg server.Config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the data directories exist before the database and blob store
	// try to use them.
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.StorageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create data directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
