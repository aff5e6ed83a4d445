// Package main is the entry point for the DevHelper AI server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal — its job is to:
// 1. Read configuration (environment variables, optionally from .env)
// 2. Create dependencies (logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/devhelper-ai/internal/config"
	"github.com/sakif/devhelper-ai/internal/server"
)

func main() {
	// A bootstrap logger until LOG_LEVEL is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Relative paths resolve against the working directory; `go run ./cmd/server`
	// from the project root finds web/ directly.
	if err := resolveDirs(&cfg); err != nil {
		logger.Error("failed to resolve web directories", slog.String("error", err.Error()))
		os.Exit(1)
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

// resolveDirs makes the template and static directories absolute.
func resolveDirs(cfg *config.Config) error {
	for _, dir := range []*string{&cfg.TemplateDir, &cfg.StaticDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", *dir, err)
		}
		*dir = abs
	}
	return nil
}
