package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/gradefresh-dev/gradefresh/internal/config"
	"github.com/gradefresh-dev/gradefresh/internal/logger"
	"github.com/gradefresh-dev/gradefresh/internal/server"
	"github.com/gradefresh-dev/gradefresh/internal/tracing"
)

var version = "dev" // Will be set during build with -ldflags

// Replaced in tests
var (
	initTracing = tracing.Init
	serve       = func(cfg *config.Config, log zerolog.Logger) error {
		srv, err := server.New(cfg, log, version)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		log.Info().
			Str("version", version).
			Str("api_url", cfg.API.URL).
			Msg("Starting GradeFresh web frontend...")

		// Blocks until SIGINT/SIGTERM
		return srv.Start()
	}
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup; main only turns its error into an exit code
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, "web")
	log := logger.GetLogger()

	shutdownTracing, err := initTracing(context.Background(), cfg.Tracing.Enabled, cfg.Tracing.ServiceName, version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	if err := serve(cfg, log); err != nil {
		log.Error().Err(err).Msg("Server failed")
		return err
	}
	return nil
}
