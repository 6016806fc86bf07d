// Package cli provides the process bootstrap shared by cmd/finanze and
// cmd/finanze-import.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanze/internal/amqp"
	"finanze/internal/config"
	applog "finanze/internal/log"
	"finanze/internal/ports"
	"finanze/internal/sheets/google"
	"finanze/internal/storage"
)

// SetupLogger initializes structured logging at level and makes it the
// default logger.
func SetupLogger(level slog.Level) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = level
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath,
			applog.FieldErrorType, applog.ErrorTypeDatabase)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return repo
}

// InitPublisher connects the import event publisher when AMQP is configured.
// An unreachable broker is logged and imports run without events. The
// returned close func is never nil.
func InitPublisher(logger *applog.Logger, cfg *config.Config) (ports.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, import events disabled")
		return nil, func() {}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		logger.Warn("AMQP unavailable, import events disabled", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		return nil, func() {}
	}

	logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
	}
}

// InitSheets builds the Google Sheets workbook source when credentials are
// configured. It returns nil when they are not.
func InitSheets(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*google.Source, error) {
	if !cfg.HasGoogleCredentials() {
		logger.Info("Google Sheets credentials not configured, Google source disabled")
		return nil, nil
	}
	creds, err := google.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	src, err := google.NewSource(ctx, creds)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets source ready")
	return src, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
