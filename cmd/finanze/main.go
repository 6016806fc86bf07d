package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanze/internal/cli"
	apphttp "finanze/internal/http"
	"finanze/internal/importer"
	applog "finanze/internal/log"
	"finanze/internal/spreadsheet"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(applog.DefaultConfig().Level)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	level, _ := cfg.SlogLevel()
	logger := cli.SetupLogger(level).WithComponent(applog.ComponentApp)

	logger.Info("Starting finanze server", applog.FieldOperation, applog.OpStartup)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	format, _ := spreadsheet.ParseFormat(cfg.DefaultImportFormat)
	opts := apphttp.Options{
		Logger:           logger,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		DefaultFormat:    format,
		PreviewTTL:       cfg.PreviewTTL,
		PreviewCacheSize: cfg.PreviewCacheSize,
		Stats:            repo,
	}

	sheets, err := cli.InitSheets(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets source", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if sheets != nil {
		opts.Sheets = sheets
	}

	exec := importer.NewExecutor(repo, importer.WithPublisher(publisher))
	srv := apphttp.NewServer(":"+cfg.Port, exec, opts)

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port, "default_format", format)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
