package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finanze/internal/cli"
	"finanze/internal/config"
	applog "finanze/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentCLI
	logCfg.Output = os.Stderr
	if level, err := cfg.SlogLevel(); err == nil {
		logCfg.Level = level
	}
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(&rootOptions{cfg: cfg, logger: logger}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
