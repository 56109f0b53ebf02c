package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"teamy/internal/adapters/config"
	"teamy/internal/bootstrap"
	"teamy/pkg/logger"
)

func main() {
	// Load configuration. Missing token or admin secrets are fatal before anything starts.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	container := bootstrap.NewContainer(cfg)
	if err := container.Init(); err != nil {
		logger.Get().Errorw("Initialization failed", "error", err)
		container.Shutdown()
		os.Exit(1)
	}

	if err := container.Start(); err != nil {
		logger.Get().Errorw("Start failed", "error", err)
		container.Shutdown()
		os.Exit(1)
	}

	waitForShutdown(container.Context, container.Log)

	container.Shutdown()
}

// waitForShutdown blocks until SIGINT/SIGTERM or a fatal component error cancels ctx
func waitForShutdown(ctx context.Context, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Infow("Shutting down...", "signal", sig.String())
	case <-ctx.Done():
		log.Warn("Shutting down after component failure...")
	}
}
