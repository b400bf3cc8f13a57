package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/logging"
	"clubhouse/internal/scheduler"
)

// One-shot reconciliation sweep, meant for cron or manual runs against a
// live database.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "sweeper")

	store, err := database.NewStore(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	reconciler := scheduler.NewReconciler(store, nil, nil, clock.Real{}, 0, &logger)
	report, err := reconciler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	logger.Info().
		Int64("deactivated", report.Deactivated).
		Int64("reactivated", report.Reactivated).
		Int64("locked", report.Locked).
		Int64("unlocked", report.Unlocked).
		Msg("one-shot sweep finished")
	return nil
}
