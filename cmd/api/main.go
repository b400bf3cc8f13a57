package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clubhouse/internal/api"
	"clubhouse/internal/clock"
	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/domain"
	"clubhouse/internal/events"
	"clubhouse/internal/logging"
	"clubhouse/internal/metrics"
	"clubhouse/internal/repository"
	"clubhouse/internal/scheduler"
	"clubhouse/internal/service"
	"clubhouse/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	store, err := database.NewStore(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer store.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	cache, cacheCloser := initStatusCache(cfg, &logger)
	if cacheCloser != nil {
		defer (func() { _ = cacheCloser.Close() })()
	}

	bus := events.NewEventBus()
	clk := clock.Real{}

	facilities := service.NewFacilityRegistry(store, cache, bus, clk, &logger)
	bookings := service.NewBookingEngine(store, cache, bus, clk, &logger)
	reservations := service.NewReservationEngine(store, cache, bus, clk, &logger)
	members := service.NewMemberDirectory(store, clk, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := facilities.Sync(ctx, cfg.FacilityModels()); err != nil {
		logger.Error().Err(err).Msg("sync facilities")
		return err
	}

	reconciler := scheduler.NewReconciler(store, cache, bus, clk,
		time.Duration(cfg.Scheduler.SweepIntervalMinutes)*time.Minute, &logger)
	reconciler.Start(ctx)

	exports := worker.NewExportWorker(store, cfg.Exports.Path, worker.RetryPolicy{}, clk, &logger)
	exports.Start(ctx)

	httpServer := api.NewHTTPServer(cfg.API, bookings, reservations, facilities, members, reconciler, exports, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

// initStatusCache wires the availability snapshot cache: Redis with an
// in-memory failover when enabled and reachable, in-memory only otherwise.
func initStatusCache(cfg *config.Config, logger *zerolog.Logger) (domain.StatusCache, io.Closer) {
	ttl := time.Duration(cfg.Redis.SnapshotTTL) * time.Second
	memory := repository.NewMemoryStatusCache(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, using in-memory cache")
		_ = repository.Close(client)
		return memory, nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := repository.NewRedisStatusCache(client, ttl)
	return repository.NewFailoverStatusCache(primary, memory, logger), client
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
